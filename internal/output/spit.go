// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"

	"github.com/staranto/layerctl/internal/config"
	"github.com/staranto/layerctl/internal/layer"
	"github.com/staranto/layerctl/internal/session"
)

// Formats accepted by Emit.
var Formats = []string{"text", "json", "yaml"}

// Options controls rendering.
type Options struct {
	Format string
	Color  bool
	Titles bool
}

// Field is a single row of text output.
type Field struct {
	Key   string
	Value any
}

// Emit writes v to w in the requested format. Text output renders fields as a
// two column table; json and yaml marshal v itself.
func Emit(w io.Writer, opts Options, v any, fields []Field) error {
	if w == nil {
		w = os.Stdout
	}

	switch opts.Format {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	case "", "text":
		TableWriter(fields, opts, w)
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", opts.Format)
	}
}

// Result emits the outcome of a build.
func Result(w io.Writer, opts Options, res *layer.Result) error {
	return Emit(w, opts, res, ResultFields(res))
}

// ResultFields lists the text rows for a build result.
func ResultFields(res *layer.Result) []Field {
	pkgs := make([]string, 0, len(res.Packages))
	for _, p := range res.Packages {
		pkgs = append(pkgs, p.String())
	}

	fields := []Field{
		{"layer", res.LayerName},
		{"version", res.Version},
		{"version_arn", res.LayerVersionArn},
		{"region", res.Region},
		{"runtime", res.Runtime},
		{"architecture", res.Architecture},
		{"archive", res.ArchivePath},
		{"size", humanize.IBytes(uint64(res.ArchiveSize))},
		{"unzipped", humanize.IBytes(uint64(res.UncompressedSize))},
		{"packages", strings.Join(pkgs, " ")},
	}
	if res.CleanupError != "" {
		fields = append(fields, Field{"cleanup_error", res.CleanupError})
	}
	return fields
}

// Identity emits the caller identity of a validated session.
func Identity(w io.Writer, opts Options, region string, id session.Identity) error {
	v := struct {
		session.Identity `yaml:",inline"`
		Region           string `json:"region" yaml:"region"`
	}{id, region}

	return Emit(w, opts, v, []Field{
		{"account", id.Account},
		{"arn", id.Arn},
		{"user_id", id.UserID},
		{"region", region},
	})
}

// ColorEnabled reports whether colored output should be used on w. Color is
// only ever used when requested, NO_COLOR is unset and w is a terminal.
func ColorEnabled(requested bool, w io.Writer) bool {
	if !requested {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// TableWriter renders fields as an unbordered key/value table honoring color,
// titles and padding options.
func TableWriter(fields []Field, opts Options, w io.Writer) {
	if len(fields) == 0 {
		return
	}

	var (
		headerStyle = lipgloss.NewStyle().Align(lipgloss.Left)
		keyStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		valueStyle  = keyStyle
	)

	if opts.Color {
		headerColor, keyColor, valueColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		keyStyle = keyStyle.Foreground(lipgloss.Color(keyColor))
		valueStyle = valueStyle.Foreground(lipgloss.Color(valueColor))
	}

	pad, _ := config.GetInt("padding", 2)
	log.Debugf("padding: %v", pad)

	var rows [][]string
	for _, f := range fields {
		rows = append(rows, []string{f.Key, InterfaceToString(f.Value, "-")})
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case col == 0:
				style = keyStyle
			default:
				style = valueStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles {
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers("FIELD", "VALUE").BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, field string, value string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	field, _ = config.GetString(fmt.Sprintf("%s.key", key), "#00c8f0")
	value, _ = config.GetString(fmt.Sprintf("%s.value", key), "#ffffff")
	return
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value any, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int32:
		return strconv.FormatInt(int64(value), 10)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case fmt.Stringer:
		return value.String()
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
