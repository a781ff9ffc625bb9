// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Package is one distribution pip installed into the layer.
type Package struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

func (p Package) String() string {
	return p.Name + "==" + p.Version
}

// parsePipReport extracts the installed distributions from a pip
// --report document. Unknown or partial documents yield what could be read.
func parsePipReport(data []byte) []Package {
	if !gjson.ValidBytes(data) {
		return nil
	}

	var pkgs []Package
	gjson.GetBytes(data, "install").ForEach(func(_, item gjson.Result) bool {
		name := item.Get("metadata.name").String()
		if name == "" {
			return true
		}
		pkgs = append(pkgs, Package{
			Name:    name,
			Version: item.Get("metadata.version").String(),
		})
		return true
	})

	sort.Slice(pkgs, func(i, j int) bool {
		return strings.ToLower(pkgs[i].Name) < strings.ToLower(pkgs[j].Name)
	})
	return pkgs
}
