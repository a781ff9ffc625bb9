// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/staranto/layerctl/internal/layer"
	"github.com/staranto/layerctl/internal/output"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func NotEmptyValidator(value any) error {
	if strings.TrimSpace(value.(string)) == "" {
		return errors.New("must not be empty")
	}
	return nil
}

func OutputValidator(value any) error {
	if !slices.Contains(output.Formats, value.(string)) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

func ArchValidator(value any) error {
	valid := []string{layer.ArchX86_64, layer.ArchARM64}
	if !slices.Contains(valid, value.(string)) {
		return fmt.Errorf("must be one of %v", valid)
	}
	return nil
}

var runtimeRE = regexp.MustCompile(`^3\.[0-9]{1,2}$`)

// RuntimeValidator accepts a Python minor version such as 3.13.
func RuntimeValidator(value any) error {
	if !runtimeRE.MatchString(value.(string)) {
		return errors.New("must be a Python version such as 3.13")
	}
	return nil
}
