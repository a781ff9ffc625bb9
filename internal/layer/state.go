// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

// State is a pipeline position. Transitions only move forward; Failed can be
// entered from any non-terminal state and is always followed by CleanedUp.
type State int

const (
	Init State = iota
	StructureReady
	DependenciesInstalled
	Archived
	Published
	CleanedUp
	Failed
)

var stateNames = [...]string{
	Init:                  "INIT",
	StructureReady:        "STRUCTURE_READY",
	DependenciesInstalled: "DEPENDENCIES_INSTALLED",
	Archived:              "ARCHIVED",
	Published:             "PUBLISHED",
	CleanedUp:             "CLEANED_UP",
	Failed:                "FAILED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Terminal reports whether no further stage may run from s.
func (s State) Terminal() bool {
	return s == CleanedUp || s == Failed
}
