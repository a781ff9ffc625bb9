// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package layer

import (
	"context"

	"github.com/staranto/layerctl/internal/session"
)

// Gate produces a validated session handle or fails. It runs to completion
// before anything touches the filesystem.
type Gate func(ctx context.Context) (*session.Handle, error)

// SessionGate loads and validates s.
func SessionGate(s *session.Session) Gate {
	return func(ctx context.Context) (*session.Handle, error) {
		if err := s.Load(); err != nil {
			return nil, err
		}
		return s.Validate(ctx)
	}
}

// Execute passes the credential gate, then runs one pipeline end to end. When
// the gate fails no stage is entered.
func Execute(ctx context.Context, gate Gate, cfg BuildConfiguration, opts ...BuilderOption) (*Result, error) {
	h, err := gate(ctx)
	if err != nil {
		return nil, err
	}

	b, err := NewBuilder(cfg, h, opts...)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx)
}
