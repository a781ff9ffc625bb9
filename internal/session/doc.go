// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package session loads AWS credentials from an env file or the process
// environment, validates them against STS and hands out the authenticated
// Handle every other AWS caller must go through.
package session
