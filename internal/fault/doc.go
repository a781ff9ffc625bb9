// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package fault defines the error taxonomy shared by the credential session
// and the layer build pipeline.
package fault
