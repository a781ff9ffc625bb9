// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package aws loads AWS SDK v2 configuration and constructs the service
// clients (STS, Lambda, S3) used by the session and layer packages.
package aws
