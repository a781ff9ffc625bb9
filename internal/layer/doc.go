// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package layer builds and publishes Python Lambda layers. A Builder walks a
// strictly sequential pipeline (prepare the build/python tree, install the
// manifest for the Lambda platform with pip, zip the tree, publish it) and
// removes the build tree on every exit path.
package layer
