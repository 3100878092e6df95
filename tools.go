// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

//go:build tools

// Package main pins the integration suite runner to go.mod.
package main

import (
	_ "github.com/onsi/ginkgo/v2/ginkgo"
)
