// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"errors"

	"github.com/samber/oops"

	"github.com/libraryhub/libraryhub/internal/library"
)

// Process exit codes. Each library failure class gets its own code so
// scripts can branch on the outcome without parsing output.
const (
	exitOK               = 0
	exitError            = 1
	exitInvalidInput     = 2
	exitForbidden        = 3
	exitNotFound         = 4
	exitInvalidState     = 5
	exitUnavailable      = 6
	exitConflict         = 7
	exitInvariant        = 8
	exitAuditDiscrepancy = 9
)

// errAuditFailed is returned by the audit command when counters disagree.
var errAuditFailed = errors.New("audit found copy count discrepancies")

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errAuditFailed):
		return exitAuditDiscrepancy
	case errors.Is(err, library.ErrForbidden):
		return exitForbidden
	case errors.Is(err, library.ErrNotFound):
		return exitNotFound
	case errors.Is(err, library.ErrInvalidState):
		return exitInvalidState
	case errors.Is(err, library.ErrUnavailable):
		return exitUnavailable
	case errors.Is(err, library.ErrConflict):
		return exitConflict
	case errors.Is(err, library.ErrCopyCountInvariant):
		return exitInvariant
	case errors.Is(err, library.ErrValidation):
		return exitInvalidInput
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		switch oopsErr.Code() {
		case "CONFIG_INVALID", "CONFIG_FILE_INVALID", "ENV_FILE_INVALID", "INVALID_ARGUMENT",
			"INVALID_LOG_LEVEL", "INVALID_LOG_FORMAT":
			return exitInvalidInput
		}
	}
	return exitError
}
