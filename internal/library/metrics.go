// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package library

import "errors"

// MetricsRecorder records lifecycle operation outcomes.
// Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	RecordTransition(op, outcome string)
}

// Outcome labels passed to MetricsRecorder.
const (
	OutcomeSuccess      = "success"
	OutcomeForbidden    = "forbidden"
	OutcomeNotFound     = "not_found"
	OutcomeInvalidState = "invalid_state"
	OutcomeUnavailable  = "unavailable"
	OutcomeConflict     = "conflict"
	OutcomeInvariant    = "invariant"
	OutcomeValidation   = "validation"
	OutcomeError        = "error"
)

// OutcomeOf classifies err into an outcome label.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrInvalidState):
		return OutcomeInvalidState
	case errors.Is(err, ErrUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	case errors.Is(err, ErrCopyCountInvariant):
		return OutcomeInvariant
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	default:
		return OutcomeError
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordTransition(string, string) {}
