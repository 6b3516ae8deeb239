// chase/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package chase

import "errors"

var (
	ErrAmbiguousGuide    = errors.New("Expected exactly one match in expression(s)")
	ErrInvalidChart      = errors.New("Invalid chart")
	ErrInvalidExpression = errors.New("Invalid expression")
	ErrInvalidStep       = errors.New("Invalid step")
	ErrMissingInputs     = errors.New("Missing inputs")
	ErrNoDirection       = errors.New("No direction set.")
	ErrNoPosition        = errors.New("Position not set.")
	ErrUnboundVariable   = errors.New("Unbound variable")
	ErrVariableNotSet    = errors.New("Variable not set")
)
