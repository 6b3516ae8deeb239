// util/error.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mmp/perfchart/log"
)

// ErrorLogger accumulates errors found while validating a decoded chart
// or project file so that all of them can be reported at once. Push and
// Pop track where in the file we are so that each error carries its
// context.
type ErrorLogger struct {
	hierarchy []string
	errors    []string
}

func (e *ErrorLogger) Push(s string) {
	e.hierarchy = append(e.hierarchy, s)
}

func (e *ErrorLogger) Pop() {
	e.hierarchy = e.hierarchy[:len(e.hierarchy)-1]
}

func (e *ErrorLogger) prefix() string {
	if len(e.hierarchy) == 0 {
		return ""
	}
	return strings.Join(e.hierarchy, " / ") + ": "
}

func (e *ErrorLogger) ErrorString(s string, args ...any) {
	e.errors = append(e.errors, e.prefix()+fmt.Sprintf(s, args...))
}

func (e *ErrorLogger) Error(err error) {
	e.errors = append(e.errors, e.prefix()+err.Error())
}

func (e *ErrorLogger) HaveErrors() bool {
	return len(e.errors) > 0
}

// Err returns nil if no errors have been recorded and otherwise an error
// wrapping base whose message lists every recorded error.
func (e *ErrorLogger) Err(base error) error {
	if !e.HaveErrors() {
		return nil
	}
	if base == nil {
		return errors.New(e.String())
	}
	return fmt.Errorf("%w:\n%s", base, e.String())
}

func (e *ErrorLogger) PrintErrors(lg *log.Logger) {
	// Two loops so they aren't interleaved with logging to stderr
	for _, err := range e.errors {
		lg.Errorf("%+v", err)
	}
	for _, err := range e.errors {
		fmt.Fprintln(os.Stderr, err)
	}
}

func (e *ErrorLogger) String() string {
	return strings.Join(e.errors, "\n")
}

// CheckDepth panics if the Push/Pop hierarchy is not back at depth d;
// it is meant to be deferred at the start of validation functions.
func (e *ErrorLogger) CheckDepth(d int) {
	if e == nil || e.CurrentDepth() == d {
		return
	}
	if r := recover(); r != nil {
		panic(r)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Initial ErrorLogger depth %d, final %d\n", d, e.CurrentDepth())
	for _, f := range log.Callstack(nil) {
		fmt.Fprintf(&sb, "%15s:%d %s\n", f.File, f.Line, f.Function)
	}
	panic(sb.String())
}

func (e *ErrorLogger) CurrentDepth() int {
	if e == nil {
		return 0
	}
	return len(e.hierarchy)
}
