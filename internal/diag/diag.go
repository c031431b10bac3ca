// Package diag carries diagnostics from the scanner and the directive
// executor to the user, governed by a per-run warning policy.
package diag

import (
	"errors"
	"fmt"
	"log"
)

// Mode selects how non-fatal conditions are reported.
type Mode int

const (
	// Hide suppresses the condition and continues.
	Hide Mode = iota
	// Print emits the condition to the diagnostic output and continues.
	Print
	// Raise converts the condition to an error that stops the current
	// file's processing.
	Raise
	// AsError treats the condition as a fatal error.
	AsError
)

func (m Mode) String() string {
	switch m {
	case Hide:
		return "hide"
	case Print:
		return "print"
	case Raise:
		return "raise"
	case AsError:
		return "error"
	default:
		panic(fmt.Sprintf("unknown warning mode %d", int(m)))
	}
}

// ParseMode maps a -warnings flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "hide":
		return Hide, nil
	case "print":
		return Print, nil
	case "raise":
		return Raise, nil
	case "error":
		return AsError, nil
	}
	return 0, fmt.Errorf("unknown warning mode %q (want hide, print, raise, or error)", s)
}

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diag is one reportable condition with its location resolved to the
// unmodified source, never a raw buffer offset.
type Diag struct {
	Severity Severity
	File     string
	Line     int
	Column   int
	// Desc is the owning scope's description, e.g. `in macro "title"`.
	Desc    string
	Message string
}

func (d Diag) Error() string {
	s := fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
	if d.Desc != "" {
		s += " (" + d.Desc + ")"
	}
	return s
}

// Logger receives Print-mode warnings. Tests may swap it out.
var Logger = log.Default()

// Apply evaluates the warning policy for d. It returns nil when processing
// may continue, or the condition as an error when the current file's
// processing must stop. Error-severity conditions stop processing in every
// mode; AsError escalates warnings to errors. The result depends only on
// (m, d), no matter which component raised the condition.
func (m Mode) Apply(d Diag) error {
	if d.Severity == Error {
		return d
	}
	switch m {
	case Hide:
		return nil
	case Print:
		Logger.Printf("%v", d)
		return nil
	case Raise:
		return d
	case AsError:
		d.Severity = Error
		return d
	default:
		panic(fmt.Sprintf("unknown warning mode %d", int(m)))
	}
}

// IsError reports whether err is, or wraps, an error-severity Diag, i.e.
// the run must be considered failed rather than merely interrupted.
func IsError(err error) bool {
	var d Diag
	return errors.As(err, &d) && d.Severity == Error
}
