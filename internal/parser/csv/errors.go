package csv

import "fmt"

// SourceNotFoundError reports that the input could not be opened at all.
// It is fatal: no chunk has been produced when it is returned.
type SourceNotFoundError struct {
	Source string
	Err    error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source not found: %s: %v", e.Source, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// MalformedSourceError reports input that cannot be parsed into rows: an
// empty file, an unusable header, a CSV syntax error, or a row wider than the
// header. Line is the 1-based source line where parsing stopped (0 if unknown).
type MalformedSourceError struct {
	Line   int
	Reason string
	Err    error
}

func (e *MalformedSourceError) Error() string {
	msg := "malformed source"
	if e.Line > 0 {
		msg = fmt.Sprintf("%s at line %d", msg, e.Line)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedSourceError) Unwrap() error { return e.Err }
