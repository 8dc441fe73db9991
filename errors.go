package tfmx

import "fmt"

// FormatError reports a fatal, non-recoverable problem with a music-data
// blob handed to Parse. Unlike the runtime anomalies described in spec
// section 7 (OutOfRange, UnknownOpcode), a FormatError means no Module
// could be produced at all.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("tfmx: format error: %s", e.Reason)
}

func newFormatError(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// ErrNoSong is returned by StartSong and Render when no module has been
// attached with Load.
var ErrNoSong = fmt.Errorf("tfmx: no song has been started")
