// Package errs defines the error taxonomy shared by the timeline components.
// Callers wrap these sentinels with fmt.Errorf("%w: ...") and match with errors.Is.
package errs

import "errors"

var (
	// ErrInputNotFound - a source file or directory does not exist.
	ErrInputNotFound = errors.New("input not found")
	// ErrUnsupportedFormat - audio is not 16-bit PCM or cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrAlignmentMismatch - per-row audio count differs from the row count.
	ErrAlignmentMismatch = errors.New("alignment mismatch")
	// ErrConfiguration - parameters with no safe default (e.g. negative durations).
	ErrConfiguration = errors.New("configuration error")
	// ErrSlideLimitExceeded - slide cap reached under the reject overflow policy.
	ErrSlideLimitExceeded = errors.New("slide limit exceeded")
)

// Kind returns a short stable label for err, used in metrics and API error bodies.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputNotFound):
		return "input_not_found"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrAlignmentMismatch):
		return "alignment_mismatch"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrSlideLimitExceeded):
		return "slide_limit_exceeded"
	default:
		return "internal"
	}
}
