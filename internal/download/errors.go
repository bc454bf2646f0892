package download

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a fetch that exhausted its retry budget without
// ever receiving a response.
var ErrUnavailable = errors.New("DL_UNREACHABLE: no response after retries")

// ErrChecksumMismatch is the sentinel behind ChecksumError; detect it
// with errors.Is.
var ErrChecksumMismatch = errors.New("DL_CHECKSUM: checksum mismatch")

// StatusError reports a terminal HTTP status for a fetch.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("DL_HTTP: GET %s returned status %d", e.URL, e.StatusCode)
}

// ChecksumError reports a digest mismatch for a downloaded file.
type ChecksumError struct {
	Path     string
	Expected string
	Got      string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("DL_CHECKSUM: %s: expected %s, got %s", e.Path, e.Expected, e.Got)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }
