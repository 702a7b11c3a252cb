package download

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"strconv"

	"github.com/avelter/memories-downloader/internal/archive"
	httpclient "github.com/avelter/memories-downloader/internal/http"
)

// Code is the short taxonomy tag attached to every per-item failure.
// Numeric HTTP statuses appear as their digits, e.g. "403".
type Code string

const (
	// CodeNetwork is a connection or timeout failure before any
	// response arrived.
	CodeNetwork Code = "NET"

	// CodeArchive is an unreadable archive or one missing its media.
	CodeArchive Code = "ZIP"

	// CodeFile is a local filesystem failure.
	CodeFile Code = "FILE"

	// CodeOverlay is a failed overlay composite.
	CodeOverlay Code = "OVR"

	// CodeLocation is a record rejected by strict-location mode.
	CodeLocation Code = "LOC"

	// CodeInterrupted is a task cut short by user interrupt.
	CodeInterrupted Code = "INT"

	// CodeUnknown is any unclassified failure.
	CodeUnknown Code = "ERR"
)

var descriptions = map[Code]string{
	"401":           "Unauthorized - Invalid credentials",
	"403":           "Forbidden - Link expired. Re-export the manifest",
	"404":           "Not found - Resource no longer exists",
	"408":           "Request timed out",
	"410":           "Gone - Link permanently expired",
	"429":           "Rate limited - Too many requests",
	"502":           "Bad gateway - Server temporarily unavailable",
	CodeNetwork:     "Network error - Connection failed",
	CodeArchive:     "ZIP processing error - Failed to extract media",
	CodeFile:        "File processing error - Failed to write/read file",
	CodeOverlay:     "Overlay error - Failed to apply overlay",
	CodeLocation:    "Missing required location metadata",
	CodeInterrupted: "Interrupted by user",
	CodeUnknown:     "Unexpected error",
}

// Description returns the one-line human description for the code.
func (c Code) Description() string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	if _, err := strconv.Atoi(string(c)); err == nil {
		return "Server rejected the request (HTTP " + string(c) + ")"
	}
	return descriptions[CodeUnknown]
}

// StructuredError is one item's terminal failure, kept for the
// end-of-run report.
type StructuredError struct {
	Filename string
	URL      string
	Code     Code
}

// codedError carries an explicit taxonomy code through error wrapping.
// Task stages use it where the underlying error alone would classify
// wrongly (e.g. an overlay decode failure is OVR, not ERR).
type codedError struct {
	code Code
	err  error
}

func (e *codedError) Error() string { return string(e.code) + ": " + e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code Code, err error) error {
	return &codedError{code: code, err: err}
}

// classify maps an error from any pipeline stage onto the taxonomy.
//
// Checked in order: explicit codes, HTTP statuses, cancellation,
// archive errors, filesystem errors, network errors. Whatever is left
// is ERR.
func classify(err error) Code {
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return Code(strconv.Itoa(statusErr.StatusCode))
	}

	if errors.Is(err, context.Canceled) {
		return CodeInterrupted
	}

	if errors.Is(err, archive.ErrMalformed) || errors.Is(err, archive.ErrNoMedia) {
		return CodeArchive
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return CodeFile
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return CodeNetwork
	}

	return CodeUnknown
}
