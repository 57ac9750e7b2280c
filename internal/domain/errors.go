package domain

import "errors"

// Error taxonomy shared by the acquisition loop, the store and the console.
// Callers wrap these with context and match them with errors.Is.
var (
	// ErrFetchFailure covers network errors and non-success provider responses.
	ErrFetchFailure = errors.New("fetch failure")

	// ErrMalformedReading means a payload is missing a required field or a
	// field is not numeric.
	ErrMalformedReading = errors.New("malformed reading")

	// ErrStoreUnavailable wraps persistence I/O failures.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrExportFailed covers an empty store and spreadsheet write failures.
	ErrExportFailed = errors.New("export failed")

	// ErrUnrecognizedCommand is reported for operator input that is not a known command.
	ErrUnrecognizedCommand = errors.New("unrecognized command")
)
