package trellis

import "errors"

var (
	// ErrScanNotFound is returned when an operation requires a persisted
	// Version for a scan id and none exists.
	ErrScanNotFound = errors.New("scan not found")

	// ErrNoSeed is returned when an impact request names neither a file nor
	// a symbol to start from.
	ErrNoSeed = errors.New("impact request needs a file or symbol seed")
)
