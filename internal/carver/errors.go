package carver

import "errors"

// ErrTruncatedDump is a sentinel declared for errors.Is matching; no
// function in this package currently returns it.
var (
	ErrTruncatedDump = errors.New("dump truncated before a declared extent could be read")
)
