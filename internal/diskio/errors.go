package diskio

import "errors"

// ErrTooSmall is returned by Open when the dump is smaller than any
// recognized container could be — a fatal InputError per spec §7.
var ErrTooSmall = errors.New("dump too small")
