package minidump

import "errors"

var (
	ErrBadMagic       = errors.New("not an MDMP file")
	ErrTruncatedDump  = errors.New("dump truncated before a declared MDMP structure could be read")
	ErrNoModuleStream = errors.New("dump has no module list stream")
)
