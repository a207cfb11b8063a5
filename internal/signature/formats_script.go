package signature

import "bytes"

// Bethesda compiled scripts embed their own source as ASCII text
// ("ScriptName ... BEGIN ... END ... BEGIN ... END ..."). There is no
// declared length; the size-finder scans forward counting balanced
// BEGIN/END blocks and stops at the first point the nesting returns to
// zero after at least one block, capped by MaxSize.

const (
	scriptMinSize = 16
	scriptMaxSize = 256 * 1024
)

var scriptDescriptor = Descriptor{
	Name:       "script_scn",
	Extension:  ".txt",
	Magics:     [][]byte{[]byte("ScriptName "), []byte("scn ")},
	MinSize:    scriptMinSize,
	MaxSize:    scriptMaxSize,
	Endianness: EitherEndian,
	SizeFinder: scriptSizeFinder,
}

var (
	beginMarker = []byte("Begin ")
	endMarker   = []byte("\nEnd")
)

func scriptSizeFinder(dump []byte, off int) (Extent, bool) {
	windowEnd := off + scriptMaxSize
	if windowEnd > len(dump) {
		windowEnd = len(dump)
	}
	if windowEnd-off < scriptMinSize {
		return Extent{}, false
	}
	window := dump[off:windowEnd]

	depth := 0
	sawBlock := false
	lastEnd := -1
	pos := 0
	for pos < len(window) {
		bi := bytes.Index(window[pos:], beginMarker)
		ei := bytes.Index(window[pos:], endMarker)

		switch {
		case bi < 0 && ei < 0:
			pos = len(window)
		case bi >= 0 && (ei < 0 || bi < ei):
			depth++
			sawBlock = true
			pos += bi + len(beginMarker)
		default:
			if depth > 0 {
				depth--
			}
			pos += ei + len(endMarker)
			if depth == 0 && sawBlock {
				lastEnd = pos
				pos = len(window) // stop at the first fully-balanced block
			}
		}
	}

	if !sawBlock {
		return Extent{}, false
	}

	size := int64(len(window))
	bestEffort := true
	if lastEnd > 0 {
		size = int64(lastEnd)
		bestEffort = false
	}

	if size < scriptMinSize {
		return Extent{}, false
	}
	return Extent{SizeInDump: size, SizeOutput: size, BestEffort: bestEffort}, true
}
