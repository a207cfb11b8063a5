package signature

import "encoding/binary"

// readU16/readU32/readU64 read fixed-width little- or big-endian integers
// out of a byte slice at off, returning (0, false) instead of panicking
// when the slice is too short — every size-finder below is written
// against a chunk buffer that may end mid-header at a dump boundary.

func readU16LE(b []byte, off int) (uint16, bool) {
	if off < 0 || off+2 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b[off:]), true
}

func readU32LE(b []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[off:]), true
}

func readU32BE(b []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(b) {
		return 0, false
	}
	return binary.BigEndian.Uint32(b[off:]), true
}

func readU64LE(b []byte, off int) (uint64, bool) {
	if off < 0 || off+8 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b[off:]), true
}

func clampMax(size, maxSize int64) int64 {
	if maxSize > 0 && size > maxSize {
		return maxSize
	}
	return size
}
