package signature

import "bytes"

// Gamebryo-family model/animation containers (NIF, KF, EGM, EGT). The
// header carries a free-text version string but no declared total size;
// the true end of the block list isn't formally documented, so (per the
// open question in spec.md §9) this conservatively bounds by MaxSize and
// marks every match BestEffort.

var gamebryoMagics = [][]byte{
	[]byte("Gamebryo File Format"),
	[]byte("NetImmerse File Format"),
}

func gamebryoDescriptor(name, ext string, maxSize int64) Descriptor {
	return Descriptor{
		Name:       name,
		Extension:  ext,
		Magics:     gamebryoMagics,
		MinSize:    40,
		MaxSize:    maxSize,
		Endianness: LittleEndian,
		Validator:  gamebryoValidator,
		SizeFinder: gamebryoSizeFinder(maxSize),
	}
}

func gamebryoValidator(dump []byte, off int) bool {
	end := off + 40
	if end > len(dump) {
		end = len(dump)
	}
	return bytes.IndexByte(dump[off:end], 0x00) > 0
}

// gamebryoSizeFinder has no end-of-stream marker to look for, so it simply
// bounds the match by MaxSize (clamped to the dump's own length) and
// reports the extent BestEffort. A sibling-magic cut was tried and
// rejected: it can land inside an outer match's own window (e.g. one NIF
// embedding another), producing a truncated outer extent and a disjoint
// inner one that containment resolution can no longer merge.
func gamebryoSizeFinder(maxSize int64) SizeFinder {
	return func(dump []byte, off int) (Extent, bool) {
		windowEnd := off + int(maxSize)
		if windowEnd > len(dump) {
			windowEnd = len(dump)
		}
		size := int64(windowEnd - off)
		if size < 40 {
			return Extent{}, false
		}
		return Extent{SizeInDump: size, SizeOutput: size, BestEffort: true}, true
	}
}

var nifDescriptor = gamebryoDescriptor("nif", ".nif", 64*1024*1024)
var kfDescriptor = gamebryoDescriptor("kf", ".kf", 32*1024*1024)
var egmDescriptor = gamebryoDescriptor("egm", ".egm", 4*1024*1024)
var egtDescriptor = gamebryoDescriptor("egt", ".egt", 16*1024*1024)
