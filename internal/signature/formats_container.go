package signature

// RIFF-family containers (XMA audio, WAV audio) and Bink video: both carry
// a 32-bit declared size near the front of the header that already counts
// the whole container, so the size-finder is just "read the field, clamp".

const (
	xmaMaxSize = 64 * 1024 * 1024
	wavMaxSize = 256 * 1024 * 1024
	bikMaxSize = 512 * 1024 * 1024
)

func riffSizeFinder(formType string, maxSize int64) SizeFinder {
	return func(dump []byte, off int) (Extent, bool) {
		if off+12 > len(dump) {
			return Extent{}, false
		}
		if string(dump[off+8:off+12]) != formType {
			return Extent{}, false
		}
		declared, ok := readU32LE(dump, off+4)
		if !ok {
			return Extent{}, false
		}
		total := int64(declared)
		if total <= 12 {
			return Extent{}, false
		}
		total = clampMax(total, maxSize)
		return Extent{SizeInDump: total, SizeOutput: total}, true
	}
}

func riffValidator(formType string) Validator {
	return func(dump []byte, off int) bool {
		return off+12 <= len(dump) && string(dump[off+8:off+12]) == formType
	}
}

var xmaDescriptor = Descriptor{
	Name:       "xma",
	Extension:  ".xma",
	Magics:     [][]byte{[]byte("RIFF")},
	MinSize:    44,
	MaxSize:    xmaMaxSize,
	Endianness: LittleEndian,
	Validator:  riffValidator("XMA "),
	SizeFinder: riffSizeFinder("XMA ", xmaMaxSize),
}

var wavDescriptor = Descriptor{
	Name:       "wav",
	Extension:  ".wav",
	Magics:     [][]byte{[]byte("RIFF")},
	MinSize:    44,
	MaxSize:    wavMaxSize,
	Endianness: LittleEndian,
	Validator:  riffValidator("WAVE"),
	SizeFinder: riffSizeFinder("WAVE", wavMaxSize),
}

var bikDescriptor = Descriptor{
	Name:       "bik",
	Extension:  ".bik",
	Magics:     [][]byte{[]byte("BIKi"), []byte("BIKb"), []byte("BIKd"), []byte("BIKg")},
	MinSize:    16,
	MaxSize:    bikMaxSize,
	Endianness: LittleEndian,
	SizeFinder: func(dump []byte, off int) (Extent, bool) {
		declared, ok := readU32LE(dump, off+4)
		if !ok {
			return Extent{}, false
		}
		total := int64(declared)
		if total <= 16 {
			return Extent{}, false
		}
		total = clampMax(total, bikMaxSize)
		return Extent{SizeInDump: total, SizeOutput: total}, true
	},
}
