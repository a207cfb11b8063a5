package signature

// lipDescriptor, sdtDescriptor, fntDescriptor and texDescriptor cover
// Bethesda auxiliary asset formats that the distilled spec didn't name but
// the original extractor's integrity checker validates: lip-sync curves,
// shader data blobs, bitmap font metrics and texture info headers. None of
// them declare a reliable total length, so every match here is BestEffort,
// bounded by MaxSize.

var lipDescriptor = Descriptor{
	Name:       "lip",
	Extension:  ".lip",
	Magics:     [][]byte{[]byte("LIPS")},
	MinSize:    8,
	MaxSize:    4 * 1024 * 1024,
	Endianness: LittleEndian,
	SizeFinder: fixedWindowSizeFinder(4*1024*1024, 8),
}

var sdtDescriptor = Descriptor{
	Name:       "sdt",
	Extension:  ".sdt",
	Magics:     [][]byte{[]byte("SDAT")},
	MinSize:    16,
	MaxSize:    16 * 1024 * 1024,
	Endianness: LittleEndian,
	SizeFinder: fixedWindowSizeFinder(16*1024*1024, 16),
}

var fntDescriptor = Descriptor{
	Name:       "fnt",
	Extension:  ".fnt",
	Magics:     [][]byte{{0x00, 0x01, 0x00, 0x00}},
	MinSize:    16,
	MaxSize:    2 * 1024 * 1024,
	Endianness: LittleEndian,
	SizeFinder: fixedWindowSizeFinder(2*1024*1024, 16),
}

var texDescriptor = Descriptor{
	Name:       "tex",
	Extension:  ".tex",
	Magics:     [][]byte{[]byte("TEXI")},
	MinSize:    16,
	MaxSize:    1 * 1024 * 1024,
	Endianness: EitherEndian,
	SizeFinder: fixedWindowSizeFinder(1*1024*1024, 16),
}

// fixedWindowSizeFinder returns a SizeFinder that always claims the full
// MaxSize window (clamped to the end of the dump), for formats with no
// discoverable end-of-record marker at all.
func fixedWindowSizeFinder(maxSize int64, minSize int64) SizeFinder {
	return func(dump []byte, off int) (Extent, bool) {
		windowEnd := off + int(maxSize)
		if windowEnd > len(dump) {
			windowEnd = len(dump)
		}
		size := int64(windowEnd - off)
		if size < minSize {
			return Extent{}, false
		}
		return Extent{SizeInDump: size, SizeOutput: size, BestEffort: true}, true
	}
}
