package signature

// DDS textures: fixed 128-byte header (4-byte "DDS " magic + 124-byte
// DDS_HEADER), followed by the pixel data / mip chain. The header is
// nominally little-endian but a handful of Xbox 360 tools round-trip it
// big-endian; the size-finder tries LE first and falls back to BE when
// the fields look implausible.

const (
	ddsHeaderSize = 128
	ddsMaxSize    = 256 * 1024 * 1024
)

var ddsDescriptor = Descriptor{
	Name:       "dds",
	Extension:  ".dds",
	Magics:     [][]byte{[]byte("DDS ")},
	MinSize:    ddsHeaderSize,
	MaxSize:    ddsMaxSize,
	Endianness: EitherEndian,
	SizeFinder: ddsSizeFinder,
}

type ddsFields struct {
	headerSize uint32
	height     uint32
	width      uint32
	mipCount   uint32
	fourCC     [4]byte
	rgbBitCnt  uint32
}

func readDDSFieldsLE(dump []byte, off int) (ddsFields, bool) {
	return readDDSFields(dump, off, readU32LE)
}

func readDDSFieldsBE(dump []byte, off int) (ddsFields, bool) {
	return readDDSFields(dump, off, readU32BE)
}

func readDDSFields(dump []byte, off int, readU32 func([]byte, int) (uint32, bool)) (ddsFields, bool) {
	var f ddsFields
	var ok bool
	if f.headerSize, ok = readU32(dump, off+4); !ok {
		return f, false
	}
	if f.height, ok = readU32(dump, off+12); !ok {
		return f, false
	}
	if f.width, ok = readU32(dump, off+16); !ok {
		return f, false
	}
	if f.mipCount, ok = readU32(dump, off+28); !ok {
		return f, false
	}
	if off+88 > len(dump) {
		return f, false
	}
	copy(f.fourCC[:], dump[off+84:off+88])
	if f.rgbBitCnt, ok = readU32(dump, off+88); !ok {
		return f, false
	}
	return f, true
}

func (f ddsFields) implausible() bool {
	return f.headerSize != 124 || f.width == 0 || f.height == 0 || f.width > 16384 || f.height > 16384
}

func ddsSizeFinder(dump []byte, off int) (Extent, bool) {
	if off+ddsHeaderSize > len(dump) {
		return Extent{}, false
	}

	fields, ok := readDDSFieldsLE(dump, off)
	if !ok {
		return Extent{}, false
	}
	if fields.implausible() {
		if be, ok := readDDSFieldsBE(dump, off); ok && !be.implausible() {
			fields = be
		} else {
			return Extent{}, false
		}
	}

	mipCount := fields.mipCount
	if mipCount == 0 {
		mipCount = 1
	}

	var payload int64
	w, h := int64(fields.width), int64(fields.height)
	blockSize, compressed := blockSizeFor(fields.fourCC)

	for i := uint32(0); i < mipCount && (w > 0 || h > 0); i++ {
		if compressed {
			blocksW := (w + 3) / 4
			blocksH := (h + 3) / 4
			if blocksW < 1 {
				blocksW = 1
			}
			if blocksH < 1 {
				blocksH = 1
			}
			payload += blocksW * blocksH * int64(blockSize)
		} else {
			bpp := int64(fields.rgbBitCnt)
			if bpp == 0 {
				bpp = 32
			}
			payload += w * h * bpp / 8
		}
		w /= 2
		h /= 2
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}

	total := clampMax(int64(ddsHeaderSize)+payload, ddsMaxSize)
	if total <= ddsHeaderSize {
		return Extent{}, false
	}
	return Extent{SizeInDump: total, SizeOutput: total}, true
}

func blockSizeFor(fourCC [4]byte) (size int64, compressed bool) {
	switch string(fourCC[:]) {
	case "DXT1":
		return 8, true
	case "DXT2", "DXT3", "DXT4", "DXT5", "ATI2", "BC4U", "BC4S":
		return 16, true
	case "DX10":
		return 16, true
	default:
		return 0, false
	}
}
