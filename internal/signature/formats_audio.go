package signature

// Framed audio formats: MP3 follows its frame chain via the bitrate/
// sample-rate tables encoded in each frame header; OGG follows its page
// chain via the per-page segment table. Both stop at the first frame/page
// that doesn't conform, rather than trusting a declared total length.

const (
	mp3MinSize = 4
	mp3MaxSize = 64 * 1024 * 1024
)

var mp3Descriptor = Descriptor{
	Name:       "mp3",
	Extension:  ".mp3",
	Magics:     [][]byte{{0xFF, 0xFB}, {0xFF, 0xFA}, {0xFF, 0xF3}, {0xFF, 0xF2}},
	MinSize:    mp3MinSize,
	MaxSize:    mp3MaxSize,
	Endianness: EitherEndian,
	SizeFinder: mp3SizeFinder,
}

// mpeg1Layer3BitrateKbps indexes the MPEG-1 Layer III bitrate table by the
// 4-bit bitrate index in the frame header (0 and 15 are reserved/free).
var mpeg1Layer3BitrateKbps = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}

var mpegSampleRateHz = [4][3]int{
	{44100, 48000, 32000}, // MPEG 1
	{22050, 24000, 16000}, // MPEG 2
	{11025, 12000, 8000},  // MPEG 2.5
}

func mp3FrameLen(dump []byte, off int) (int, bool) {
	if off+4 > len(dump) {
		return 0, false
	}
	b1, b2 := dump[off+1], dump[off+2]
	if dump[off] != 0xFF || b1&0xE0 != 0xE0 {
		return 0, false
	}

	versionBits := (b1 >> 3) & 0x3
	layerBits := (b1 >> 1) & 0x3
	if layerBits != 0x1 { // only Layer III frame-length math implemented
		return 0, false
	}

	var mpegRow int
	switch versionBits {
	case 0x3:
		mpegRow = 0 // MPEG 1
	case 0x2:
		mpegRow = 1 // MPEG 2
	case 0x0:
		mpegRow = 2 // MPEG 2.5
	default:
		return 0, false
	}

	bitrateIdx := (b2 >> 4) & 0xF
	sampleIdx := (b2 >> 2) & 0x3
	padding := (b2 >> 1) & 0x1

	if bitrateIdx == 0 || bitrateIdx == 0xF || sampleIdx == 0x3 {
		return 0, false
	}

	bitrate := mpeg1Layer3BitrateKbps[bitrateIdx] * 1000
	sampleRate := mpegSampleRateHz[mpegRow][sampleIdx]
	if bitrate == 0 || sampleRate == 0 {
		return 0, false
	}

	samplesPerFrame := 1152
	if mpegRow != 0 {
		samplesPerFrame = 576
	}

	frameLen := (samplesPerFrame/8)*bitrate/sampleRate + int(padding)
	if frameLen < 4 {
		return 0, false
	}
	return frameLen, true
}

func mp3SizeFinder(dump []byte, off int) (Extent, bool) {
	if _, ok := mp3FrameLen(dump, off); !ok {
		return Extent{}, false
	}

	total := 0
	pos := off
	for total < mp3MaxSize {
		fl, ok := mp3FrameLen(dump, pos)
		if !ok {
			break
		}
		total += fl
		pos += fl
	}

	size := clampMax(int64(total), mp3MaxSize)
	if size < mp3MinSize {
		return Extent{}, false
	}
	return Extent{SizeInDump: size, SizeOutput: size}, true
}

const (
	oggMinSize = 27
	oggMaxSize = 256 * 1024 * 1024
)

var oggDescriptor = Descriptor{
	Name:       "ogg",
	Extension:  ".ogg",
	Magics:     [][]byte{[]byte("OggS")},
	MinSize:    oggMinSize,
	MaxSize:    oggMaxSize,
	Endianness: EitherEndian,
	Validator:  oggValidator,
	SizeFinder: oggSizeFinder,
}

func oggValidator(dump []byte, off int) bool {
	return off+5 <= len(dump) && dump[off+4] == 0
}

func oggPageLen(dump []byte, off int) (int, bool, bool) {
	if off+27 > len(dump) || string(dump[off:off+4]) != "OggS" {
		return 0, false, false
	}
	headerType := dump[off+5]
	segCount := int(dump[off+26])
	if off+27+segCount > len(dump) {
		return 0, false, false
	}
	payload := 0
	for i := 0; i < segCount; i++ {
		payload += int(dump[off+27+i])
	}
	isLast := headerType&0x04 != 0
	return 27 + segCount + payload, true, isLast
}

func oggSizeFinder(dump []byte, off int) (Extent, bool) {
	total := 0
	pos := off
	sawLast := false
	for total < oggMaxSize {
		pageLen, ok, isLast := oggPageLen(dump, pos)
		if !ok {
			break
		}
		total += pageLen
		pos += pageLen
		if isLast {
			sawLast = true
			break
		}
	}

	size := clampMax(int64(total), oggMaxSize)
	if size < oggMinSize {
		return Extent{}, false
	}
	return Extent{SizeInDump: size, SizeOutput: size, BestEffort: !sawLast}, true
}
