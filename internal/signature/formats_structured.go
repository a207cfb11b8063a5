package signature

// Structured formats whose true end is a function of a section table or a
// chain of self-describing group records: PE images (MZ/PE, including
// Xbox 360 PowerPC XEX-style builds still carrying a plain PE header), BSA
// archives, and ESP/ESM TES4 plugins.

const peHeaderMinSize = 0x40 // up to and including the e_lfanew field

const peMaxSize = 128 * 1024 * 1024

var peDescriptor = Descriptor{
	Name:       "pe",
	Extension:  ".dll",
	Magics:     [][]byte{[]byte("MZ")},
	MinSize:    64,
	MaxSize:    peMaxSize,
	Endianness: LittleEndian,
	SizeFinder: peSizeFinder,
}

func peSizeFinder(dump []byte, off int) (Extent, bool) {
	if off+peHeaderMinSize > len(dump) {
		return Extent{}, false
	}
	peOff, ok := readU32LE(dump, off+0x3C)
	if !ok || int(peOff) < peHeaderMinSize || int64(peOff) > maxPEHeaderOffset {
		return Extent{}, false
	}

	sigAt := off + int(peOff)
	if sigAt+24 > len(dump) || string(dump[sigAt:sigAt+4]) != "PE\x00\x00" {
		return Extent{}, false
	}

	numSections, ok := readU16LE(dump, sigAt+6)
	if !ok {
		return Extent{}, false
	}
	optHeaderSize, ok := readU16LE(dump, sigAt+20)
	if !ok {
		return Extent{}, false
	}

	sectionTableStart := sigAt + 24 + int(optHeaderSize)
	const sectionHeaderSize = 40

	var maxEnd int64
	for i := 0; i < int(numSections); i++ {
		base := sectionTableStart + i*sectionHeaderSize
		if base+sectionHeaderSize > len(dump) {
			break // truncate to the last valid section, per spec
		}
		rawSize, ok1 := readU32LE(dump, base+16)
		rawPtr, ok2 := readU32LE(dump, base+20)
		if !ok1 || !ok2 {
			break
		}
		end := int64(rawPtr) + int64(rawSize)
		if end > maxEnd {
			maxEnd = end
		}
	}

	headerEnd := int64(sectionTableStart + int(numSections)*sectionHeaderSize)
	if maxEnd < headerEnd {
		maxEnd = headerEnd
	}

	size := clampMax(maxEnd, peMaxSize)
	if size < int64(peHeaderMinSize) {
		return Extent{}, false
	}
	return Extent{SizeInDump: size, SizeOutput: size}, true
}

// maxPEHeaderOffset bounds e_lfanew to reject garbage MZ-looking matches;
// real images never push the PE header this far out.
const maxPEHeaderOffset = 16 * 1024 * 1024

// BSA archive header (Oblivion/Fallout 3-era): magic, version, offsets and
// counts needed to bound the archive. Actual payload length depends on
// per-version folder/file record sizes and the name tables that follow;
// this reconstructs the common v103/v104 layout and marks the result
// best-effort since a handful of BSA variants pack records differently.
const bsaMaxSize = 1024 * 1024 * 1024

var bsaDescriptor = Descriptor{
	Name:       "bsa",
	Extension:  ".bsa",
	Magics:     [][]byte{[]byte("BSA\x00")},
	MinSize:    36,
	MaxSize:    bsaMaxSize,
	Endianness: LittleEndian,
	SizeFinder: bsaSizeFinder,
}

func bsaSizeFinder(dump []byte, off int) (Extent, bool) {
	if off+36 > len(dump) {
		return Extent{}, false
	}
	folderRecordOffset, ok := readU32LE(dump, off+8)
	if !ok {
		return Extent{}, false
	}
	folderCount, ok := readU32LE(dump, off+16)
	if !ok {
		return Extent{}, false
	}
	fileCount, ok := readU32LE(dump, off+20)
	if !ok {
		return Extent{}, false
	}
	totalFolderNameLen, ok := readU32LE(dump, off+24)
	if !ok {
		return Extent{}, false
	}
	totalFileNameLen, ok := readU32LE(dump, off+28)
	if !ok {
		return Extent{}, false
	}

	if folderCount > 1_000_000 || fileCount > 10_000_000 || int64(folderRecordOffset) < 36 {
		return Extent{}, false
	}

	const folderRecordSize = 16 // hash(u64) + count(u32) + offset(u32)
	const fileRecordSize = 16   // hash(u64) + size(u32) + offset(u32)

	total := int64(folderRecordOffset) + int64(folderCount)*folderRecordSize
	total += int64(fileCount) * fileRecordSize
	total += int64(totalFolderNameLen) // folder name strings (length-prefixed, approximated by declared total)
	total += int64(totalFileNameLen)   // file name strings

	size := clampMax(total, bsaMaxSize)
	if size <= int64(folderRecordOffset) {
		return Extent{}, false
	}
	return Extent{SizeInDump: size, SizeOutput: size, BestEffort: true}, true
}

// ESP/ESM plugins (TES4 header). The record/group chain is fully
// self-describing: each top-level GRUP carries its own total size
// (including the 24-byte group header), so the size-finder walks that
// chain until it finds something that isn't a GRUP, hits max size, or
// walks past the dump. ESP and ESM share the identical TES4 record layout;
// the only on-disk discriminator is the ESM flag (bit 0x01) in the record
// header's flags field, so each descriptor's Validator checks that bit
// rather than relying on a file extension that doesn't exist in a dump.
const esmFlag = 0x00000001

const tes4MaxSize = 256 * 1024 * 1024

var espDescriptor = Descriptor{
	Name:       "esp",
	Extension:  ".esp",
	Magics:     [][]byte{[]byte("TES4")},
	MinSize:    24,
	MaxSize:    tes4MaxSize,
	Endianness: LittleEndian,
	Validator:  tes4FlagValidator(false),
	SizeFinder: espSizeFinder,
}

var esmDescriptor = Descriptor{
	Name:       "esm",
	Extension:  ".esm",
	Magics:     [][]byte{[]byte("TES4")},
	MinSize:    24,
	MaxSize:    tes4MaxSize,
	Endianness: LittleEndian,
	Validator:  tes4FlagValidator(true),
	SizeFinder: espSizeFinder,
}

func tes4FlagValidator(wantESM bool) Validator {
	return func(dump []byte, off int) bool {
		flags, ok := readU32LE(dump, off+8)
		if !ok {
			return false
		}
		return (flags&esmFlag != 0) == wantESM
	}
}

func espSizeFinder(dump []byte, off int) (Extent, bool) {
	if off+24 > len(dump) {
		return Extent{}, false
	}
	recordDataSize, ok := readU32LE(dump, off+4)
	if !ok {
		return Extent{}, false
	}

	pos := int64(off) + 24 + int64(recordDataSize)

	for {
		if pos+24 > int64(len(dump)) {
			break
		}
		if string(dump[pos:pos+4]) != "GRUP" {
			break
		}
		groupSize, ok := readU32LE(dump, int(pos)+4)
		if !ok || groupSize < 24 {
			break
		}
		next := pos + int64(groupSize)
		if next <= pos || next-int64(off) > tes4MaxSize {
			break
		}
		pos = next
	}

	size := clampMax(pos-int64(off), tes4MaxSize)
	if size < 24 {
		return Extent{}, false
	}
	return Extent{SizeInDump: size, SizeOutput: size}, true
}
