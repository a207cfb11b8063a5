package minidump

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/bethesda-forensics/mdmpcarve/internal/diskio"
)

const (
	headerSize       = 16
	streamEntrySize  = 12
	moduleRecordSize = 108
)

// Parse reads the MDMP header, walks the stream directory, and parses the
// module list and memory64 list streams (every other stream type is
// ignored, per spec.md §4.3 step 2).
func Parse(reader *diskio.Reader) (*Dump, error) {
	raw, err := reader.ReadRange(0, headerSize)
	if err != nil || len(raw) < headerSize {
		return nil, fmt.Errorf("reading MDMP header: %w", ErrTruncatedDump)
	}

	var hdr Header
	copy(hdr.Magic[:], raw[0:4])
	hdr.Version = binary.LittleEndian.Uint32(raw[4:8])
	hdr.StreamCount = binary.LittleEndian.Uint32(raw[8:12])
	hdr.StreamDirRVA = binary.LittleEndian.Uint32(raw[12:16])

	if string(hdr.Magic[:]) != "MDMP" {
		return nil, ErrBadMagic
	}

	entries, err := readStreamDirectory(reader, hdr)
	if err != nil {
		return nil, err
	}

	dump := &Dump{Header: hdr}
	haveModules := false

	for _, e := range entries {
		switch e.Type {
		case streamTypeModuleList:
			modules, err := readModuleList(reader, e)
			if err != nil {
				return nil, fmt.Errorf("parsing module list stream: %w", err)
			}
			dump.Modules = modules
			haveModules = true
		case streamTypeMemory64List:
			ranges, err := readMemory64List(reader, e)
			if err != nil {
				return nil, fmt.Errorf("parsing memory64 list stream: %w", err)
			}
			dump.Ranges = ranges
		}
	}

	if !haveModules {
		return nil, ErrNoModuleStream
	}
	// A memory64 list is optional, matching the original extractor: a
	// module-only dump just reassembles with no fill data rather than
	// aborting.
	return dump, nil
}

func readStreamDirectory(reader *diskio.Reader, hdr Header) ([]StreamEntry, error) {
	want := int64(hdr.StreamCount) * streamEntrySize
	raw, err := reader.ReadRange(int64(hdr.StreamDirRVA), want)
	if err != nil || int64(len(raw)) < want {
		return nil, fmt.Errorf("reading stream directory: %w", ErrTruncatedDump)
	}

	entries := make([]StreamEntry, hdr.StreamCount)
	for i := range entries {
		off := i * streamEntrySize
		entries[i] = StreamEntry{
			Type: binary.LittleEndian.Uint32(raw[off : off+4]),
			Size: binary.LittleEndian.Uint32(raw[off+4 : off+8]),
			RVA:  binary.LittleEndian.Uint32(raw[off+8 : off+12]),
		}
	}
	return entries, nil
}

func readModuleList(reader *diskio.Reader, e StreamEntry) ([]ModuleRecord, error) {
	countRaw, err := reader.ReadRange(int64(e.RVA), 4)
	if err != nil || len(countRaw) < 4 {
		return nil, ErrTruncatedDump
	}
	count := binary.LittleEndian.Uint32(countRaw)

	tableOff := int64(e.RVA) + 4
	want := int64(count) * moduleRecordSize
	raw, err := reader.ReadRange(tableOff, want)
	if err != nil || int64(len(raw)) < want {
		return nil, ErrTruncatedDump
	}

	modules := make([]ModuleRecord, count)
	for i := range modules {
		off := int(i) * moduleRecordSize
		rec := ModuleRecord{
			BaseVA:    binary.LittleEndian.Uint64(raw[off : off+8]),
			Size:      binary.LittleEndian.Uint32(raw[off+8 : off+12]),
			Checksum:  binary.LittleEndian.Uint32(raw[off+12 : off+16]),
			Timestamp: binary.LittleEndian.Uint32(raw[off+16 : off+20]),
			NameRVA:   binary.LittleEndian.Uint32(raw[off+20 : off+24]),
		}
		name, err := readModuleName(reader, rec.NameRVA)
		if err == nil {
			rec.Name = name
		}
		modules[i] = rec
	}
	return modules, nil
}

func readModuleName(reader *diskio.Reader, nameRVA uint32) (string, error) {
	lenRaw, err := reader.ReadRange(int64(nameRVA), 4)
	if err != nil || len(lenRaw) < 4 {
		return "", ErrTruncatedDump
	}
	byteLen := binary.LittleEndian.Uint32(lenRaw)

	content, err := reader.ReadRange(int64(nameRVA)+4, int64(byteLen))
	if err != nil || int64(len(content)) < int64(byteLen) {
		return "", ErrTruncatedDump
	}

	units := make([]uint16, len(content)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(content[i*2 : i*2+2])
	}
	return strings.TrimRight(string(utf16.Decode(units)), "\x00"), nil
}

func readMemory64List(reader *diskio.Reader, e StreamEntry) ([]MemoryRange, error) {
	hdrRaw, err := reader.ReadRange(int64(e.RVA), 16)
	if err != nil || len(hdrRaw) < 16 {
		return nil, ErrTruncatedDump
	}
	rangeCount := binary.LittleEndian.Uint64(hdrRaw[0:8])
	baseRVA := binary.LittleEndian.Uint64(hdrRaw[8:16])

	tableOff := int64(e.RVA) + 16
	want := int64(rangeCount) * 16
	raw, err := reader.ReadRange(tableOff, want)
	if err != nil || int64(len(raw)) < want {
		return nil, ErrTruncatedDump
	}

	ranges := make([]MemoryRange, rangeCount)
	var cumulative uint64
	for i := range ranges {
		off := int(i) * 16
		va := binary.LittleEndian.Uint64(raw[off : off+8])
		size := binary.LittleEndian.Uint64(raw[off+8 : off+16])
		ranges[i] = MemoryRange{
			VA:         va,
			Size:       size,
			FileOffset: baseRVA + cumulative,
		}
		cumulative += size
	}
	return ranges, nil
}
