package minidump

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bethesda-forensics/mdmpcarve/internal/diskio"
)

// ReassembleModules reconstructs every module in dump whose VA range has
// at least one overlapping memory fragment. Modules with zero matching
// ranges are skipped (not an error), matching spec.md §4.3's edge cases.
func ReassembleModules(reader *diskio.Reader, dump *Dump) []ReconstructedModule {
	var out []ReconstructedModule
	for _, mod := range dump.Modules {
		rm, ok := reassembleModule(reader, mod, dump.Ranges)
		if ok {
			out = append(out, rm)
		}
	}
	return out
}

func reassembleModule(reader *diskio.Reader, mod ModuleRecord, ranges []MemoryRange) (ReconstructedModule, bool) {
	ms := mod.BaseVA
	me := mod.BaseVA + uint64(mod.Size)

	var overlapping []MemoryRange
	for _, r := range ranges {
		if r.VA < me && r.VA+r.Size > ms {
			overlapping = append(overlapping, r)
		}
	}
	if len(overlapping) == 0 {
		return ReconstructedModule{}, false
	}

	buf := make([]byte, mod.Size)
	filled := make([]bool, mod.Size)
	var bytesFilled int64

	for _, r := range overlapping {
		var srcStart uint64
		if ms > r.VA {
			srcStart = ms - r.VA
		}
		destStart := uint64(0)
		if r.VA > ms {
			destStart = r.VA - ms
		}

		copyLen := r.Size - srcStart
		if remaining := uint64(mod.Size) - destStart; copyLen > remaining {
			copyLen = remaining
		}
		if copyLen == 0 {
			continue
		}

		data, err := reader.ReadRange(int64(r.FileOffset+srcStart), int64(copyLen))
		if err != nil {
			continue
		}

		for i := 0; i < len(data) && uint64(i)+destStart < uint64(mod.Size); i++ {
			idx := destStart + uint64(i)
			if filled[idx] {
				continue // first write wins; a later overlapping range never overwrites
			}
			buf[idx] = data[i]
			filled[idx] = true
			bytesFilled++
		}
	}

	if len(buf) < 2 || buf[0] != 'M' || buf[1] != 'Z' {
		return ReconstructedModule{}, false
	}
	if len(buf) < 0x40 {
		return ReconstructedModule{}, false
	}
	peOffset := binary.LittleEndian.Uint32(buf[0x3C:0x40])
	if int64(peOffset)+4 > int64(len(buf)) {
		return ReconstructedModule{}, false
	}
	if string(buf[peOffset:peOffset+4]) != "PE\x00\x00" {
		return ReconstructedModule{}, false
	}

	var machine uint16
	if int64(peOffset)+6 <= int64(len(buf)) {
		machine = binary.LittleEndian.Uint16(buf[peOffset+4 : peOffset+6])
	}

	name := mod.Name
	if name == "" {
		name = fmt.Sprintf("module_%08X", mod.BaseVA)
	}

	return ReconstructedModule{
		Name:          sanitizeModuleName(name),
		BaseVA:        mod.BaseVA,
		Size:          mod.Size,
		MachineType:   machine,
		MachineName:   machineName(machine),
		PEOffset:      peOffset,
		BytesFilled:   bytesFilled,
		CoverageRatio: float64(bytesFilled) / float64(mod.Size),
		Data:          buf,
	}, true
}

// sanitizeModuleName strips any path prefix the dump recorded and appends
// .dll when the name carries no recognizable executable suffix, matching
// the original extractor's safe_name derivation.
func sanitizeModuleName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".exe") || strings.HasSuffix(lower, ".dll") || strings.HasSuffix(lower, ".xex") {
		return name
	}
	return name + ".dll"
}
