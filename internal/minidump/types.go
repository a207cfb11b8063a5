// Package minidump parses the MDMP container format and reassembles
// loaded PE modules from the scattered memory fragments a minidump
// records, the way the teacher's ntfs/fat32 packages parse their own
// binary container formats and stitch clusters into a recovered file.
package minidump

// Header is the 16-byte MDMP file header. All MDMP fields are
// little-endian regardless of the dumped process's own architecture.
type Header struct {
	Magic        [4]byte
	Version      uint32
	StreamCount  uint32
	StreamDirRVA uint32
}

const (
	streamTypeModuleList   = 4
	streamTypeMemory64List = 9
)

// StreamEntry is one record in the MDMP stream directory.
type StreamEntry struct {
	Type uint32
	Size uint32
	RVA  uint32
}

// ModuleRecord is one 108-byte entry in the module list stream.
type ModuleRecord struct {
	BaseVA    uint64
	Size      uint32
	Checksum  uint32
	Timestamp uint32
	NameRVA   uint32
	Name      string
}

// MemoryRange is one entry of the memory64 list: a virtual-address range
// and the dump file offset its bytes start at.
type MemoryRange struct {
	VA         uint64
	Size       uint64
	FileOffset uint64
}

// Dump is the parsed result of Parse: the module list and memory ranges
// needed to reassemble modules, everything else in the stream directory
// having been ignored per spec.
type Dump struct {
	Header  Header
	Modules []ModuleRecord
	Ranges  []MemoryRange
}

// machineNames maps the COFF machine field to the symbolic names the
// original extractor reports; 0x1F2 is Xbox 360's big-endian PowerPC.
var machineNames = map[uint16]string{
	0x14C:  "i386",
	0x8664: "AMD64",
	0x1F0:  "PowerPC",
	0x1F1:  "PowerPC FP",
	0x1F2:  "PowerPC-BE",
}

func machineName(machine uint16) string {
	if name, ok := machineNames[machine]; ok {
		return name
	}
	return "unknown"
}

// ReconstructedModule is a module whose fragments have been stitched
// together into a single in-memory image.
type ReconstructedModule struct {
	Name          string
	BaseVA        uint64
	Size          uint32
	MachineType   uint16
	MachineName   string
	PEOffset      uint32
	BytesFilled   int64
	CoverageRatio float64
	Data          []byte
}
