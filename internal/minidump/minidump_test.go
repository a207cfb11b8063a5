package minidump

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/bethesda-forensics/mdmpcarve/internal/diskio"
)

type fixtureBuilder struct {
	buf []byte
}

func (f *fixtureBuilder) offset() uint32 { return uint32(len(f.buf)) }

func (f *fixtureBuilder) writeU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	f.buf = append(f.buf, b[:]...)
}

func (f *fixtureBuilder) writeU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	f.buf = append(f.buf, b[:]...)
}

func (f *fixtureBuilder) writeBytes(b []byte) { f.buf = append(f.buf, b...) }

func (f *fixtureBuilder) pad(n int) { f.buf = append(f.buf, make([]byte, n)...) }

// buildFixture constructs an MDMP dump with one module (a PowerPC-BE PE
// image) reachable through three separately-addressed memory64 fragments,
// modeled on spec.md S4.
func buildFixture(t *testing.T) (path string, moduleImage []byte) {
	t.Helper()

	const (
		baseVA    = uint64(0x82000000)
		moduleSz  = uint32(0x3000)
		fragSz    = 0x1000
		machine   = uint16(0x1F2) // PowerPC-BE
		moduleName = "default.xex"
	)

	image := make([]byte, moduleSz)
	image[0], image[1] = 'M', 'Z'
	peOffset := uint32(0x80)
	binary.LittleEndian.PutUint32(image[0x3C:0x40], peOffset)
	copy(image[peOffset:peOffset+4], "PE\x00\x00")
	binary.LittleEndian.PutUint16(image[peOffset+4:peOffset+6], machine)

	f := &fixtureBuilder{}
	f.writeBytes([]byte("MDMP")) // header placeholder, patched below
	f.writeU32(0)                // version
	f.writeU32(2)                // stream count
	f.writeU32(0)                // stream dir rva, patched below

	streamDirOff := f.offset()
	f.pad(2 * 12) // two stream directory entries, patched below

	moduleStreamOff := f.offset()
	f.writeU32(1) // module count
	f.writeU64(baseVA)
	f.writeU32(moduleSz)
	f.writeU32(0) // checksum
	f.writeU32(0) // timestamp
	nameRVAPatch := f.offset()
	f.writeU32(0) // name_rva, patched below
	f.pad(84)

	nameRVA := f.offset()
	units := utf16.Encode([]rune(moduleName))
	nameBytes := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(nameBytes[i*2:i*2+2], u)
	}
	f.writeU32(uint32(len(nameBytes)))
	f.writeBytes(nameBytes)

	mem64StreamOff := f.offset()
	f.writeU64(3) // range count
	baseRVAPatch := f.offset()
	f.writeU64(0) // base_rva, patched below
	f.writeU64(baseVA)
	f.writeU64(fragSz)
	f.writeU64(baseVA + fragSz)
	f.writeU64(fragSz)
	f.writeU64(baseVA + 2*fragSz)
	f.writeU64(fragSz)

	baseRVA := f.offset()
	f.writeBytes(image[0:fragSz])
	f.writeBytes(image[fragSz : 2*fragSz])
	f.writeBytes(image[2*fragSz : 3*fragSz])

	binary.LittleEndian.PutUint32(f.buf[12:16], streamDirOff)
	binary.LittleEndian.PutUint32(f.buf[streamDirOff:streamDirOff+4], streamTypeModuleList)
	binary.LittleEndian.PutUint32(f.buf[streamDirOff+4:streamDirOff+8], 0)
	binary.LittleEndian.PutUint32(f.buf[streamDirOff+8:streamDirOff+12], moduleStreamOff)
	binary.LittleEndian.PutUint32(f.buf[streamDirOff+12:streamDirOff+16], streamTypeMemory64List)
	binary.LittleEndian.PutUint32(f.buf[streamDirOff+16:streamDirOff+20], 0)
	binary.LittleEndian.PutUint32(f.buf[streamDirOff+20:streamDirOff+24], mem64StreamOff)
	binary.LittleEndian.PutUint32(f.buf[nameRVAPatch:nameRVAPatch+4], nameRVA)
	binary.LittleEndian.PutUint64(f.buf[baseRVAPatch:baseRVAPatch+8], uint64(baseRVA))

	dir := t.TempDir()
	path = filepath.Join(dir, "dump.mdmp")
	if err := os.WriteFile(path, f.buf, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path, image
}

func TestParseAndReassembleModule(t *testing.T) {
	path, wantImage := buildFixture(t)

	reader, err := diskio.Open(path)
	if err != nil {
		t.Fatalf("diskio.Open failed: %v", err)
	}
	defer reader.Close()

	dump, err := Parse(reader)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(dump.Modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(dump.Modules))
	}
	if len(dump.Ranges) != 3 {
		t.Fatalf("expected 3 memory ranges, got %d", len(dump.Ranges))
	}

	modules := ReassembleModules(reader, dump)
	if len(modules) != 1 {
		t.Fatalf("expected 1 reconstructed module, got %d", len(modules))
	}

	m := modules[0]
	if m.BytesFilled != int64(len(wantImage)) {
		t.Errorf("BytesFilled = %d, want %d", m.BytesFilled, len(wantImage))
	}
	if m.Data[0] != 'M' || m.Data[1] != 'Z' {
		t.Errorf("reconstructed module missing MZ header")
	}
	if string(m.Data[m.PEOffset:m.PEOffset+4]) != "PE\x00\x00" {
		t.Errorf("reconstructed module missing PE signature at offset %d", m.PEOffset)
	}
	if m.MachineName != "PowerPC-BE" {
		t.Errorf("MachineName = %q, want PowerPC-BE", m.MachineName)
	}
	for i := range wantImage {
		if m.Data[i] != wantImage[i] {
			t.Fatalf("reconstructed byte %d = %#x, want %#x", i, m.Data[i], wantImage[i])
		}
	}
}

func TestWriteModules(t *testing.T) {
	path, _ := buildFixture(t)

	reader, err := diskio.Open(path)
	if err != nil {
		t.Fatalf("diskio.Open failed: %v", err)
	}
	defer reader.Close()

	dump, err := Parse(reader)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	modules := ReassembleModules(reader, dump)
	outDir := t.TempDir()

	if err := WriteModules(outDir, modules); err != nil {
		t.Fatalf("WriteModules failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "module_list.txt")); err != nil {
		t.Errorf("module_list.txt missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, modules[0].Name)); err != nil {
		t.Errorf("module file missing: %v", err)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.mdmp")
	data := make([]byte, 64)
	copy(data, "NOPE")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	reader, err := diskio.Open(path)
	if err != nil {
		t.Fatalf("diskio.Open failed: %v", err)
	}
	defer reader.Close()

	if _, err := Parse(reader); err == nil {
		t.Fatal("expected Parse to reject a bad magic")
	}
}

func TestSanitizeModuleName(t *testing.T) {
	tests := map[string]string{
		"default.xex":       "default.xex",
		"kernel32.dll":      "kernel32.dll",
		"xam.xex":           "xam.xex",
		"C:\\game\\foo.exe": "foo.exe",
		"unknownmodule":     "unknownmodule.dll",
	}
	for in, want := range tests {
		if got := sanitizeModuleName(in); got != want {
			t.Errorf("sanitizeModuleName(%q) = %q, want %q", in, got, want)
		}
	}
}
