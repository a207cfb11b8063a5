package carver

import (
	"bytes"
	"compress/zlib"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))
	return log
}

func writeDump(t *testing.T, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.mdmp")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write dump fixture: %v", err)
	}
	return path
}

func putU32LE(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

// S1 — DDS at offset 0: 128-byte header, width=height=256, DXT1, followed by
// the computed pixel payload and trailing zero padding.
func TestCarveDumpDDSAtOffsetZero(t *testing.T) {
	header := make([]byte, 128)
	copy(header, "DDS ")
	putU32LE(header, 4, 124)
	putU32LE(header, 12, 256)
	putU32LE(header, 16, 256)
	putU32LE(header, 28, 1)
	copy(header[84:88], "DXT1")

	payload := 256 / 4 * 256 / 4 * 8 // blocksW*blocksH*blockSize = 32768
	data := append(header, make([]byte, payload)...)
	data = append(data, make([]byte, 1024)...) // trailing zero padding

	dump := writeDump(t, data)
	opts := Options{OutputDir: t.TempDir(), Types: []string{"dds"}}

	manifest, err := CarveDump(context.Background(), dump, opts, testLogger())
	if err != nil {
		t.Fatalf("CarveDump failed: %v", err)
	}
	if len(manifest.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(manifest.Entries))
	}
	got := manifest.Entries[0]
	if got.Offset != 0 || got.SizeInDump != 128+int64(payload) {
		t.Errorf("got offset=%d size=%d, want offset=0 size=%d", got.Offset, got.SizeInDump, 128+payload)
	}
}

// S2 — RIFF XMA with a declared size.
func TestCarveDumpRIFFXMADeclaredSize(t *testing.T) {
	data := make([]byte, 8+2044)
	copy(data, "RIFF")
	putU32LE(data, 4, 2044)
	copy(data[8:12], "XMA ")

	dump := writeDump(t, data)
	opts := Options{OutputDir: t.TempDir(), Types: []string{"xma"}}

	manifest, err := CarveDump(context.Background(), dump, opts, testLogger())
	if err != nil {
		t.Fatalf("CarveDump failed: %v", err)
	}
	if len(manifest.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(manifest.Entries))
	}
	if manifest.Entries[0].SizeInDump != 2044 {
		t.Errorf("SizeInDump = %d, want 2044", manifest.Entries[0].SizeInDump)
	}
}

// S3 — two overlapping NIFs, the second fully inside the first: only the
// outer one survives containment resolution.
func TestCarveDumpDropsContainedMatch(t *testing.T) {
	outer := append([]byte("NetImmerse File Format\x0020.0.0.4\x00"), make([]byte, 100)...)
	// plant an inner NIF magic fully inside the outer's window.
	copy(outer[60:], "NetImmerse File Format\x0020.0.0.4\x00")
	outer = append(outer, make([]byte, 40)...)

	dump := writeDump(t, outer)
	opts := Options{OutputDir: t.TempDir(), Types: []string{"nif"}}

	manifest, err := CarveDump(context.Background(), dump, opts, testLogger())
	if err != nil {
		t.Fatalf("CarveDump failed: %v", err)
	}
	if len(manifest.Entries) != 1 {
		t.Fatalf("expected containment to drop the inner match, got %d entries", len(manifest.Entries))
	}
	if manifest.Entries[0].Offset != 0 {
		t.Errorf("expected the outer match at offset 0 to survive, got offset %d", manifest.Entries[0].Offset)
	}
}

// S5 — chunk-boundary idempotence: a signature straddling the boundary
// between two small chunks is still found, with an identical result
// regardless of configured chunk size.
func TestCarveDumpChunkBoundaryIndependence(t *testing.T) {
	data := make([]byte, 8+2044)
	copy(data, "RIFF")
	putU32LE(data, 4, 2044)
	copy(data[8:12], "XMA ")
	// push the magic near a would-be chunk boundary by padding the front.
	padded := append(make([]byte, 4096-20), data...)

	dump := writeDump(t, padded)

	small := Options{OutputDir: t.TempDir(), Types: []string{"xma"}, ChunkSize: 512}
	large := Options{OutputDir: t.TempDir(), Types: []string{"xma"}, ChunkSize: 64 * 1024}

	m1, err := CarveDump(context.Background(), dump, small, testLogger())
	if err != nil {
		t.Fatalf("small-chunk carve failed: %v", err)
	}
	m2, err := CarveDump(context.Background(), dump, large, testLogger())
	if err != nil {
		t.Fatalf("large-chunk carve failed: %v", err)
	}

	if len(m1.Entries) != len(m2.Entries) || len(m1.Entries) != 1 {
		t.Fatalf("expected 1 entry in both runs, got %d and %d", len(m1.Entries), len(m2.Entries))
	}
	if m1.Entries[0].Offset != m2.Entries[0].Offset || m1.Entries[0].SizeInDump != m2.Entries[0].SizeInDump {
		t.Errorf("chunk size changed the result: %+v vs %+v", m1.Entries[0], m2.Entries[0])
	}
}

// S6 — signature at the final bytes of the dump must never overrun.
func TestCarveDumpSignatureAtFinalByte(t *testing.T) {
	data := make([]byte, 256)
	copy(data[252:], "DDS ")

	dump := writeDump(t, data)
	opts := Options{OutputDir: t.TempDir(), Types: []string{"dds"}}

	manifest, err := CarveDump(context.Background(), dump, opts, testLogger())
	if err != nil {
		t.Fatalf("CarveDump failed: %v", err)
	}
	for _, e := range manifest.Entries {
		if e.Offset+e.SizeInDump > int64(len(data)) {
			t.Errorf("entry overruns dump: offset=%d size=%d dump_size=%d", e.Offset, e.SizeInDump, len(data))
		}
	}
}

func TestCarveDumpManifestSortedAndWithinBounds(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(bytes.Repeat([]byte("payload"), 200))
	zw.Close()

	data := make([]byte, 4096)
	copy(data[3000:], buf.Bytes())
	copy(data[100:], "DDS ")
	putU32LE(data, 104, 124)
	putU32LE(data, 112, 4)
	putU32LE(data, 116, 4)
	putU32LE(data, 128, 1)
	putU32LE(data, 188, 32)

	dump := writeDump(t, data)
	opts := Options{OutputDir: t.TempDir()}

	manifest, err := CarveDump(context.Background(), dump, opts, testLogger())
	if err != nil {
		t.Fatalf("CarveDump failed: %v", err)
	}
	if len(manifest.Entries) == 0 {
		t.Fatal("expected at least one entry")
	}
	for i, e := range manifest.Entries {
		if e.Offset < 0 || e.Offset+e.SizeInDump > manifest.DumpSize {
			t.Errorf("entry %d out of bounds: %+v", i, e)
		}
		if i > 0 && manifest.Entries[i-1].Offset > e.Offset {
			t.Errorf("manifest not sorted by offset at index %d", i)
		}
		if _, err := os.Stat(e.Path); err != nil {
			t.Errorf("entry %d output missing on disk: %v", i, err)
		}
	}
}

func TestCarveDumpDeterministicFilenames(t *testing.T) {
	data := make([]byte, 8+2044)
	copy(data, "RIFF")
	putU32LE(data, 4, 2044)
	copy(data[8:12], "XMA ")

	dump := writeDump(t, data)

	m1, err := CarveDump(context.Background(), dump, Options{OutputDir: t.TempDir(), Types: []string{"xma"}}, testLogger())
	if err != nil {
		t.Fatalf("first carve failed: %v", err)
	}
	m2, err := CarveDump(context.Background(), dump, Options{OutputDir: t.TempDir(), Types: []string{"xma"}}, testLogger())
	if err != nil {
		t.Fatalf("second carve failed: %v", err)
	}

	if m1.Entries[0].Filename != m2.Entries[0].Filename {
		t.Errorf("filenames differ across identical runs: %q vs %q", m1.Entries[0].Filename, m2.Entries[0].Filename)
	}
}

// TestCarveDumpWorkersMatchesSequential checks that enabling the worker
// pool produces an identical manifest to the sequential path, since
// dropContained re-sorts before use regardless of the order in which
// workers finish resolving candidates.
func TestCarveDumpWorkersMatchesSequential(t *testing.T) {
	data := make([]byte, 64*1024)
	for i := 0; i < 10; i++ {
		off := i * 4096
		copy(data[off:], "RIFF")
		putU32LE(data, off+4, 2044)
		copy(data[off+8:off+12], "XMA ")
	}

	dump := writeDump(t, data)

	sequential, err := CarveDump(context.Background(), dump, Options{OutputDir: t.TempDir(), Types: []string{"xma"}}, testLogger())
	if err != nil {
		t.Fatalf("sequential carve failed: %v", err)
	}
	parallel, err := CarveDump(context.Background(), dump, Options{OutputDir: t.TempDir(), Types: []string{"xma"}, Workers: 4}, testLogger())
	if err != nil {
		t.Fatalf("parallel carve failed: %v", err)
	}

	if len(sequential.Entries) != len(parallel.Entries) || len(sequential.Entries) != 10 {
		t.Fatalf("expected 10 entries in both runs, got %d and %d", len(sequential.Entries), len(parallel.Entries))
	}
	for i := range sequential.Entries {
		if sequential.Entries[i].Offset != parallel.Entries[i].Offset ||
			sequential.Entries[i].SizeInDump != parallel.Entries[i].SizeInDump {
			t.Errorf("entry %d differs: %+v vs %+v", i, sequential.Entries[i], parallel.Entries[i])
		}
	}
}

func TestCarveDumpCancellationFlushesPartialManifest(t *testing.T) {
	data := make([]byte, 8+2044)
	copy(data, "RIFF")
	putU32LE(data, 4, 2044)
	copy(data[8:12], "XMA ")

	dump := writeDump(t, data)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	manifest, err := CarveDump(ctx, dump, Options{OutputDir: t.TempDir(), Types: []string{"xma"}}, testLogger())
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
	if manifest == nil {
		t.Fatal("expected a non-nil partial manifest even on cancellation")
	}
}
