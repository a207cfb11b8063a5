package coverage

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/bethesda-forensics/mdmpcarve/internal/carver"
	"github.com/bethesda-forensics/mdmpcarve/internal/diskio"
)

func writeDump(t *testing.T, data []byte) (*diskio.Reader, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write dump: %v", err)
	}
	reader, err := diskio.Open(path)
	if err != nil {
		t.Fatalf("diskio.Open failed: %v", err)
	}
	t.Cleanup(func() { reader.Close() })
	return reader, path
}

// TestAnalyzeCoverageIdentity checks invariant 4: identified bytes plus
// every gap's size sum to exactly the dump size, and gaps never overlap a
// covered extent.
func TestAnalyzeCoverageIdentity(t *testing.T) {
	const dumpSize = 16384
	data := make([]byte, dumpSize)
	reader, path := writeDump(t, data)

	manifest := &carver.Manifest{
		RunID:    "test-run",
		DumpPath: path,
		DumpSize: dumpSize,
		Entries: []carver.MatchRecord{
			{Offset: 100, SizeInDump: 200},
			{Offset: 300, SizeInDump: 50}, // touches prior extent's end, should merge
			{Offset: 5000, SizeInDump: 1000},
		},
	}

	report, err := Analyze(reader, manifest)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	var gapTotal int64
	for _, g := range report.Gaps {
		gapTotal += g.Size
	}
	if report.IdentifiedBytes+gapTotal != dumpSize {
		t.Errorf("identified (%d) + gaps (%d) != dump size (%d)", report.IdentifiedBytes, gapTotal, dumpSize)
	}
	if report.IdentifiedBytes != 1250 {
		t.Errorf("IdentifiedBytes = %d, want 1250 (merged [100,350) + [5000,6000))", report.IdentifiedBytes)
	}

	for _, g := range report.Gaps {
		for _, c := range report.Covered {
			if g.Start < c.End && g.End > c.Start {
				t.Errorf("gap [%d,%d) overlaps covered interval [%d,%d)", g.Start, g.End, c.Start, c.End)
			}
		}
	}
}

func TestClassifyZeros(t *testing.T) {
	zeros := make([]byte, zeroConfirmSize)
	class, _ := classify(zeros[:sampleSize], zeros, zeros[:1024])
	if class != Zeros {
		t.Errorf("classify of an all-zero region = %s, want zeros", class)
	}
}

func TestClassifyRepeatByte(t *testing.T) {
	sample := make([]byte, sampleSize)
	for i := range sample {
		sample[i] = 0xAB
	}
	zeroConfirm := make([]byte, zeroConfirmSize)
	for i := range zeroConfirm {
		zeroConfirm[i] = 0xAB
	}
	class, val := classify(sample, zeroConfirm, sample)
	if class != RepeatByte {
		t.Errorf("classify of a repeated-byte region = %s, want repeat_byte", class)
	}
	if val != 0xAB {
		t.Errorf("RepeatValue = %#x, want 0xAB", val)
	}
}

func TestClassifyRepeat4Byte(t *testing.T) {
	sample := make([]byte, sampleSize)
	for i := 0; i < len(sample); i += 4 {
		sample[i], sample[i+1], sample[i+2], sample[i+3] = 0xDE, 0xAD, 0xBE, 0xEF
	}
	zeroConfirm := make([]byte, zeroConfirmSize)
	for i := 0; i < len(zeroConfirm); i += 4 {
		zeroConfirm[i], zeroConfirm[i+1], zeroConfirm[i+2], zeroConfirm[i+3] = 0xDE, 0xAD, 0xBE, 0xEF
	}
	class, _ := classify(sample, zeroConfirm, sample)
	if class != Repeat4Byte {
		t.Errorf("classify of a repeated-word region = %s, want repeat_4byte", class)
	}
}

// TestClassifyHighEntropy checks invariant 9: a uniformly random window of
// at least entropyWindowSize classifies as high_entropy.
func TestClassifyHighEntropy(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	window := make([]byte, entropyWindowSize)
	rng.Read(window)

	sample := window[:sampleSize]
	zeroConfirm := window[:zeroConfirmSize]

	class, _ := classify(sample, zeroConfirm, window)
	if class != HighEntropy {
		t.Errorf("classify of a random %d-byte window = %s, want high_entropy", entropyWindowSize, class)
	}
}

func TestClassifyStructured(t *testing.T) {
	window := make([]byte, entropyWindowSize)
	for i := range window {
		window[i] = byte(i % 16)
	}
	sample := window[:sampleSize]
	zeroConfirm := window[:zeroConfirmSize]

	class, _ := classify(sample, zeroConfirm, window)
	if class != Structured {
		t.Errorf("classify of a low-cardinality repeating window = %s, want structured", class)
	}
}

func TestMergeIntervalsDisjointAndSorted(t *testing.T) {
	in := []Interval{{Start: 500, End: 600}, {Start: 0, End: 100}, {Start: 90, End: 200}}
	merged := mergeIntervals(in)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged intervals, got %d: %+v", len(merged), merged)
	}
	if merged[0].Start != 0 || merged[0].End != 200 {
		t.Errorf("first merged interval = %+v, want [0,200)", merged[0])
	}
	if merged[1].Start != 500 || merged[1].End != 600 {
		t.Errorf("second merged interval = %+v, want [500,600)", merged[1])
	}
}

func TestGapsOfCoversWholeRange(t *testing.T) {
	merged := []Interval{{Start: 10, End: 20}}
	gaps := gapsOf(merged, 30)
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %d: %+v", len(gaps), gaps)
	}
	if gaps[0] != (Interval{Start: 0, End: 10}) {
		t.Errorf("leading gap = %+v, want [0,10)", gaps[0])
	}
	if gaps[1] != (Interval{Start: 20, End: 30}) {
		t.Errorf("trailing gap = %+v, want [20,30)", gaps[1])
	}
}

func TestReportTextAndJSON(t *testing.T) {
	report := &Report{
		RunID:           "r1",
		DumpSize:        1000,
		IdentifiedBytes: 400,
		CoveragePercent: 40,
		Gaps: []Gap{
			{Start: 400, End: 1000, Size: 600, Classification: HighEntropy},
		},
		BytesByCategory: map[string]int64{"high_entropy": 600},
		LargeGaps:       []Gap{{Start: 400, End: 1000, Size: 600, Classification: HighEntropy}},
	}

	text := report.Text()
	if text == "" {
		t.Fatal("Text() returned empty string")
	}

	data, err := report.JSON()
	if err != nil {
		t.Fatalf("JSON() failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("JSON() returned empty data")
	}
}
