// Package coverage merges a carving run's matched extents into disjoint
// intervals, samples the remaining gaps, and classifies each one the way
// the original coverage analyzer does — now as a Go-native entropy and
// pattern classifier instead of Python's struct-based sampling.
package coverage

// Classification is the closed set of gap categories spec.md §4.4 defines.
type Classification string

const (
	Zeros        Classification = "zeros"
	RepeatByte   Classification = "repeat_byte"
	Repeat4Byte  Classification = "repeat_4byte"
	HighEntropy  Classification = "high_entropy"
	Structured   Classification = "structured"
	Unknown      Classification = "unknown"
)

// Interval is a closed-open byte range [Start, End).
type Interval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func (iv Interval) size() int64 { return iv.End - iv.Start }

// Gap is an unidentified region of the dump, classified by sampling.
type Gap struct {
	Start          int64          `json:"start"`
	End            int64          `json:"end"`
	Size           int64          `json:"size"`
	Classification Classification `json:"classification"`
	// RepeatValue holds the repeated byte (RepeatByte) or 4-byte little
	// endian word (Repeat4Byte) when Classification names one of those.
	RepeatValue uint32 `json:"repeat_value,omitempty"`
	Sample      []byte `json:"sample,omitempty"`
}

// Report is the coverage analyzer's output: aggregate statistics plus the
// full gap list, serializable as the text/JSON pair spec.md §6 describes.
type Report struct {
	RunID              string         `json:"run_id"`
	DumpSize           int64          `json:"dump_size"`
	IdentifiedBytes    int64          `json:"identified_bytes"`
	CoveragePercent    float64        `json:"coverage_percent"`
	Covered            []Interval     `json:"covered"`
	Gaps               []Gap          `json:"gaps"`
	BytesByCategory    map[string]int64 `json:"bytes_by_category"`
	LargeGaps          []Gap          `json:"large_gaps"`
	UnknownMagicCounts map[string]int `json:"unknown_magic_counts"`
}
