package carver

// MatchRecord is one accepted carve: a signature match whose validator and
// size-finder both agreed on a payload extent, and whose bytes were
// successfully written to disk.
type MatchRecord struct {
	FileType   string `json:"file_type"`
	Offset     int64  `json:"offset"`
	SizeInDump int64  `json:"size_in_dump"`
	SizeOutput int64  `json:"size_output"`
	Compressed bool   `json:"compressed,omitempty"`
	BestEffort bool   `json:"best_effort,omitempty"`
	SHA256     string `json:"sha256"`
	Filename   string `json:"filename"`
	Path       string `json:"path"`
}

// Summary aggregates the manifest's entries for the report and the CLI's
// end-of-run printout.
type Summary struct {
	TotalFiles       int            `json:"total_files"`
	TotalBytesInDump int64          `json:"total_bytes_in_dump"`
	TotalBytesOutput int64          `json:"total_bytes_output"`
	ByType           map[string]int `json:"by_type"`
}

// Manifest is the carving engine's durable record of a single run against
// a single dump: every accepted Match Record, in ascending-offset order,
// plus the aggregate Summary.
type Manifest struct {
	RunID    string        `json:"run_id"`
	DumpPath string        `json:"dump_path"`
	DumpSize int64         `json:"dump_size"`
	Entries  []MatchRecord `json:"entries"`
	Summary  Summary       `json:"summary"`
}

func newSummary(entries []MatchRecord) Summary {
	s := Summary{ByType: make(map[string]int)}
	for _, e := range entries {
		s.TotalFiles++
		s.TotalBytesInDump += e.SizeInDump
		s.TotalBytesOutput += e.SizeOutput
		s.ByType[e.FileType]++
	}
	return s
}
