package coverage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// JSON renders the report exactly as spec.md §6's JSON counterpart describes.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Text renders the human-readable report: summary, by-category table, large
// unknown regions, and candidate unidentified magics.
func (r *Report) Text() string {
	var b bytes.Buffer

	fmt.Fprintf(&b, "coverage report for run %s\n", r.RunID)
	fmt.Fprintf(&b, "dump size:        %d bytes\n", r.DumpSize)
	fmt.Fprintf(&b, "identified bytes: %d (%.2f%%)\n", r.IdentifiedBytes, r.CoveragePercent)
	fmt.Fprintf(&b, "unidentified:     %d (%.2f%%)\n\n", r.DumpSize-r.IdentifiedBytes, 100-r.CoveragePercent)

	fmt.Fprintln(&b, "bytes by category:")
	cats := make([]string, 0, len(r.BytesByCategory))
	for c := range r.BytesByCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return r.BytesByCategory[cats[i]] > r.BytesByCategory[cats[j]] })
	for _, c := range cats {
		fmt.Fprintf(&b, "  %-14s %12d bytes\n", c, r.BytesByCategory[c])
	}

	if len(r.LargeGaps) > 0 {
		fmt.Fprintln(&b, "\nlarge unidentified regions:")
		for _, g := range r.LargeGaps {
			fmt.Fprintf(&b, "  [0x%08X-0x%08X) %10d bytes  %s\n", g.Start, g.End, g.Size, g.Classification)
		}
	}

	if len(r.UnknownMagicCounts) > 0 {
		type magicCount struct {
			magic string
			count int
		}
		counts := make([]magicCount, 0, len(r.UnknownMagicCounts))
		for m, c := range r.UnknownMagicCounts {
			counts = append(counts, magicCount{m, c})
		}
		sort.Slice(counts, func(i, j int) bool { return counts[i].count > counts[j].count })

		fmt.Fprintln(&b, "\ncandidate unidentified magics (first 4 bytes, hex):")
		limit := 20
		if len(counts) < limit {
			limit = len(counts)
		}
		for _, mc := range counts[:limit] {
			fmt.Fprintf(&b, "  %-10s seen %d times\n", mc.magic, mc.count)
		}
	}

	return b.String()
}
