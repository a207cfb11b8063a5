package coverage

import (
	"encoding/hex"
	"sort"

	"github.com/bethesda-forensics/mdmpcarve/internal/carver"
	"github.com/bethesda-forensics/mdmpcarve/internal/diskio"
)

// Analyze consumes a carving manifest and the dump it was produced from,
// merges the manifest's extents into disjoint covered intervals, and
// classifies every gap, per spec.md §4.4.
func Analyze(reader *diskio.Reader, manifest *carver.Manifest) (*Report, error) {
	dumpSize := manifest.DumpSize

	intervals := make([]Interval, 0, len(manifest.Entries))
	for _, e := range manifest.Entries {
		intervals = append(intervals, Interval{Start: e.Offset, End: e.Offset + e.SizeInDump})
	}
	covered := mergeIntervals(intervals)
	gapIntervals := gapsOf(covered, dumpSize)

	var identified int64
	for _, iv := range covered {
		identified += iv.size()
	}

	byCategory := make(map[string]int64)
	unknownMagics := make(map[string]int)
	var gaps []Gap
	var large []Gap

	for _, iv := range gapIntervals {
		g, err := classifyGap(reader, iv)
		if err != nil {
			return nil, err
		}
		gaps = append(gaps, g)
		byCategory[string(g.Classification)] += g.Size

		if g.Size >= largeGapThreshold {
			large = append(large, g)
		}
		if g.Classification == Unknown && len(g.Sample) >= 4 {
			unknownMagics[hex.EncodeToString(g.Sample[:4])]++
		}
	}

	coveragePct := 0.0
	if dumpSize > 0 {
		coveragePct = float64(identified) / float64(dumpSize) * 100
	}

	return &Report{
		RunID:              manifest.RunID,
		DumpSize:           dumpSize,
		IdentifiedBytes:    identified,
		CoveragePercent:    coveragePct,
		Covered:            covered,
		Gaps:               gaps,
		BytesByCategory:    byCategory,
		LargeGaps:          topLargeGaps(large, 20),
		UnknownMagicCounts: unknownMagics,
	}, nil
}

func classifyGap(reader *diskio.Reader, iv Interval) (Gap, error) {
	size := iv.size()

	sampleLen := int64(sampleSize)
	if sampleLen > size {
		sampleLen = size
	}
	sample, err := reader.ReadRange(iv.Start, sampleLen)
	if err != nil {
		return Gap{}, err
	}

	zeroConfirmLen := int64(zeroConfirmSize)
	if zeroConfirmLen > size {
		zeroConfirmLen = size
	}
	zeroConfirm, err := reader.ReadRange(iv.Start, zeroConfirmLen)
	if err != nil {
		return Gap{}, err
	}

	entropyLen := int64(entropyWindowSize)
	if entropyLen > size {
		entropyLen = size
	}
	entropyWindow, err := reader.ReadRange(iv.Start, entropyLen)
	if err != nil {
		return Gap{}, err
	}

	class, repeatVal := classify(sample, zeroConfirm, entropyWindow)
	return Gap{
		Start:          iv.Start,
		End:            iv.End,
		Size:           size,
		Classification: class,
		RepeatValue:    repeatVal,
		Sample:         sample,
	}, nil
}

func topLargeGaps(gaps []Gap, k int) []Gap {
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Size > gaps[j].Size })
	if len(gaps) > k {
		gaps = gaps[:k]
	}
	return gaps
}
