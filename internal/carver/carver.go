// Package carver implements the signature-driven carving engine: it scans
// a dump in overlapping chunks, matches against the signature registry,
// determines payload extents, resolves overlaps, and writes carved files
// plus a manifest.
package carver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/bethesda-forensics/mdmpcarve/internal/diskio"
	"github.com/bethesda-forensics/mdmpcarve/internal/signature"
)

type candidate struct {
	descIdx int
	offset  int64
}

type rawMatch struct {
	descIdx int
	offset  int64
	extent  signature.Extent
}

// CarveDump scans path for every format in the signature registry (or the
// subset named by opts.Types), writes accepted matches under opts.OutputDir,
// and returns the run's manifest. Cancellation via ctx stops further chunk
// scanning; candidates already collected are still validated, resolved and
// written before CarveDump returns, so a cancelled run still yields a
// usable (partial) manifest.
func CarveDump(ctx context.Context, path string, opts Options, log *logrus.Logger) (*Manifest, error) {
	if log == nil {
		log = logrus.New()
	}

	reader, err := diskio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("carve %s: %w", path, err)
	}
	defer reader.Close()

	runID := uuid.NewString()
	descriptors := selectDescriptors(opts.Types)
	dumpSize := reader.Size()

	log.WithFields(logrus.Fields{
		"run_id":     runID,
		"dump":       path,
		"dump_size":  dumpSize,
		"formats":    len(descriptors),
		"chunk_size": opts.chunkSize(),
	}).Info("carve starting")

	candidates, scanErr := scanDump(ctx, reader, descriptors, opts, log)

	matches := resolveMatches(reader, descriptors, candidates, opts.Workers, log)
	matches = dropContained(matches)
	matches = capPerType(matches, descriptors, opts.maxFilesPerType(), log)

	dumpStem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outRoot := filepath.Join(opts.OutputDir, dumpStem)

	entries := writeMatches(reader, descriptors, matches, outRoot, log)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })

	manifest := &Manifest{
		RunID:    runID,
		DumpPath: path,
		DumpSize: dumpSize,
		Entries:  entries,
		Summary:  newSummary(entries),
	}

	log.WithFields(logrus.Fields{
		"run_id":      runID,
		"total_files": manifest.Summary.TotalFiles,
		"total_bytes": manifest.Summary.TotalBytesOutput,
	}).Info("carve complete")

	if scanErr != nil {
		return manifest, scanErr
	}
	return manifest, nil
}

func selectDescriptors(types []string) []signature.Descriptor {
	if len(types) == 0 {
		return signature.All
	}
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []signature.Descriptor
	for _, d := range signature.All {
		if want[d.Name] {
			out = append(out, d)
		}
	}
	return out
}

// scanDump streams the dump in overlapping chunks, collecting every
// position where a descriptor's magic occurs. The overlap between
// successive chunks is at least the longest registered magic, so a magic
// straddling a chunk boundary is still found (duplicate finds across the
// overlap region are deduplicated by offset+descriptor).
func scanDump(ctx context.Context, reader *diskio.Reader, descriptors []signature.Descriptor, opts Options, log *logrus.Logger) ([]candidate, error) {
	dumpSize := reader.Size()
	chunkSize := opts.chunkSize()
	overlap := int64(signature.MaxMagicLen() + headerLookahead)
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	advance := chunkSize - overlap
	if advance <= 0 {
		advance = chunkSize
	}

	seen, _ := lru.New[string, bool](2_000_000)
	var candidates []candidate

	buf := make([]byte, chunkSize)
	var offset int64
	for offset < dumpSize {
		if err := ctx.Err(); err != nil {
			log.WithField("offset", offset).Warn("carve cancelled, flushing partial manifest")
			return candidates, err
		}

		want := chunkSize
		if offset+want > dumpSize {
			want = dumpSize - offset
		}
		n, err := reader.ReadAt(buf[:want], offset)
		if err != nil {
			return candidates, fmt.Errorf("reading chunk at %d: %w", offset, err)
		}
		if n == 0 {
			break
		}

		found := scanChunk(buf[:n], offset, descriptors)
		for _, c := range found {
			key := fmt.Sprintf("%d:%d", c.descIdx, c.offset)
			if existed, _ := seen.ContainsOrAdd(key, true); !existed {
				candidates = append(candidates, c)
			}
		}

		log.WithFields(logrus.Fields{
			"offset":  offset,
			"percent": float64(offset) / float64(dumpSize) * 100,
			"found":   len(candidates),
		}).Debug("chunk scanned")

		if opts.Progress != nil {
			opts.Progress(offset, dumpSize)
		}

		offset += advance
	}

	return candidates, nil
}

func scanChunk(buf []byte, chunkOffset int64, descriptors []signature.Descriptor) []candidate {
	var found []candidate
	for di, d := range descriptors {
		for _, magic := range d.Magics {
			if len(magic) == 0 || len(magic) > len(buf) {
				continue
			}
			start := 0
			for {
				idx := bytes.Index(buf[start:], magic)
				if idx < 0 {
					break
				}
				pos := start + idx
				found = append(found, candidate{descIdx: di, offset: chunkOffset + int64(pos)})
				start = pos + 1
			}
		}
	}
	return found
}

// resolveMatches re-reads a fresh window from matchOffset for each
// candidate (up to the descriptor's MaxSize, clamped to the dump's end)
// and invokes Validator/SizeFinder against it. A panicking SizeFinder is
// recovered and treated identically to a rejected match. With workers > 1,
// candidates are resolved across a bounded pool of goroutines; the result
// order depends on scheduling, but dropContained sorts before use so the
// final manifest is deterministic regardless of worker count.
func resolveMatches(reader *diskio.Reader, descriptors []signature.Descriptor, candidates []candidate, workers int, log *logrus.Logger) []rawMatch {
	if workers <= 1 || len(candidates) < 2 {
		var matches []rawMatch
		for _, c := range candidates {
			if m, ok := resolveOne(reader, descriptors, c, log); ok {
				matches = append(matches, m)
			}
		}
		return matches
	}

	jobs := make(chan candidate, len(candidates))
	for _, c := range candidates {
		jobs <- c
	}
	close(jobs)

	results := make(chan rawMatch, len(candidates))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				if m, ok := resolveOne(reader, descriptors, c, log); ok {
					results <- m
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var matches []rawMatch
	for m := range results {
		matches = append(matches, m)
	}
	return matches
}

func resolveOne(reader *diskio.Reader, descriptors []signature.Descriptor, c candidate, log *logrus.Logger) (rawMatch, bool) {
	d := descriptors[c.descIdx]
	window, err := reader.ReadRange(c.offset, d.MaxSize)
	if err != nil || len(window) == 0 {
		return rawMatch{}, false
	}

	extent, ok := invokeSizeFinder(d, window, log)
	if !ok {
		return rawMatch{}, false
	}
	if extent.SizeInDump < d.MinSize || extent.SizeInDump > int64(len(window)) {
		return rawMatch{}, false
	}
	if c.offset+extent.SizeInDump > reader.Size() {
		return rawMatch{}, false
	}
	return rawMatch{descIdx: c.descIdx, offset: c.offset, extent: extent}, true
}

func invokeSizeFinder(d signature.Descriptor, window []byte, log *logrus.Logger) (extent signature.Extent, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{"file_type": d.Name, "panic": r}).Warn("size-finder panicked, treating as rejected")
			ok = false
		}
	}()
	if d.Validator != nil && !d.Validator(window, 0) {
		return signature.Extent{}, false
	}
	return d.SizeFinder(window, 0)
}

// dropContained implements the overlap-resolution rule: sort by offset
// ascending then size descending (registry order breaks exact ties), walk
// the list, and drop any record whose extent is fully contained in the
// most recently accepted one.
func dropContained(matches []rawMatch) []rawMatch {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].offset != matches[j].offset {
			return matches[i].offset < matches[j].offset
		}
		if matches[i].extent.SizeInDump != matches[j].extent.SizeInDump {
			return matches[i].extent.SizeInDump > matches[j].extent.SizeInDump
		}
		return matches[i].descIdx < matches[j].descIdx
	})

	var accepted []rawMatch
	for _, m := range matches {
		if len(accepted) > 0 {
			last := accepted[len(accepted)-1]
			lastEnd := last.offset + last.extent.SizeInDump
			mEnd := m.offset + m.extent.SizeInDump
			if m.offset >= last.offset && mEnd <= lastEnd {
				continue // fully contained in the previous accepted record
			}
		}
		accepted = append(accepted, m)
	}
	return accepted
}

func capPerType(matches []rawMatch, descriptors []signature.Descriptor, maxPerType int, log *logrus.Logger) []rawMatch {
	counts := make(map[string]int)
	var out []rawMatch
	for _, m := range matches {
		name := descriptors[m.descIdx].Name
		if counts[name] >= maxPerType {
			continue
		}
		counts[name]++
		out = append(out, m)
	}
	for name, n := range counts {
		if n == maxPerType {
			log.WithFields(logrus.Fields{"file_type": name, "cap": maxPerType}).Warn("per-type cap reached, further matches dropped")
		}
	}
	return out
}

// writeMatches produces the output bytes for each accepted match (running
// the descriptor's Decoder when one is set), writes them under outRoot, and
// returns the manifest entries for whichever writes succeeded. A failed
// write is logged and the record omitted, never fatal to the run.
func writeMatches(reader *diskio.Reader, descriptors []signature.Descriptor, matches []rawMatch, outRoot string, log *logrus.Logger) []MatchRecord {
	var entries []MatchRecord
	for _, m := range matches {
		d := descriptors[m.descIdx]

		raw, err := reader.ReadRange(m.offset, m.extent.SizeInDump)
		if err != nil || int64(len(raw)) < m.extent.SizeInDump {
			log.WithFields(logrus.Fields{"file_type": d.Name, "offset": m.offset, "error": err}).Warn("failed to re-read match for output")
			continue
		}

		output := raw
		if d.Decoder != nil {
			decoded, err := d.Decoder(raw)
			if err != nil {
				log.WithFields(logrus.Fields{"file_type": d.Name, "offset": m.offset, "error": err}).Warn("decoder failed, skipping")
				continue
			}
			output = decoded
		} else if m.extent.SizeOutput < int64(len(output)) {
			output = output[:m.extent.SizeOutput]
		}

		sum := sha256.Sum256(output)
		hash := hex.EncodeToString(sum[:])
		filename := fmt.Sprintf("%s_%012X_%s%s", d.Name, m.offset, hash[:8], d.Extension)
		outPath := filepath.Join(outRoot, d.Name, filename)

		if _, err := os.Stat(outPath); err == nil {
			entries = append(entries, MatchRecord{
				FileType: d.Name, Offset: m.offset, SizeInDump: m.extent.SizeInDump,
				SizeOutput: int64(len(output)), Compressed: m.extent.Compressed,
				BestEffort: m.extent.BestEffort, SHA256: hash, Filename: filename, Path: outPath,
			})
			continue // idempotent: identical offset already written this run
		}

		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			log.WithFields(logrus.Fields{"path": outPath, "error": err}).Warn("failed to create output directory")
			continue
		}
		if err := os.WriteFile(outPath, output, 0o644); err != nil {
			log.WithFields(logrus.Fields{"path": outPath, "error": err}).Warn("failed to write carved file")
			continue
		}

		entries = append(entries, MatchRecord{
			FileType:   d.Name,
			Offset:     m.offset,
			SizeInDump: m.extent.SizeInDump,
			SizeOutput: int64(len(output)),
			Compressed: m.extent.Compressed,
			BestEffort: m.extent.BestEffort,
			SHA256:     hash,
			Filename:   filename,
			Path:       outPath,
		})
	}
	return entries
}
