// Package report assembles the single end-of-run summary that ties the
// carving, coverage, and integrity passes together, the way
// original_source/main.py's top-level driver prints a consolidated
// summary across its extractor + carver + coverage phases.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bethesda-forensics/mdmpcarve/internal/carver"
	"github.com/bethesda-forensics/mdmpcarve/internal/coverage"
	"github.com/bethesda-forensics/mdmpcarve/internal/integrity"
)

// RunReport is the consolidated artifact written beside the manifest as
// run_report.json, and printed to stdout at the end of a carve.
type RunReport struct {
	RunID           string             `json:"run_id"`
	DumpPath        string             `json:"dump_path"`
	DumpSize        int64              `json:"dump_size"`
	ElapsedSeconds  float64            `json:"elapsed_seconds"`
	FilesRecovered  int                `json:"files_recovered"`
	BytesRecovered  int64              `json:"bytes_recovered"`
	ByType          map[string]int     `json:"by_type"`
	CoveragePercent float64            `json:"coverage_percent,omitempty"`
	IntegrityValid  int                `json:"integrity_valid,omitempty"`
	IntegrityFailed int                `json:"integrity_invalid,omitempty"`
}

// Build assembles a RunReport from a carving manifest and optional
// coverage/integrity passes (either may be nil if that stage didn't run).
func Build(manifest *carver.Manifest, cov *coverage.Report, integ *integrity.Report, elapsed time.Duration) *RunReport {
	r := &RunReport{
		RunID:          manifest.RunID,
		DumpPath:       manifest.DumpPath,
		DumpSize:       manifest.DumpSize,
		ElapsedSeconds: elapsed.Seconds(),
		FilesRecovered: manifest.Summary.TotalFiles,
		BytesRecovered: manifest.Summary.TotalBytesOutput,
		ByType:         manifest.Summary.ByType,
	}
	if cov != nil {
		r.CoveragePercent = cov.CoveragePercent
	}
	if integ != nil {
		r.IntegrityValid = integ.Valid
		r.IntegrityFailed = integ.Invalid
	}
	return r
}

// JSON renders the report for the run_report.json artifact.
func (r *RunReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Text renders the stdout summary printed at the end of a carve run.
func (r *RunReport) Text() string {
	var b bytes.Buffer
	fmt.Fprintln(&b, "======================================================")
	fmt.Fprintln(&b, "Carving complete")
	fmt.Fprintf(&b, "dump:             %s\n", r.DumpPath)
	fmt.Fprintf(&b, "elapsed:          %.1fs\n", r.ElapsedSeconds)
	fmt.Fprintf(&b, "files recovered:  %d (%d bytes)\n", r.FilesRecovered, r.BytesRecovered)
	for t, n := range r.ByType {
		fmt.Fprintf(&b, "  %-14s %d\n", t, n)
	}
	if r.CoveragePercent > 0 {
		fmt.Fprintf(&b, "coverage:         %.2f%%\n", r.CoveragePercent)
	}
	if r.IntegrityValid+r.IntegrityFailed > 0 {
		fmt.Fprintf(&b, "integrity:        %d valid, %d invalid\n", r.IntegrityValid, r.IntegrityFailed)
	}
	fmt.Fprintln(&b, "======================================================")
	return b.String()
}
