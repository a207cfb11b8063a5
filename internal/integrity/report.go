package integrity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bethesda-forensics/mdmpcarve/internal/carver"
)

// Report is the consolidated integrity pass over a carving run's manifest.
type Report struct {
	RunID   string    `json:"run_id"`
	Results []*Result `json:"results"`
	Valid   int       `json:"valid_count"`
	Invalid int       `json:"invalid_count"`
}

// CheckManifest re-validates every entry in a carving manifest, in manifest
// order. It never touches the carved files beyond reading them.
func CheckManifest(manifest *carver.Manifest) *Report {
	report := &Report{RunID: manifest.RunID}
	for _, e := range manifest.Entries {
		result := CheckFile(e.Path, e.FileType)
		report.Results = append(report.Results, result)
		if result.Valid {
			report.Valid++
		} else {
			report.Invalid++
		}
	}
	return report
}

// JSON renders the report as the JSON counterpart to Text.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Text renders a human-readable integrity report in the teacher's
// section-banner style.
func (r *Report) Text() string {
	var b bytes.Buffer
	banner := "================================================================================"

	fmt.Fprintln(&b, banner)
	fmt.Fprintln(&b, "File Integrity Report")
	fmt.Fprintln(&b, banner)

	for _, res := range r.Results {
		status := "VALID"
		if !res.Valid {
			status = "INVALID"
		}
		fmt.Fprintf(&b, "\n%s - %s\n", status, res.Path)
		fmt.Fprintf(&b, "  Type: %s\n", res.Type)
		fmt.Fprintf(&b, "  Size: %d bytes\n", res.Size)

		if len(res.Info) > 0 {
			fmt.Fprintln(&b, "  Info:")
			for k, v := range res.Info {
				fmt.Fprintf(&b, "    %s: %s\n", k, v)
			}
		}
		if len(res.Issues) > 0 {
			fmt.Fprintln(&b, "  Issues:")
			for _, issue := range res.Issues {
				fmt.Fprintf(&b, "    - %s\n", issue)
			}
		}
	}

	fmt.Fprintf(&b, "\n%s\n", banner)
	fmt.Fprintf(&b, "%d valid, %d invalid\n", r.Valid, r.Invalid)
	fmt.Fprintln(&b, banner)

	return b.String()
}
