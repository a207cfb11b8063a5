// Package integrity re-validates carved files after the fact, independent
// of the carving engine's own Validator/SizeFinder pass. It never deletes
// or rewrites a carved file — a failed check only earns an INVALID entry
// in the integrity report.
package integrity

import "fmt"

// Result is one file's integrity check outcome.
type Result struct {
	Path   string            `json:"path"`
	Type   string            `json:"type"`
	Valid  bool              `json:"valid"`
	Size   int64             `json:"size"`
	Issues []string          `json:"issues,omitempty"`
	Info   map[string]string `json:"info,omitempty"`
}

func newResult(path, fileType string) *Result {
	return &Result{Path: path, Type: fileType, Info: map[string]string{}}
}

func (r *Result) issue(format string, args ...any) {
	r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
}
