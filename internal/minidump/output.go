package minidump

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteModules writes each reconstructed module's image to
// <outDir>/<sanitized name>, plus a module_list.txt summary, matching the
// layout in spec.md §6's output-layout section.
func WriteModules(outDir string, modules []ReconstructedModule) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating module output dir: %w", err)
	}

	var summary strings.Builder
	for _, m := range modules {
		path := filepath.Join(outDir, m.Name)
		if err := os.WriteFile(path, m.Data, 0o644); err != nil {
			return fmt.Errorf("writing module %s: %w", m.Name, err)
		}
		fmt.Fprintf(&summary, "%s base=0x%016X size=0x%X filled=%d (%.1f%%) machine=%s\n",
			m.Name, m.BaseVA, m.Size, m.BytesFilled, m.CoverageRatio*100, m.MachineName)
	}

	listPath := filepath.Join(outDir, "module_list.txt")
	if err := os.WriteFile(listPath, []byte(summary.String()), 0o644); err != nil {
		return fmt.Errorf("writing module_list.txt: %w", err)
	}
	return nil
}
