package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bethesda-forensics/mdmpcarve/internal/carver"
	"github.com/bethesda-forensics/mdmpcarve/internal/coverage"
	"github.com/bethesda-forensics/mdmpcarve/internal/diskio"
	"github.com/bethesda-forensics/mdmpcarve/internal/runlog"
)

func newCoverageCmd() *cobra.Command {
	var manifestPath, output string

	cmd := &cobra.Command{
		Use:   "coverage <dump>",
		Short: "Analyze the unidentified gaps left by a prior carve against a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logFile, _ := cmd.Flags().GetString("log-file")

			log, err := runlog.New(verbose, logFile)
			if err != nil {
				return err
			}

			if manifestPath == "" {
				return fmt.Errorf("--manifest is required")
			}

			dumpPath := args[0]
			manifest, err := loadManifest(manifestPath)
			if err != nil {
				return fmt.Errorf("loading manifest: %w", err)
			}

			reader, err := diskio.Open(dumpPath)
			if err != nil {
				return err
			}
			defer reader.Close()

			report, err := coverage.Analyze(reader, manifest)
			if err != nil {
				return fmt.Errorf("analyzing coverage: %w", err)
			}

			log.WithField("coverage_percent", report.CoveragePercent).Info("coverage analysis complete")
			fmt.Println(report.Text())

			if output != "" {
				data, err := report.JSON()
				if err != nil {
					return err
				}
				if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil && filepath.Dir(output) != "." {
					return fmt.Errorf("creating output directory: %w", err)
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("writing coverage report: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to a prior carve's manifest.json (required)")
	cmd.Flags().StringVar(&output, "output", "", "write the coverage report as JSON to this path")
	return cmd
}

func loadManifest(path string) (*carver.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m carver.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
