package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bethesda-forensics/mdmpcarve/internal/carver"
	"github.com/bethesda-forensics/mdmpcarve/internal/config"
	"github.com/bethesda-forensics/mdmpcarve/internal/coverage"
	"github.com/bethesda-forensics/mdmpcarve/internal/diskio"
	"github.com/bethesda-forensics/mdmpcarve/internal/integrity"
	"github.com/bethesda-forensics/mdmpcarve/internal/progressui"
	"github.com/bethesda-forensics/mdmpcarve/internal/report"
	"github.com/bethesda-forensics/mdmpcarve/internal/runlog"
)

func newCarveCmd() *cobra.Command {
	var (
		all            bool
		types          []string
		output         string
		chunkSizeMB    int
		maxFiles       int
		workers        int
		checkIntegrity bool
		withCoverage   bool
		interactive    bool
	)

	cmd := &cobra.Command{
		Use:   "carve [dumps...]",
		Short: "Carve files out of one or more MDMP dumps by signature",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			configPath, _ := cmd.Flags().GetString("config")
			logFile, _ := cmd.Flags().GetString("log-file")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			log, err := runlog.New(verbose, logFile)
			if err != nil {
				return err
			}

			dumps, err := resolveDumps(args, all)
			if err != nil {
				return err
			}

			opts := carver.Options{
				OutputDir:       firstNonEmpty(output, cfg.OutputDir, "./output"),
				ChunkSize:       int64(firstNonZero(chunkSizeMB, cfg.ChunkSizeMB)) * 1024 * 1024,
				MaxFilesPerType: firstNonZero(maxFiles, cfg.MaxFilesPerType),
				Types:           firstNonEmptySlice(types, cfg.Types),
				Workers:         firstNonZero(workers, cfg.Workers),
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var failures int
			for i, dump := range dumps {
				log.WithFields(logrus.Fields{"dump": dump, "index": i + 1, "total": len(dumps)}).Info("processing dump")

				if err := carveOne(ctx, dump, opts, checkIntegrity, withCoverage, interactive, log); err != nil {
					log.WithField("dump", dump).WithError(err).Error("carve failed")
					failures++
					if ctx.Err() != nil {
						return ctx.Err()
					}
					continue
				}
			}
			if failures > 0 && failures == len(dumps) {
				return fmt.Errorf("all %d dump(s) failed to carve", failures)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "process every .mdmp/.dmp file in the current directory")
	cmd.Flags().StringSliceVar(&types, "types", nil, "restrict carving to these signature names")
	cmd.Flags().StringVar(&output, "output", "", "output directory (default ./output)")
	cmd.Flags().IntVar(&chunkSizeMB, "chunk-size", 0, "scan chunk size in MB (default 10)")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "maximum carved files per type (default 10000)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent resolve workers (default sequential)")
	cmd.Flags().BoolVar(&checkIntegrity, "check-integrity", false, "re-validate carved files after extraction")
	cmd.Flags().BoolVar(&withCoverage, "coverage", false, "analyze unidentified gaps after carving")
	cmd.Flags().BoolVar(&interactive, "progress", false, "show an interactive progress bar while scanning")

	return cmd
}

// carveOne runs a single dump through CarveDump and the optional
// coverage/integrity passes, then writes manifest.json and run_report.json
// beside the carved files.
func carveOne(ctx context.Context, dumpPath string, opts carver.Options, checkIntegrity, withCoverage, interactive bool, log *logrus.Logger) error {
	start := time.Now()

	runOpts := opts
	var uiDone chan struct{}
	if interactive {
		cb, ch := progressui.NewUpdateChannel()
		runOpts.Progress = cb
		uiDone = make(chan struct{})
		go func() {
			defer close(uiDone)
			_ = progressui.Run(filepath.Base(dumpPath), ch)
		}()
		defer func() {
			close(ch)
			<-uiDone
		}()
	}

	manifest, err := carver.CarveDump(ctx, dumpPath, runOpts, log)
	if err != nil {
		return err
	}

	dumpDir := filepath.Join(opts.OutputDir, strings.TrimSuffix(filepath.Base(dumpPath), filepath.Ext(dumpPath)))
	if err := os.MkdirAll(dumpDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	manifestPath := filepath.Join(dumpDir, "manifest.json")
	if err := writeJSON(manifestPath, manifest); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	log.WithField("path", manifestPath).Info("manifest written")

	var cov *coverage.Report
	if withCoverage {
		reader, err := diskio.Open(dumpPath)
		if err != nil {
			return fmt.Errorf("reopening dump for coverage: %w", err)
		}
		cov, err = coverage.Analyze(reader, manifest)
		reader.Close()
		if err != nil {
			return fmt.Errorf("coverage analysis: %w", err)
		}
		fmt.Println(cov.Text())
	}

	var integ *integrity.Report
	if checkIntegrity {
		integ = integrity.CheckManifest(manifest)
		fmt.Println(integ.Text())
	}

	runReport := report.Build(manifest, cov, integ, time.Since(start))
	reportPath := filepath.Join(dumpDir, "run_report.json")
	if err := writeJSON(reportPath, runReport); err != nil {
		return fmt.Errorf("writing run report: %w", err)
	}

	fmt.Println(runReport.Text())
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmptySlice(slices ...[]string) []string {
	for _, s := range slices {
		if len(s) > 0 {
			return s
		}
	}
	return nil
}

// resolveDumps expands --all into every .dmp/.mdmp file in the current
// directory, or validates the explicit paths given on the command line.
func resolveDumps(args []string, all bool) ([]string, error) {
	if all {
		entries, err := os.ReadDir(".")
		if err != nil {
			return nil, fmt.Errorf("reading current directory: %w", err)
		}
		var dumps []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if strings.HasSuffix(name, ".dmp") || strings.HasSuffix(name, ".mdmp") {
				dumps = append(dumps, name)
			}
		}
		if len(dumps) == 0 {
			return nil, fmt.Errorf("no .dmp/.mdmp files found in current directory")
		}
		return dumps, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no dump files given (pass paths or --all)")
	}
	for _, d := range args {
		if _, err := os.Stat(d); err != nil {
			return nil, fmt.Errorf("dump file not found: %s", d)
		}
	}
	return args, nil
}
