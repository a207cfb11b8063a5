package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bethesda-forensics/mdmpcarve/internal/diskio"
	"github.com/bethesda-forensics/mdmpcarve/internal/minidump"
	"github.com/bethesda-forensics/mdmpcarve/internal/runlog"
)

func newReassembleCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "reassemble <dump>",
		Short: "Reconstruct loaded PE modules from an MDMP's memory ranges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logFile, _ := cmd.Flags().GetString("log-file")

			log, err := runlog.New(verbose, logFile)
			if err != nil {
				return err
			}

			dumpPath := args[0]
			reader, err := diskio.Open(dumpPath)
			if err != nil {
				return err
			}
			defer reader.Close()

			dump, err := minidump.Parse(reader)
			if err != nil {
				return fmt.Errorf("parsing minidump: %w", err)
			}
			log.WithFields(map[string]any{
				"modules": len(dump.Modules),
				"ranges":  len(dump.Ranges),
			}).Info("minidump parsed")

			modules := minidump.ReassembleModules(reader, dump)

			outDir := output
			if outDir == "" {
				outDir = filepath.Join("./output", strings.TrimSuffix(filepath.Base(dumpPath), filepath.Ext(dumpPath)), "modules")
			}

			if err := minidump.WriteModules(outDir, modules); err != nil {
				return fmt.Errorf("writing modules: %w", err)
			}

			log.WithFields(map[string]any{
				"modules_written": len(modules),
				"output":          outDir,
			}).Info("reassembly complete")
			fmt.Printf("reassembled %d module(s) into %s\n", len(modules), outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "module output directory (default ./output/<dump>/modules)")
	return cmd
}
