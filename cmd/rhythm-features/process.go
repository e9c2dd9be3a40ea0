package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rhythm-features/internal/processor"
	"rhythm-features/internal/watch"
)

var flagExport string

var processCmd = &cobra.Command{
	Use:   "process [flags] FILE|DIR...",
	Short: "Batch-process audio files and print a dataset summary",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().StringVar(&flagExport, "export", "", "write the rounded JSON summary to this path")
}

func runProcess(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	paths, err := expandArgs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no audio files found")
	}

	proc, err := processor.New(settings, logger)
	if err != nil {
		return err
	}
	defer proc.Close()

	dataset := proc.ProcessFiles(paths)
	proc.Summarize()

	if failed := len(paths) - len(dataset); failed > 0 {
		logger.Warn("some files could not be processed", "failed", failed)
	}

	if flagExport != "" {
		if err := proc.ExportJSON(flagExport); err != nil {
			// Export failure loses nothing: the dataset stays in memory
			// and the batch itself succeeded.
			logger.Error("export failed", "error", err)
		}
	}

	return nil
}

// expandArgs turns a mix of file and directory arguments into a flat list of
// audio file paths. Directories are walked recursively.
func expandArgs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			paths = append(paths, watch.CollectAudioFiles(arg, logger)...)
			continue
		}
		paths = append(paths, arg)
	}
	return paths, nil
}
