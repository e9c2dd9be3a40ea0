package main

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"rhythm-features/internal/decode"
	"rhythm-features/internal/models"
)

var probeCmd = &cobra.Command{
	Use:   "probe FILE...",
	Short: "Print tag and duration metadata without extracting features",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProbe,
}

func runProbe(_ *cobra.Command, args []string) error {
	infos := make([]models.TrackInfo, 0, len(args))
	for _, path := range args {
		info, err := decode.Probe(path)
		if err != nil {
			logger.Error("probe failed", "file", path, "error", err)
			continue
		}
		infos = append(infos, info)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "    ")
	return encoder.Encode(infos)
}
