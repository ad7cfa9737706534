// =============================================================================
// Packing List Ingest - Parse Command
// =============================================================================
//
// The 'parse' command runs a single file through the engine and prints the
// payloads as JSON. The source file is never moved or deleted.
//
// COMMAND USAGE:
//   packlist parse --file list.xlsx
//   packlist parse --file upload.bin --content-type text/csv --out result.json
//
// FLAGS:
//   --file          : Path to the packing list (required)
//   --content-type  : Declared MIME type; sniffed from the content when empty
//   --out           : Write the JSON here instead of stdout
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ginjaninja78/packing-list-ingest/internal/config"
	"github.com/ginjaninja78/packing-list-ingest/internal/ingest"
	"github.com/ginjaninja78/packing-list-ingest/internal/logger"
	"github.com/ginjaninja78/packing-list-ingest/internal/model"
	"github.com/ginjaninja78/packing-list-ingest/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	parseFile        string
	parseContentType string
	parseOut         string
)

// parseCmd represents the 'parse' command.
var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse one packing list and print its payloads as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := ingest.New(mainConfig, logger.Logger())
		if err != nil {
			return err
		}

		payloads, _, err := ingestFile(engine, mainConfig, parseFile, parseContentType)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(payloads, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode payloads: %w", err)
		}
		data = append(data, '\n')

		if parseOut == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(parseOut, data, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&parseFile, "file", "", "Path to the packing list")
	parseCmd.Flags().StringVar(&parseContentType, "content-type", "", "Declared MIME type (sniffed when empty)")
	parseCmd.Flags().StringVar(&parseOut, "out", "", "Write the JSON to this file instead of stdout")
	parseCmd.MarkFlagRequired("file")
}

// ingestFile reads one file within the configured size limit and parses it.
//
// RETURNS:
//   - The payloads.
//   - The content type that was used, declared or sniffed.
//   - An error from reading or parsing.
func ingestFile(engine *ingest.Engine, cfg *config.MainConfig, path, contentType string) ([]model.Payload, string, error) {
	data, err := utils.ReadInput(path, cfg.MaxUploadSize)
	if err != nil {
		return nil, contentType, err
	}

	if contentType == "" {
		contentType = utils.DetectContentType(path, data)
	}

	payloads, err := engine.Parse(data, contentType)
	if err != nil {
		return nil, contentType, err
	}
	return payloads, contentType, nil
}
