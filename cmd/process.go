// =============================================================================
// Packing List Ingest - Process Command
// =============================================================================
//
// The 'process' command runs every packing list in the input directory
// through the engine.
//
// COMMAND USAGE:
//   packlist process [flags]
//
// FLAGS:
//   --dry-run     : Parse files without writing output or disposing sources
//
// PROCESSING PIPELINE:
//   1. Ensure the configured directories exist
//   2. Discover supported files in the input directory
//   3. For each file (at most max_concurrency at once):
//      a. Read it within max_upload_size
//      b. Sniff the content type
//      c. Parse it into payloads
//      d. Write <uuid>.json to the output directory
//      e. Archive or delete the source, whatever the outcome
//   4. Print a summary report
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ginjaninja78/packing-list-ingest/internal/config"
	"github.com/ginjaninja78/packing-list-ingest/internal/ingest"
	"github.com/ginjaninja78/packing-list-ingest/internal/logger"
	"github.com/ginjaninja78/packing-list-ingest/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// dryRun parses files without writing output or disposing sources.
var dryRun bool

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process every packing list in the input directory",
	Long: `The process command scans the input directory for packing lists
(.xlsx, .xls, .csv, .xml) and converts each one to a JSON array of payloads.

Files are processed concurrently, up to max_concurrency at once. Errors in
one file do not affect the others.

After every attempt, successful or not, the source file is moved to the
input archive when keep_source is set and deleted otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := runProcess(cmd.Context(), mainConfig, logger.Logger())
		if err != nil {
			return err
		}
		return utils.WriteSummaryLog(cmd.OutOrStdout(), summary)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Parse files without writing output or disposing sources",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess processes the input directory and returns the run summary.
func runProcess(ctx context.Context, cfg *config.MainConfig, log zerolog.Logger) (utils.ProcessingSummary, error) {
	summary := utils.ProcessingSummary{StartTime: time.Now()}

	if err := cfg.EnsureDirectories(); err != nil {
		return summary, err
	}

	engine, err := ingest.New(cfg, log)
	if err != nil {
		return summary, err
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.KeepSource)
	fm.UseTimestampSubdirs = cfg.ArchiveTimestampSubdirs
	files, err := fm.DiscoverInputFiles()
	if err != nil {
		return summary, err
	}
	summary.TotalFiles = len(files)
	log.Info().Int("files", len(files)).Bool("dry_run", dryRun).Msg("processing input directory")

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	if cfg.MaxConcurrency > 0 {
		g.SetLimit(cfg.MaxConcurrency)
	}

	for _, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			processed, err := processFile(engine, fm, cfg, file, log)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.FailedFiles++
				summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
					InputFile:    file,
					ErrorMessage: err.Error(),
				})
				return nil
			}
			summary.SuccessfulFiles++
			summary.TotalParcels += processed.Parcels
			summary.TotalItems += processed.Items
			summary.ProcessedFiles = append(summary.ProcessedFiles, processed)
			return nil
		})
	}

	err = g.Wait()
	summary.EndTime = time.Now()
	return summary, err
}

// processFile handles one input. The source is disposed on every exit path
// unless this is a dry run.
func processFile(engine *ingest.Engine, fm *utils.FileManager, cfg *config.MainConfig, path string, log zerolog.Logger) (info utils.ProcessedFileInfo, err error) {
	start := time.Now()
	log = logger.WithContext(log, map[string]interface{}{"file": path})

	if !dryRun {
		defer func() {
			archived, derr := fm.Dispose(path)
			if derr != nil {
				log.Error().Err(derr).Msg("failed to dispose source")
				return
			}
			log.Debug().Str("archive", archived).Msg("source disposed")
		}()
	}

	payloads, contentType, err := ingestFile(engine, cfg, path, "")
	if err != nil {
		log.Warn().Err(err).Str("content_type", contentType).Msg("file rejected")
		return info, err
	}

	info = utils.ProcessedFileInfo{
		InputFile:   path,
		ContentType: contentType,
		Parcels:     len(payloads),
	}
	for _, p := range payloads {
		info.Items += len(p.ParcelItems)
	}

	if !dryRun {
		name := utils.GenerateOutputFileName(cfg.OutputFormat, path)
		if info.OutputFile, err = fm.WriteJSON(name, payloads); err != nil {
			return info, fmt.Errorf("write output: %w", err)
		}
	}

	info.ProcessTime = time.Since(start)
	log.Info().
		Str("output", info.OutputFile).
		Int("parcels", info.Parcels).
		Int("items", info.Items).
		Dur("elapsed", info.ProcessTime).
		Msg("file processed")
	return info, nil
}
