package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addresskit/internal/ingest"
	"github.com/sells-group/addresskit/internal/resolver"
)

// reportedFailures caps how many per-record failures are logged in full; the
// rest are only counted.
const reportedFailures = 10

var (
	ingestInput          string
	ingestFormat         string
	ingestProvider       string
	ingestGeocodeMissing bool
	ingestConcurrency    int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Batch-import legacy address records",
	Long:  "Reads legacy records from a JSONL or JSON file, resolves each into the normalized store, and reports created, deduplicated, and skipped counts. A bad record is skipped, never fatal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(ingestInput)
		if err != nil {
			return eris.Wrap(err, "open input")
		}
		defer f.Close()

		records, err := ingest.ReadRecords(f, ingestFormat)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			zap.L().Warn("no records found", zap.String("input", ingestInput))
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		opts := ingest.Options{
			GeocodeMissing: ingestGeocodeMissing,
			Retry:          cfg.Retry.Resilience(),
		}
		if ingestGeocodeMissing {
			adapter, err := initAdapter(ingestProvider)
			if err != nil {
				return err
			}
			if adapter == nil {
				return eris.New("--geocode-missing requires --provider google or loqate")
			}
			opts.Adapter = adapter
		}

		concurrency := ingestConcurrency
		if concurrency == 0 {
			concurrency = cfg.Ingest.Concurrency
		}

		ing := ingest.New(resolver.New(st), opts)
		report := ing.IngestBatch(ctx, records, concurrency)

		zap.L().Info("ingest complete",
			zap.Int("records", len(records)),
			zap.Int("created", report.Created),
			zap.Int("deduplicated", report.Deduplicated),
			zap.Int("failed", report.Failed),
		)
		for i, failure := range report.Failures {
			if i >= reportedFailures {
				zap.L().Warn("additional failures omitted",
					zap.Int("omitted", len(report.Failures)-reportedFailures),
				)
				break
			}
			zap.L().Warn("record skipped",
				zap.Int("index", failure.Index),
				zap.String("reason", failure.Reason),
			)
		}

		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestInput, "input", "", "path to legacy records file (required)")
	ingestCmd.Flags().StringVar(&ingestFormat, "format", "jsonl", "input format: jsonl or json")
	ingestCmd.Flags().StringVar(&ingestProvider, "provider", "google", "geocode provider for --geocode-missing")
	ingestCmd.Flags().BoolVar(&ingestGeocodeMissing, "geocode-missing", false, "geocode records that lack structured fields")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 0, "concurrent workers (default from config)")
	_ = ingestCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(ingestCmd)
}
