package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addresskit/internal/ingest"
)

var (
	sampleCount  int
	sampleFormat string
	sampleOutput string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate sample legacy records for testing the ingest pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		records := ingest.GenerateSample(sampleCount)

		out := os.Stdout
		if sampleOutput != "" {
			f, err := os.Create(sampleOutput)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close()
			out = f
		}

		if err := ingest.WriteSample(out, records, sampleFormat); err != nil {
			return err
		}

		if sampleOutput != "" {
			zap.L().Info("sample written",
				zap.Int("records", len(records)),
				zap.String("output", sampleOutput),
				zap.String("format", sampleFormat),
			)
		}
		return nil
	},
}

func init() {
	sampleCmd.Flags().IntVar(&sampleCount, "count", 25, "number of records to generate")
	sampleCmd.Flags().StringVar(&sampleFormat, "format", "jsonl", "output format: jsonl or yaml")
	sampleCmd.Flags().StringVar(&sampleOutput, "output", "", "output file (default stdout)")
	rootCmd.AddCommand(sampleCmd)
}
