package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addresskit/internal/resolver"
)

var resolveProvider string

var resolveCmd = &cobra.Command{
	Use:   "resolve <address>",
	Short: "Resolve a single free-form address",
	Long:  "Standardizes the string, geocodes it through the selected provider (or parses it offline), and persists the deduplicated address with its provenance.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		adapter, err := initAdapter(resolveProvider)
		if err != nil {
			return err
		}

		r := resolver.New(st)
		opts := []resolver.CreateOption{resolver.WithRetry(cfg.Retry.Resilience())}
		if adapter != nil {
			opts = append(opts, resolver.WithAdapter(adapter))
		}

		addr, created, err := r.CreateFromRaw(ctx, args[0], opts...)
		if err != nil {
			return eris.Wrap(err, "resolve address")
		}

		zap.L().Info("address resolved",
			zap.String("id", addr.ID),
			zap.String("label", addr.Label()),
			zap.Bool("created", created),
		)

		view, err := st.GetAddressView(ctx, addr.ID)
		if err != nil {
			return eris.Wrap(err, "load address view")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveProvider, "provider", "", "geocode provider: google, loqate, or empty for offline parsing")
	rootCmd.AddCommand(resolveCmd)
}
