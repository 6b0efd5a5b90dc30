package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addresskit/internal/store"
	"github.com/sells-group/addresskit/pkg/geocode"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "addresskit.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initAdapter builds the configured geocoding provider. Provider "" means
// offline parsing only.
func initAdapter(provider string) (geocode.Adapter, error) {
	switch provider {
	case "":
		return nil, nil
	case "google":
		opts := []geocode.GoogleOption{}
		if cfg.Google.BaseURL != "" {
			opts = append(opts, geocode.WithGoogleBaseURL(cfg.Google.BaseURL))
		}
		if cfg.Google.RPS > 0 {
			opts = append(opts, geocode.WithGoogleRateLimit(cfg.Google.RPS))
		}
		return geocode.NewGoogle(cfg.Google.APIKey, opts...)
	case "loqate":
		opts := []geocode.LoqateOption{}
		if cfg.Loqate.Endpoint != "" {
			opts = append(opts, geocode.WithLoqateEndpoint(cfg.Loqate.Endpoint))
		}
		if cfg.Loqate.RPS > 0 {
			opts = append(opts, geocode.WithLoqateRateLimit(cfg.Loqate.RPS))
		}
		return geocode.NewLoqate(cfg.Loqate.APIKey, opts...)
	default:
		return nil, eris.Errorf("unsupported geocode provider: %s", provider)
	}
}
