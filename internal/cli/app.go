package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/me/shopgate/internal/config"
	"github.com/me/shopgate/internal/resolver"
	"github.com/me/shopgate/internal/session"
	"github.com/me/shopgate/internal/shopapi"
	"github.com/me/shopgate/internal/store"
)

// app wires the persistence locations, the upstream client, the session
// store, and the resolver for one command invocation.
type app struct {
	cfg      config.Config
	durable  *store.SQLiteStore
	entries  *session.FileEntries
	store    *session.Store
	api      *shopapi.Client
	resolver *resolver.Resolver
}

// openApp loads config, opens the stores, and restores any persisted
// session. Callers must Close.
func openApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	dir, err := cfg.ResolveStateDir()
	if err != nil {
		return nil, err
	}
	entries, err := session.NewFileEntries(dir)
	if err != nil {
		return nil, fmt.Errorf("open entry store: %w", err)
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}
	durable, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := durable.Migrate(ctx); err != nil {
		durable.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	st := session.New(durable, entries, logger)
	api := shopapi.NewClient(shopapi.Config{BaseURL: cfg.UpstreamURL}, st.Token, logger)
	st.SetAPI(api)
	if err := st.Restore(ctx); err != nil {
		durable.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	return &app{
		cfg:      cfg,
		durable:  durable,
		entries:  entries,
		store:    st,
		api:      api,
		resolver: resolver.New(api, st, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.durable.Close(); err != nil {
		logger.Warn("close database", "error", err)
	}
}
