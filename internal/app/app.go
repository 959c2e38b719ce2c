package app

import (
	"context"
	"log/slog"

	"timesync/internal/adapter/mysql"
	"timesync/internal/adapter/tempo"
	"timesync/internal/adapter/toggl"
	"timesync/internal/cache"
	"timesync/internal/config"
	"timesync/internal/domain"
	"timesync/internal/meter"
	"timesync/internal/migrate"
	"timesync/internal/ports"
	"timesync/internal/usecase"
)

// App wires adapters and use cases.
type App struct {
	log     *slog.Logger
	uc      *usecase.SyncUseCase
	store   ports.Store
	meters  *meter.Service
	closeFn func() error
}

// New runs migrations, opens the store, and registers every provider that
// has a credential configured.
func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	if err := migrate.Run(ctx, cfg.MySQL.DSN, log); err != nil {
		return nil, err
	}
	store, err := mysql.NewStore(ctx, cfg.MySQL.DSN, log)
	if err != nil {
		return nil, err
	}

	var providers []ports.Provider
	if cfg.Toggl.Token != "" {
		providers = append(providers, toggl.NewClient(cfg.Toggl.BaseURL, cfg.Toggl.Token, log))
	}
	if cfg.Tempo.Token != "" {
		providers = append(providers, tempo.NewClient(cfg.Tempo.BaseURL, cfg.Tempo.Token, log))
	}

	uc := &usecase.SyncUseCase{
		Log:       log,
		Providers: providers,
		Cache:     cache.New(cfg.Cache.Dir, cfg.Cache.TTL, log),
		Store:     store,
		Policy:    cfg.Sync.Policy,
	}

	return &App{
		log:     log,
		uc:      uc,
		store:   store,
		meters:  meter.NewService(store, log),
		closeFn: store.Close,
	}, nil
}

// Sync runs one orchestrator pass.
func (a *App) Sync(ctx context.Context, opts usecase.SyncOptions) (domain.SyncReport, error) {
	return a.uc.Run(ctx, opts)
}

// ImportEntries lands externally parsed entries (CSV, manual) through the
// same canonical write path the sync uses.
func (a *App) ImportEntries(ctx context.Context, entries []domain.Entry) (domain.BatchResult, error) {
	return a.store.SaveBatch(ctx, entries, domain.BestEffort)
}

// Close releases the store connection.
func (a *App) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}
