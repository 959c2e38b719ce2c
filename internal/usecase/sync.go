package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"timesync/internal/domain"
	"timesync/internal/ports"
)

// SyncUseCase drives the full pipeline across all configured providers for
// one sync invocation: cache check, vendor fetch on miss, per-record
// normalization, idempotent persistence, outcome aggregation.
type SyncUseCase struct {
	Log       *slog.Logger
	Providers []ports.Provider
	Cache     ports.ResponseCache
	Store     ports.Store
	Policy    domain.BatchPolicy
	Now       func() time.Time
}

// SyncOptions controls one run. Force bypasses the cache; a supplied
// Start/End pair makes the window custom, which also bypasses the cache and
// is never written back to it.
type SyncOptions struct {
	Force bool
	Start *time.Time
	End   *time.Time
}

// Run executes one sync across all providers. A failure in one provider
// never aborts the others; each outcome is isolated in the report. The
// returned error covers only invocation-level problems, not per-provider
// failures.
func (uc *SyncUseCase) Run(ctx context.Context, opts SyncOptions) (domain.SyncReport, error) {
	if uc.Store == nil || len(uc.Providers) == 0 {
		return domain.SyncReport{}, errors.New("usecase not initialized: missing dependencies")
	}
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}

	win, err := resolveWindow(opts, now())
	if err != nil {
		return domain.SyncReport{}, err
	}
	uc.Log.Info("starting sync",
		slog.Time("from", win.Start), slog.Time("to", win.End),
		slog.Bool("custom", win.Custom), slog.Bool("force", opts.Force))

	var report domain.SyncReport
	for _, p := range uc.Providers {
		report.Add(uc.syncProvider(ctx, p, win, opts.Force))
	}
	uc.Log.Info("sync completed",
		slog.Int("imported", report.Imported), slog.Int("skipped", report.Skipped))
	return report, nil
}

func resolveWindow(opts SyncOptions, now time.Time) (domain.Window, error) {
	if opts.Start == nil && opts.End == nil {
		return domain.DefaultWindow(now), nil
	}
	if opts.Start == nil || opts.End == nil {
		return domain.Window{}, errors.New("custom range requires both start and end")
	}
	if !opts.Start.Before(*opts.End) {
		return domain.Window{}, fmt.Errorf("custom range start %s is not before end %s",
			opts.Start.Format(time.RFC3339), opts.End.Format(time.RFC3339))
	}
	return domain.CustomWindow(*opts.Start, *opts.End), nil
}

// syncProvider runs one provider's pass end to end. Vendor errors and
// collisions are fatal for this pass only; the outcome still carries any
// counts committed before the failure point.
func (uc *SyncUseCase) syncProvider(ctx context.Context, p ports.Provider, win domain.Window, force bool) domain.ProviderOutcome {
	name := p.Name()
	log := uc.Log.With(slog.String("provider", string(name)))
	out := domain.ProviderOutcome{Provider: name}

	var raw []json.RawMessage
	if uc.Cache != nil && !force && !win.Custom {
		raw, out.FromCache = uc.Cache.Read(name)
	}
	if !out.FromCache {
		fetched, err := p.Fetch(ctx, win)
		if err != nil {
			log.Error("vendor fetch failed", slog.String("error", err.Error()))
			out.Error = err.Error()
			return out
		}
		raw = fetched
		// Only default-window responses are cached: a cached custom range
		// must never answer a different range's query.
		if uc.Cache != nil && !win.Custom {
			if err := uc.Cache.Write(name, raw); err != nil {
				log.Warn("cache write failed", slog.String("error", err.Error()))
			}
		}
	} else {
		log.Debug("serving from cache", slog.Int("count", len(raw)))
	}
	out.Attempted = len(raw)

	entries := make([]domain.Entry, 0, len(raw))
	for _, rec := range raw {
		n, err := p.Normalize(rec)
		if errors.Is(err, domain.ErrNoSettledDuration) {
			out.Skipped++
			continue
		}
		if err != nil {
			log.Error("normalize failed", slog.String("error", err.Error()))
			out.Error = err.Error()
			return out
		}
		if n.UsedFallback {
			out.Fallbacks++
		}
		entries = append(entries, n.Entry)
	}

	res, err := uc.Store.SaveBatch(ctx, entries, uc.Policy)
	out.Imported = res.Imported()
	if err != nil {
		log.Error("batch write failed",
			slog.String("error", err.Error()),
			slog.Int("committed", out.Imported))
		out.Error = err.Error()
		return out
	}
	out.Success = true
	log.Info("provider synced",
		slog.Int("attempted", out.Attempted),
		slog.Int("imported", out.Imported),
		slog.Int("skipped", out.Skipped),
		slog.Bool("from_cache", out.FromCache))
	return out
}
