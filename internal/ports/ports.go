package ports

import (
	"context"
	"encoding/json"

	"timesync/internal/domain"
)

// Provider is one external time-tracking vendor. Implementations are
// registered with the orchestrator at wiring time; the orchestrator never
// branches on a concrete vendor.
type Provider interface {
	// Name tags entries produced by this provider and keys its cache slot.
	Name() domain.Source

	// Fetch performs exactly one HTTP round trip for the given window and
	// returns the vendor's raw records. No retries, no backoff, no pagination
	// beyond the vendor's first page. Raw records stay opaque so the response
	// cache can persist them verbatim.
	Fetch(ctx context.Context, win domain.Window) ([]json.RawMessage, error)

	// Normalize maps one raw record to the canonical shape. It is a pure
	// function of the record: the same input always yields the same
	// candidate, which is what makes the writer's upsert safe to repeat.
	// A record with no settled duration returns domain.ErrNoSettledDuration.
	Normalize(raw json.RawMessage) (domain.Normalized, error)
}

// ResponseCache holds the last raw fetch per provider. Read returns the
// payload only when a fresh, intact cache entry exists; anything else is a
// miss, never an error. The single accessor closes the check-then-read race
// a split freshness probe would have.
type ResponseCache interface {
	Read(provider domain.Source) ([]json.RawMessage, bool)
	Write(provider domain.Source, payload []json.RawMessage) error
}

// Store persists canonical entries.
type Store interface {
	// SaveBatch upserts entries keyed on (source, external_id). Entries with
	// a nil external id always insert as new rows. A collision the upsert
	// cannot resolve aborts the batch per the policy and surfaces as a
	// domain.CollisionError; the partial result is still returned.
	SaveBatch(ctx context.Context, entries []domain.Entry, policy domain.BatchPolicy) (domain.BatchResult, error)

	// ListEntries returns entries in the window, newest first.
	ListEntries(ctx context.Context, win domain.Window) ([]domain.Entry, error)
}
