// Package meter tracks utility-meter readings and derives consumption from
// deltas between consecutive readings. Readings per meter form a monotonic
// sequence: values never decrease and timestamps strictly advance.
package meter

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Reading is one recorded meter value.
type Reading struct {
	ID        int64     `json:"id"`
	Meter     string    `json:"meter"`
	ReadAt    time.Time `json:"read_at"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Delta is the consumption between two consecutive readings.
type Delta struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Used float64   `json:"used"`
}

// MonotonicityError reports a reading that would break the per-meter
// monotonic sequence.
type MonotonicityError struct {
	Meter  string
	Value  float64
	ReadAt time.Time
	Latest Reading
}

func (e *MonotonicityError) Error() string {
	return fmt.Sprintf("meter %q: reading %.3f at %s violates monotonic sequence (latest %.3f at %s)",
		e.Meter, e.Value, e.ReadAt.Format(time.RFC3339),
		e.Latest.Value, e.Latest.ReadAt.Format(time.RFC3339))
}

// Store persists readings.
type Store interface {
	// LatestReading returns the most recent reading for the meter, or nil
	// when none exists.
	LatestReading(ctx context.Context, meter string) (*Reading, error)
	InsertReading(ctx context.Context, r Reading) (int64, error)
	// ListReadings returns all readings for a meter, oldest first.
	ListReadings(ctx context.Context, meter string) ([]Reading, error)
}

// Service validates and records readings.
type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Record appends a reading after checking the monotonic constraint against
// the latest persisted reading for that meter.
func (s *Service) Record(ctx context.Context, meter string, readAt time.Time, value float64) (Reading, error) {
	if meter == "" {
		return Reading{}, fmt.Errorf("meter name is required")
	}
	if value < 0 {
		return Reading{}, fmt.Errorf("meter %q: reading must be non-negative", meter)
	}

	latest, err := s.store.LatestReading(ctx, meter)
	if err != nil {
		return Reading{}, err
	}
	if latest != nil && (value < latest.Value || !readAt.After(latest.ReadAt)) {
		return Reading{}, &MonotonicityError{Meter: meter, Value: value, ReadAt: readAt, Latest: *latest}
	}

	r := Reading{Meter: meter, ReadAt: readAt.UTC(), Value: value}
	id, err := s.store.InsertReading(ctx, r)
	if err != nil {
		return Reading{}, err
	}
	r.ID = id
	s.log.Info("meter reading recorded",
		slog.String("meter", meter), slog.Float64("value", value))
	return r, nil
}

// Consumption returns the delta series for a meter, oldest first. A meter
// with fewer than two readings has no consumption yet.
func (s *Service) Consumption(ctx context.Context, meter string) ([]Delta, error) {
	readings, err := s.store.ListReadings(ctx, meter)
	if err != nil {
		return nil, err
	}
	if len(readings) < 2 {
		return nil, nil
	}
	deltas := make([]Delta, 0, len(readings)-1)
	for i := 1; i < len(readings); i++ {
		deltas = append(deltas, Delta{
			From: readings[i-1].ReadAt,
			To:   readings[i].ReadAt,
			Used: readings[i].Value - readings[i-1].Value,
		})
	}
	return deltas, nil
}
