package mysql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"timesync/internal/domain"
	"timesync/internal/meter"
)

// mysqlDupEntry is the server error for a uniqueness violation.
const mysqlDupEntry = 1062

// Store persists canonical entries and meter readings in MySQL.
type Store struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// NewStore opens a MySQL connection using the provided DSN.
// Example DSN: user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
func NewStore(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	// Conservative pool defaults for a single-user deployment.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, log: log, now: time.Now}, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SaveBatch upserts entries keyed on (source, external_id).
//
// The upsert is an explicit select-then-insert-or-update rather than
// ON DUPLICATE KEY UPDATE: when two syncs race to insert the same key, the
// unique index rejects the loser and that duplicate-key error surfaces as a
// domain.CollisionError instead of silently overwriting. The index itself is
// the enforcement mechanism; there is no application-level locking.
func (s *Store) SaveBatch(ctx context.Context, entries []domain.Entry, policy domain.BatchPolicy) (domain.BatchResult, error) {
	var res domain.BatchResult
	if len(entries) == 0 {
		return res, nil
	}

	if policy == domain.AllOrNothing {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return res, err
		}
		for _, e := range entries {
			inserted, err := s.upsertOne(ctx, tx, e)
			if err != nil {
				tx.Rollback()
				return domain.BatchResult{}, err
			}
			if inserted {
				res.Inserted++
			} else {
				res.Updated++
			}
		}
		if err := tx.Commit(); err != nil {
			return domain.BatchResult{}, err
		}
		s.log.Info("batch committed", slog.Int("inserted", res.Inserted), slog.Int("updated", res.Updated))
		return res, nil
	}

	// Best effort: each row commits on its own. A collision aborts the
	// remainder of the batch but rows already committed stay committed, and
	// the partial result reports them.
	for _, e := range entries {
		inserted, err := s.upsertOne(ctx, s.db, e)
		if err != nil {
			return res, err
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}
	s.log.Info("batch committed", slog.Int("inserted", res.Inserted), slog.Int("updated", res.Updated))
	return res, nil
}

// upsertOne writes one entry. Entries without a stable external identity
// always insert as new rows. Only mutable display fields change on update;
// created_at is set once on insert.
func (s *Store) upsertOne(ctx context.Context, q execer, e domain.Entry) (inserted bool, err error) {
	if e.ExternalID == nil {
		_, err := q.ExecContext(ctx,
			`INSERT INTO time_entries (source, external_id, date, duration_hours, project, description, created_at)
			 VALUES (?, NULL, ?, ?, ?, ?, ?)`,
			e.Source, e.Date.UTC(), e.DurationHours, e.Project, e.Description, s.now().UTC())
		return true, err
	}

	var id int64
	err = q.QueryRowContext(ctx,
		`SELECT id FROM time_entries WHERE source = ? AND external_id = ?`,
		e.Source, *e.ExternalID).Scan(&id)
	switch {
	case err == nil:
		_, err = q.ExecContext(ctx,
			`UPDATE time_entries SET date = ?, duration_hours = ?, project = ?, description = ? WHERE id = ?`,
			e.Date.UTC(), e.DurationHours, e.Project, e.Description, id)
		return false, err
	case errors.Is(err, sql.ErrNoRows):
		_, err = q.ExecContext(ctx,
			`INSERT INTO time_entries (source, external_id, date, duration_hours, project, description, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.Source, *e.ExternalID, e.Date.UTC(), e.DurationHours, e.Project, e.Description, s.now().UTC())
		if isDupEntry(err) {
			return false, &domain.CollisionError{Source: e.Source, ExternalID: *e.ExternalID, Date: e.Date}
		}
		return true, err
	default:
		return false, err
	}
}

func isDupEntry(err error) bool {
	var me *driver.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDupEntry
}

// ListEntries returns entries in [win.Start, win.End), newest first.
func (s *Store) ListEntries(ctx context.Context, win domain.Window) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, external_id, date, duration_hours, project, description, created_at
		 FROM time_entries WHERE date >= ? AND date < ?
		 ORDER BY date DESC, id DESC`,
		win.Start.UTC(), win.End.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		var (
			e     domain.Entry
			extID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Source, &extID, &e.Date, &e.DurationHours, &e.Project, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		if extID.Valid {
			v := extID.String
			e.ExternalID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestReading implements meter.Store.
func (s *Store) LatestReading(ctx context.Context, name string) (*meter.Reading, error) {
	var r meter.Reading
	err := s.db.QueryRowContext(ctx,
		`SELECT id, meter, read_at, value, created_at FROM meter_readings
		 WHERE meter = ? ORDER BY read_at DESC, id DESC LIMIT 1`,
		name).Scan(&r.ID, &r.Meter, &r.ReadAt, &r.Value, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertReading implements meter.Store.
func (s *Store) InsertReading(ctx context.Context, r meter.Reading) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO meter_readings (meter, read_at, value, created_at) VALUES (?, ?, ?, ?)`,
		r.Meter, r.ReadAt.UTC(), r.Value, s.now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListReadings implements meter.Store.
func (s *Store) ListReadings(ctx context.Context, name string) ([]meter.Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, meter, read_at, value, created_at FROM meter_readings
		 WHERE meter = ? ORDER BY read_at ASC, id ASC`,
		name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []meter.Reading
	for rows.Next() {
		var r meter.Reading
		if err := rows.Scan(&r.ID, &r.Meter, &r.ReadAt, &r.Value, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying DB.
func (s *Store) Close() error { return s.db.Close() }
