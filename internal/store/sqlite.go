package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"CycleDCA/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists series to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so API reads are not blocked by the refresh writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// m.Close would close s.db through the driver; only the source is released.
	defer src.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadSeries(ctx context.Context, key string) (*Entry, error) {
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM series_meta WHERE series_key = ?`, key).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load series meta %s: %w", key, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, price FROM price_points WHERE series_key = ? ORDER BY ts`, key)
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", key, err)
	}
	defer rows.Close()

	e := &Entry{Key: key, UpdatedAt: time.Unix(updated, 0).UTC()}
	for rows.Next() {
		var ts int64
		var price float64
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, fmt.Errorf("scan series %s: %w", key, err)
		}
		e.Series = append(e.Series, model.NewPricePoint(time.Unix(ts, 0), price))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series %s: %w", key, err)
	}
	return e, nil
}

// SaveSeries replaces the stored series in a single transaction.
func (s *SQLiteStore) SaveSeries(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM price_points WHERE series_key = ?`, e.Key); err != nil {
		return fmt.Errorf("clear series %s: %w", e.Key, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO price_points (series_key, date, ts, price) VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range e.Series {
		if _, err := stmt.ExecContext(ctx, e.Key, p.Date, p.Time.Unix(), p.Price); err != nil {
			return fmt.Errorf("insert %s %s: %w", e.Key, p.Date, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO series_meta (series_key, updated_at, points) VALUES (?,?,?)
		 ON CONFLICT(series_key) DO UPDATE SET updated_at = excluded.updated_at, points = excluded.points`,
		e.Key, e.UpdatedAt.Unix(), len(e.Series)); err != nil {
		return fmt.Errorf("update series meta %s: %w", e.Key, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteSeries(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM price_points WHERE series_key = ?`, key); err != nil {
		return fmt.Errorf("delete series %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM series_meta WHERE series_key = ?`, key); err != nil {
		return fmt.Errorf("delete series meta %s: %w", key, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecordUpsert(ctx context.Context, symbol string, r *UpsertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO upsert_history
		(symbol, date, price, previous, action, changed, recorded_at)
		VALUES (?,?,?,?,?,?,?)`,
		symbol, r.Date, r.Price, r.Previous, string(r.Action), r.Changed, r.RecordedAt.Unix(),
	)
	return err
}

// UpsertHistory returns the most recent upserts for symbol, newest first.
func (s *SQLiteStore) UpsertHistory(ctx context.Context, symbol string, limit int) ([]UpsertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, price, COALESCE(previous, 0), action, changed, recorded_at
		FROM upsert_history WHERE symbol = ? ORDER BY id DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query upsert history: %w", err)
	}
	defer rows.Close()

	var out []UpsertRecord
	for rows.Next() {
		var r UpsertRecord
		var action string
		var at int64
		if err := rows.Scan(&r.Date, &r.Price, &r.Previous, &action, &r.Changed, &at); err != nil {
			return nil, fmt.Errorf("scan upsert history: %w", err)
		}
		r.Action = model.UpsertAction(action)
		r.RecordedAt = time.Unix(at, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	log.Info().Msg("closing sqlite store")
	return s.db.Close()
}
