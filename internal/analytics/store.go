// Package analytics implements the query aggregation engine: a durable
// SQLite-backed counter store, a bounded in-process fallback cache, and the
// recorder that degrades from one to the other.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"retailbot/internal/domain"

	_ "modernc.org/sqlite"
)

// Counter kinds in the aggregate keyspace. Together with (store_id, key) they
// address one durable statistic.
const (
	kindTotal     = "total"
	kindSentiment = "sentiment"
	kindHour      = "hour"
	kindCategory  = "category"
	kindFAQ       = "faq"
)

// SQLiteStore implements domain.AggregateStore on a local SQLite database.
// Every driver failure is reported as domain.ErrStoreUnavailable: the caller's
// only recovery is the fallback cache, and a spurious degrade is harmless.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		store_id    TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		query       TEXT NOT NULL,
		sentiment   TEXT NOT NULL,
		category    TEXT,
		case_id     TEXT,
		hour        INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_store_time ON query_events(store_id, recorded_at);

	CREATE TABLE IF NOT EXISTS aggregate_counters (
		store_id TEXT NOT NULL,
		kind     TEXT NOT NULL,
		key      TEXT NOT NULL,
		count    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (store_id, kind, key)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordEvent appends the raw event for audit and bumps the five aggregate
// counters. All writes share one transaction, so either the whole event is
// counted or nothing is.
func (s *SQLiteStore) RecordEvent(ctx context.Context, event domain.QueryEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO query_events (store_id, recorded_at, query, sentiment, category, case_id, hour)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.StoreID, event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.Query, event.Sentiment, event.Category, event.CaseID, event.Hour,
	)
	if err != nil {
		return fmt.Errorf("%w: insert event: %v", domain.ErrStoreUnavailable, err)
	}

	increments := []struct{ kind, key string }{
		{kindTotal, kindTotal},
		{kindSentiment, event.Sentiment},
		{kindHour, strconv.Itoa(event.Hour)},
		{kindCategory, event.CategoryKey()},
		{kindFAQ, domain.FAQKey(event.Query)},
	}
	for _, inc := range increments {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO aggregate_counters (store_id, kind, key, count) VALUES (?, ?, ?, 1)
			 ON CONFLICT(store_id, kind, key) DO UPDATE SET count = count + 1`,
			event.StoreID, inc.kind, inc.key,
		)
		if err != nil {
			return fmt.Errorf("%w: increment %s/%s: %v", domain.ErrStoreUnavailable, inc.kind, inc.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ReadAggregate assembles the aggregate record for one store, or returns
// (nil, nil) when the store has never been counted.
func (s *SQLiteStore) ReadAggregate(ctx context.Context, storeID string) (*domain.AggregateRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, key, count FROM aggregate_counters WHERE store_id = ?`, storeID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: read aggregate: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	rec := domain.NewAggregateRecord()
	seen := false
	for rows.Next() {
		var kind, key string
		var count int64
		if err := rows.Scan(&kind, &key, &count); err != nil {
			return nil, fmt.Errorf("%w: scan aggregate: %v", domain.ErrStoreUnavailable, err)
		}
		seen = true
		switch kind {
		case kindTotal:
			rec.TotalQueries = count
		case kindSentiment:
			switch key {
			case domain.SentimentPositive:
				rec.Sentiment.Positive = count
			case domain.SentimentNegative:
				rec.Sentiment.Negative = count
			case domain.SentimentNeutral:
				rec.Sentiment.Neutral = count
			}
		case kindHour:
			if h, err := strconv.Atoi(key); err == nil {
				rec.Hours[h] = count
			}
		case kindCategory:
			rec.Categories[key] = count
		case kindFAQ:
			rec.FAQs[key] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read aggregate: %v", domain.ErrStoreUnavailable, err)
	}
	if !seen {
		return nil, nil
	}
	return rec, nil
}

// RecentEvents returns the newest raw audit events for a store, newest first.
func (s *SQLiteStore) RecentEvents(ctx context.Context, storeID string, limit int) ([]domain.QueryEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT store_id, recorded_at, query, sentiment, category, case_id, hour
		 FROM query_events WHERE store_id = ?
		 ORDER BY recorded_at DESC LIMIT ?`, storeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: read events: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var events []domain.QueryEvent
	for rows.Next() {
		var e domain.QueryEvent
		var recordedAt string
		var category, caseID sql.NullString
		if err := rows.Scan(&e.StoreID, &recordedAt, &e.Query, &e.Sentiment, &category, &caseID, &e.Hour); err != nil {
			return nil, fmt.Errorf("%w: scan event: %v", domain.ErrStoreUnavailable, err)
		}
		e.Category = category.String
		e.CaseID = caseID.String
		if ts, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			e.Timestamp = ts
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
