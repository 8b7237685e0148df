package analytics

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"retailbot/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "analytics.db"), testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RecordAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	events := []domain.QueryEvent{
		domain.NewQueryEvent("store1", "What is your return policy?", domain.SentimentNeutral, "", ""),
		domain.NewQueryEvent("store1", "What is your return policy?", domain.SentimentNegative, "returns", ""),
		domain.NewQueryEvent("store1", "I love this product", domain.SentimentPositive, "", "CASE-00000001ABCD"),
	}
	for _, e := range events {
		if err := store.RecordEvent(ctx, e); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	rec, err := store.ReadAggregate(ctx, "store1")
	if err != nil {
		t.Fatalf("ReadAggregate: %v", err)
	}
	if rec == nil {
		t.Fatal("expected aggregate record")
	}
	if rec.TotalQueries != 3 {
		t.Errorf("totalQueries = %d, want 3", rec.TotalQueries)
	}
	if rec.Sentiment.Sum() != rec.TotalQueries {
		t.Errorf("sentiment sum %d != total %d", rec.Sentiment.Sum(), rec.TotalQueries)
	}
	// The two identical queries share a 20-char prefix bucket.
	if got := rec.FAQs[domain.FAQKey("What is your return policy?")]; got != 2 {
		t.Errorf("faq bucket = %d, want 2", got)
	}
	// Events without a category land in the reserved bucket.
	if got := rec.Categories[domain.CategoryUncategorized]; got != 2 {
		t.Errorf("uncategorized = %d, want 2", got)
	}
	if got := rec.Categories["returns"]; got != 1 {
		t.Errorf("returns category = %d, want 1", got)
	}
}

func TestSQLiteStore_EmptyStore(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.ReadAggregate(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("ReadAggregate: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record for unknown store, got %+v", rec)
	}
}

func TestSQLiteStore_AuditTrail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, q := range []string{"first", "second", "third"} {
		if err := store.RecordEvent(ctx, domain.NewQueryEvent("store1", q, domain.SentimentNeutral, "", "")); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	events, err := store.RecentEvents(ctx, "store1", 2)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Query != "third" {
		t.Errorf("newest event = %q, want %q", events[0].Query, "third")
	}
}

func TestSQLiteStore_UnavailableAfterClose(t *testing.T) {
	store := newTestStore(t)
	store.Close()

	err := store.RecordEvent(context.Background(), domain.NewQueryEvent("store1", "q", domain.SentimentNeutral, "", ""))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
	if _, err := store.ReadAggregate(context.Background(), "store1"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("read err = %v, want ErrStoreUnavailable", err)
	}
}

func TestSQLiteStore_TenantIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordEvent(ctx, domain.NewQueryEvent("store-a", "hello", domain.SentimentPositive, "", "")); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordEvent(ctx, domain.NewQueryEvent("store-b", "hello", domain.SentimentNegative, "", "")); err != nil {
		t.Fatal(err)
	}

	a, _ := store.ReadAggregate(ctx, "store-a")
	b, _ := store.ReadAggregate(ctx, "store-b")
	if a.Sentiment.Positive != 1 || a.Sentiment.Negative != 0 {
		t.Errorf("store-a sentiment = %+v", a.Sentiment)
	}
	if b.Sentiment.Negative != 1 || b.Sentiment.Positive != 0 {
		t.Errorf("store-b sentiment = %+v", b.Sentiment)
	}
}
