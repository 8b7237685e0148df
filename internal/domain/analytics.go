package domain

import (
	"context"
	"strings"
	"time"
)

// Sentiment labels attached to every query event.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// CategoryUncategorized is the reserved histogram key for events that arrive
// without a category label.
const CategoryUncategorized = "uncategorized"

// FAQKeyLength is the normalized query prefix length used for FAQ bucketing.
// Distinct queries sharing a prefix intentionally merge their counts.
const FAQKeyLength = 20

// QueryEvent is the immutable record of one user query. It is created by the
// caller of the recorder and never mutated; only derived counters persist.
type QueryEvent struct {
	StoreID   string
	Query     string
	Sentiment string
	Category  string // empty = uncategorized
	CaseID    string // optional, set when the reply opened a support case
	Timestamp time.Time
	Hour      int // hour-of-day derived from Timestamp
}

// NewQueryEvent stamps a query event with the current time.
func NewQueryEvent(storeID, query, sentiment, category, caseID string) QueryEvent {
	now := time.Now()
	return QueryEvent{
		StoreID:   storeID,
		Query:     query,
		Sentiment: sentiment,
		Category:  category,
		CaseID:    caseID,
		Timestamp: now,
		Hour:      now.Hour(),
	}
}

// FAQKey returns the lowercased fixed-length prefix used as the event's FAQ
// bucket key.
func FAQKey(query string) string {
	key := strings.ToLower(query)
	runes := []rune(key)
	if len(runes) > FAQKeyLength {
		return string(runes[:FAQKeyLength])
	}
	return key
}

// CategoryKey returns the category histogram key for the event.
func (e QueryEvent) CategoryKey() string {
	if e.Category == "" {
		return CategoryUncategorized
	}
	return e.Category
}

// SentimentCounts is the fixed three-bucket sentiment histogram.
type SentimentCounts struct {
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
	Neutral  int64 `json:"neutral"`
}

// Sum returns the total across all three buckets.
func (s SentimentCounts) Sum() int64 {
	return s.Positive + s.Negative + s.Neutral
}

// AggregateRecord is the rolled-up counter state for one store identifier.
// Invariant: TotalQueries always equals Sentiment.Sum(). The category and FAQ
// histograms carry no such guarantee (keys may be absent or merged).
type AggregateRecord struct {
	TotalQueries int64
	Sentiment    SentimentCounts
	Hours        map[int]int64
	Categories   map[string]int64
	FAQs         map[string]int64
}

// NewAggregateRecord returns an empty record with allocated histograms.
func NewAggregateRecord() *AggregateRecord {
	return &AggregateRecord{
		Hours:      make(map[int]int64),
		Categories: make(map[string]int64),
		FAQs:       make(map[string]int64),
	}
}

// Apply folds one event into the record: total, sentiment bucket, hour bucket
// and FAQ bucket each gain one. The category bucket gains one only when the
// event carries a category; the durable store is the path that reserves the
// "uncategorized" key. An unrecognized sentiment label counts as neutral so
// the total/sentiment invariant holds.
func (r *AggregateRecord) Apply(e QueryEvent) {
	r.TotalQueries++
	switch e.Sentiment {
	case SentimentPositive:
		r.Sentiment.Positive++
	case SentimentNegative:
		r.Sentiment.Negative++
	default:
		r.Sentiment.Neutral++
	}
	r.Hours[e.Hour]++
	if e.Category != "" {
		r.Categories[e.Category]++
	}
	r.FAQs[FAQKey(e.Query)]++
}

// Clone returns a deep copy of the record.
func (r *AggregateRecord) Clone() *AggregateRecord {
	out := NewAggregateRecord()
	out.TotalQueries = r.TotalQueries
	out.Sentiment = r.Sentiment
	for h, n := range r.Hours {
		out.Hours[h] = n
	}
	for k, n := range r.Categories {
		out.Categories[k] = n
	}
	for k, n := range r.FAQs {
		out.FAQs[k] = n
	}
	return out
}

// KeyCount is one (key, count) pair in a ranked top-N view.
type KeyCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// PeakHourNone is the peak-hour sentinel for a store with no recorded events.
const PeakHourNone = "N/A"

// AnalyticsSummary is the read-side aggregate view served to dashboards.
type AnalyticsSummary struct {
	TotalQueries  int64           `json:"totalQueries"`
	TopFAQs       []KeyCount      `json:"topFaqs"`
	Sentiment     SentimentCounts `json:"sentiment"`
	PeakHour      string          `json:"peakHour"` // "H:00" or "N/A"
	TopCategories []KeyCount      `json:"topCategories"`
}

// AggregateStore is the durable counter store keyed by (store, statistic).
// RecordEvent applies all per-event increments atomically: either the whole
// event is counted or the call fails. Unreachable backends surface as
// ErrStoreUnavailable so callers can degrade to the fallback cache without
// misreading a data error as an outage.
type AggregateStore interface {
	RecordEvent(ctx context.Context, event QueryEvent) error
	ReadAggregate(ctx context.Context, storeID string) (*AggregateRecord, error)
	Close() error
}
