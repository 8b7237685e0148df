package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"retailbot/internal/domain"
	"retailbot/internal/metrics"
)

const topN = 5

// Recorder is the write/read front of the aggregation engine. Writes try the
// durable store and degrade unconditionally to the fallback cache; the
// conversational path never sees an analytics failure.
type Recorder struct {
	durable  domain.AggregateStore
	fallback *FallbackCache
	logger   *slog.Logger
}

func NewRecorder(durable domain.AggregateStore, fallback *FallbackCache, logger *slog.Logger) *Recorder {
	return &Recorder{
		durable:  durable,
		fallback: fallback,
		logger:   logger,
	}
}

// Track records one query event. It never returns an error: any durable-store
// failure is absorbed by the fallback cache. No retry, no reconciliation; a
// degraded write stays in process memory.
func (r *Recorder) Track(ctx context.Context, storeID, query, sentiment, category, caseID string) {
	event := domain.NewQueryEvent(storeID, query, sentiment, category, caseID)
	metrics.QueriesTracked.Inc()

	if err := r.durable.RecordEvent(ctx, event); err != nil {
		metrics.StoreErrors.Inc()
		metrics.FallbackWrites.Inc()
		r.logger.Warn("durable aggregate write failed, using fallback cache",
			"store", storeID, "err", err)
		r.fallback.RecordEvent(event)
	}
}

// Analytics returns the aggregate view for one store: durable store first,
// fallback cache on failure or empty result, and a well-defined empty summary
// when both miss.
func (r *Recorder) Analytics(ctx context.Context, storeID string) domain.AnalyticsSummary {
	rec, err := r.durable.ReadAggregate(ctx, storeID)
	if err != nil {
		metrics.StoreErrors.Inc()
		r.logger.Warn("durable aggregate read failed, using fallback cache",
			"store", storeID, "err", err)
	}
	if rec == nil {
		rec = r.fallback.ReadAggregate(storeID)
	}
	return Summarize(rec)
}

// Summarize builds the read-side view: top-5 FAQs and categories by
// descending count, the single peak hour, and the sentiment histogram. A nil
// record yields the empty summary (zero counts, empty rankings, peak "N/A").
func Summarize(rec *domain.AggregateRecord) domain.AnalyticsSummary {
	summary := domain.AnalyticsSummary{
		TopFAQs:       []domain.KeyCount{},
		TopCategories: []domain.KeyCount{},
		PeakHour:      domain.PeakHourNone,
	}
	if rec == nil {
		return summary
	}

	summary.TotalQueries = rec.TotalQueries
	summary.Sentiment = rec.Sentiment
	summary.TopFAQs = topCounts(rec.FAQs, topN)
	summary.TopCategories = topCounts(rec.Categories, topN)

	peak, best := -1, int64(0)
	for hour := 0; hour < 24; hour++ {
		if n := rec.Hours[hour]; n > best {
			peak, best = hour, n
		}
	}
	if peak >= 0 {
		summary.PeakHour = fmt.Sprintf("%d:00", peak)
	}
	return summary
}

// topCounts ranks a sparse histogram by descending count. Keys are pre-sorted
// lexicographically so repeated reads of the same record return identical
// output even among equal counts.
func topCounts(counts map[string]int64, n int) []domain.KeyCount {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ranked := make([]domain.KeyCount, 0, len(keys))
	for _, k := range keys {
		ranked = append(ranked, domain.KeyCount{Key: k, Count: counts[k]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
