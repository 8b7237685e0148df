package responder

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"retailbot/internal/analytics"
	"retailbot/internal/cases"
	"retailbot/internal/domain"
	"retailbot/internal/knowledge"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type stubProvider struct {
	content string
	err     error
}

func (p *stubProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &domain.ChatResponse{Content: p.content, FinishReason: "stop"}, nil
}
func (p *stubProvider) Name() string                     { return "stub" }
func (p *stubProvider) Healthy(ctx context.Context) error { return p.err }

// failStore simulates a durable store outage so tracking lands in the
// fallback cache, where tests can read it back.
type failStore struct{}

func (failStore) RecordEvent(ctx context.Context, event domain.QueryEvent) error {
	return domain.ErrStoreUnavailable
}
func (failStore) ReadAggregate(ctx context.Context, storeID string) (*domain.AggregateRecord, error) {
	return nil, domain.ErrStoreUnavailable
}
func (failStore) Close() error { return nil }

func newTestResponder(provider domain.Provider) (*Responder, *cases.Manager, *analytics.Recorder) {
	logger := testLogger()
	mgr := cases.NewManager(logger)
	rec := analytics.NewRecorder(failStore{}, analytics.NewFallbackCache(logger), logger)
	r := New(Config{
		Provider: provider,
		Registry: knowledge.NewRegistry(knowledge.DefaultTree(), logger),
		Cases:    mgr,
		Recorder: rec,
		Logger:   logger,
	})
	return r, mgr, rec
}

func TestRespond_LLMPath(t *testing.T) {
	r, _, _ := newTestResponder(&stubProvider{content: "Our return window is 30 days."})

	reply := r.Respond(context.Background(), domain.InboundMessage{
		StoreID: "store1",
		Content: "what products do you have",
	})

	if reply.Meta.Source != SourceLLM {
		t.Fatalf("source = %q, want %q", reply.Meta.Source, SourceLLM)
	}
	if reply.Text != "Our return window is 30 days." {
		t.Errorf("unexpected reply text: %q", reply.Text)
	}
}

func TestRespond_FallsBackWhenProviderFails(t *testing.T) {
	r, _, _ := newTestResponder(&stubProvider{err: errors.New("connection refused")})

	reply := r.Respond(context.Background(), domain.InboundMessage{
		StoreID: "store1",
		Content: "what products do you sell",
	})

	if reply.Meta.Source != SourceKnowledge {
		t.Fatalf("source = %q, want %q", reply.Meta.Source, SourceKnowledge)
	}
	// The deterministic reply carries both the rule text and the matching
	// knowledge sections.
	if !strings.Contains(reply.Text, "We have: electronics, clothing, home & garden") {
		t.Errorf("missing rule-table product list: %q", reply.Text)
	}
}

func TestRespond_NoProviderUsesKnowledge(t *testing.T) {
	r, _, _ := newTestResponder(nil)

	reply := r.Respond(context.Background(), domain.InboundMessage{Content: "any discount today"})

	if reply.Meta.Source != SourceKnowledge {
		t.Fatalf("source = %q", reply.Meta.Source)
	}
	if !strings.Contains(reply.Text, "Current promotions:") {
		t.Errorf("expected promotions text, got %q", reply.Text)
	}
}

func TestRespond_ReturnOpensCase(t *testing.T) {
	r, mgr, _ := newTestResponder(&stubProvider{content: "Happy to help with that return."})

	reply := r.Respond(context.Background(), domain.InboundMessage{
		StoreID: "store1",
		Content: "I want a refund for my blender",
	})

	if reply.Meta.CaseID == "" {
		t.Fatal("expected a case id on a refund query")
	}
	if !strings.HasPrefix(reply.Meta.CaseID, "CASE-") {
		t.Errorf("case id = %q", reply.Meta.CaseID)
	}
	// Footer is appended even when the body came from the LLM.
	if !strings.Contains(reply.Text, "Case ID: "+reply.Meta.CaseID) {
		t.Errorf("reply missing case footer: %q", reply.Text)
	}

	list := mgr.List()
	if len(list) != 1 || list[0].Type != CaseTypeReturnRefund {
		t.Fatalf("cases = %+v", list)
	}
	if list[0].Status != domain.CaseStatusAwaiting {
		t.Errorf("status = %q", list[0].Status)
	}
}

func TestRespond_UnmatchedQueryOpensGeneralInquiry(t *testing.T) {
	r, mgr, _ := newTestResponder(nil)

	reply := r.Respond(context.Background(), domain.InboundMessage{Content: "xylophone quota zzz"})

	list := mgr.List()
	if len(list) != 1 || list[0].Type != CaseTypeGeneral {
		t.Fatalf("cases = %+v", list)
	}
	if !strings.Contains(reply.Text, "passed your question to the retailer") {
		t.Errorf("unexpected general-inquiry text: %q", reply.Text)
	}
}

func TestRespond_PersonalInfoRequiresChange(t *testing.T) {
	r, mgr, _ := newTestResponder(nil)

	r.Respond(context.Background(), domain.InboundMessage{Content: "please change my email address"})
	list := mgr.List()
	if len(list) != 1 || list[0].Type != CaseTypePersonalInfo {
		t.Fatalf("cases = %+v", list)
	}

	// Without "change", "address" routes to the location branch and opens
	// nothing.
	r.Respond(context.Background(), domain.InboundMessage{Content: "what is your address"})
	if got := len(mgr.List()); got != 1 {
		t.Errorf("location query opened a case: %d cases", got)
	}
}

func TestRespond_TracksAnalytics(t *testing.T) {
	r, _, rec := newTestResponder(nil)

	r.Respond(context.Background(), domain.InboundMessage{
		StoreID: "store7",
		Content: "I love this product",
	})

	summary := rec.Analytics(context.Background(), "store7")
	if summary.TotalQueries != 1 {
		t.Fatalf("totalQueries = %d, want 1", summary.TotalQueries)
	}
	if summary.Sentiment.Positive != 1 {
		t.Errorf("positive = %d, want 1", summary.Sentiment.Positive)
	}
	if len(summary.TopFAQs) != 1 || summary.TopFAQs[0].Key != "i love this product" {
		t.Errorf("topFaqs = %+v", summary.TopFAQs)
	}
}

func TestRespond_EmptyMessageNotTracked(t *testing.T) {
	r, mgr, rec := newTestResponder(nil)

	reply := r.Respond(context.Background(), domain.InboundMessage{StoreID: "store1", Content: "   "})

	if reply.Text != clarificationReply {
		t.Errorf("reply = %q", reply.Text)
	}
	if got := rec.Analytics(context.Background(), "store1").TotalQueries; got != 0 {
		t.Errorf("empty message was tracked: total = %d", got)
	}
	if len(mgr.List()) != 0 {
		t.Error("empty message opened a case")
	}
}

func TestRespond_DefaultsStoreAndLanguage(t *testing.T) {
	r, _, rec := newTestResponder(nil)

	reply := r.Respond(context.Background(), domain.InboundMessage{Content: "great service"})

	if reply.Meta.Language != defaultLanguage {
		t.Errorf("language = %q", reply.Meta.Language)
	}
	if got := rec.Analytics(context.Background(), defaultStoreID).TotalQueries; got != 1 {
		t.Errorf("default store total = %d, want 1", got)
	}
}

// fakeBus is the minimal bus the Run loop needs: one inbound channel and a
// place to collect outbound replies.
type fakeBus struct {
	mu       sync.Mutex
	inbound  chan domain.InboundMessage
	outbound []domain.OutboundMessage
	done     chan struct{}
}

func newFakeBus(expect int) *fakeBus {
	return &fakeBus{
		inbound: make(chan domain.InboundMessage, expect),
		done:    make(chan struct{}, expect),
	}
}

func (b *fakeBus) Publish(msg domain.InboundMessage)         { b.inbound <- msg }
func (b *fakeBus) Subscribe() <-chan domain.InboundMessage   { return b.inbound }
func (b *fakeBus) OnOutbound(string, func(domain.OutboundMessage)) {}
func (b *fakeBus) Close()                                    { close(b.inbound) }

func (b *fakeBus) SendOutbound(msg domain.OutboundMessage) {
	b.mu.Lock()
	b.outbound = append(b.outbound, msg)
	b.mu.Unlock()
	b.done <- struct{}{}
}

func TestRun_BusRoundTrip(t *testing.T) {
	bus := newFakeBus(1)
	logger := testLogger()
	r := New(Config{
		Registry: knowledge.NewRegistry(knowledge.DefaultTree(), logger),
		Cases:    cases.NewManager(logger),
		Recorder: analytics.NewRecorder(failStore{}, analytics.NewFallbackCache(logger), logger),
		Bus:      bus,
		Logger:   logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(stopped)
	}()

	bus.Publish(domain.InboundMessage{
		Channel: "web",
		ChatID:  "chat-1",
		StoreID: "store1",
		Content: "where is my order",
	})

	select {
	case <-bus.done:
	case <-time.After(2 * time.Second):
		t.Fatal("no outbound reply within 2s")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("responder did not stop after cancel")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.outbound) != 1 {
		t.Fatalf("outbound = %d messages", len(bus.outbound))
	}
	out := bus.outbound[0]
	if out.Channel != "web" || out.ChatID != "chat-1" {
		t.Errorf("reply routing = %s/%s", out.Channel, out.ChatID)
	}
	if out.Reply == nil || out.Reply.Sentiment != domain.SentimentNeutral {
		t.Errorf("reply meta = %+v", out.Reply)
	}
	if !strings.Contains(out.Content, "FAQ - ORDER STATUS") {
		t.Errorf("expected matching FAQ section in reply, got %q", out.Content)
	}
}
