// Package responder is the conversational core: it turns one inbound customer
// query into one outbound reply, opening support cases and recording analytics
// along the way. Reply text comes from the LLM provider when one is reachable
// and from the deterministic rule table plus knowledge base when it is not.
package responder

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"retailbot/internal/analytics"
	"retailbot/internal/cases"
	"retailbot/internal/domain"
	"retailbot/internal/knowledge"
	"retailbot/internal/metrics"
	"retailbot/internal/sentiment"
)

const (
	defaultConcurrency  = 3
	defaultLLMMaxTokens = 1000
	defaultTemperature  = 0.7
	defaultLLMTimeout   = 30 * time.Second
	defaultStoreID      = "store1"
	defaultLanguage     = "en"
)

const clarificationReply = "I'd love to help! Could you please tell me what you need assistance with?"

// Reply source labels surfaced in outbound metadata.
const (
	SourceLLM       = "llm"
	SourceKnowledge = "knowledge-base"
)

// Responder consumes inbound messages from the bus and publishes replies.
type Responder struct {
	provider    domain.Provider // nil disables the LLM path entirely
	registry    *knowledge.Registry
	cases       *cases.Manager
	recorder    *analytics.Recorder
	bus         domain.MessageBus
	logger      *slog.Logger
	concurrency int
	llmTimeout  time.Duration
}

// Config holds the responder's dependencies and tuning parameters.
type Config struct {
	Provider    domain.Provider
	Registry    *knowledge.Registry
	Cases       *cases.Manager
	Recorder    *analytics.Recorder
	Bus         domain.MessageBus
	Logger      *slog.Logger
	Concurrency int           // max parallel messages (default 3)
	LLMTimeout  time.Duration // per-request provider deadline (default 30s)
}

func New(cfg Config) *Responder {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = defaultLLMTimeout
	}
	return &Responder{
		provider:    cfg.Provider,
		registry:    cfg.Registry,
		cases:       cfg.Cases,
		recorder:    cfg.Recorder,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
		llmTimeout:  cfg.LLMTimeout,
	}
}

// Run consumes inbound messages and processes them with bounded concurrency.
// It returns when the context is cancelled or the bus is closed, after
// in-flight messages drain.
func (r *Responder) Run(ctx context.Context) {
	r.logger.Info("responder started", "concurrency", r.concurrency)

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	inbound := r.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("responder stopping")
			wg.Wait()
			return
		case msg, ok := <-inbound:
			if !ok {
				r.logger.Info("inbound channel closed, responder stopping")
				wg.Wait()
				return
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(m domain.InboundMessage) {
				defer wg.Done()
				defer func() { <-sem }()
				r.processMessage(ctx, m)
			}(msg)
		}
	}
}

// processMessage handles one inbound message and sends the reply back
// through the bus.
func (r *Responder) processMessage(ctx context.Context, msg domain.InboundMessage) {
	r.logger.Info("processing query",
		"channel", msg.Channel,
		"store", msg.StoreID,
		"content_len", len(msg.Content),
	)

	reply := r.Respond(ctx, msg)
	r.bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: reply.Text,
		Format:  "markdown",
		Reply:   &reply.Meta,
	})
}

// Reply is the full result of answering one query.
type Reply struct {
	Text string
	Meta domain.ReplyMeta
}

// Respond runs the reply pipeline for one query: sentiment, knowledge
// retrieval, case triggers, LLM generation with knowledge-base fallback, and
// analytics tracking. It never fails; a degraded dependency only changes
// which path produced the text.
func (r *Responder) Respond(ctx context.Context, msg domain.InboundMessage) Reply {
	storeID := msg.StoreID
	if storeID == "" {
		storeID = defaultStoreID
	}
	language := msg.Language
	if language == "" {
		language = defaultLanguage
	}

	// Empty queries get a clarification prompt and are not tracked.
	if strings.TrimSpace(msg.Content) == "" {
		return Reply{
			Text: clarificationReply,
			Meta: domain.ReplyMeta{Sentiment: domain.SentimentNeutral, Source: SourceKnowledge, Language: language},
		}
	}

	label := sentiment.Analyze(msg.Content)
	tree := r.registry.Tree(storeID)

	metrics.KnowledgeSearches.Inc()
	sections := knowledge.Search(msg.Content, tree)
	outcome := evaluate(msg.Content, tree)

	var opened *domain.Case
	if outcome.caseType != "" {
		c := r.cases.Create(outcome.caseType, msg.Content, nil)
		opened = &c
	}

	text, source := r.generate(ctx, msg.Content, language, sections, outcome)
	caseID := ""
	if opened != nil {
		caseID = opened.ID
		text += "\n\n" + caseFooter(*opened)
	}

	r.recorder.Track(ctx, storeID, msg.Content, label, msg.Category, caseID)

	return Reply{
		Text: text,
		Meta: domain.ReplyMeta{
			Sentiment: label,
			CaseID:    caseID,
			Category:  msg.Category,
			Source:    source,
			Language:  language,
		},
	}
}

// generate produces the reply body. LLM first, deterministic knowledge reply
// when no provider is configured or the call fails.
func (r *Responder) generate(ctx context.Context, query, language string, sections []string, outcome ruleOutcome) (string, string) {
	if r.provider == nil {
		return knowledgeReply(outcome, sections), SourceKnowledge
	}

	llmCtx, cancel := context.WithTimeout(ctx, r.llmTimeout)
	defer cancel()

	metrics.LLMRequestsTotal.Inc()
	start := time.Now()
	resp, err := r.provider.Chat(llmCtx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: buildSystemPrompt(language, sections)},
			{Role: "user", Content: query},
		},
		MaxTokens:   defaultLLMMaxTokens,
		Temperature: defaultTemperature,
	})
	metrics.LLMLatency.Observe(time.Since(start).Seconds())

	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		metrics.LLMFallbacks.Inc()
		r.logger.Warn("LLM unavailable, serving knowledge-base reply",
			"provider", r.provider.Name(), "err", err)
		return knowledgeReply(outcome, sections), SourceKnowledge
	}
	return resp.Content, SourceLLM
}

func buildSystemPrompt(language string, sections []string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert customer service assistant for a retail store. ")
	sb.WriteString("Answer using only the store information below. ")
	sb.WriteString("If the information does not cover the question, say so and offer to open a support case. ")
	sb.WriteString("Respond in language: " + language + ".")
	if len(sections) > 0 {
		sb.WriteString("\n\nSTORE INFORMATION:\n")
		sb.WriteString(strings.Join(sections, "\n\n"))
	}
	return sb.String()
}
