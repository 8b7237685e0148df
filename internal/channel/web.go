package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"retailbot/internal/analytics"
	"retailbot/internal/cases"
	"retailbot/internal/domain"
	"retailbot/internal/knowledge"
	"retailbot/internal/metrics"
)

const (
	webMaxBodySize    = 1 << 20 // 1MB
	webRequestTimeout = 120 * time.Second
)

// Web is the JSON HTTP gateway: the chat endpoint round-trips through the
// message bus like every other channel, the analytics, knowledge and case
// endpoints hit their engines directly.
type Web struct {
	host      string
	port      int
	bus       domain.MessageBus
	recorder  *analytics.Recorder
	cases     *cases.Manager
	knowledge *knowledge.Registry
	logger    *slog.Logger
	server    *http.Server

	metricsEnabled  bool
	metricsEndpoint string

	// Pending chat replies keyed by request ID
	pending   map[string]chan domain.OutboundMessage
	pendingMu sync.Mutex
}

type WebConfig struct {
	Host            string
	Port            int
	Recorder        *analytics.Recorder
	Cases           *cases.Manager
	Knowledge       *knowledge.Registry
	MetricsEnabled  bool
	MetricsEndpoint string
	Logger          *slog.Logger
}

func NewWeb(cfg WebConfig) *Web {
	if cfg.MetricsEndpoint == "" {
		cfg.MetricsEndpoint = "/metrics"
	}
	return &Web{
		host:            cfg.Host,
		port:            cfg.Port,
		recorder:        cfg.Recorder,
		cases:           cfg.Cases,
		knowledge:       cfg.Knowledge,
		metricsEnabled:  cfg.MetricsEnabled,
		metricsEndpoint: cfg.MetricsEndpoint,
		logger:          cfg.Logger,
		pending:         make(map[string]chan domain.OutboundMessage),
	}
}

func (w *Web) Name() string { return "web" }

// Start registers the outbound handler and serves until the context is
// cancelled.
func (w *Web) Start(ctx context.Context, bus domain.MessageBus) error {
	w.bus = bus
	bus.OnOutbound("web", w.deliverReply)

	addr := fmt.Sprintf("%s:%d", w.host, w.port)
	w.server = &http.Server{
		Addr:              addr,
		Handler:           w.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      150 * time.Second, // allow time for LLM replies
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	w.logger.Info("web gateway started", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		w.server.Shutdown(shutdownCtx)
	}()

	if err := w.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (w *Web) Stop() error {
	if w.server != nil {
		return w.server.Close()
	}
	return nil
}

// Handler builds the route table. Exposed separately so tests can drive it
// with httptest without binding a port.
func (w *Web) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", w.handleChat)
	mux.HandleFunc("GET /api/analytics/{storeID}", w.handleAnalytics)
	mux.HandleFunc("GET /api/stores", w.handleStores)
	mux.HandleFunc("GET /api/knowledge/{storeID}", w.handleKnowledgeGet)
	mux.HandleFunc("POST /api/knowledge/{storeID}", w.handleKnowledgeSet)
	mux.HandleFunc("PUT /api/products/{storeID}/{line}", w.handleProductPut)
	mux.HandleFunc("POST /api/case", w.handleCaseCreate)
	mux.HandleFunc("GET /api/cases", w.handleCaseList)
	mux.HandleFunc("POST /api/cases/update", w.handleCaseUpdate)
	mux.HandleFunc("GET /healthz", w.handleHealth)
	if w.metricsEnabled {
		mux.HandleFunc("GET "+w.metricsEndpoint, metrics.Collector.Handler())
	}
	return mux
}

// deliverReply routes a bus reply to the waiting HTTP handler, if any.
func (w *Web) deliverReply(msg domain.OutboundMessage) {
	w.pendingMu.Lock()
	ch, ok := w.pending[msg.ChatID]
	w.pendingMu.Unlock()
	if ok {
		select {
		case ch <- msg:
		default:
		}
	}
}

type chatRequest struct {
	Message  string `json:"message"`
	StoreID  string `json:"storeId"`
	Category string `json:"category"`
	Language string `json:"language"`
}

type chatResponse struct {
	Response  string `json:"response"`
	Sentiment string `json:"sentiment"`
	CaseID    string `json:"caseId,omitempty"`
	Category  string `json:"category,omitempty"`
	Source    string `json:"source"`
	Language  string `json:"language"`
}

func (w *Web) handleChat(rw http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(rw, r, &req) {
		return
	}

	reqID := fmt.Sprintf("web_%d", time.Now().UnixNano())
	responseCh := make(chan domain.OutboundMessage, 1)
	w.pendingMu.Lock()
	w.pending[reqID] = responseCh
	w.pendingMu.Unlock()
	defer func() {
		w.pendingMu.Lock()
		delete(w.pending, reqID)
		w.pendingMu.Unlock()
	}()

	w.bus.Publish(domain.InboundMessage{
		Channel:   "web",
		ChatID:    reqID,
		SenderID:  "web",
		StoreID:   req.StoreID,
		Content:   req.Message,
		Category:  req.Category,
		Language:  req.Language,
		Timestamp: time.Now(),
	})

	timeout := time.NewTimer(webRequestTimeout)
	defer timeout.Stop()

	var out domain.OutboundMessage
	select {
	case out = <-responseCh:
	case <-timeout.C:
		writeError(rw, http.StatusGatewayTimeout, "request timed out")
		return
	case <-r.Context().Done():
		return
	}

	resp := chatResponse{Response: out.Content}
	if out.Reply != nil {
		resp.Sentiment = out.Reply.Sentiment
		resp.CaseID = out.Reply.CaseID
		resp.Category = out.Reply.Category
		resp.Source = out.Reply.Source
		resp.Language = out.Reply.Language
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (w *Web) handleAnalytics(rw http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeID")
	summary := w.recorder.Analytics(r.Context(), storeID)
	writeJSON(rw, http.StatusOK, summary)
}

func (w *Web) handleStores(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{"stores": w.knowledge.Stores()})
}

func (w *Web) handleKnowledgeGet(rw http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeID")
	writeJSON(rw, http.StatusOK, w.knowledge.Tree(storeID))
}

type knowledgeSetRequest struct {
	Path    []string `json:"path"`
	Content string   `json:"content"`
}

func (w *Web) handleKnowledgeSet(rw http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeID")
	var req knowledgeSetRequest
	if !decodeJSON(rw, r, &req) {
		return
	}

	if err := w.knowledge.Set(storeID, req.Path, req.Content); err != nil {
		if errors.Is(err, domain.ErrInvalidPath) {
			writeError(rw, http.StatusBadRequest, err.Error())
			return
		}
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, map[string]string{"status": "updated"})
}

func (w *Web) handleProductPut(rw http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeID")
	var line domain.ProductLine
	if !decodeJSON(rw, r, &line) {
		return
	}
	// The URL segment names the product line; the body may omit it.
	line.Name = r.PathValue("line")

	if err := w.knowledge.SetProduct(storeID, line); err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, map[string]string{"status": "updated"})
}

type caseCreateRequest struct {
	Type         string            `json:"type"`
	Description  string            `json:"description"`
	CustomerInfo map[string]string `json:"customerInfo,omitempty"`
}

func (w *Web) handleCaseCreate(rw http.ResponseWriter, r *http.Request) {
	var req caseCreateRequest
	if !decodeJSON(rw, r, &req) {
		return
	}
	if req.Type == "" {
		writeError(rw, http.StatusBadRequest, "type is required")
		return
	}

	c := w.cases.Create(req.Type, req.Description, req.CustomerInfo)
	writeJSON(rw, http.StatusCreated, c)
}

func (w *Web) handleCaseList(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{"cases": w.cases.List()})
}

type caseUpdateRequest struct {
	CaseID string `json:"caseId"`
	Status string `json:"status"`
}

func (w *Web) handleCaseUpdate(rw http.ResponseWriter, r *http.Request) {
	var req caseUpdateRequest
	if !decodeJSON(rw, r, &req) {
		return
	}
	if req.CaseID == "" || req.Status == "" {
		writeError(rw, http.StatusBadRequest, "caseId and status are required")
		return
	}

	c, err := w.cases.UpdateStatus(req.CaseID, req.Status)
	if err != nil {
		if errors.Is(err, domain.ErrCaseNotFound) {
			writeError(rw, http.StatusNotFound, err.Error())
			return
		}
		writeError(rw, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, c)
}

func (w *Web) handleHealth(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": int64(metrics.Collector.Uptime().Seconds()),
	})
}

func decodeJSON(rw http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, webMaxBodySize))
	if err != nil {
		writeError(rw, http.StatusBadRequest, "bad request")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(rw, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, map[string]string{"error": msg})
}
