package domain

import "context"

// Provider is the interface all LLM text-generation backends implement. The
// responder treats any Chat error as a cue to fall back to the deterministic
// knowledge-based reply, so providers never need to retry internally beyond
// transport-level backoff.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
	Healthy(ctx context.Context) error
}

type ChatRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
}

type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

type ChatResponse struct {
	Content      string
	FinishReason string // stop | length
	Usage        Usage
	LatencyMs    int64
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
