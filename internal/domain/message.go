package domain

import "time"

// InboundMessage is one user query arriving from any channel.
type InboundMessage struct {
	Channel   string
	ChatID    string
	SenderID  string
	StoreID   string // tenant key; channels fill in their configured default when absent
	Content   string
	Category  string // optional problem category selected in the UI
	Language  string
	Timestamp time.Time
}

// OutboundMessage is the reply routed back to the originating channel.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
	Format  string // text | markdown
	Reply   *ReplyMeta
}

// ReplyMeta carries the responder's classification of a reply so channels can
// expose it (the web gateway returns it verbatim in the chat response body).
type ReplyMeta struct {
	Sentiment string `json:"sentiment"`
	CaseID    string `json:"caseId,omitempty"`
	Category  string `json:"category,omitempty"`
	Source    string `json:"source"` // "llm" | "knowledge-base"
	Language  string `json:"language"`
}
