package domain

import "time"

// CaseStatusAwaiting is the status every new case starts in. The status set is
// deliberately open: operators introduce new values ("in-review", "resolved",
// "rejected", ...) without a code change, and no transition table is enforced.
const CaseStatusAwaiting = "awaiting"

// Case is a tracked support request, independent of chat turn-taking. Cases
// are append-only: created once, then mutated only by status updates.
type Case struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Description  string            `json:"description"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	CustomerInfo map[string]string `json:"customerInfo,omitempty"`
}
