// Package cases implements the support-case lifecycle: creation with stable
// unique identifiers, open-set status transitions, and an append-only list.
package cases

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"retailbot/internal/domain"
	"retailbot/internal/metrics"
)

const (
	idPrefix       = "CASE-"
	idSuffixLength = 4
	base36         = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Terminal statuses by convention only; the state machine enforces no
// transition table.
func isTerminal(status string) bool {
	return status == "resolved" || status == "rejected"
}

// Manager exclusively owns the case list. One lock is enough: case traffic is
// a small fraction of query traffic.
type Manager struct {
	mu     sync.Mutex
	list   []*domain.Case
	index  map[string]*domain.Case
	rng    *rand.Rand
	logger *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		index:  make(map[string]*domain.Case),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// Create opens a new case in status "awaiting" and returns a copy of it.
func (m *Manager) Create(caseType, description string, customerInfo map[string]string) domain.Case {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	c := &domain.Case{
		ID:           m.newIDLocked(now),
		Type:         caseType,
		Description:  description,
		Status:       domain.CaseStatusAwaiting,
		CreatedAt:    now,
		UpdatedAt:    now,
		CustomerInfo: customerInfo,
	}
	m.list = append(m.list, c)
	m.index[c.ID] = c

	metrics.CasesCreated.Inc()
	metrics.CasesOpen.Inc()
	m.logger.Info("case created", "id", c.ID, "type", caseType)
	return *c
}

// UpdateStatus sets a new status (any string: the set is open) and refreshes
// the update timestamp. Unknown ids return domain.ErrCaseNotFound, never a
// default case.
func (m *Manager) UpdateStatus(caseID, status string) (domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.index[caseID]
	if !ok {
		return domain.Case{}, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID)
	}

	wasTerminal := isTerminal(c.Status)
	c.Status = status
	c.UpdatedAt = time.Now()

	if nowTerminal := isTerminal(status); nowTerminal != wasTerminal {
		if nowTerminal {
			metrics.CasesOpen.Dec()
		} else {
			metrics.CasesOpen.Inc()
		}
	}
	m.logger.Info("case status updated", "id", caseID, "status", status)
	return *c, nil
}

// Get returns one case by id.
func (m *Manager) Get(caseID string) (domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.index[caseID]
	if !ok {
		return domain.Case{}, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID)
	}
	return *c, nil
}

// List returns copies of all cases in creation order.
func (m *Manager) List() []domain.Case {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Case, len(m.list))
	for i, c := range m.list {
		out[i] = *c
	}
	return out
}

// newIDLocked builds "CASE-" + last 8 digits of the millisecond timestamp + a
// 4-char random base-36 suffix, regenerating on the rare index hit so ids are
// unique even within one millisecond.
func (m *Manager) newIDLocked(now time.Time) string {
	millis := fmt.Sprintf("%d", now.UnixMilli())
	if len(millis) > 8 {
		millis = millis[len(millis)-8:]
	}

	for {
		var suffix strings.Builder
		for i := 0; i < idSuffixLength; i++ {
			suffix.WriteByte(base36[m.rng.Intn(len(base36))])
		}
		id := idPrefix + millis + suffix.String()
		if _, taken := m.index[id]; !taken {
			return id
		}
	}
}
