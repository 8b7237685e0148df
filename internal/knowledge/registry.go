package knowledge

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"retailbot/internal/domain"
)

// Registry owns the per-store knowledge trees. Reads for an unknown store fall
// back to the default template; writes to an unknown store first give it a
// deep copy of the template, then apply the change. Updates are copy-on-write,
// so a tree handed to a reader is never mutated underneath it.
type Registry struct {
	mu       sync.RWMutex
	trees    map[string]*domain.KnowledgeTree
	template *domain.KnowledgeTree
	logger   *slog.Logger
}

func NewRegistry(template *domain.KnowledgeTree, logger *slog.Logger) *Registry {
	if template == nil {
		template = DefaultTree()
	}
	return &Registry{
		trees:    make(map[string]*domain.KnowledgeTree),
		template: template,
		logger:   logger,
	}
}

// Tree returns the store's knowledge tree, or the default template when the
// store has never uploaded knowledge. Callers must treat the result as
// read-only.
func (r *Registry) Tree(storeID string) *domain.KnowledgeTree {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tree, ok := r.trees[storeID]; ok {
		return tree
	}
	return r.template
}

// Register installs a complete tree for a store, replacing any previous one.
func (r *Registry) Register(storeID string, tree *domain.KnowledgeTree) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trees[storeID] = tree
	r.logger.Info("knowledge tree registered", "store", storeID)
}

// Stores lists the store ids with explicit trees, sorted.
func (r *Registry) Stores() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.trees))
	for id := range r.trees {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Set adds or replaces one text entry addressed by an explicit path of keys:
// [section, key], where section is one of policies, promotions, locations,
// contact, faq. Anything else fails with ErrInvalidPath: paths never
// materialize arbitrary nested shapes. Product lines have structure beyond
// one text field and go through SetProduct.
func (r *Registry) Set(storeID string, path []string, content string) error {
	if len(path) != 2 || path[0] == "" || path[1] == "" {
		return fmt.Errorf("%w: want [section key], got %v", domain.ErrInvalidPath, path)
	}
	section, key := path[0], path[1]

	r.mu.Lock()
	defer r.mu.Unlock()

	tree := r.cloneForWriteLocked(storeID)

	switch section {
	case domain.SectionPolicies:
		tree.Policies = upsertNamed(tree.Policies, key, content,
			func(p domain.Policy) string { return p.Name },
			func(p *domain.Policy, text string) { p.Text = text },
			func(name, text string) domain.Policy { return domain.Policy{Name: name, Text: text} })
	case domain.SectionPromotions:
		tree.Promotions = upsertNamed(tree.Promotions, key, content,
			func(p domain.Promotion) string { return p.Name },
			func(p *domain.Promotion, text string) { p.Text = text },
			func(name, text string) domain.Promotion { return domain.Promotion{Name: name, Text: text} })
	case domain.SectionLocations:
		tree.Locations = upsertNamed(tree.Locations, key, content,
			func(l domain.Location) string { return l.Name },
			func(l *domain.Location, text string) { l.Text = text },
			func(name, text string) domain.Location { return domain.Location{Name: name, Text: text} })
	case domain.SectionContact:
		tree.Contact = upsertNamed(tree.Contact, key, content,
			func(c domain.ContactEntry) string { return c.Name },
			func(c *domain.ContactEntry, text string) { c.Text = text },
			func(name, text string) domain.ContactEntry { return domain.ContactEntry{Name: name, Text: text} })
	case domain.SectionFAQ:
		tree.FAQ = upsertFAQ(tree.FAQ, key, content)
	case domain.SectionProducts:
		return fmt.Errorf("%w: product lines are structured, use SetProduct", domain.ErrInvalidPath)
	default:
		return fmt.Errorf("%w: unknown section %q", domain.ErrInvalidPath, section)
	}

	r.trees[storeID] = tree
	r.logger.Info("knowledge updated", "store", storeID, "section", section, "key", key)
	return nil
}

// SetProduct adds or replaces one product line by name.
func (r *Registry) SetProduct(storeID string, line domain.ProductLine) error {
	if line.Name == "" {
		return fmt.Errorf("%w: product line needs a name", domain.ErrInvalidPath)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tree := r.cloneForWriteLocked(storeID)
	replaced := false
	for i := range tree.Products {
		if tree.Products[i].Name == line.Name {
			tree.Products[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		tree.Products = append(tree.Products, line)
	}

	r.trees[storeID] = tree
	r.logger.Info("product line updated", "store", storeID, "line", line.Name)
	return nil
}

// cloneForWriteLocked returns a private copy of the store's current tree,
// cloning the default template for a never-seen store.
func (r *Registry) cloneForWriteLocked(storeID string) *domain.KnowledgeTree {
	if tree, ok := r.trees[storeID]; ok {
		return tree.Clone()
	}
	return r.template.Clone()
}

func upsertNamed[T any](entries []T, name, text string,
	getName func(T) string, setText func(*T, string), make func(name, text string) T) []T {
	for i := range entries {
		if getName(entries[i]) == name {
			setText(&entries[i], text)
			return entries
		}
	}
	return append(entries, make(name, text))
}

func upsertFAQ(entries []domain.FAQEntry, question, answer string) []domain.FAQEntry {
	for i := range entries {
		if entries[i].Question == question {
			entries[i].Answer = answer
			return entries
		}
	}
	return append(entries, domain.FAQEntry{Question: question, Answer: answer})
}
