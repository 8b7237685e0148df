// Package knowledge holds the per-store knowledge trees and the keyword
// retrieval engine that selects relevant sections for a free-text query.
package knowledge

import (
	"strings"

	"retailbot/internal/domain"
)

// Trigger words. Any policy trigger matches ALL policies; the rule is
// deliberately broad and favors recall over precision.
var (
	policyTriggers    = []string{"policy", "return", "exchange", "shipping", "payment"}
	promotionTriggers = []string{"promotion", "sale", "discount", "offer"}
	locationTriggers  = []string{"location", "address", "phone", "contact", "hours", "open"}
)

// Search returns the knowledge sections relevant to the query, in fixed
// section order (products, policies, promotions, locations, contact, FAQ) and
// insertion order within each section. Pure and deterministic; empty or
// missing sections are skipped. Matching is substring containment, not
// word-boundary matching, so "iphone" matches inside "newiphone999".
func Search(query string, tree *domain.KnowledgeTree) []string {
	if tree == nil {
		return nil
	}
	q := strings.ToLower(query)
	var sections []string

	for _, line := range tree.Products {
		if matchesProductLine(q, line) {
			sections = append(sections, renderProductLine(line))
		}
	}

	if containsAny(q, policyTriggers) {
		for _, p := range tree.Policies {
			sections = append(sections, strings.ToUpper(p.Name)+": "+p.Text)
		}
	} else {
		for _, p := range tree.Policies {
			if strings.Contains(q, strings.ToLower(p.Name)) {
				sections = append(sections, strings.ToUpper(p.Name)+": "+p.Text)
			}
		}
	}

	if len(tree.Promotions) > 0 && containsAny(q, promotionTriggers) {
		sections = append(sections, renderNamed("PROMOTIONS", promotionEntries(tree.Promotions)))
	}

	if containsAny(q, locationTriggers) {
		if len(tree.Locations) > 0 {
			sections = append(sections, renderNamed("LOCATIONS", locationEntries(tree.Locations)))
		}
		if len(tree.Contact) > 0 {
			sections = append(sections, renderNamed("CONTACT", contactEntries(tree.Contact)))
		}
	}

	for _, f := range tree.FAQ {
		if matchesFAQ(q, f.Question) {
			sections = append(sections, "FAQ - "+strings.ToUpper(f.Question)+": "+f.Answer)
		}
	}

	return sections
}

// SearchText concatenates the relevant sections with blank lines, the shape
// handed to the LLM prompt and returned by the knowledge search API.
func SearchText(query string, tree *domain.KnowledgeTree) string {
	return strings.Join(Search(query, tree), "\n\n")
}

func matchesProductLine(q string, line domain.ProductLine) bool {
	if strings.Contains(q, strings.ToLower(line.Name)) {
		return true
	}
	for _, cat := range line.Categories {
		if strings.Contains(q, strings.ToLower(cat)) {
			return true
		}
	}
	for _, brand := range line.Brands {
		if strings.Contains(q, strings.ToLower(brand)) {
			return true
		}
	}
	return false
}

// matchesFAQ accepts the full question or any single shared word; loose on
// purpose, recall over precision.
func matchesFAQ(q, question string) bool {
	lower := strings.ToLower(question)
	if strings.Contains(q, lower) {
		return true
	}
	for _, word := range strings.Fields(lower) {
		if strings.Contains(q, word) {
			return true
		}
	}
	return false
}

func containsAny(q string, words []string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

func renderProductLine(line domain.ProductLine) string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(line.Name) + ":")
	if len(line.Categories) > 0 {
		sb.WriteString("\n  categories: " + strings.Join(line.Categories, ", "))
	}
	if len(line.Brands) > 0 {
		sb.WriteString("\n  brands: " + strings.Join(line.Brands, ", "))
	}
	for _, d := range line.Details {
		sb.WriteString("\n  " + d.Key + ": " + d.Value)
	}
	return sb.String()
}

type namedEntry struct{ name, text string }

func renderNamed(header string, entries []namedEntry) string {
	var sb strings.Builder
	sb.WriteString(header + ":")
	for _, e := range entries {
		sb.WriteString("\n  " + e.name + ": " + e.text)
	}
	return sb.String()
}

func promotionEntries(items []domain.Promotion) []namedEntry {
	out := make([]namedEntry, len(items))
	for i, it := range items {
		out[i] = namedEntry{it.Name, it.Text}
	}
	return out
}

func locationEntries(items []domain.Location) []namedEntry {
	out := make([]namedEntry, len(items))
	for i, it := range items {
		out[i] = namedEntry{it.Name, it.Text}
	}
	return out
}

func contactEntries(items []domain.ContactEntry) []namedEntry {
	out := make([]namedEntry, len(items))
	for i, it := range items {
		out[i] = namedEntry{it.Name, it.Text}
	}
	return out
}
