package knowledge

import (
	"strings"
	"testing"

	"retailbot/internal/domain"
)

func TestSearch_PolicyBroadMatch(t *testing.T) {
	tree := DefaultTree()

	sections := Search("What is your return policy?", tree)

	// A trigger word brings in every policy, not just the matching one.
	joined := strings.Join(sections, "\n\n")
	for _, want := range []string{"RETURNS:", "EXCHANGES:", "WARRANTY:", "SHIPPING:", "PAYMENT:"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %s section in result", want)
		}
	}
	if !strings.Contains(joined, "30-day return policy") {
		t.Error("expected returns policy text")
	}
}

func TestSearch_PolicyByNameOnly(t *testing.T) {
	tree := DefaultTree()

	// "exchanges" is a policy name but not a trigger word by itself... it
	// contains "exchange", which is. Use a tree with a non-trigger name.
	tree.Policies = append(tree.Policies, domain.Policy{Name: "price-adjustment", Text: "7-day price adjustment window"})

	sections := Search("tell me about price-adjustment", tree)
	joined := strings.Join(sections, "\n\n")
	if !strings.Contains(joined, "PRICE-ADJUSTMENT: 7-day price adjustment window") {
		t.Error("expected name-only policy match")
	}
	if strings.Contains(joined, "RETURNS:") {
		t.Error("name-only match must not drag in unrelated policies")
	}
}

func TestSearch_ProductSubstringContainment(t *testing.T) {
	tree := DefaultTree()

	tests := []struct {
		query string
		want  string
	}{
		{"do you sell smartphones", "ELECTRONICS:"},
		{"looking for an apple laptop", "ELECTRONICS:"},   // brand match
		{"newsmartphones999 cheap", "ELECTRONICS:"},       // substring, not word boundary
		{"kids clothing sizes", "CLOTHING:"},
		{"garden tools in stock?", "HOME & GARDEN:"},
	}
	for _, tt := range tests {
		sections := Search(tt.query, tree)
		joined := strings.Join(sections, "\n\n")
		if !strings.Contains(joined, tt.want) {
			t.Errorf("Search(%q): missing %s", tt.query, tt.want)
		}
	}
}

func TestSearch_PromotionsWholesale(t *testing.T) {
	tree := DefaultTree()

	sections := Search("any discount today", tree)
	joined := strings.Join(sections, "\n\n")
	if !strings.Contains(joined, "PROMOTIONS:") {
		t.Fatal("expected PROMOTIONS section")
	}
	for _, want := range []string{"current:", "seasonal:", "loyalty:"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected wholesale promotions to include %q", want)
		}
	}
}

func TestSearch_LocationsAndContactTogether(t *testing.T) {
	tree := DefaultTree()

	sections := Search("what are your opening hours", tree)
	joined := strings.Join(sections, "\n\n")
	if !strings.Contains(joined, "LOCATIONS:") {
		t.Error("expected LOCATIONS section")
	}
	if !strings.Contains(joined, "CONTACT:") {
		t.Error("expected CONTACT section alongside locations")
	}
}

func TestSearch_FAQSingleSharedWord(t *testing.T) {
	tree := DefaultTree()

	// "order" alone is enough to match the "order status" entry.
	sections := Search("where is my order", tree)
	joined := strings.Join(sections, "\n\n")
	if !strings.Contains(joined, "FAQ - ORDER STATUS:") {
		t.Error("expected FAQ match on a single shared word")
	}
}

func TestSearch_SectionOrdering(t *testing.T) {
	tree := DefaultTree()

	// Query hits products, policies, promotions, locations and FAQ at once.
	sections := Search("smartphones return policy discount location order", tree)

	var kinds []string
	for _, s := range sections {
		switch {
		case strings.HasPrefix(s, "ELECTRONICS"):
			kinds = append(kinds, "products")
		case strings.HasPrefix(s, "PROMOTIONS"):
			kinds = append(kinds, "promotions")
		case strings.HasPrefix(s, "LOCATIONS"):
			kinds = append(kinds, "locations")
		case strings.HasPrefix(s, "CONTACT"):
			kinds = append(kinds, "contact")
		case strings.HasPrefix(s, "FAQ - "):
			kinds = append(kinds, "faq")
		default:
			kinds = append(kinds, "policies")
		}
	}

	rank := map[string]int{"products": 0, "policies": 1, "promotions": 2, "locations": 3, "contact": 4, "faq": 5}
	for i := 1; i < len(kinds); i++ {
		if rank[kinds[i]] < rank[kinds[i-1]] {
			t.Fatalf("section order violated: %v", kinds)
		}
	}
}

func TestSearch_EmptySectionsSkipped(t *testing.T) {
	tree := &domain.KnowledgeTree{
		Policies: []domain.Policy{{Name: "returns", Text: "store credit only"}},
	}

	sections := Search("return policy, promotions, location, order status?", tree)

	joined := strings.Join(sections, "\n\n")
	if !strings.Contains(joined, "RETURNS: store credit only") {
		t.Error("expected the one populated section to match")
	}
	for _, absent := range []string{"PROMOTIONS", "LOCATIONS", "CONTACT", "FAQ"} {
		if strings.Contains(joined, absent) {
			t.Errorf("empty section %s leaked into result", absent)
		}
	}
}

func TestSearch_NoMatches(t *testing.T) {
	if got := Search("zzz qqq", DefaultTree()); len(got) != 0 {
		t.Errorf("expected no sections, got %d", len(got))
	}
	if got := Search("anything", nil); got != nil {
		t.Errorf("expected nil for nil tree, got %v", got)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	tree := DefaultTree()
	first := SearchText("return policy and discounts near your location", tree)
	second := SearchText("return policy and discounts near your location", tree)
	if first != second {
		t.Error("same query and tree produced different output")
	}
}
