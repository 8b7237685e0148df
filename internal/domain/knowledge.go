package domain

// Knowledge section names, used as the first element of an update path.
const (
	SectionProducts   = "products"
	SectionPolicies   = "policies"
	SectionPromotions = "promotions"
	SectionLocations  = "locations"
	SectionContact    = "contact"
	SectionFAQ        = "faq"
)

// KnowledgeTree holds one store's structured facts. Sections are slices, not
// maps, so retrieval iterates entries in insertion order.
type KnowledgeTree struct {
	Products   []ProductLine  `yaml:"products" json:"products"`
	Policies   []Policy       `yaml:"policies" json:"policies"`
	Promotions []Promotion    `yaml:"promotions" json:"promotions"`
	Locations  []Location     `yaml:"locations" json:"locations"`
	Contact    []ContactEntry `yaml:"contact" json:"contact"`
	FAQ        []FAQEntry     `yaml:"faq" json:"faq"`
}

// ProductLine is one product department with its categories and brands.
type ProductLine struct {
	Name       string   `yaml:"name" json:"name"`
	Categories []string `yaml:"categories" json:"categories"`
	Brands     []string `yaml:"brands,omitempty" json:"brands,omitempty"`
	Details    []Detail `yaml:"details,omitempty" json:"details,omitempty"`
}

// Detail is an ordered key/value fact attached to a product line
// (warranty terms, delivery notes, ...).
type Detail struct {
	Key   string `yaml:"key" json:"key"`
	Value string `yaml:"value" json:"value"`
}

// Policy is one named store policy.
type Policy struct {
	Name string `yaml:"name" json:"name"`
	Text string `yaml:"text" json:"text"`
}

// Promotion is one named promotion entry.
type Promotion struct {
	Name string `yaml:"name" json:"name"`
	Text string `yaml:"text" json:"text"`
}

// Location is one store location entry.
type Location struct {
	Name string `yaml:"name" json:"name"`
	Text string `yaml:"text" json:"text"`
}

// ContactEntry is one contact method.
type ContactEntry struct {
	Name string `yaml:"name" json:"name"`
	Text string `yaml:"text" json:"text"`
}

// FAQEntry is one question/answer pair.
type FAQEntry struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Clone returns a deep copy of the tree. Used when a never-seen store inherits
// the default template before its first knowledge update.
func (t *KnowledgeTree) Clone() *KnowledgeTree {
	if t == nil {
		return nil
	}
	out := &KnowledgeTree{
		Products:   make([]ProductLine, len(t.Products)),
		Policies:   append([]Policy(nil), t.Policies...),
		Promotions: append([]Promotion(nil), t.Promotions...),
		Locations:  append([]Location(nil), t.Locations...),
		Contact:    append([]ContactEntry(nil), t.Contact...),
		FAQ:        append([]FAQEntry(nil), t.FAQ...),
	}
	for i, p := range t.Products {
		cp := p
		cp.Categories = append([]string(nil), p.Categories...)
		cp.Brands = append([]string(nil), p.Brands...)
		cp.Details = append([]Detail(nil), p.Details...)
		out.Products[i] = cp
	}
	return out
}
