package knowledge

import "retailbot/internal/domain"

// DefaultTree is the compiled-in template every store starts from until it
// uploads its own knowledge. Never-seen stores inherit a deep copy of it on
// their first knowledge update.
func DefaultTree() *domain.KnowledgeTree {
	return &domain.KnowledgeTree{
		Products: []domain.ProductLine{
			{
				Name:       "electronics",
				Categories: []string{"Smartphones", "Laptops", "Tablets", "Headphones", "Smart Watches", "Gaming Consoles"},
				Brands:     []string{"Apple", "Samsung", "Sony", "Microsoft", "Nintendo", "Dell", "HP"},
				Details: []domain.Detail{
					{Key: "warranty", Value: "1-2 years manufacturer warranty"},
					{Key: "support", Value: "24/7 technical support available"},
				},
			},
			{
				Name:       "clothing",
				Categories: []string{"Men's Wear", "Women's Wear", "Kids Clothing", "Shoes", "Accessories"},
				Details: []domain.Detail{
					{Key: "sizes", Value: "XS to 5XL available"},
					{Key: "materials", Value: "Cotton, Polyester, Silk, Wool blends"},
					{Key: "care", Value: "Washing instructions on labels"},
				},
			},
			{
				Name:       "home & garden",
				Categories: []string{"Furniture", "Kitchen Appliances", "Garden Tools", "Home Decor", "Lighting"},
				Details: []domain.Detail{
					{Key: "delivery", Value: "Free delivery on orders over $100"},
					{Key: "assembly", Value: "Assembly service available for $50"},
				},
			},
		},
		Policies: []domain.Policy{
			{Name: "returns", Text: "30-day return policy with receipt. Items must be in original condition."},
			{Name: "exchanges", Text: "Free exchanges within 14 days"},
			{Name: "warranty", Text: "Extended warranty options available"},
			{Name: "shipping", Text: "Free shipping on orders over $50. Express delivery available."},
			{Name: "payment", Text: "Accept all major credit cards, PayPal, Apple Pay, Google Pay"},
		},
		Promotions: []domain.Promotion{
			{Name: "current", Text: "20% off electronics, Buy 2 Get 1 Free on clothing"},
			{Name: "seasonal", Text: "Holiday sales in December, Summer clearance in July"},
			{Name: "loyalty", Text: "Loyalty program: 5% cashback on all purchases"},
		},
		Locations: []domain.Location{
			{Name: "main", Text: "123 Main St, Downtown Mall - Open 9AM-9PM"},
			{Name: "branch", Text: "456 Oak Ave, Shopping Center - Open 10AM-8PM"},
			{Name: "online", Text: "24/7 online shopping with same-day delivery in metro areas"},
		},
		Contact: []domain.ContactEntry{
			{Name: "phone", Text: "1-800-RETAIL"},
			{Name: "email", Text: "support@retailstore.com"},
			{Name: "chat", Text: "24/7 live chat support"},
			{Name: "social", Text: "Follow us @retailstore on all platforms"},
		},
		FAQ: []domain.FAQEntry{
			{Question: "order status", Answer: "Track your order using order number on our website"},
			{Question: "price match", Answer: "We match competitor prices with proof"},
			{Question: "gift cards", Answer: "Gift cards available in $25-$500 denominations"},
			{Question: "membership", Answer: "Free membership with exclusive discounts"},
			{Question: "technical support", Answer: "Free tech support for electronics purchases"},
		},
	}
}
