package responder

import (
	"strings"

	"retailbot/internal/domain"
)

// Case types opened by the rule table.
const (
	CaseTypePersonalInfo = "Personal Info Update"
	CaseTypeReturnRefund = "Return/Refund Request"
	CaseTypeGeneral      = "General Inquiry"
)

// ruleOutcome is the deterministic reply computed from the rule table. It is
// the answer of last resort when the LLM provider is down, and the sole
// authority on whether the query opens a support case.
type ruleOutcome struct {
	text     string
	caseType string // non-empty when the query opens a case
}

func anyOf(q string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// evaluate walks the trigger-phrase table in fixed priority order. Unmatched
// queries always open a General Inquiry case so no customer question is
// silently dropped.
func evaluate(message string, tree *domain.KnowledgeTree) ruleOutcome {
	q := strings.ToLower(message)

	switch {
	case strings.Contains(q, "change") && anyOf(q, "address", "phone", "email", "personal", "contact", "update"):
		return ruleOutcome{
			caseType: CaseTypePersonalInfo,
			text: "I'd be happy to help you update your personal information. Please provide:\n\n" +
				"- Current information you want to change\n" +
				"- New information you want to update to\n" +
				"- Your account verification details\n\n" +
				"Our team will process your request within 1-2 business days.",
		}

	case anyOf(q, "promotion", "discount", "offer", "deal"):
		text := "Current promotions:\n" + renderPromotions(tree)
		if anyOf(q, "redeem", "use", "apply") {
			text += "\n\nIf you're unable to redeem an offer, it may be because:\n" +
				"- You're not a registered member (membership required)\n" +
				"- Minimum spending requirement not met\n" +
				"- Promotion terms and conditions not fulfilled\n\n" +
				"Please read the full promotion requirements or contact us for help with membership registration."
		} else {
			text += "\n\nDon't miss out on these deals! Terms and conditions apply."
		}
		return ruleOutcome{text: text}

	case anyOf(q, "technical", "payment", "error", "bug", "not working", "problem", "issue"):
		return ruleOutcome{
			text: "We sincerely apologize for your experience. We have recorded this feedback to help us improve.\n\n" +
				"Our technical team is working to resolve these issues. If you continue experiencing problems, " +
				"please contact our support team directly.",
		}

	case anyOf(q, "warranty", "guarantee"):
		return ruleOutcome{
			text: "Warranty coverage varies by product type and manufacturer. To give you accurate warranty " +
				"information, could you please share:\n\n" +
				"- Product name/model\n" +
				"- Purchase date\n" +
				"- Specific warranty concern",
		}

	case anyOf(q, "return", "refund"):
		return ruleOutcome{
			caseType: CaseTypeReturnRefund,
			text: returnsPolicyText(tree) + "\n\n" +
				"To process your return/refund request, please upload a photo of the product as evidence. " +
				"Your request will be processed within 2-3 business days.",
		}

	case strings.Contains(q, "product"):
		return ruleOutcome{text: "We have: " + renderProductNames(tree) + ". You can upload a photo for price comparison!"}

	case anyOf(q, "location", "store", "address"):
		return ruleOutcome{text: "Visit us at:\n" + renderLocations(tree)}

	default:
		return ruleOutcome{
			caseType: CaseTypeGeneral,
			text: "Thank you for your inquiry. We want to make sure we provide you with the most accurate " +
				"information, so we have passed your question to the retailer for review. We will get back " +
				"to you within 1-3 days.",
		}
	}
}

// knowledgeReply builds the degraded reply used when the LLM is unreachable:
// the rule-table text plus whatever knowledge sections matched the query.
func knowledgeReply(outcome ruleOutcome, sections []string) string {
	if len(sections) == 0 {
		return outcome.text
	}
	return outcome.text + "\n\n" + strings.Join(sections, "\n\n")
}

func caseFooter(c domain.Case) string {
	return "We have created a case for retailer review.\n" +
		"Case ID: " + c.ID + "\n" +
		"Status: " + c.Status + "\n\n" +
		"Please keep this Case ID for any follow-up inquiries and to check your case status."
}

func renderPromotions(tree *domain.KnowledgeTree) string {
	if tree == nil || len(tree.Promotions) == 0 {
		return "- No promotions running right now"
	}
	var sb strings.Builder
	for i, p := range tree.Promotions {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- " + p.Name + ": " + p.Text)
	}
	return sb.String()
}

func renderLocations(tree *domain.KnowledgeTree) string {
	if tree == nil || len(tree.Locations) == 0 {
		return "- Location details are being updated, please contact us directly"
	}
	var sb strings.Builder
	for i, l := range tree.Locations {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- " + l.Name + ": " + l.Text)
	}
	return sb.String()
}

func renderProductNames(tree *domain.KnowledgeTree) string {
	if tree == nil || len(tree.Products) == 0 {
		return "a wide range of products"
	}
	names := make([]string, len(tree.Products))
	for i, p := range tree.Products {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

func returnsPolicyText(tree *domain.KnowledgeTree) string {
	if tree != nil {
		for _, p := range tree.Policies {
			if p.Name == "returns" {
				return p.Text
			}
		}
	}
	return "Our standard return policy applies."
}
