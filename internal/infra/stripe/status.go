package stripe

import "strings"

// NormalizeStripeStatus folds Stripe subscription statuses into the set the
// access policy understands: none|active|trialing|past_due|canceled|<raw>.
func NormalizeStripeStatus(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "none"
	}
	switch v := strings.TrimSpace(*s); v {
	case "active", "trialing":
		return v
	case "past_due", "unpaid":
		return "past_due"
	case "canceled", "incomplete_expired":
		return "canceled"
	default:
		return v
	}
}
