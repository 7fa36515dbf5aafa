package plans

import (
	"strings"

	"mealplanner-app/internal/domain/subscription"
)

// PlanTier returns the tier a plan grants.
// Priority:
// 1. Explicit Tier stored in DB
// 2. Fallback inference by price (plans synced before tier metadata existed)
func PlanTier(p *Plan) subscription.Tier {
	if p == nil {
		return subscription.TierFreeTrial
	}

	if tier, err := subscription.ParseTier(string(p.Tier)); err == nil {
		return tier
	}

	return inferTierFromPrice(p.PriceEUR)
}

// TierFromMetadata reads the tier from Stripe price metadata ("tier", then "plan").
func TierFromMetadata(md map[string]string) (subscription.Tier, bool) {
	for _, key := range []string{"tier", "plan"} {
		v := strings.TrimSpace(md[key])
		if v == "" {
			continue
		}
		if tier, err := subscription.ParseTier(v); err == nil && tier.Paid() {
			return tier, true
		}
	}
	return "", false
}

func inferTierFromPrice(priceEUR float64) subscription.Tier {
	switch {
	case priceEUR >= 20:
		return subscription.TierFamily
	case priceEUR >= 13:
		return subscription.TierPlus
	case priceEUR > 0:
		return subscription.TierPro
	default:
		return subscription.TierFreeTrial
	}
}
