package access

import (
	"time"

	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
	"mealplanner-app/internal/infra/stripe"
)

// Effective access for UI/product: trial|full|limited|locked
func ComputeEffectiveAccessState(now time.Time, u users.User) AccessState {
	if u.Tier == subscription.TierFreeTrial || !u.Tier.Valid() {
		if u.TrialEndAt != nil && now.Before(*u.TrialEndAt) {
			return AccessTrial
		}
		return AccessLocked
	}

	// Paid tier without a subscription is only reachable through manual edits.
	if !u.HasSubscription() {
		return AccessLocked
	}

	switch stripe.NormalizeStripeStatus(u.StripeSubscriptionStatus) {
	case "active", "trialing":
		return AccessFull

	case "past_due":
		return AccessLimited

	case "canceled":
		// Paid-through access until the period ends
		if u.CurrentPeriodEnd != nil && now.Before(*u.CurrentPeriodEnd) {
			return AccessFull
		}
		return AccessLocked

	default:
		return AccessLocked
	}
}
