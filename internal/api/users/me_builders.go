package users

import (
	"time"

	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
	"mealplanner-app/internal/infra/stripe"
)

func BuildSubscriptionDTO(u users.User) *SubscriptionDTO {
	if !u.HasSubscription() {
		return nil
	}
	return &SubscriptionDTO{
		Status:               stripe.NormalizeStripeStatus(u.StripeSubscriptionStatus),
		CurrentPeriodEnd:     u.CurrentPeriodEnd,
		StripeSubscriptionID: u.SubscriptionID,
		StripeScheduleID:     u.StripeScheduleID,
	}
}

func BuildTrialDTO(now time.Time, start, end *time.Time) *TrialDTO {
	if start == nil || end == nil {
		return nil
	}

	daysLeft := 0
	if now.Before(*end) {
		daysLeft = int(end.Sub(now).Hours() / 24)
	}

	return &TrialDTO{
		StartsAt: start,
		EndsAt:   end,
		DaysLeft: daysLeft,
	}
}

func BuildPendingChangeDTO(u users.User) *PendingChangeDTO {
	if u.PendingTier == nil || !u.PendingTier.Valid() {
		return nil
	}
	return &PendingChangeDTO{
		Tier:        u.PendingTier.String(),
		EffectiveAt: u.PendingTierStartDate,
	}
}

func tierNames(tiers []subscription.Tier) []string {
	out := make([]string, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, t.String())
	}
	return out
}
