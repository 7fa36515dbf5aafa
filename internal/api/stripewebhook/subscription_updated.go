package stripewebhooks

import (
	"errors"
	"fmt"

	stripego "github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"

	"mealplanner-app/internal/domain/plans"
	"mealplanner-app/internal/domain/users"
	"mealplanner-app/internal/infra/stripe"
)

// findSubscriber resolves the account behind a subscription, by metadata first.
// A nil user with a nil error means nobody matches and the event is acknowledged.
func (h *Handler) findSubscriber(subscriptionID string, md map[string]string) (*users.User, error) {
	var user users.User
	q := h.DB.Where("subscription_id = ?", subscriptionID)
	if id := userIDFromMetadata(md); id != 0 {
		q = h.DB.Where("id = ?", id)
	}
	err := q.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (h *Handler) handleSubscriptionUpdated(raw *stripego.Subscription) error {
	sub, err := stripe.FromStripeSubscription(raw)
	if err != nil {
		return err
	}

	user, err := h.findSubscriber(sub.ID, sub.Metadata)
	if err != nil || user == nil {
		return err
	}

	var plan plans.Plan
	if err := h.DB.Where("stripe_price_id = ?", sub.PriceID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.Log.Warn().Str("price_id", sub.PriceID).Msg("subscription on unknown price")
			return nil
		}
		return fmt.Errorf("load plan: %w", err)
	}
	tier := plans.PlanTier(&plan)

	updates := map[string]interface{}{
		"tier":                       tier,
		"current_period_end":         sub.CurrentPeriodEnd,
		"stripe_subscription_status": sub.Status,
		"subscription_id":            sub.ID,
	}

	// The scheduled downgrade has taken effect.
	if user.PendingTier != nil && *user.PendingTier == tier {
		updates["pending_tier"] = nil
		updates["pending_tier_start_date"] = nil
		updates["stripe_schedule_id"] = nil
	}

	return h.DB.Model(&users.User{}).
		Where("id = ?", user.ID).
		Updates(updates).Error
}
