package stripewebhooks

import (
	"time"

	stripego "github.com/stripe/stripe-go/v75"

	"mealplanner-app/internal/domain/users"
)

func (h *Handler) handleSubscriptionDeleted(sub *stripego.Subscription) error {
	if sub.ID == "" {
		return nil
	}

	user, err := h.findSubscriber(sub.ID, sub.Metadata)
	if err != nil || user == nil {
		return err
	}

	status := string(sub.Status)
	if status == "" {
		status = "canceled"
	}

	updates := map[string]interface{}{
		"stripe_subscription_status": status,
		"pending_tier":               nil,
		"pending_tier_start_date":    nil,
		"stripe_schedule_id":         nil,
	}
	if sub.CurrentPeriodEnd > 0 {
		updates["current_period_end"] = time.Unix(sub.CurrentPeriodEnd, 0)
	}

	return h.DB.Model(&users.User{}).
		Where("id = ?", user.ID).
		Updates(updates).Error
}
