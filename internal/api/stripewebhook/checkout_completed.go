package stripewebhooks

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	stripego "github.com/stripe/stripe-go/v75"

	"mealplanner-app/internal/domain/plans"
	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
)

func (h *Handler) handleCheckoutSessionCompleted(c *gin.Context, session *stripego.CheckoutSession) error {
	if h.Gateway == nil {
		return errors.New("stripe is not configured")
	}
	ctx := c.Request.Context()

	full, err := h.Gateway.GetCheckoutSession(ctx, session.ID)
	if err != nil {
		return err
	}
	if full.SubscriptionID == "" {
		return errors.New("checkout session missing subscription")
	}

	sub, err := h.Gateway.GetSubscription(ctx, full.SubscriptionID)
	if err != nil {
		return err
	}

	// metadata.user_id preferred, else ClientReferenceID
	userID, err := userIDFromMetadataOrRef(sub.Metadata, full.ClientReferenceID)
	if err != nil {
		return err
	}

	var user users.User
	if err := h.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	var plan plans.Plan
	if err := h.DB.Where("stripe_price_id = ?", sub.PriceID).First(&plan).Error; err != nil {
		return fmt.Errorf("plan not found for stripe price_id=%s: %w", sub.PriceID, err)
	}

	tier := plans.PlanTier(&plan)
	if n, err := profiles.CountActive(h.DB, user.ID); err == nil && n > int64(subscription.TierLimit(tier)) {
		h.Log.Warn().Uint("user_id", user.ID).Int64("profiles", n).Str("tier", tier.String()).
			Msg("checkout completed with more profiles than the tier allows")
	}

	updates := map[string]interface{}{
		"tier":                       tier,
		"subscription_id":            sub.ID,
		"current_period_end":         sub.CurrentPeriodEnd,
		"stripe_subscription_status": sub.Status,
		"trial_start_at":             nil,
		"trial_end_at":               nil,
		"pending_tier":               nil,
		"pending_tier_start_date":    nil,
		"stripe_schedule_id":         nil,
	}
	if full.CustomerID != "" {
		updates["stripe_customer_id"] = full.CustomerID
	}

	// One subscription per account: a replaced one is cancelled.
	if user.HasSubscription() && *user.SubscriptionID != sub.ID {
		if err := h.Gateway.CancelSubscription(ctx, *user.SubscriptionID); err != nil {
			h.Log.Warn().Err(err).Str("subscription_id", *user.SubscriptionID).Msg("cancel replaced subscription")
		}
	}

	if err := h.DB.Model(&users.User{}).
		Where("id = ?", user.ID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update user after checkout: %w", err)
	}
	return nil
}

func userIDFromMetadataOrRef(md map[string]string, clientRef string) (uint, error) {
	s := md["user_id"]
	if s == "" {
		s = clientRef
	}
	if s == "" {
		return 0, errors.New("missing user_id (metadata.user_id or client_reference_id)")
	}

	uid, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user_id %q: %w", s, err)
	}
	return uint(uid), nil
}

func userIDFromMetadata(md map[string]string) uint {
	uid, err := strconv.ParseUint(md["user_id"], 10, 64)
	if err != nil {
		return 0
	}
	return uint(uid)
}
