package billing

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mealplanner-app/internal/app/http/middleware"
	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
)

var (
	errUpgradeNotAllowed   = errors.New("upgrade path not allowed")
	errDowngradeNotAllowed = errors.New("downgrade path not allowed")
	errTooManyProfiles     = errors.New("reduce profiles before downgrading")
	errCheckoutFirst       = errors.New("no active subscription to change, use checkout first")
	errInvalidDirection    = errors.New("invalid direction")
	errStripe              = errors.New("stripe request failed")
)

type changeResult struct {
	direction   subscription.ChangeDirection
	scheduleID  string
	periodEnd   time.Time
	effectiveAt time.Time
	target      subscription.Tier
}

// POST /change-tier {tier, direction?}
func (h *Handler) ChangeTier(c *gin.Context) {
	var body struct {
		Tier      string `json:"tier"`
		Direction string `json:"direction"`
		Interval  string `json:"interval"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid tier"})
		return
	}

	target, err := subscription.ParseTier(body.Tier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid tier"})
		return
	}

	direction := subscription.ChangeDirection(body.Direction)
	switch direction {
	case "", subscription.DirectionUpgrade, subscription.DirectionDowngrade:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidDirection.Error()})
		return
	}

	if !h.requireGateway(c) {
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var res changeResult
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var user users.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		r, err := h.applyChange(c, tx, user, target, direction, body.Interval)
		if err != nil {
			return err
		}
		res = r
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	case errors.Is(err, errUpgradeNotAllowed),
		errors.Is(err, errDowngradeNotAllowed),
		errors.Is(err, errCheckoutFirst),
		errors.Is(err, errInvalidDirection),
		errors.Is(err, errNoPlanForTier):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, errTooManyProfiles):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"limit": subscription.TierLimit(target),
		})
		return
	case errors.Is(err, errStripe):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to update Stripe subscription"})
		return
	default:
		h.Log.Error().Err(err).Uint("user_id", userID).Msg("change tier")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change tier"})
		return
	}

	if res.direction == subscription.DirectionUpgrade {
		c.JSON(http.StatusOK, gin.H{
			"message":            "Upgraded now (prorated automatically by Stripe)",
			"direction":          res.direction,
			"tier":               res.target,
			"current_period_end": res.periodEnd,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Downgrade scheduled for next billing cycle",
		"direction":    res.direction,
		"pending_tier": res.target,
		"effective_at": res.effectiveAt,
		"schedule_id":  res.scheduleID,
	})
}

func (h *Handler) applyChange(c *gin.Context, tx *gorm.DB, user users.User, target subscription.Tier, direction subscription.ChangeDirection, interval string) (changeResult, error) {
	current := user.Tier
	if direction == "" {
		direction = subscription.Direction(current, target)
	}

	switch direction {
	case subscription.DirectionDowngrade:
		if !subscription.IsDowngradeAllowed(current, target) {
			return changeResult{}, errDowngradeNotAllowed
		}
		n, err := profiles.CountActive(tx, user.ID)
		if err != nil {
			return changeResult{}, err
		}
		if n > int64(subscription.TierLimit(target)) {
			return changeResult{}, errTooManyProfiles
		}
	case subscription.DirectionUpgrade, subscription.DirectionNone:
		if !subscription.IsUpgradeAllowed(current, target) {
			return changeResult{}, errUpgradeNotAllowed
		}
		direction = subscription.DirectionUpgrade
	default:
		return changeResult{}, errInvalidDirection
	}

	if !user.HasSubscription() {
		return changeResult{}, errCheckoutFirst
	}

	plan, err := planForTier(tx, target, interval)
	if err != nil {
		return changeResult{}, err
	}

	ctx := c.Request.Context()
	sub, err := h.Gateway.GetSubscription(ctx, *user.SubscriptionID)
	if err != nil {
		h.Log.Error().Err(err).Uint("user_id", user.ID).Msg("fetch subscription")
		return changeResult{}, errStripe
	}

	res := changeResult{direction: direction, target: target}

	if direction == subscription.DirectionUpgrade {
		// A pending downgrade is superseded by the upgrade and is released
		// before the price moves.
		if user.StripeScheduleID != nil && *user.StripeScheduleID != "" {
			if err := h.Gateway.ReleaseSchedule(ctx, *user.StripeScheduleID); err != nil {
				h.Log.Error().Err(err).Str("schedule_id", *user.StripeScheduleID).Msg("release superseded schedule")
				return changeResult{}, errStripe
			}
		}

		updated, err := h.Gateway.SwapPrice(ctx, sub, plan.StripePriceID)
		if err != nil {
			h.Log.Error().Err(err).Uint("user_id", user.ID).Msg("swap price")
			return changeResult{}, errStripe
		}
		res.periodEnd = updated.CurrentPeriodEnd

		err = tx.Model(&users.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"tier":                    target,
				"current_period_end":      updated.CurrentPeriodEnd,
				"pending_tier":            nil,
				"pending_tier_start_date": nil,
				"stripe_schedule_id":      nil,
			}).Error
		return res, err
	}

	scheduleID, err := h.Gateway.ScheduleSwap(ctx, sub, plan.StripePriceID)
	if err != nil {
		h.Log.Error().Err(err).Uint("user_id", user.ID).Msg("schedule downgrade")
		return changeResult{}, errStripe
	}
	res.scheduleID = scheduleID
	res.effectiveAt = sub.CurrentPeriodEnd

	// Current tier stays until the webhook reports the new price.
	err = tx.Model(&users.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"pending_tier":            target,
			"pending_tier_start_date": sub.CurrentPeriodEnd,
			"stripe_schedule_id":      scheduleID,
			"current_period_end":      sub.CurrentPeriodEnd,
		}).Error
	return res, err
}
