package billing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
	"mealplanner-app/internal/infra/stripe"
)

// POST /create-checkout-session {tier, interval?}
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body struct {
		Tier     string `json:"tier"`
		Interval string `json:"interval"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid tier"})
		return
	}

	target, err := subscription.ParseTier(body.Tier)
	if err != nil || !target.Paid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid tier"})
		return
	}

	if !h.requireGateway(c) {
		return
	}
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email first"})
		return
	}

	if user.HasSubscription() && stripe.NormalizeStripeStatus(user.StripeSubscriptionStatus) != "canceled" {
		c.JSON(http.StatusConflict, gin.H{"error": "Subscription already exists. Use change-tier instead."})
		return
	}

	// A lapsed paid account resubscribes along the same graph as change-tier.
	switch {
	case user.Tier == subscription.TierFreeTrial:
		if !subscription.IsUpgradeAllowed(user.Tier, target) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errUpgradeNotAllowed.Error()})
			return
		}
	case target == user.Tier, subscription.IsUpgradeAllowed(user.Tier, target):
	case subscription.IsDowngradeAllowed(user.Tier, target):
		n, err := profiles.CountActive(h.DB, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count profiles"})
			return
		}
		if n > int64(subscription.TierLimit(target)) {
			c.JSON(http.StatusConflict, gin.H{
				"error": errTooManyProfiles.Error(),
				"limit": subscription.TierLimit(target),
			})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": errDowngradeNotAllowed.Error()})
		return
	}

	plan, err := planForTier(h.DB, target, body.Interval)
	if errors.Is(err, errNoPlanForTier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan"})
		return
	}

	ctx := c.Request.Context()
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		customerID, err := h.Gateway.EnsureCustomer(ctx, user.Email, user.ID)
		if err != nil {
			h.Log.Error().Err(err).Uint("user_id", user.ID).Msg("create stripe customer")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Stripe customer"})
			return
		}

		if err := h.DB.Model(&users.User{}).
			Where("id = ?", user.ID).
			Update("stripe_customer_id", customerID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store Stripe customer"})
			return
		}
		user.StripeCustomerID = &customerID
	}

	url, err := h.Gateway.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		CustomerID: *user.StripeCustomerID,
		PriceID:    plan.StripePriceID,
		UserID:     user.ID,
		SuccessURL: h.accountURL(""),
		CancelURL:  h.accountURL("?canceled=1"),
		Metadata:   map[string]string{"tier": target.String()},
	})
	if err != nil {
		h.Log.Error().Err(err).Uint("user_id", user.ID).Msg("create checkout session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// POST /billing-portal
func (h *Handler) CreateBillingPortal(c *gin.Context) {
	if !h.requireGateway(c) {
		return
	}
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No Stripe customer yet (subscribe first)"})
		return
	}

	url, err := h.Gateway.CreatePortalSession(c.Request.Context(), *user.StripeCustomerID, h.accountURL(""))
	if err != nil {
		h.Log.Error().Err(err).Uint("user_id", user.ID).Msg("create billing portal session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create billing portal session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
