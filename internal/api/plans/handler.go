package plans

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mealplanner-app/internal/domain/plans"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/infra/stripe"
)

type Handler struct {
	DB      *gorm.DB
	Log     zerolog.Logger
	Gateway stripe.Gateway
	// ProductID limits listing and sync to one Stripe product when set.
	ProductID string
}

type PlanDTO struct {
	plans.Plan
	ProfileLimit    int      `json:"profile_limit"`
	GenerationQuota int      `json:"generation_quota"`
	Capabilities    []string `json:"capabilities"`
}

// GET /plans
func (h *Handler) ListPlans(c *gin.Context) {
	q := h.DB.Model(&plans.Plan{})
	if h.ProductID != "" {
		q = q.Where("stripe_product_id = ?", h.ProductID)
	}

	var list []plans.Plan
	if err := q.Order("price_eur ASC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}

	out := make([]PlanDTO, 0, len(list))
	for _, p := range list {
		tier := plans.PlanTier(&p)
		out = append(out, PlanDTO{
			Plan:            p,
			ProfileLimit:    subscription.TierLimit(tier),
			GenerationQuota: subscription.GenerationQuota(tier),
			Capabilities:    subscription.Capabilities(tier),
		})
	}

	c.JSON(http.StatusOK, out)
}

// POST /admin/sync-plans upserts local plans from active recurring Stripe prices.
func (h *Handler) SyncPlans(c *gin.Context) {
	if h.Gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stripe is not configured"})
		return
	}

	prices, err := h.Gateway.ListRecurringPrices(c.Request.Context(), h.ProductID)
	if err != nil {
		h.Log.Error().Err(err).Msg("list stripe prices")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch Stripe prices"})
		return
	}

	var created, updated, skipped int
	for _, p := range prices {
		if !strings.EqualFold(p.Currency, "eur") || p.Metadata["visible"] == "false" {
			skipped++
			continue
		}

		displayName := p.Name
		if v := strings.TrimSpace(p.Metadata["name"]); v != "" {
			displayName = v
		}

		var existing plans.Plan
		err := h.DB.Where("stripe_price_id = ?", p.ID).First(&existing).Error
		isNew := err != nil

		existing.Name = displayName
		existing.PriceEUR = p.UnitAmount
		existing.StripePriceID = p.ID
		existing.StripeProductID = p.ProductID
		existing.Interval = p.Interval
		if tier, ok := plans.TierFromMetadata(p.Metadata); ok {
			existing.Tier = tier
		} else if !existing.Tier.Valid() {
			existing.Tier = plans.PlanTier(&existing)
		}

		if !existing.Tier.Paid() {
			skipped++
			continue
		}

		if err := h.DB.Save(&existing).Error; err != nil {
			h.Log.Error().Err(err).Str("price_id", p.ID).Msg("save plan")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save plan"})
			return
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}

	h.Log.Info().Int("created", created).Int("updated", updated).Int("skipped", skipped).Msg("plans synced")
	c.JSON(http.StatusOK, gin.H{
		"synced":  created + updated,
		"created": created,
		"updated": updated,
		"skipped": skipped,
	})
}
