package billing

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mealplanner-app/internal/app/http/middleware"
	"mealplanner-app/internal/domain/plans"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
	"mealplanner-app/internal/infra/stripe"
)

const defaultInterval = "month"

var errNoPlanForTier = errors.New("no plan synced for tier (run /admin/sync-plans)")

type Handler struct {
	DB  *gorm.DB
	Log zerolog.Logger
	// Gateway is nil when Stripe is not configured.
	Gateway stripe.Gateway
	AppURL  string
}

func (h *Handler) requireGateway(c *gin.Context) bool {
	if h.Gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stripe is not configured"})
		return false
	}
	return true
}

func (h *Handler) loadUser(c *gin.Context) (users.User, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return users.User{}, false
	}
	var user users.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return users.User{}, false
	}
	return user, true
}

func (h *Handler) accountURL(suffix string) string {
	return strings.TrimRight(h.AppURL, "/") + "/account" + suffix
}

// planForTier picks the synced plan that sells tier on the given interval.
func planForTier(db *gorm.DB, tier subscription.Tier, interval string) (*plans.Plan, error) {
	if interval == "" {
		interval = defaultInterval
	}
	var plan plans.Plan
	err := db.Where("tier = ? AND interval = ?", tier, interval).
		Order("price_eur ASC").
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNoPlanForTier
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func planByPrice(db *gorm.DB, priceID string) (*plans.Plan, error) {
	var plan plans.Plan
	if err := db.Where("stripe_price_id = ?", priceID).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}
