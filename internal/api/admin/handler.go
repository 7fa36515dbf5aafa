package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mealplanner-app/internal/domain/access"
	"mealplanner-app/internal/domain/billing"
	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
)

type Handler struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

type AdminUser struct {
	ID                 uint               `json:"id"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	Role               string             `json:"role"`
	AuthProvider       string             `json:"auth_provider"`
	IsVerified         bool               `json:"is_verified"`
	Tier               subscription.Tier  `json:"tier"`
	AccessState        access.AccessState `json:"access_state"`
	PendingTier        *subscription.Tier `json:"pending_tier,omitempty"`
	ProfileCount       int64              `json:"profile_count"`
	StripeCustomerID   *string            `json:"stripe_customer_id,omitempty"`
	StripeSubID        *string            `json:"stripe_subscription_id,omitempty"`
	SubscriptionStatus *string            `json:"subscription_status,omitempty"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	TrialEndAt         *time.Time         `json:"trial_end_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

type AdminPayment struct {
	ID         uint              `json:"id"`
	Email      string            `json:"email"`
	PlanName   *string           `json:"plan_name,omitempty"`
	Tier       subscription.Tier `json:"tier"`
	AmountEUR  float64           `json:"amount_eur"`
	Status     string            `json:"status"`
	InvoiceID  string            `json:"invoice_id"`
	ReceiptURL *string           `json:"receipt_url,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

type AdminStats struct {
	TotalUsers          int            `json:"total_users"`
	TotalProfiles       int            `json:"total_profiles"`
	ActiveSubscriptions int            `json:"active_subscriptions"`
	TotalRevenue        float64        `json:"total_revenue"`
	RecentRevenue       float64        `json:"recent_revenue"`
	UsersPerTier        map[string]int `json:"users_per_tier"`
}

func toAdminUser(u users.User, profileCount int64, now time.Time) AdminUser {
	return AdminUser{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Role:               u.Role,
		AuthProvider:       u.AuthProvider,
		IsVerified:         u.IsVerified,
		Tier:               u.Tier,
		AccessState:        access.ComputeEffectiveAccessState(now, u),
		PendingTier:        u.PendingTier,
		ProfileCount:       profileCount,
		StripeCustomerID:   u.StripeCustomerID,
		StripeSubID:        u.SubscriptionID,
		SubscriptionStatus: u.StripeSubscriptionStatus,
		CurrentPeriodEnd:   u.CurrentPeriodEnd,
		TrialEndAt:         u.TrialEndAt,
		CreatedAt:          u.CreatedAt,
	}
}

// GET /admin/users
func (h *Handler) ListAllUsers(c *gin.Context) {
	var list []users.User
	if err := h.DB.Order("id ASC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	type profileCount struct {
		UserID uint
		Count  int64
	}
	var counts []profileCount
	if err := h.DB.Model(&profiles.Profile{}).
		Select("user_id, COUNT(*) AS count").
		Group("user_id").
		Scan(&counts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count profiles"})
		return
	}
	byUser := make(map[uint]int64, len(counts))
	for _, pc := range counts {
		byUser[pc.UserID] = pc.Count
	}

	now := time.Now()
	out := make([]AdminUser, 0, len(list))
	for _, u := range list {
		out = append(out, toAdminUser(u, byUser[u.ID], now))
	}

	c.JSON(http.StatusOK, out)
}

// GET /admin/users/:id
func (h *Handler) GetUserDetails(c *gin.Context) {
	userID := c.Param("id")

	var user users.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	userProfiles, err := profiles.ListForUser(h.DB, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profiles"})
		return
	}

	var payments []billing.Payment
	if err := h.DB.Preload("Plan").Where("user_id = ?", user.ID).Order("created_at DESC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     toAdminUser(user, int64(len(userProfiles)), time.Now()),
		"profiles": userProfiles,
		"payments": payments,
	})
}

// GET /admin/payments
func (h *Handler) ListAllPayments(c *gin.Context) {
	var payments []billing.Payment
	if err := h.DB.Preload("User").Preload("Plan").Order("created_at DESC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	result := make([]AdminPayment, 0, len(payments))
	for _, p := range payments {
		var planName *string
		if p.Plan != nil {
			planName = &p.Plan.Name
		}
		result = append(result, AdminPayment{
			ID:         p.ID,
			Email:      p.User.Email,
			PlanName:   planName,
			Tier:       p.Tier,
			AmountEUR:  p.AmountEUR,
			Status:     p.Status,
			InvoiceID:  p.InvoiceID,
			ReceiptURL: p.ReceiptURL,
			CreatedAt:  p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, result)
}

// GET /admin/stats
func (h *Handler) GetAdminStats(c *gin.Context) {
	var (
		totalUsers    int64
		totalProfiles int64
		activeSubs    int64
		totalRevenue  float64
		recentRevenue float64
	)

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	steps := []*gorm.DB{
		h.DB.Model(&users.User{}).Count(&totalUsers),
		h.DB.Model(&profiles.Profile{}).Count(&totalProfiles),
		h.DB.Model(&users.User{}).
			Where("stripe_subscription_status IN ?", []string{"active", "trialing"}).
			Count(&activeSubs),
		h.DB.Model(&billing.Payment{}).
			Where("status = ?", "paid").
			Select("COALESCE(SUM(amount_eur), 0)").
			Scan(&totalRevenue),
		h.DB.Model(&billing.Payment{}).
			Where("status = ? AND created_at >= ?", "paid", thirtyDaysAgo).
			Select("COALESCE(SUM(amount_eur), 0)").
			Scan(&recentRevenue),
	}
	for _, s := range steps {
		if s.Error != nil {
			h.Log.Error().Err(s.Error).Msg("admin stats")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
			return
		}
	}

	type tierCount struct {
		Tier  string
		Count int
	}
	var counts []tierCount
	if err := h.DB.Model(&users.User{}).
		Select("tier, COUNT(id) AS count").
		Group("tier").
		Scan(&counts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	perTier := make(map[string]int, len(subscription.AllTiers()))
	for _, t := range subscription.AllTiers() {
		perTier[t.String()] = 0
	}
	for _, tc := range counts {
		perTier[tc.Tier] = tc.Count
	}

	c.JSON(http.StatusOK, AdminStats{
		TotalUsers:          int(totalUsers),
		TotalProfiles:       int(totalProfiles),
		ActiveSubscriptions: int(activeSubs),
		TotalRevenue:        totalRevenue,
		RecentRevenue:       recentRevenue,
		UsersPerTier:        perTier,
	})
}
