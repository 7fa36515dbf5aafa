package mealplans

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mealplanner-app/internal/app/http/middleware"
	"mealplanner-app/internal/domain/mealplans"
	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/subscription"
)

type Handler struct {
	DB        *gorm.DB
	Log       zerolog.Logger
	Generator mealplans.Generator
	// Quota is optional. Without it generation is unlimited.
	Quota mealplans.Quota
}

type generateInput struct {
	Days      int    `json:"days"`
	StartDate string `json:"start_date"`
}

// POST /profiles/:id/meal-plans
func (h *Handler) Generate(c *gin.Context) {
	user, policy, ok := middleware.CurrentAccess(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if !policy.Can(subscription.CapGenerateMealPlans) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your subscription does not include meal plan generation right now"})
		return
	}

	var in generateInput
	if err := c.ShouldBindJSON(&in); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	days, err := mealplans.NormalizeDays(in.Days)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now().UTC().Truncate(24 * time.Hour)
	if s := strings.TrimSpace(in.StartDate); s != "" {
		start, err = time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
	}

	profile, err := profiles.GetForUser(h.DB, user.ID, c.Param("id"))
	if errors.Is(err, profiles.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Uint("user_id", user.ID).Msg("load profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	ctx := c.Request.Context()
	var used int64
	if h.Quota != nil {
		var allowed bool
		used, allowed, err = h.Quota.Consume(ctx, mealplans.QuotaKey(user.ID), policy.GenerationQuota)
		switch {
		case err != nil:
			// Fail open when the limiter is down.
			h.Log.Warn().Err(err).Uint("user_id", user.ID).Msg("generation quota unavailable")
		case !allowed:
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": mealplans.ErrQuotaExceeded.Error(),
				"limit": policy.GenerationQuota,
			})
			return
		}
	}

	req := mealplans.GenerateRequest{Profile: *profile, Days: days, StartDate: start}
	generated, err := h.Generator.Generate(ctx, req)
	if err == nil {
		err = generated.Validate(req)
	}
	if err != nil {
		h.Log.Error().Err(err).Uint("user_id", user.ID).Str("profile_id", profile.ID).Msg("generate meal plan")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Meal plan generation failed"})
		return
	}

	plan := generated.ToPlan(user.ID, req)
	if err := mealplans.Create(h.DB, plan); err != nil {
		h.Log.Error().Err(err).Uint("user_id", user.ID).Msg("save meal plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save meal plan"})
		return
	}

	h.Log.Info().
		Uint("user_id", user.ID).
		Str("plan_id", plan.ID).
		Str("provider", plan.Provider).
		Int64("quota_used", used).
		Msg("meal plan generated")
	c.JSON(http.StatusCreated, plan)
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := mealplans.ListForUser(h.DB, userID, c.Query("profile_id"))
	if err != nil {
		h.Log.Error().Err(err).Uint("user_id", userID).Msg("list meal plans")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load meal plans"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	plan, err := mealplans.GetForUser(h.DB, userID, c.Param("id"))
	if errors.Is(err, mealplans.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load meal plan"})
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *Handler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := mealplans.DeleteForUser(h.DB, userID, c.Param("id"))
	if errors.Is(err, mealplans.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete meal plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meal plan deleted"})
}

// GET /meal-plans/quota
func (h *Handler) QuotaStatus(c *gin.Context) {
	user, policy, ok := middleware.CurrentAccess(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp := gin.H{"limit": policy.GenerationQuota, "remaining": nil}
	if h.Quota != nil {
		left, err := h.Quota.Remaining(c.Request.Context(), mealplans.QuotaKey(user.ID), policy.GenerationQuota)
		if err != nil {
			h.Log.Warn().Err(err).Uint("user_id", user.ID).Msg("read generation quota")
		} else {
			resp["remaining"] = left
		}
	}
	c.JSON(http.StatusOK, resp)
}
