package profiles

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mealplanner-app/internal/app/http/middleware"
	"mealplanner-app/internal/domain/profiles"
)

type Handler struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

type profileInput struct {
	Name               *string  `json:"name"`
	DietaryPreferences []string `json:"dietary_preferences"`
	Allergies          []string `json:"allergies"`
	CalorieTarget      *int     `json:"calorie_target"`
}

func (in profileInput) patch() profiles.ProfilePatch {
	return profiles.ProfilePatch{
		Name:               in.Name,
		DietaryPreferences: in.DietaryPreferences,
		Allergies:          in.Allergies,
		CalorieTarget:      in.CalorieTarget,
	}
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := profiles.ListForUser(h.DB, userID)
	if err != nil {
		h.Log.Error().Err(err).Uint("user_id", userID).Msg("list profiles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profiles"})
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

	p, err := profiles.GetForUser(h.DB, userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Create runs behind RequireAccess.
func (h *Handler) Create(c *gin.Context) {
	user, policy, ok := middleware.CurrentAccess(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if !policy.State.CanWrite() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your subscription does not allow changes right now"})
		return
	}

	var in profileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	p := &profiles.Profile{
		UserID:             user.ID,
		DietaryPreferences: in.DietaryPreferences,
		Allergies:          in.Allergies,
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.CalorieTarget != nil {
		p.CalorieTarget = *in.CalorieTarget
	}

	err := profiles.CreateWithinLimit(h.DB, p, user.ProfileLimit())
	if errors.Is(err, profiles.ErrLimitReached) {
		c.JSON(http.StatusConflict, gin.H{
			"error":        err.Error(),
			"tier":         user.Tier,
			"pending_tier": user.PendingTier,
			"limit":        user.ProfileLimit(),
		})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.Log.Info().Uint("user_id", user.ID).Str("profile_id", p.ID).Msg("profile created")
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) Update(c *gin.Context) {
	user, policy, ok := middleware.CurrentAccess(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if !policy.State.CanWrite() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your subscription does not allow changes right now"})
		return
	}

	var in profileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	p, err := profiles.UpdateForUser(h.DB, user.ID, c.Param("id"), in.patch())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c *gin.Context) {
	user, _, ok := middleware.CurrentAccess(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := profiles.DeleteForUser(h.DB, user.ID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile deleted"})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, profiles.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, profiles.ErrPrimaryProfile):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, profiles.ErrNameRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.Log.Error().Err(err).Msg("profile request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Profile request failed"})
	}
}
