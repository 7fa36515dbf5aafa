package users

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mealplanner-app/internal/app/http/middleware"
	"mealplanner-app/internal/domain/access"
	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
)

type Handler struct {
	DB     *gorm.DB
	Log    zerolog.Logger
	AppURL string
}

func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	profileCount, err := profiles.CountActive(h.DB, user.ID)
	if err != nil {
		h.Log.Error().Err(err).Uint("user_id", user.ID).Msg("count profiles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profiles"})
		return
	}

	now := time.Now()
	policy := access.ComputePolicy(now, user)

	resp := MeResponse{
		User: UserDTO{
			ID:           user.ID,
			Email:        user.Email,
			Name:         user.Name,
			Role:         user.Role,
			AuthProvider: user.AuthProvider,
			IsVerified:   user.IsVerified,
		},
		Billing: BillingDTO{
			Tier:             user.Tier.String(),
			ProfileLimit:     subscription.TierLimit(user.Tier),
			GenerationQuota:  policy.GenerationQuota,
			Subscription:     BuildSubscriptionDTO(user),
			Trial:            BuildTrialDTO(now, user.TrialStartAt, user.TrialEndAt),
			PendingChange:    BuildPendingChangeDTO(user),
			UpgradeTargets:   tierNames(subscription.UpgradeTargets(user.Tier)),
			DowngradeTargets: tierNames(subscription.DowngradeTargets(user.Tier)),
		},
		Access: AccessDTO{
			State:        string(policy.State),
			Capabilities: policy.Capabilities,
		},
		Profiles: ProfilesDTO{
			Count: profileCount,
			Limit: policy.ProfileLimit,
		},
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	var t users.VerificationToken
	err := h.DB.Where("token = ? AND type = ?", token, users.TokenEmailVerification).First(&t).Error
	if err != nil || t.Expired(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&users.User{}).Where("id = ?", t.UserID).Update("is_verified", true).Error; err != nil {
			return err
		}
		return tx.Delete(&t).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify user"})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, strings.TrimRight(h.AppURL, "/")+"/signin")
}
