package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mealplanner-app/internal/domain/users"
)

func (h *Handler) CancelDowngrade(c *gin.Context) {
	if !h.requireGateway(c) {
		return
	}
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	// Nothing scheduled? Then nothing to cancel.
	if user.StripeScheduleID == nil || *user.StripeScheduleID == "" || user.PendingTier == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No pending downgrade to cancel"})
		return
	}

	scheduleID := *user.StripeScheduleID

	// Releasing keeps the subscription on its current price.
	if err := h.Gateway.ReleaseSchedule(c.Request.Context(), scheduleID); err != nil {
		h.Log.Error().Err(err).Str("schedule_id", scheduleID).Msg("release schedule")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to release Stripe schedule"})
		return
	}

	if err := h.DB.Model(&users.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"pending_tier":            nil,
			"pending_tier_start_date": nil,
			"stripe_schedule_id":      nil,
		}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear pending downgrade"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Pending downgrade cancelled",
		"schedule_id": scheduleID,
	})
}
