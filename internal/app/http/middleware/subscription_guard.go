package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mealplanner-app/internal/domain/access"
	"mealplanner-app/internal/domain/users"
)

const (
	ctxUser   = "current_user"
	ctxPolicy = "access_policy"
)

// RequireAccess loads the user and rejects accounts whose access is locked.
// The loaded user and policy are stored for the handler.
func RequireAccess(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var user users.User
		if err := db.First(&user, userID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		policy := access.ComputePolicy(time.Now(), user)
		if policy.State == access.AccessLocked {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "Your trial or subscription has ended",
				"state": policy.State,
			})
			return
		}

		c.Set(ctxUser, user)
		c.Set(ctxPolicy, policy)
		c.Next()
	}
}

// CurrentAccess returns what RequireAccess stored.
func CurrentAccess(c *gin.Context) (users.User, access.Policy, bool) {
	u, ok := c.Get(ctxUser)
	if !ok {
		return users.User{}, access.Policy{}, false
	}
	p, ok := c.Get(ctxPolicy)
	if !ok {
		return users.User{}, access.Policy{}, false
	}
	user, uok := u.(users.User)
	policy, pok := p.(access.Policy)
	return user, policy, uok && pok
}
