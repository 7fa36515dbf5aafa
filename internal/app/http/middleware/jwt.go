package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/users"
)

// Context keys set by AuthMiddleware.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

const tokenTTL = 24 * time.Hour

type AuthOptions struct {
	Secret []byte
	DB     *gorm.DB
	// Verifier accepts managed-provider access tokens that are not app JWTs. Optional.
	Verifier  users.IdentityVerifier
	TrialDays int
	Log       zerolog.Logger
}

// IssueToken signs the app JWT returned by login and the Google callback.
func IssueToken(secret []byte, u users.User, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    u.Role,
		"exp":     now.Add(tokenTTL).Unix(),
	})
	return t.SignedString(secret)
}

func AuthMiddleware(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(opts.Secret) == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == authHeader || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
			return
		}

		claims, err := parseAppToken(opts.Secret, tokenString)
		if err == nil {
			c.Set(CtxUserID, claims.userID)
			c.Set(CtxEmail, claims.email)
			c.Set(CtxRole, claims.role)
			c.Next()
			return
		}

		if opts.Verifier == nil || opts.DB == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		identity, verr := opts.Verifier.Verify(c.Request.Context(), tokenString)
		if verr != nil {
			opts.Log.Debug().Err(verr).Msg("external token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, created, ferr := users.FindOrCreateExternal(opts.DB, identity, time.Now(), opts.TrialDays)
		if ferr != nil {
			opts.Log.Error().Err(ferr).Str("provider", identity.Provider).Msg("resolve external user")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not resolve account"})
			return
		}
		if created {
			opts.Log.Info().Uint("user_id", user.ID).Str("provider", identity.Provider).Msg("external user created")
			if err := profiles.EnsurePrimary(opts.DB, user.ID, user.Name); err != nil {
				opts.Log.Error().Err(err).Uint("user_id", user.ID).Msg("create primary profile")
			}
		}

		c.Set(CtxUserID, user.ID)
		c.Set(CtxEmail, user.Email)
		c.Set(CtxRole, user.Role)
		c.Next()
	}
}

type appClaims struct {
	userID uint
	email  string
	role   string
}

func parseAppToken(secret []byte, tokenString string) (*appClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return nil, errors.New("token missing user_id")
	}

	out := &appClaims{userID: uint(userIDFloat)}
	out.email, _ = claims["email"].(string)
	out.role, _ = claims["role"].(string)
	return out, nil
}

func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(CtxRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Role not found in token"})
			return
		}

		if value != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		c.Next()
	}
}

// UserID returns the authenticated user's id.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id > 0
}
