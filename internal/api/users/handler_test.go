package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
	"mealplanner-app/internal/testdb"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ptr[T any](v T) *T { return &v }

func TestGetCurrentUserReportsPolicyAndUsage(t *testing.T) {
	db := testdb.Open(t, &users.User{}, &profiles.Profile{})
	end := time.Now().Add(time.Hour)
	u := users.User{
		Email:                    "fam@example.com",
		Name:                     "Fam",
		Role:                     users.RoleUser,
		Tier:                     subscription.TierFamily,
		SubscriptionID:           ptr("sub_1"),
		StripeSubscriptionStatus: ptr("active"),
		CurrentPeriodEnd:         &end,
		PendingTier:              ptr(subscription.TierPlus),
		PendingTierStartDate:     &end,
	}
	require.NoError(t, db.Create(&u).Error)
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, profiles.CreateWithinLimit(db, &profiles.Profile{UserID: u.ID, Name: name}, subscription.TierLimit(u.Tier)))
	}

	h := &Handler{DB: db, Log: zerolog.Nop()}
	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		c.Set("user_id", u.ID)
		h.GetCurrentUser(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp MeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "family", resp.Billing.Tier)
	assert.Equal(t, 4, resp.Billing.ProfileLimit)
	assert.Equal(t, []string{"plus"}, resp.Billing.DowngradeTargets)
	assert.Empty(t, resp.Billing.UpgradeTargets)
	require.NotNil(t, resp.Billing.PendingChange)
	assert.Equal(t, "plus", resp.Billing.PendingChange.Tier)
	require.NotNil(t, resp.Billing.Subscription)
	assert.Equal(t, "active", resp.Billing.Subscription.Status)
	assert.Equal(t, "full", resp.Access.State)
	assert.Contains(t, resp.Access.Capabilities, subscription.CapFamilySharing)
	assert.EqualValues(t, 3, resp.Profiles.Count)
	assert.Equal(t, 2, resp.Profiles.Limit)
}

func TestVerifyEmail(t *testing.T) {
	db := testdb.Open(t, &users.User{}, &users.VerificationToken{})
	u := users.User{Email: "v@example.com"}
	require.NoError(t, db.Create(&u).Error)
	require.NoError(t, db.Create(&users.VerificationToken{
		UserID: u.ID, Token: "tok", Type: users.TokenEmailVerification, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	h := &Handler{DB: db, Log: zerolog.Nop(), AppURL: "http://app.test/"}
	r := gin.New()
	r.GET("/verify", h.VerifyEmail)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/verify?token=tok", nil))
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "http://app.test/signin", w.Header().Get("Location"))

	var got users.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.True(t, got.IsVerified)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/verify?token=tok", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBuildTrialDTO(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := now.Add(72*time.Hour + time.Minute)
	dto := BuildTrialDTO(now, &now, &end)
	require.NotNil(t, dto)
	assert.Equal(t, 3, dto.DaysLeft)

	assert.Equal(t, 0, BuildTrialDTO(end.Add(time.Hour), &now, &end).DaysLeft)
	assert.Nil(t, BuildTrialDTO(now, nil, &end))
}
