package admin

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
	"gorm.io/gorm"

	"mealplanner-app/internal/domain/access"
	"mealplanner-app/internal/domain/billing"
	"mealplanner-app/internal/domain/plans"
	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
	"mealplanner-app/internal/testdb"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func seed(t *testing.T) (*gorm.DB, *gin.Engine, users.User, users.User) {
	t.Helper()
	db := testdb.Open(t, &users.User{}, &profiles.Profile{}, &plans.Plan{}, &billing.Payment{})

	trialEnd := time.Now().Add(72 * time.Hour)
	trial := users.User{Email: "trial@example.com", Tier: subscription.TierFreeTrial, TrialEndAt: &trialEnd}
	require.NoError(t, db.Create(&trial).Error)

	subID, status := "sub_1", "active"
	family := users.User{Email: "family@example.com", Tier: subscription.TierFamily, SubscriptionID: &subID, StripeSubscriptionStatus: &status}
	require.NoError(t, db.Create(&family).Error)

	for i, name := range []string{"Ana", "Ben", "Cleo"} {
		p := profiles.Profile{UserID: family.ID, Name: name, IsPrimary: i == 0}
		require.NoError(t, db.Create(&p).Error)
	}
	require.NoError(t, db.Create(&profiles.Profile{UserID: trial.ID, Name: "Me", IsPrimary: true}).Error)

	plan := plans.Plan{Name: "Family", PriceEUR: 24.99, StripePriceID: "price_family", Interval: "month", Tier: subscription.TierFamily}
	require.NoError(t, db.Create(&plan).Error)
	require.NoError(t, db.Create(&billing.Payment{UserID: family.ID, PlanID: &plan.ID, Tier: subscription.TierFamily, InvoiceID: "in_1", AmountEUR: 24.99, Status: "paid"}).Error)
	require.NoError(t, db.Create(&billing.Payment{UserID: family.ID, PlanID: &plan.ID, Tier: subscription.TierFamily, InvoiceID: "in_2", AmountEUR: 24.99, Status: "paid", CreatedAt: time.Now().AddDate(0, -2, 0)}).Error)

	h := &Handler{DB: db, Log: zerolog.Nop()}
	r := gin.New()
	r.GET("/admin/users", h.ListAllUsers)
	r.GET("/admin/users/:id", h.GetUserDetails)
	r.GET("/admin/payments", h.ListAllPayments)
	r.GET("/admin/stats", h.GetAdminStats)
	return db, r, trial, family
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListAllUsers(t *testing.T) {
	_, r, _, family := seed(t)

	w := get(r, "/admin/users")
	require.Equal(t, http.StatusOK, w.Code)

	var out []AdminUser
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, access.AccessTrial, out[0].AccessState)
	assert.Equal(t, int64(1), out[0].ProfileCount)
	assert.Equal(t, family.ID, out[1].ID)
	assert.Equal(t, int64(3), out[1].ProfileCount)
	assert.Equal(t, subscription.TierFamily, out[1].Tier)
}

func TestGetUserDetails(t *testing.T) {
	_, r, _, family := seed(t)

	w := get(r, "/admin/users/999")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(r, "/admin/users/"+jsonID(family.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		User     AdminUser          `json:"user"`
		Profiles []profiles.Profile `json:"profiles"`
		Payments []billing.Payment  `json:"payments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "family@example.com", out.User.Email)
	assert.Len(t, out.Profiles, 3)
	require.Len(t, out.Payments, 2)
	assert.Equal(t, "in_1", out.Payments[0].InvoiceID)
}

func TestListAllPayments(t *testing.T) {
	_, r, _, _ := seed(t)

	w := get(r, "/admin/payments")
	require.Equal(t, http.StatusOK, w.Code)

	var out []AdminPayment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "family@example.com", out[0].Email)
	require.NotNil(t, out[0].PlanName)
	assert.Equal(t, "Family", *out[0].PlanName)
}

func TestGetAdminStats(t *testing.T) {
	_, r, _, _ := seed(t)

	w := get(r, "/admin/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats AdminStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 4, stats.TotalProfiles)
	assert.Equal(t, 1, stats.ActiveSubscriptions)
	assert.InDelta(t, 49.98, stats.TotalRevenue, 0.001)
	assert.InDelta(t, 24.99, stats.RecentRevenue, 0.001)
	assert.Equal(t, map[string]int{"free_trial": 1, "pro": 0, "plus": 0, "family": 1}, stats.UsersPerTier)
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
