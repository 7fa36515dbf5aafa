package routes

import (
	"bytes"
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

	"mealplanner-app/database"
	adminapi "mealplanner-app/internal/api/admin"
	authapi "mealplanner-app/internal/api/auth"
	"mealplanner-app/internal/api/billing"
	mealplansapi "mealplanner-app/internal/api/mealplans"
	"mealplanner-app/internal/api/plans"
	profilesapi "mealplanner-app/internal/api/profiles"
	stripewebhooks "mealplanner-app/internal/api/stripewebhook"
	"mealplanner-app/internal/api/users"
	"mealplanner-app/internal/app/http/middleware"
	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/subscription"
	domainusers "mealplanner-app/internal/domain/users"
	"mealplanner-app/internal/infra/ai"
	"mealplanner-app/internal/infra/stripe/stripetest"
	"mealplanner-app/internal/testdb"
)

var secret = []byte("routes-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testdb.Open(t, database.Models()...)
	log := zerolog.Nop()
	gw := stripetest.New()

	r := gin.New()
	RegisterRoutes(r, Deps{
		DB:        db,
		Auth:      middleware.AuthOptions{Secret: secret, DB: db, TrialDays: 14, Log: log},
		AuthAPI:   &authapi.Handler{DB: db, Log: log, Secret: secret, TrialDays: 14, Mailer: authapi.LogMailer{Log: log}},
		Users:     &users.Handler{DB: db, Log: log},
		Profiles:  &profilesapi.Handler{DB: db, Log: log},
		MealPlans: &mealplansapi.Handler{DB: db, Log: log, Generator: ai.NewTemplateGenerator()},
		Billing:   &billing.Handler{DB: db, Log: log, Gateway: gw},
		Plans:     &plans.Handler{DB: db, Log: log, Gateway: gw},
		Webhooks:  &stripewebhooks.Handler{DB: db, Log: log, Gateway: gw, WebhookSecret: "whsec_test"},
		Admin:     &adminapi.Handler{DB: db, Log: log},
	})
	return r, db
}

func createUser(t *testing.T, db *gorm.DB, u domainusers.User) (domainusers.User, string) {
	t.Helper()
	require.NoError(t, db.Create(&u).Error)
	token, err := middleware.IssueToken(secret, u, time.Now())
	require.NoError(t, err)
	return u, token
}

func call(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndAuthGate(t *testing.T) {
	r, _ := newRouter(t)

	w := call(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/me", "/profiles", "/payments", "/meal-plans"} {
		w = call(r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w = call(r, http.MethodGet, "/plans", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTrialUserPlansMeals(t *testing.T) {
	r, db := newRouter(t)
	end := time.Now().Add(7 * 24 * time.Hour)
	_, token := createUser(t, db, domainusers.User{
		Email: "trial@example.com", Tier: subscription.TierFreeTrial, TrialEndAt: &end, IsVerified: true,
	})

	w := call(r, http.MethodPost, "/profiles", token, gin.H{
		"name":      "<script>alert(1)</script>Ana",
		"allergies": []string{"<b>Peanut</b>"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p profiles.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, []string{"peanut"}, p.Allergies)

	w = call(r, http.MethodPost, "/profiles/"+p.ID+"/meal-plans", token, gin.H{"days": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(r, http.MethodGet, "/meal-plans?profile_id="+p.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/meal-plans/quota", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":3`)

	w = call(r, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "trial@example.com")
}

func TestLockedUserCanReadButNotWrite(t *testing.T) {
	r, db := newRouter(t)
	ended := time.Now().Add(-time.Hour)
	u, token := createUser(t, db, domainusers.User{
		Email: "late@example.com", Tier: subscription.TierFreeTrial, TrialEndAt: &ended, IsVerified: true,
	})
	require.NoError(t, db.Create(&profiles.Profile{UserID: u.ID, Name: "Me", IsPrimary: true}).Error)

	w := call(r, http.MethodGet, "/profiles", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodPost, "/profiles", token, gin.H{"name": "Extra"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "locked")

	w = call(r, http.MethodGet, "/payments", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesRequireRole(t *testing.T) {
	r, db := newRouter(t)
	_, userToken := createUser(t, db, domainusers.User{Email: "u@example.com", Role: domainusers.RoleUser})
	_, adminToken := createUser(t, db, domainusers.User{Email: "a@example.com", Role: domainusers.RoleAdmin})

	w := call(r, http.MethodGet, "/admin/stats", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(r, http.MethodGet, "/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_users":2`)
}

func TestWebhookIsNotSanitised(t *testing.T) {
	r, _ := newRouter(t)
	w := call(r, http.MethodPost, "/webhook", "", gin.H{"id": "evt_1"})
	// Reaches signature verification rather than the sanitiser.
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Signature verification failed")
}
