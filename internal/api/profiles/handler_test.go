package profiles

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

	"mealplanner-app/internal/app/http/middleware"
	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
	"mealplanner-app/internal/testdb"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T, tier subscription.Tier) (*gorm.DB, *gin.Engine, users.User) {
	t.Helper()
	db := testdb.Open(t, &users.User{}, &profiles.Profile{})
	end := time.Now().Add(24 * time.Hour)
	sub := "sub_1"
	status := "active"
	u := users.User{Email: "p@example.com", Tier: tier, TrialEndAt: &end}
	if tier.Paid() {
		u.SubscriptionID = &sub
		u.StripeSubscriptionStatus = &status
	}
	require.NoError(t, db.Create(&u).Error)

	h := &Handler{DB: db, Log: zerolog.Nop()}
	r := gin.New()
	g := r.Group("/", func(c *gin.Context) { c.Set(middleware.CtxUserID, u.ID) })
	g.GET("/profiles", h.List)
	g.GET("/profiles/:id", h.Get)
	w := g.Group("/", middleware.RequireAccess(db))
	w.POST("/profiles", h.Create)
	w.PUT("/profiles/:id", h.Update)
	w.DELETE("/profiles/:id", h.Delete)
	return db, r, u
}

func send(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateProfileRespectsTierLimit(t *testing.T) {
	_, r, _ := setup(t, subscription.TierPlus)

	w := send(r, http.MethodPost, "/profiles", gin.H{"name": "Ana", "allergies": []string{"Peanut"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first profiles.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.True(t, first.IsPrimary)
	assert.Equal(t, []string{"peanut"}, first.Allergies)

	w = send(r, http.MethodPost, "/profiles", gin.H{"name": "Ben"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = send(r, http.MethodPost, "/profiles", gin.H{"name": "Cleo"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "profile limit reached for tier")
	assert.Contains(t, w.Body.String(), `"limit":2`)

	w = send(r, http.MethodPost, "/profiles", gin.H{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProfileHonoursScheduledDowngrade(t *testing.T) {
	db, r, u := setup(t, subscription.TierFamily)
	require.NoError(t, db.Model(&users.User{}).Where("id = ?", u.ID).
		Update("pending_tier", subscription.TierPlus).Error)

	for _, name := range []string{"Ana", "Ben"} {
		w := send(r, http.MethodPost, "/profiles", gin.H{"name": name})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := send(r, http.MethodPost, "/profiles", gin.H{"name": "Cleo"})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"limit":2`)
	assert.Contains(t, w.Body.String(), `"pending_tier":"plus"`)

	n, err := profiles.CountActive(db, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestProfileCRUD(t *testing.T) {
	db, r, u := setup(t, subscription.TierFamily)

	w := send(r, http.MethodPost, "/profiles", gin.H{"name": "Ana"})
	require.Equal(t, http.StatusCreated, w.Code)
	var primary profiles.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &primary))

	w = send(r, http.MethodPost, "/profiles", gin.H{"name": "Kid", "calorie_target": 1500})
	require.Equal(t, http.StatusCreated, w.Code)
	var kid profiles.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &kid))

	w = send(r, http.MethodPut, "/profiles/"+kid.ID, gin.H{"dietary_preferences": []string{"Vegetarian"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"dietary_preferences":["vegetarian"]`)
	assert.Contains(t, w.Body.String(), `"calorie_target":1500`)

	w = send(r, http.MethodGet, "/profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []profiles.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, primary.ID, list[0].ID)

	w = send(r, http.MethodDelete, "/profiles/"+primary.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = send(r, http.MethodDelete, "/profiles/"+kid.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodGet, "/profiles/"+kid.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	n, err := profiles.CountActive(db, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestLimitedAccessCannotWrite(t *testing.T) {
	db, r, u := setup(t, subscription.TierPro)
	require.NoError(t, db.Model(&u).Update("stripe_subscription_status", "past_due").Error)

	w := send(r, http.MethodPost, "/profiles", gin.H{"name": "Ana"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = send(r, http.MethodGet, "/profiles", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
