package plans

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealplanner-app/internal/domain/plans"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/infra/stripe"
	"mealplanner-app/internal/infra/stripe/stripetest"
	"mealplanner-app/internal/testdb"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSyncPlansUpsertsFromStripe(t *testing.T) {
	db := testdb.Open(t, &plans.Plan{})
	require.NoError(t, db.Create(&plans.Plan{
		Name: "Old", PriceEUR: 8, StripePriceID: "price_pro", Interval: "month", Tier: subscription.TierPro,
	}).Error)

	gw := stripetest.New()
	gw.Prices = []stripe.Price{
		{ID: "price_pro", ProductID: "prod_meals", Name: "Meals", Currency: "eur", UnitAmount: 9.99, Interval: "month", Metadata: map[string]string{"tier": "pro"}},
		{ID: "price_plus", ProductID: "prod_meals", Name: "Meals", Currency: "eur", UnitAmount: 14.99, Interval: "month", Metadata: map[string]string{"plan": "plus", "name": "Plus"}},
		{ID: "price_family", ProductID: "prod_meals", Name: "Meals Family", Currency: "eur", UnitAmount: 24.99, Interval: "month"},
		{ID: "price_usd", ProductID: "prod_meals", Currency: "usd", UnitAmount: 9.99, Interval: "month"},
		{ID: "price_hidden", ProductID: "prod_meals", Currency: "eur", UnitAmount: 5, Interval: "month", Metadata: map[string]string{"visible": "false"}},
		{ID: "price_other", ProductID: "prod_other", Currency: "eur", UnitAmount: 5, Interval: "month"},
	}

	h := &Handler{DB: db, Log: zerolog.Nop(), Gateway: gw, ProductID: "prod_meals"}
	r := gin.New()
	r.POST("/admin/sync-plans", h.SyncPlans)
	r.GET("/plans", h.ListPlans)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/sync-plans", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var counts map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	assert.Equal(t, 2, counts["created"])
	assert.Equal(t, 1, counts["updated"])
	assert.Equal(t, 2, counts["skipped"])

	var pro plans.Plan
	require.NoError(t, db.Where("stripe_price_id = ?", "price_pro").First(&pro).Error)
	assert.Equal(t, 9.99, pro.PriceEUR)
	assert.Equal(t, "prod_meals", pro.StripeProductID)

	var family plans.Plan
	require.NoError(t, db.Where("stripe_price_id = ?", "price_family").First(&family).Error)
	assert.Equal(t, subscription.TierFamily, family.Tier)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plans", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list []PlanDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "price_pro", list[0].StripePriceID)
	assert.Equal(t, "Plus", list[1].Name)
	assert.Equal(t, 2, list[1].ProfileLimit)
	assert.Equal(t, 4, list[2].ProfileLimit)
	assert.Contains(t, list[2].Capabilities, subscription.CapFamilySharing)
}

func TestSyncPlansWithoutStripe(t *testing.T) {
	h := &Handler{DB: testdb.Open(t, &plans.Plan{}), Log: zerolog.Nop()}
	r := gin.New()
	r.POST("/admin/sync-plans", h.SyncPlans)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/sync-plans", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
