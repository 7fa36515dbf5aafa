package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	adminapi "mealplanner-app/internal/api/admin"
	authapi "mealplanner-app/internal/api/auth"
	"mealplanner-app/internal/api/billing"
	mealplansapi "mealplanner-app/internal/api/mealplans"
	"mealplanner-app/internal/api/plans"
	profilesapi "mealplanner-app/internal/api/profiles"
	stripewebhooks "mealplanner-app/internal/api/stripewebhook"
	"mealplanner-app/internal/api/users"
	"mealplanner-app/internal/app/http/middleware"
	domainusers "mealplanner-app/internal/domain/users"
)

// Deps carries everything the route table needs.
type Deps struct {
	DB   *gorm.DB
	Auth middleware.AuthOptions

	AuthAPI   *authapi.Handler
	Users     *users.Handler
	Profiles  *profilesapi.Handler
	MealPlans *mealplansapi.Handler
	Billing   *billing.Handler
	Plans     *plans.Handler
	Webhooks  *stripewebhooks.Handler
	Admin     *adminapi.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Stripe signs the raw body, so the webhook skips sanitising.
	r.POST("/webhook", d.Webhooks.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", d.AuthAPI.Register)
	public.POST("/login", d.AuthAPI.Login)
	public.GET("/plans", d.Plans.ListPlans)
	public.GET("/verify", d.Users.VerifyEmail)
	public.POST("/resend-verification", d.AuthAPI.ResendVerification)
	public.POST("/request-password-reset", d.AuthAPI.RequestPasswordReset)
	public.POST("/reset-password", d.AuthAPI.ResetPassword)

	public.GET("/auth/google", d.AuthAPI.GoogleStart)
	public.GET("/auth/google/callback", d.AuthAPI.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.Auth))
	auth.GET("/me", d.Users.GetCurrentUser)
	auth.POST("/change-password", d.AuthAPI.ChangePassword)

	auth.GET("/payments", d.Billing.GetPaymentHistory)
	auth.POST("/create-checkout-session", d.Billing.CreateCheckoutSession)
	auth.POST("/billing-portal", d.Billing.CreateBillingPortal)
	auth.POST("/change-tier", d.Billing.ChangeTier)
	auth.POST("/cancel-downgrade", d.Billing.CancelDowngrade)

	auth.GET("/profiles", d.Profiles.List)
	auth.GET("/profiles/:id", d.Profiles.Get)
	auth.GET("/meal-plans", d.MealPlans.List)
	auth.GET("/meal-plans/:id", d.MealPlans.Get)

	// Locked accounts can still read and pay, nothing more.
	active := auth.Group("/")
	active.Use(middleware.RequireAccess(d.DB), middleware.SanitizeAndCleanInputMiddleware())
	active.GET("/meal-plans/quota", d.MealPlans.QuotaStatus)
	active.POST("/profiles", d.Profiles.Create)
	active.PUT("/profiles/:id", d.Profiles.Update)
	active.DELETE("/profiles/:id", d.Profiles.Delete)
	active.POST("/profiles/:id/meal-plans", d.MealPlans.Generate)
	active.DELETE("/meal-plans/:id", d.MealPlans.Delete)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(d.Auth), middleware.RequireRole(domainusers.RoleAdmin))
	admin.GET("/users", d.Admin.ListAllUsers)
	admin.GET("/users/:id", d.Admin.GetUserDetails)
	admin.GET("/payments", d.Admin.ListAllPayments)
	admin.GET("/stats", d.Admin.GetAdminStats)
	admin.POST("/sync-plans", d.Plans.SyncPlans)
}
