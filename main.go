package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mealplanner-app/config"
	"mealplanner-app/database"
	adminapi "mealplanner-app/internal/api/admin"
	authapi "mealplanner-app/internal/api/auth"
	"mealplanner-app/internal/api/billing"
	mealplansapi "mealplanner-app/internal/api/mealplans"
	"mealplanner-app/internal/api/plans"
	profilesapi "mealplanner-app/internal/api/profiles"
	stripewebhooks "mealplanner-app/internal/api/stripewebhook"
	"mealplanner-app/internal/api/users"
	routes "mealplanner-app/internal/app/http"
	"mealplanner-app/internal/app/http/middleware"
	"mealplanner-app/internal/domain/mealplans"
	domainusers "mealplanner-app/internal/domain/users"
	"mealplanner-app/internal/infra/ai"
	"mealplanner-app/internal/infra/logger"
	"mealplanner-app/internal/infra/ratelimit"
	"mealplanner-app/internal/infra/stripe"
	"mealplanner-app/internal/infra/supabase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(cfg.AppEnv, cfg.LogLevel)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DBURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}

	ctx := context.Background()
	secret := []byte(cfg.JWTSecret)

	// Stripe is optional; billing routes answer 503 without it.
	var gateway stripe.Gateway
	if g, err := stripe.NewGateway(cfg.StripeSecretKey, cfg.AppEnv); err == nil {
		gateway = g
	} else {
		log.Warn().Err(err).Msg("billing disabled")
	}

	var quota mealplans.Quota
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		defer rdb.Close()
		quota = ratelimit.NewRedisQuota(rdb, 24*time.Hour, "mealplans")
	} else {
		log.Warn().Msg("REDIS_URL not set, meal plan generation is not rate limited")
	}

	var google *authapi.GoogleProvider
	if cfg.GoogleEnabled() {
		google, err = authapi.NewGoogleProvider(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, !cfg.IsDevelopment())
		if err != nil {
			log.Fatal().Err(err).Msg("init google login")
		}
	}

	var verifier domainusers.IdentityVerifier
	switch {
	case cfg.SupabaseEnabled():
		v, err := supabase.NewVerifier(cfg.SupabaseURL, cfg.SupabaseAnonKey, log)
		if err != nil {
			log.Fatal().Err(err).Msg("init supabase")
		}
		verifier = v
	case google != nil:
		verifier = google
	}

	var mailer authapi.Mailer = authapi.LogMailer{Log: log}
	if cfg.SMTPEnabled() {
		mailer = authapi.SMTPMailer{Host: cfg.SMTPHost, Port: cfg.SMTPPort, From: cfg.SMTPFrom, Password: cfg.SMTPPassword}
	}

	deps := routes.Deps{
		DB: db,
		Auth: middleware.AuthOptions{
			Secret:    secret,
			DB:        db,
			Verifier:  verifier,
			TrialDays: cfg.TrialDays,
			Log:       log,
		},
		AuthAPI: &authapi.Handler{
			DB:               db,
			Log:              log,
			Secret:           secret,
			TrialDays:        cfg.TrialDays,
			APIURL:           cfg.APIURL,
			AppURL:           cfg.AppURL,
			Mailer:           mailer,
			Google:           google,
			FrontendRedirect: cfg.GoogleFrontendRedirect,
		},
		Users:     &users.Handler{DB: db, Log: log, AppURL: cfg.AppURL},
		Profiles:  &profilesapi.Handler{DB: db, Log: log},
		MealPlans: &mealplansapi.Handler{DB: db, Log: log, Generator: newGenerator(cfg, log), Quota: quota},
		Billing:   &billing.Handler{DB: db, Log: log, Gateway: gateway, AppURL: cfg.AppURL},
		Plans:     &plans.Handler{DB: db, Log: log, Gateway: gateway, ProductID: cfg.StripeProductID},
		Webhooks:  &stripewebhooks.Handler{DB: db, Log: log, Gateway: gateway, WebhookSecret: cfg.StripeWebhookSecret},
		Admin:     &adminapi.Handler{DB: db, Log: log},
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(log), gin.Recovery())

	// CORS goes in before the routes
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSOrigin, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, deps)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.AppEnv).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

// newGenerator prefers the OpenAI model and falls back to built-in templates.
func newGenerator(cfg *config.Config, log zerolog.Logger) mealplans.Generator {
	template := ai.NewTemplateGenerator()
	if cfg.OpenAIAPIKey == "" {
		log.Info().Msg("OPENAI_API_KEY not set, using template meal plans")
		return template
	}

	gen, err := ai.NewOpenAIGenerator(ai.OpenAIOptions{
		APIKey:   cfg.OpenAIAPIKey,
		Model:    cfg.OpenAIModel,
		BaseURL:  cfg.OpenAIBaseURL,
		Fallback: template,
		OnFallback: func(reason string, err error) {
			log.Warn().Err(err).Str("reason", reason).Msg("meal plan generation fell back to templates")
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("init openai generator")
		return template
	}
	return gen
}
