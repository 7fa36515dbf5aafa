package users

import (
	"time"

	"mealplanner-app/internal/domain/subscription"
)

const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderSupabase = "supabase"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             uint `gorm:"primaryKey"`
	Name           string
	Email          string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password       *string `gorm:""`
	AuthProvider   string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub      *string `gorm:"uniqueIndex:idx_users_google_sub"`
	SupabaseUserID *string `gorm:"column:supabase_user_id;uniqueIndex:idx_users_supabase_user_id"`
	Role           string
	IsVerified     bool

	Tier subscription.Tier `gorm:"type:varchar(20);not null;default:'free_trial'"`

	TrialStartAt *time.Time `gorm:"column:trial_start_at"`
	TrialEndAt   *time.Time `gorm:"column:trial_end_at"`

	StripeCustomerID         *string    `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id"`
	SubscriptionID           *string    `gorm:"column:subscription_id;uniqueIndex:idx_users_subscription_id"`
	StripeSubscriptionStatus *string    `gorm:"column:stripe_subscription_status"`
	CurrentPeriodEnd         *time.Time `gorm:"column:current_period_end"`

	// Downgrades are applied at the end of the billing period.
	PendingTier          *subscription.Tier `gorm:"column:pending_tier;type:varchar(20)"`
	PendingTierStartDate *time.Time         `gorm:"column:pending_tier_start_date"`
	StripeScheduleID     *string            `gorm:"column:stripe_schedule_id"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) HasSubscription() bool {
	return u.SubscriptionID != nil && *u.SubscriptionID != ""
}

// ProfileLimit is the number of active profiles the account may hold,
// counting a scheduled downgrade.
func (u User) ProfileLimit() int {
	return subscription.EffectiveLimit(u.Tier, u.PendingTier)
}
