package users

import "time"

type MeResponse struct {
	User     UserDTO     `json:"user"`
	Billing  BillingDTO  `json:"billing"`
	Access   AccessDTO   `json:"access"`
	Profiles ProfilesDTO `json:"profiles"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	AuthProvider string `json:"auth_provider"`
	IsVerified   bool   `json:"is_verified"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Tier             string            `json:"tier"`
	ProfileLimit     int               `json:"profile_limit"`
	GenerationQuota  int               `json:"generation_quota"`
	Subscription     *SubscriptionDTO  `json:"subscription"`
	Trial            *TrialDTO         `json:"trial"`
	PendingChange    *PendingChangeDTO `json:"pending_change"`
	UpgradeTargets   []string          `json:"upgrade_targets"`
	DowngradeTargets []string          `json:"downgrade_targets"`
}

type SubscriptionDTO struct {
	Status               string     `json:"status"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id"`
	StripeScheduleID     *string    `json:"stripe_schedule_id"`
}

type TrialDTO struct {
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	DaysLeft int        `json:"days_left"`
}

type PendingChangeDTO struct {
	Tier        string     `json:"tier"`
	EffectiveAt *time.Time `json:"effective_at"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	State        string   `json:"state"` // trial|full|limited|locked
	Capabilities []string `json:"capabilities"`
}

/* ---------- PROFILES ---------- */

type ProfilesDTO struct {
	Count int64 `json:"count"`
	Limit int   `json:"limit"`
}
