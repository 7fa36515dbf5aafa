package billing

import (
	"time"

	"mealplanner-app/internal/domain/plans"
	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
)

// Payment is one paid Stripe invoice.
type Payment struct {
	ID                   uint              `gorm:"primaryKey" json:"id"`
	UserID               uint              `gorm:"index" json:"-"`
	User                 users.User        `json:"-"`
	PlanID               *uint             `json:"-"`
	Plan                 *plans.Plan       `json:"plan,omitempty"`
	Tier                 subscription.Tier `gorm:"type:varchar(20)" json:"tier"`
	InvoiceID            string            `gorm:"not null;uniqueIndex:idx_payments_invoice_id" json:"invoice_id"`
	StripeSubscriptionID *string           `json:"stripe_subscription_id,omitempty"`
	AmountEUR            float64           `json:"amount_eur"`
	Status               string            `json:"status"`
	ReceiptURL           *string           `json:"receipt_url,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}
