package stripewebhooks

import (
	"errors"
	"fmt"

	stripego "github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"

	"mealplanner-app/internal/domain/billing"
	"mealplanner-app/internal/domain/plans"
	"mealplanner-app/internal/domain/users"
)

// handleInvoicePaid records one Payment per invoice. Redeliveries are no-ops.
func (h *Handler) handleInvoicePaid(inv *stripego.Invoice) error {
	if inv.ID == "" {
		return errors.New("invoice missing id")
	}

	var existing int64
	if err := h.DB.Model(&billing.Payment{}).Where("invoice_id = ?", inv.ID).Count(&existing).Error; err != nil {
		return fmt.Errorf("check payment: %w", err)
	}
	if existing > 0 {
		return nil
	}

	var user users.User
	var err error
	switch {
	case inv.Subscription != nil && inv.Subscription.ID != "":
		err = h.DB.Where("subscription_id = ?", inv.Subscription.ID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) && inv.Customer != nil {
			err = h.DB.Where("stripe_customer_id = ?", inv.Customer.ID).First(&user).Error
		}
	case inv.Customer != nil && inv.Customer.ID != "":
		err = h.DB.Where("stripe_customer_id = ?", inv.Customer.ID).First(&user).Error
	default:
		err = gorm.ErrRecordNotFound
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.Log.Warn().Str("invoice_id", inv.ID).Msg("invoice for unknown customer")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	payment := billing.Payment{
		UserID:    user.ID,
		InvoiceID: inv.ID,
		AmountEUR: float64(inv.AmountPaid) / 100.0,
		Status:    string(inv.Status),
		Tier:      user.Tier,
	}
	if payment.Status == "" {
		payment.Status = "paid"
	}
	if inv.Subscription != nil && inv.Subscription.ID != "" {
		subID := inv.Subscription.ID
		payment.StripeSubscriptionID = &subID
	}
	if inv.HostedInvoiceURL != "" {
		url := inv.HostedInvoiceURL
		payment.ReceiptURL = &url
	}

	if priceID := firstLinePrice(inv); priceID != "" {
		var plan plans.Plan
		if err := h.DB.Where("stripe_price_id = ?", priceID).First(&plan).Error; err == nil {
			payment.PlanID = &plan.ID
			payment.Tier = plans.PlanTier(&plan)
		}
	}

	if err := h.DB.Create(&payment).Error; err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	return nil
}

func firstLinePrice(inv *stripego.Invoice) string {
	if inv.Lines == nil {
		return ""
	}
	for _, line := range inv.Lines.Data {
		if line != nil && line.Price != nil && line.Price.ID != "" {
			return line.Price.ID
		}
	}
	return ""
}
