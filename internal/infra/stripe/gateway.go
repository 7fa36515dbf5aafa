package stripe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
)

var ErrNotConfigured = errors.New("stripe is not configured")

// Subscription is the part of a Stripe subscription the app cares about.
type Subscription struct {
	ID                 string
	ItemID             string
	PriceID            string
	Status             string
	ScheduleID         string
	CustomerID         string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	Metadata           map[string]string
}

type Price struct {
	ID         string
	ProductID  string
	Name       string
	Currency   string
	UnitAmount float64
	Interval   string
	Metadata   map[string]string
}

type CheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     uint
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type CheckoutSession struct {
	ID                string
	SubscriptionID    string
	CustomerID        string
	ClientReferenceID string
}

// Gateway is the billing surface used by handlers. StripeGateway is the real one.
type Gateway interface {
	EnsureCustomer(ctx context.Context, email string, userID uint) (string, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	CancelSubscription(ctx context.Context, id string) error
	// SwapPrice moves the subscription to priceID now, with prorations.
	SwapPrice(ctx context.Context, sub *Subscription, priceID string) (*Subscription, error)
	// ScheduleSwap keeps the current price until period end and then switches to priceID.
	ScheduleSwap(ctx context.Context, sub *Subscription, priceID string) (string, error)
	ReleaseSchedule(ctx context.Context, scheduleID string) error
	ListRecurringPrices(ctx context.Context, productID string) ([]Price, error)
}

type StripeGateway struct {
	api    *client.API
	appEnv string
}

func NewGateway(secretKey, appEnv string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, ErrNotConfigured
	}
	return &StripeGateway{api: client.New(secretKey, nil), appEnv: appEnv}, nil
}

func (g *StripeGateway) EnsureCustomer(ctx context.Context, email string, userID uint) (string, error) {
	params := &stripego.CustomerParams{
		Email: stripego.String(email),
		Metadata: map[string]string{
			"user_id": strconv.FormatUint(uint64(userID), 10),
			"app_env": g.appEnv,
		},
	}
	params.Context = ctx

	cus, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cus.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	ref := strconv.FormatUint(uint64(p.UserID), 10)
	md := map[string]string{"user_id": ref}
	for k, v := range p.Metadata {
		md[k] = v
	}

	params := &stripego.CheckoutSessionParams{
		SuccessURL: stripego.String(p.SuccessURL),
		CancelURL:  stripego.String(p.CancelURL),
		Mode:       stripego.String(string(stripego.CheckoutSessionModeSubscription)),
		Customer:   stripego.String(p.CustomerID),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{Price: stripego.String(p.PriceID), Quantity: stripego.Int64(1)},
		},
		ClientReferenceID: stripego.String(ref),
		SubscriptionData: &stripego.CheckoutSessionSubscriptionDataParams{
			Metadata: md,
		},
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	params.AddExpand("customer")

	s, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("fetch checkout session: %w", err)
	}

	out := &CheckoutSession{ID: s.ID, ClientReferenceID: s.ClientReferenceID}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	return out, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripego.BillingPortalSessionParams{
		Customer:  stripego.String(customerID),
		ReturnURL: stripego.String(returnURL),
	}
	params.Context = ctx

	portal, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return portal.URL, nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	params := &stripego.SubscriptionParams{}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("fetch stripe subscription: %w", err)
	}
	return FromStripeSubscription(sub)
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, id string) error {
	params := &stripego.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := g.api.Subscriptions.Cancel(id, params); err != nil {
		return fmt.Errorf("cancel stripe subscription: %w", err)
	}
	return nil
}

func (g *StripeGateway) SwapPrice(ctx context.Context, sub *Subscription, priceID string) (*Subscription, error) {
	params := &stripego.SubscriptionParams{
		Items: []*stripego.SubscriptionItemsParams{
			{
				ID:    stripego.String(sub.ItemID),
				Price: stripego.String(priceID),
			},
		},
		ProrationBehavior: stripego.String("create_prorations"),
	}
	params.Context = ctx

	updated, err := g.api.Subscriptions.Update(sub.ID, params)
	if err != nil {
		return nil, fmt.Errorf("update stripe subscription: %w", err)
	}
	return FromStripeSubscription(updated)
}

func (g *StripeGateway) ScheduleSwap(ctx context.Context, sub *Subscription, priceID string) (string, error) {
	scheduleID := sub.ScheduleID
	if scheduleID == "" {
		params := &stripego.SubscriptionScheduleParams{
			FromSubscription: stripego.String(sub.ID),
		}
		params.Context = ctx

		schedule, err := g.api.SubscriptionSchedules.New(params)
		if err != nil {
			return "", fmt.Errorf("create subscription schedule: %w", err)
		}
		scheduleID = schedule.ID
	}

	params := &stripego.SubscriptionScheduleParams{
		EndBehavior: stripego.String("release"),
		Phases: []*stripego.SubscriptionSchedulePhaseParams{
			{
				StartDate: stripego.Int64(sub.CurrentPeriodStart.Unix()),
				EndDate:   stripego.Int64(sub.CurrentPeriodEnd.Unix()),
				Items: []*stripego.SubscriptionSchedulePhaseItemParams{
					{Price: stripego.String(sub.PriceID), Quantity: stripego.Int64(1)},
				},
			},
			{
				StartDate: stripego.Int64(sub.CurrentPeriodEnd.Unix()),
				Items: []*stripego.SubscriptionSchedulePhaseItemParams{
					{Price: stripego.String(priceID), Quantity: stripego.Int64(1)},
				},
			},
		},
	}
	params.Context = ctx

	if _, err := g.api.SubscriptionSchedules.Update(scheduleID, params); err != nil {
		return "", fmt.Errorf("update schedule phases: %w", err)
	}
	return scheduleID, nil
}

func (g *StripeGateway) ReleaseSchedule(ctx context.Context, scheduleID string) error {
	params := &stripego.SubscriptionScheduleReleaseParams{}
	params.Context = ctx

	if _, err := g.api.SubscriptionSchedules.Release(scheduleID, params); err != nil {
		return fmt.Errorf("release subscription schedule: %w", err)
	}
	return nil
}

func (g *StripeGateway) ListRecurringPrices(ctx context.Context, productID string) ([]Price, error) {
	params := &stripego.PriceListParams{}
	params.Context = ctx
	params.Active = stripego.Bool(true)
	params.Type = stripego.String("recurring")
	if productID != "" {
		params.Product = stripego.String(productID)
	}
	params.AddExpand("data.product")

	var out []Price
	it := g.api.Prices.List(params)
	for it.Next() {
		p := it.Price()
		if !p.Active || p.Recurring == nil || p.Product == nil || !p.Product.Active {
			continue
		}
		out = append(out, Price{
			ID:         p.ID,
			ProductID:  p.Product.ID,
			Name:       p.Product.Name,
			Currency:   string(p.Currency),
			UnitAmount: float64(p.UnitAmount) / 100.0,
			Interval:   string(p.Recurring.Interval),
			Metadata:   p.Metadata,
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list stripe prices: %w", err)
	}
	return out, nil
}

// FromStripeSubscription flattens a Stripe subscription. The first item's price is
// the plan; this app never creates multi-item subscriptions.
func FromStripeSubscription(sub *stripego.Subscription) (*Subscription, error) {
	if sub == nil || sub.ID == "" {
		return nil, errors.New("subscription missing id")
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return nil, fmt.Errorf("subscription %s has no price item", sub.ID)
	}

	item := sub.Items.Data[0]
	out := &Subscription{
		ID:                 sub.ID,
		ItemID:             item.ID,
		PriceID:            item.Price.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
		Metadata:           sub.Metadata,
	}
	if sub.Schedule != nil {
		out.ScheduleID = sub.Schedule.ID
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	return out, nil
}
