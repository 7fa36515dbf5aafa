// Package stripetest provides an in-memory stripe.Gateway for handler tests.
package stripetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mealplanner-app/internal/infra/stripe"
)

type Gateway struct {
	mu sync.Mutex

	Subscriptions map[string]*stripe.Subscription
	Prices        []stripe.Price
	Checkout      map[string]*stripe.CheckoutSession
	Err           error
	ReleaseErr    error

	Swapped   []string
	Scheduled []string
	Released  []string
	Canceled  []string
	Customers []string
	Checkouts []stripe.CheckoutParams

	seq int
}

func New() *Gateway {
	return &Gateway{
		Subscriptions: map[string]*stripe.Subscription{},
		Checkout:      map[string]*stripe.CheckoutSession{},
	}
}

// AddSubscription registers an active subscription on priceID for one month from now.
func (g *Gateway) AddSubscription(id, priceID string) *stripe.Subscription {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().Truncate(time.Second)
	sub := &stripe.Subscription{
		ID:                 id,
		ItemID:             "si_" + id,
		PriceID:            priceID,
		Status:             "active",
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		Metadata:           map[string]string{},
	}
	g.Subscriptions[id] = sub
	return sub
}

func (g *Gateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_%d", prefix, g.seq)
}

func (g *Gateway) EnsureCustomer(ctx context.Context, email string, userID uint) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	g.Customers = append(g.Customers, email)
	return g.next("cus"), nil
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, p stripe.CheckoutParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	g.Checkouts = append(g.Checkouts, p)
	return "https://checkout.test/" + g.next("cs"), nil
}

func (g *Gateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.Checkout[id]
	if !ok {
		return nil, fmt.Errorf("checkout session %s not found", id)
	}
	return s, nil
}

func (g *Gateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	return "https://portal.test/" + customerID, nil
}

func (g *Gateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sub, ok := g.Subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("subscription %s not found", id)
	}
	cp := *sub
	return &cp, nil
}

func (g *Gateway) CancelSubscription(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Canceled = append(g.Canceled, id)
	return nil
}

func (g *Gateway) SwapPrice(ctx context.Context, sub *stripe.Subscription, priceID string) (*stripe.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	stored, ok := g.Subscriptions[sub.ID]
	if !ok {
		return nil, fmt.Errorf("subscription %s not found", sub.ID)
	}
	stored.PriceID = priceID
	g.Swapped = append(g.Swapped, priceID)
	cp := *stored
	return &cp, nil
}

func (g *Gateway) ScheduleSwap(ctx context.Context, sub *stripe.Subscription, priceID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	id := sub.ScheduleID
	if id == "" {
		id = g.next("sub_sched")
	}
	if stored, ok := g.Subscriptions[sub.ID]; ok {
		stored.ScheduleID = id
	}
	g.Scheduled = append(g.Scheduled, priceID)
	return id, nil
}

func (g *Gateway) ReleaseSchedule(ctx context.Context, scheduleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return g.Err
	}
	if g.ReleaseErr != nil {
		return g.ReleaseErr
	}
	g.Released = append(g.Released, scheduleID)
	return nil
}

func (g *Gateway) ListRecurringPrices(ctx context.Context, productID string) ([]stripe.Price, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	var out []stripe.Price
	for _, p := range g.Prices {
		if productID == "" || p.ProductID == productID {
			out = append(out, p)
		}
	}
	return out, nil
}

var _ stripe.Gateway = (*Gateway)(nil)
