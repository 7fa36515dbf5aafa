package subscription

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Tier is the billing tier attached to an account.
type Tier string

// Tier constants (single source of truth)
const (
	TierFreeTrial Tier = "free_trial"
	TierPro       Tier = "pro"
	TierPlus      Tier = "plus"
	TierFamily    Tier = "family"
)

var ErrInvalidTier = errors.New("invalid subscription tier")

// free_trial < pro < plus < family
var tierRank = map[Tier]int{
	TierFreeTrial: 0,
	TierPro:       1,
	TierPlus:      2,
	TierFamily:    3,
}

var tierLimits = map[Tier]int{
	TierFreeTrial: 1,
	TierPro:       1,
	TierPlus:      2,
	TierFamily:    4,
}

var upgradeEdges = map[Tier][]Tier{
	TierFreeTrial: {TierPro, TierPlus, TierFamily},
	TierPro:       {TierPlus, TierFamily},
	TierPlus:      {TierFamily},
	TierFamily:    {},
}

// Only single-step regressions. Nothing ever goes back to free_trial.
var downgradeEdges = map[Tier][]Tier{
	TierFamily: {TierPlus},
	TierPlus:   {TierPro},
}

// AllTiers returns every tier in ascending order.
func AllTiers() []Tier {
	return []Tier{TierFreeTrial, TierPro, TierPlus, TierFamily}
}

// ParseTier validates untrusted input against the enumeration.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return t, nil
}

func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// Rank is the position of t in the tier order. Unknown tiers rank -1.
func (t Tier) Rank() int {
	r, ok := tierRank[t]
	if !ok {
		return -1
	}
	return r
}

func (t Tier) String() string { return string(t) }

// Paid reports whether the tier is backed by a Stripe subscription.
func (t Tier) Paid() bool {
	return t.Valid() && t != TierFreeTrial
}

// TierLimit returns the maximum number of profiles allowed at tier.
func TierLimit(tier Tier) int {
	return tierLimits[tier]
}

// EffectiveLimit is the profile limit while a downgrade to pending is
// scheduled: the lower of the current and pending tier limits.
func EffectiveLimit(tier Tier, pending *Tier) int {
	limit := TierLimit(tier)
	if pending != nil && pending.Valid() {
		limit = min(limit, TierLimit(*pending))
	}
	return limit
}

// IsUpgradeAllowed reports whether from -> to is an edge of the upgrade graph.
func IsUpgradeAllowed(from, to Tier) bool {
	if from == to {
		return false
	}
	return slices.Contains(upgradeEdges[from], to)
}

// IsDowngradeAllowed reports whether from -> to is one of the permitted
// single-step downgrades (family -> plus, plus -> pro).
func IsDowngradeAllowed(from, to Tier) bool {
	if from == to {
		return false
	}
	return slices.Contains(downgradeEdges[from], to)
}

// UpgradeTargets lists the tiers reachable from `from` by an upgrade.
func UpgradeTargets(from Tier) []Tier {
	return slices.Clone(upgradeEdges[from])
}

// DowngradeTargets lists the tiers reachable from `from` by a downgrade.
func DowngradeTargets(from Tier) []Tier {
	return slices.Clone(downgradeEdges[from])
}
