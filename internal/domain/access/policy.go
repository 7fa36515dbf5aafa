package access

import (
	"time"

	"mealplanner-app/internal/domain/subscription"
	"mealplanner-app/internal/domain/users"
)

type Policy struct {
	State           AccessState
	Tier            subscription.Tier
	Capabilities    []string
	ProfileLimit    int
	GenerationQuota int
}

func ComputePolicy(now time.Time, u users.User) Policy {
	state := ComputeEffectiveAccessState(now, u)

	return Policy{
		State:           state,
		Tier:            u.Tier,
		Capabilities:    CapabilitiesFor(state, u.Tier),
		ProfileLimit:    u.ProfileLimit(),
		GenerationQuota: subscription.GenerationQuota(u.Tier),
	}
}

func (p Policy) Can(capability string) bool {
	return Has(p.Capabilities, capability)
}
