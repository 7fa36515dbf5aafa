package access

import "mealplanner-app/internal/domain/subscription"

const CapRead = "read"

func CapabilitiesFor(state AccessState, tier subscription.Tier) []string {
	if !state.CanWrite() {
		return []string{CapRead}
	}

	// Trial accounts get the free_trial feature set whatever the stored tier says.
	if state == AccessTrial {
		tier = subscription.TierFreeTrial
	}

	return append([]string{CapRead}, subscription.Capabilities(tier)...)
}

func Has(caps []string, want string) bool {
	for _, c := range caps {
		if c == want {
			return true
		}
	}
	return false
}
