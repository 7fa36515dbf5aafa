package subscription

type ChangeDirection string

const (
	DirectionNone      ChangeDirection = "none"
	DirectionUpgrade   ChangeDirection = "upgrade"
	DirectionDowngrade ChangeDirection = "downgrade"
)

// Direction classifies a requested change by tier order. It says nothing about
// whether the change is allowed; use IsUpgradeAllowed / IsDowngradeAllowed.
func Direction(from, to Tier) ChangeDirection {
	switch {
	case from.Rank() < to.Rank():
		return DirectionUpgrade
	case from.Rank() > to.Rank():
		return DirectionDowngrade
	default:
		return DirectionNone
	}
}

// GenerationQuota is the number of AI meal plans an account may generate per day.
func GenerationQuota(tier Tier) int {
	switch tier {
	case TierPro:
		return 10
	case TierPlus:
		return 20
	case TierFamily:
		return 40
	default:
		return 3
	}
}

// Feature flags exposed to clients.
const (
	CapGenerateMealPlans = "generate_meal_plans"
	CapSaveFavorites     = "save_favorites"
	CapShoppingList      = "shopping_list"
	CapMultipleProfiles  = "multiple_profiles"
	CapFamilySharing     = "family_sharing"
)

func Capabilities(tier Tier) []string {
	switch tier {
	case TierPro:
		return []string{CapGenerateMealPlans, CapSaveFavorites, CapShoppingList}
	case TierPlus:
		return []string{CapGenerateMealPlans, CapSaveFavorites, CapShoppingList, CapMultipleProfiles}
	case TierFamily:
		return []string{CapGenerateMealPlans, CapSaveFavorites, CapShoppingList, CapMultipleProfiles, CapFamilySharing}
	default:
		return []string{CapGenerateMealPlans}
	}
}
