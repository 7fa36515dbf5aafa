package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"slices"

	"mealplanner-app/internal/domain/mealplans"
)

const templateProviderName = "template"

type recipe struct {
	slot        string
	name        string
	description string
	calories    int
	ingredients []string
	tags        []string
}

// Diet tags a recipe must carry to satisfy a dietary preference.
var dietTags = map[string]string{
	"vegetarian":  "vegetarian",
	"vegan":       "vegan",
	"gluten-free": "gluten-free",
	"gluten free": "gluten-free",
	"dairy-free":  "dairy-free",
	"dairy free":  "dairy-free",
}

var catalogue = []recipe{
	{mealplans.SlotBreakfast, "Overnight oats", "Oats soaked in oat milk with berries and chia.", 420, []string{"oats", "oat milk", "berries", "chia seeds"}, []string{"vegetarian", "vegan", "dairy-free"}},
	{mealplans.SlotBreakfast, "Veggie scramble", "Eggs scrambled with spinach, peppers and feta.", 380, []string{"eggs", "spinach", "bell pepper", "feta"}, []string{"vegetarian", "gluten-free"}},
	{mealplans.SlotBreakfast, "Greek yogurt bowl", "Yogurt with honey, walnuts and sliced banana.", 350, []string{"greek yogurt", "honey", "walnuts", "banana"}, []string{"vegetarian", "gluten-free"}},
	{mealplans.SlotBreakfast, "Tofu breakfast tacos", "Corn tortillas with spiced tofu and salsa.", 410, []string{"tofu", "corn tortillas", "salsa", "avocado"}, []string{"vegetarian", "vegan", "gluten-free", "dairy-free"}},
	{mealplans.SlotBreakfast, "Peanut butter toast", "Wholegrain toast with peanut butter and apple.", 390, []string{"wholegrain bread", "peanut butter", "apple"}, []string{"vegetarian", "vegan", "dairy-free"}},

	{mealplans.SlotLunch, "Chickpea quinoa salad", "Quinoa, chickpeas, cucumber and lemon dressing.", 540, []string{"quinoa", "chickpeas", "cucumber", "lemon", "olive oil"}, []string{"vegetarian", "vegan", "gluten-free", "dairy-free"}},
	{mealplans.SlotLunch, "Chicken wrap", "Grilled chicken, lettuce and yogurt sauce in a wrap.", 610, []string{"chicken breast", "flour tortilla", "lettuce", "yogurt"}, nil},
	{mealplans.SlotLunch, "Lentil soup", "Red lentils simmered with carrot, cumin and tomato.", 480, []string{"red lentils", "carrot", "tomato", "cumin"}, []string{"vegetarian", "vegan", "gluten-free", "dairy-free"}},
	{mealplans.SlotLunch, "Tuna rice bowl", "Tuna, brown rice, edamame and sesame.", 590, []string{"tuna", "brown rice", "edamame", "sesame", "soy sauce"}, []string{"dairy-free"}},
	{mealplans.SlotLunch, "Caprese sandwich", "Tomato, mozzarella and basil on ciabatta.", 560, []string{"ciabatta", "mozzarella", "tomato", "basil"}, []string{"vegetarian"}},

	{mealplans.SlotDinner, "Salmon with potatoes", "Baked salmon, roasted potatoes and green beans.", 690, []string{"salmon", "potatoes", "green beans", "olive oil"}, []string{"gluten-free", "dairy-free"}},
	{mealplans.SlotDinner, "Vegetable curry", "Coconut curry with cauliflower, peas and rice.", 650, []string{"cauliflower", "peas", "coconut milk", "rice", "curry paste"}, []string{"vegetarian", "vegan", "gluten-free", "dairy-free"}},
	{mealplans.SlotDinner, "Turkey bolognese", "Wholewheat pasta with turkey and tomato sauce.", 720, []string{"wholewheat pasta", "ground turkey", "tomato", "onion"}, []string{"dairy-free"}},
	{mealplans.SlotDinner, "Black bean chili", "Beans, peppers and corn in a smoky chili.", 610, []string{"black beans", "bell pepper", "corn", "tomato", "paprika"}, []string{"vegetarian", "vegan", "gluten-free", "dairy-free"}},
	{mealplans.SlotDinner, "Shrimp stir fry", "Shrimp, broccoli and noodles with ginger.", 640, []string{"shrimp", "broccoli", "egg noodles", "ginger", "soy sauce"}, []string{"dairy-free"}},
	{mealplans.SlotDinner, "Mushroom risotto", "Arborio rice with mushrooms and parmesan.", 680, []string{"arborio rice", "mushrooms", "parmesan", "onion"}, []string{"vegetarian", "gluten-free"}},

	{mealplans.SlotSnack, "Hummus and carrots", "Carrot sticks with hummus.", 180, []string{"hummus", "carrot"}, []string{"vegetarian", "vegan", "gluten-free", "dairy-free"}},
	{mealplans.SlotSnack, "Apple and almonds", "One apple and a handful of almonds.", 220, []string{"apple", "almonds"}, []string{"vegetarian", "vegan", "gluten-free", "dairy-free"}},
	{mealplans.SlotSnack, "Cottage cheese cup", "Cottage cheese with pineapple.", 190, []string{"cottage cheese", "pineapple"}, []string{"vegetarian", "gluten-free"}},
}

// TemplateGenerator builds plans from a fixed recipe catalogue. Output depends
// only on the request, so the same profile and length give the same plan.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator { return &TemplateGenerator{} }

func (g *TemplateGenerator) Generate(ctx context.Context, req mealplans.GenerateRequest) (*mealplans.GeneratedPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	required := requiredTags(req.Profile.DietaryPreferences)
	seed := seedFor(req.Profile.ID)

	plan := &mealplans.GeneratedPlan{
		Title:    fmt.Sprintf("%d-day plan for %s", req.Days, req.Profile.Name),
		Provider: templateProviderName,
	}
	for _, slot := range mealplans.Slots {
		candidates := candidatesFor(slot, required, req.Profile.Allergies)
		if len(candidates) == 0 {
			continue
		}
		for day := 0; day < req.Days; day++ {
			r := candidates[(seed+day)%len(candidates)]
			plan.Meals = append(plan.Meals, mealplans.GeneratedMeal{
				Day:         day,
				Slot:        slot,
				Name:        r.name,
				Description: r.description,
				Calories:    scaleCalories(r.calories, req.Profile.CalorieTarget),
				Ingredients: slices.Clone(r.ingredients),
			})
		}
	}

	if len(plan.Meals) == 0 {
		return nil, mealplans.ErrEmptyPlan
	}
	sortMeals(plan.Meals)
	return plan, nil
}

func candidatesFor(slot string, required []string, allergies []string) []recipe {
	var out []recipe
	for _, r := range catalogue {
		if r.slot != slot {
			continue
		}
		if !hasAllTags(r.tags, required) {
			continue
		}
		meal := mealplans.GeneratedMeal{Name: r.name, Ingredients: r.ingredients}
		if mealplans.ContainsAllergen(meal, allergies) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func requiredTags(prefs []string) []string {
	var out []string
	for _, p := range prefs {
		if tag, ok := dietTags[p]; ok && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}

func hasAllTags(tags, required []string) bool {
	for _, r := range required {
		if !slices.Contains(tags, r) {
			return false
		}
	}
	return true
}

// The catalogue is written for a 2000 kcal day.
func scaleCalories(base, target int) int {
	if target <= 0 {
		return base
	}
	return base * target / 2000
}

func seedFor(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % 97)
}

func sortMeals(meals []mealplans.GeneratedMeal) {
	slotIndex := func(s string) int { return slices.Index(mealplans.Slots, s) }
	slices.SortStableFunc(meals, func(a, b mealplans.GeneratedMeal) int {
		if a.Day != b.Day {
			return a.Day - b.Day
		}
		return slotIndex(a.Slot) - slotIndex(b.Slot)
	})
}
