package mealplans

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mealplanner-app/internal/domain/profiles"
)

const (
	DefaultDays = 7
	MaxDays     = 14
)

var (
	ErrNotFound      = errors.New("meal plan not found")
	ErrInvalidDays   = fmt.Errorf("days must be between 1 and %d", MaxDays)
	ErrQuotaExceeded = errors.New("daily meal plan generation quota exceeded")
	ErrAllergen      = errors.New("generated meal contains a listed allergen")
	ErrEmptyPlan     = errors.New("generated plan has no meals")
)

type GenerateRequest struct {
	Profile   profiles.Profile
	Days      int
	StartDate time.Time
}

type GeneratedMeal struct {
	Day         int      `json:"day"`
	Slot        string   `json:"slot"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Calories    int      `json:"calories"`
	Ingredients []string `json:"ingredients"`
}

type GeneratedPlan struct {
	Title    string
	Provider string
	Meals    []GeneratedMeal
}

// Generator produces meal plans for a profile.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GeneratedPlan, error)
}

// Quota counts generations per account within a window.
type Quota interface {
	Consume(ctx context.Context, key string, limit int) (used int64, allowed bool, err error)
	Remaining(ctx context.Context, key string, limit int) (int64, error)
}

// QuotaKey is the per-account key generations are counted under.
func QuotaKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// ContainsAllergen reports whether any ingredient or the meal name mentions one of the allergies.
func ContainsAllergen(m GeneratedMeal, allergies []string) bool {
	if len(allergies) == 0 {
		return false
	}
	haystack := strings.ToLower(m.Name + " " + strings.Join(m.Ingredients, " "))
	for _, a := range allergies {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" && strings.Contains(haystack, a) {
			return true
		}
	}
	return false
}

// Validate checks a generated plan against the request it answered.
func (g *GeneratedPlan) Validate(req GenerateRequest) error {
	if g == nil || len(g.Meals) == 0 {
		return ErrEmptyPlan
	}
	for _, m := range g.Meals {
		if m.Day < 0 || m.Day >= req.Days {
			return fmt.Errorf("meal %q has day %d outside plan of %d days", m.Name, m.Day, req.Days)
		}
		if !validSlot(m.Slot) {
			return fmt.Errorf("meal %q has unknown slot %q", m.Name, m.Slot)
		}
		if ContainsAllergen(m, req.Profile.Allergies) {
			return fmt.Errorf("%w: %s", ErrAllergen, m.Name)
		}
	}
	return nil
}

// ToPlan converts a validated generation result into a persistable plan.
func (g *GeneratedPlan) ToPlan(userID uint, req GenerateRequest) *MealPlan {
	plan := &MealPlan{
		UserID:    userID,
		ProfileID: req.Profile.ID,
		Title:     g.Title,
		StartDate: req.StartDate,
		Days:      req.Days,
		Provider:  g.Provider,
	}
	if plan.Title == "" {
		plan.Title = fmt.Sprintf("%d-day plan for %s", req.Days, req.Profile.Name)
	}
	for _, m := range g.Meals {
		plan.Meals = append(plan.Meals, Meal{
			Day:         m.Day,
			Slot:        m.Slot,
			Name:        m.Name,
			Description: m.Description,
			Calories:    m.Calories,
			Ingredients: m.Ingredients,
		})
	}
	return plan
}

// NormalizeDays applies the default and bounds to a requested plan length.
func NormalizeDays(days int) (int, error) {
	if days == 0 {
		return DefaultDays, nil
	}
	if days < 1 || days > MaxDays {
		return 0, ErrInvalidDays
	}
	return days, nil
}

func validSlot(s string) bool {
	for _, v := range Slots {
		if v == s {
			return true
		}
	}
	return false
}
