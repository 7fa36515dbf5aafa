package mealplans

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SlotBreakfast = "breakfast"
	SlotLunch     = "lunch"
	SlotDinner    = "dinner"
	SlotSnack     = "snack"
)

var Slots = []string{SlotBreakfast, SlotLunch, SlotDinner, SlotSnack}

type MealPlan struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	ProfileID string    `gorm:"type:varchar(36);not null;index" json:"profile_id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	Days      int       `json:"days"`
	Provider  string    `json:"provider"`

	Meals []Meal `gorm:"foreignKey:MealPlanID;references:ID;constraint:OnDelete:CASCADE" json:"meals,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (p *MealPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type Meal struct {
	ID          uint     `gorm:"primaryKey" json:"-"`
	MealPlanID  string   `gorm:"type:varchar(36);not null;index" json:"-"`
	Day         int      `gorm:"not null" json:"day"`
	Slot        string   `gorm:"type:varchar(16);not null" json:"slot"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Calories    int      `json:"calories"`
	Ingredients []string `gorm:"type:text;serializer:json" json:"ingredients"`
}

// TotalCalories sums the calories planned for one day (0-based).
func (p *MealPlan) TotalCalories(day int) int {
	total := 0
	for _, m := range p.Meals {
		if m.Day == day {
			total += m.Calories
		}
	}
	return total
}
