package profiles

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is a person planned for under one billing account.
// A profile is active until it is soft-deleted.
type Profile struct {
	ID                 string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID             uint           `gorm:"not null;index" json:"-"`
	Name               string         `gorm:"not null" json:"name"`
	DietaryPreferences []string       `gorm:"type:text;serializer:json" json:"dietary_preferences"`
	Allergies          []string       `gorm:"type:text;serializer:json" json:"allergies"`
	CalorieTarget      int            `json:"calorie_target"`
	IsPrimary          bool           `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

const (
	DefaultCalorieTarget = 2000
	MinCalorieTarget     = 1000
	MaxCalorieTarget     = 5000
)

// Normalize trims the name, lower-cases and de-duplicates the tag lists and
// clamps the calorie target into range.
func (p *Profile) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.DietaryPreferences = normalizeTags(p.DietaryPreferences)
	p.Allergies = normalizeTags(p.Allergies)

	switch {
	case p.CalorieTarget == 0:
		p.CalorieTarget = DefaultCalorieTarget
	case p.CalorieTarget < MinCalorieTarget:
		p.CalorieTarget = MinCalorieTarget
	case p.CalorieTarget > MaxCalorieTarget:
		p.CalorieTarget = MaxCalorieTarget
	}
}

func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
