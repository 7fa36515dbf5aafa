package profiles

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("profile not found")
	ErrLimitReached   = errors.New("profile limit reached for tier")
	ErrPrimaryProfile = errors.New("primary profile cannot be deleted")
	ErrNameRequired   = errors.New("profile name is required")
)

// CountActive counts the profiles of a user that are not soft-deleted.
func CountActive(db *gorm.DB, userID uint) (int64, error) {
	var n int64
	if err := db.Model(&Profile{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}

// CreateWithinLimit inserts p unless the user already holds limit active
// profiles. Count and insert share one transaction.
func CreateWithinLimit(db *gorm.DB, p *Profile, limit int) error {
	p.Normalize()
	if p.Name == "" {
		return ErrNameRequired
	}

	return db.Transaction(func(tx *gorm.DB) error {
		n, err := CountActive(tx, p.UserID)
		if err != nil {
			return err
		}
		if n >= int64(limit) {
			return ErrLimitReached
		}
		if n == 0 {
			p.IsPrimary = true
		}
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
}

func ListForUser(db *gorm.DB, userID uint) ([]Profile, error) {
	var out []Profile
	if err := db.Where("user_id = ?", userID).
		Order("is_primary DESC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

func GetForUser(db *gorm.DB, userID uint, id string) (*Profile, error) {
	var p Profile
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func DeleteForUser(db *gorm.DB, userID uint, id string) error {
	p, err := GetForUser(db, userID, id)
	if err != nil {
		return err
	}
	if p.IsPrimary {
		return ErrPrimaryProfile
	}
	if err := db.Delete(p).Error; err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// ProfilePatch carries the editable fields of a profile. Nil fields are left unchanged.
type ProfilePatch struct {
	Name               *string
	DietaryPreferences []string
	Allergies          []string
	CalorieTarget      *int
}

func UpdateForUser(db *gorm.DB, userID uint, id string, patch ProfilePatch) (*Profile, error) {
	p, err := GetForUser(db, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.DietaryPreferences != nil {
		p.DietaryPreferences = patch.DietaryPreferences
	}
	if patch.Allergies != nil {
		p.Allergies = patch.Allergies
	}
	if patch.CalorieTarget != nil {
		p.CalorieTarget = *patch.CalorieTarget
	}
	p.Normalize()
	if p.Name == "" {
		return nil, ErrNameRequired
	}
	if err := db.Save(p).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// EnsurePrimary gives a user with no active profiles a primary profile named name.
func EnsurePrimary(db *gorm.DB, userID uint, name string) error {
	if strings.TrimSpace(name) == "" {
		name = "Me"
	}
	return db.Transaction(func(tx *gorm.DB) error {
		n, err := CountActive(tx, userID)
		if err != nil || n > 0 {
			return err
		}
		p := &Profile{UserID: userID, Name: name, IsPrimary: true}
		p.Normalize()
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("create primary profile: %w", err)
		}
		return nil
	})
}
