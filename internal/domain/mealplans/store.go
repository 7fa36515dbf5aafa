package mealplans

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

func Create(db *gorm.DB, plan *MealPlan) error {
	if err := db.Create(plan).Error; err != nil {
		return fmt.Errorf("create meal plan: %w", err)
	}
	return nil
}

func ListForUser(db *gorm.DB, userID uint, profileID string) ([]MealPlan, error) {
	q := db.Where("user_id = ?", userID)
	if profileID != "" {
		q = q.Where("profile_id = ?", profileID)
	}

	var out []MealPlan
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list meal plans: %w", err)
	}
	return out, nil
}

func GetForUser(db *gorm.DB, userID uint, id string) (*MealPlan, error) {
	var plan MealPlan
	err := db.Preload("Meals", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("day ASC, id ASC")
	}).Where("id = ? AND user_id = ?", id, userID).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meal plan: %w", err)
	}
	return &plan, nil
}

func DeleteForUser(db *gorm.DB, userID uint, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&MealPlan{})
		if res.Error != nil {
			return fmt.Errorf("delete meal plan: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("meal_plan_id = ?", id).Delete(&Meal{}).Error
	})
}
