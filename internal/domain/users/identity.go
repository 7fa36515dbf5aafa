package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"mealplanner-app/internal/domain/subscription"
)

// ExternalIdentity is a user asserted by a managed auth provider.
type ExternalIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// IdentityVerifier turns a provider access token into an identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*ExternalIdentity, error)
}

var ErrIdentityIncomplete = errors.New("identity missing subject or email")

// FindOrCreateExternal resolves an identity to a local user. Lookup order:
// provider subject, then email (linking the subject), then a new verified user
// starting a trial of trialDays.
func FindOrCreateExternal(db *gorm.DB, id *ExternalIdentity, now time.Time, trialDays int) (User, bool, error) {
	if id == nil || id.Subject == "" || id.Email == "" {
		return User{}, false, ErrIdentityIncomplete
	}
	column, err := subjectColumn(id.Provider)
	if err != nil {
		return User{}, false, err
	}

	var user User
	if err := db.Where(column+" = ?", id.Subject).First(&user).Error; err == nil {
		return user, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, false, err
	}

	email := strings.ToLower(strings.TrimSpace(id.Email))
	if err := db.Where("email = ?", email).First(&user).Error; err == nil {
		sub := id.Subject
		updates := map[string]interface{}{column: sub, "is_verified": true}
		if err := db.Model(&User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return User{}, false, fmt.Errorf("link %s identity: %w", id.Provider, err)
		}
		user.IsVerified = true
		setSubject(&user, id.Provider, sub)
		return user, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, false, err
	}

	trialEnd := now.AddDate(0, 0, trialDays)
	user = User{
		Name:         id.Name,
		Email:        email,
		AuthProvider: id.Provider,
		Role:         RoleUser,
		IsVerified:   true,
		Tier:         subscription.TierFreeTrial,
		TrialStartAt: &now,
		TrialEndAt:   &trialEnd,
	}
	setSubject(&user, id.Provider, id.Subject)
	if err := db.Create(&user).Error; err != nil {
		return User{}, false, fmt.Errorf("create %s user: %w", id.Provider, err)
	}
	return user, true, nil
}

func subjectColumn(provider string) (string, error) {
	switch provider {
	case ProviderGoogle:
		return "google_sub", nil
	case ProviderSupabase:
		return "supabase_user_id", nil
	default:
		return "", fmt.Errorf("unsupported identity provider %q", provider)
	}
}

func setSubject(u *User, provider, sub string) {
	switch provider {
	case ProviderGoogle:
		u.GoogleSub = &sub
	case ProviderSupabase:
		u.SupabaseUserID = &sub
	}
}
