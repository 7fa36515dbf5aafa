package supabase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/supabase-community/supabase-go"

	"mealplanner-app/internal/domain/users"
)

// Verifier validates Supabase access tokens against the project's GoTrue API.
type Verifier struct {
	client *supabase.Client
	logger zerolog.Logger
}

func NewVerifier(url, anonKey string, logger zerolog.Logger) (*Verifier, error) {
	if url == "" || anonKey == "" {
		return nil, errors.New("supabase URL and key must be provided")
	}

	client, err := supabase.NewClient(url, anonKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	logger.Info().Str("url", url).Msg("supabase client initialized")
	return &Verifier{client: client, logger: logger}, nil
}

// Verify resolves token to the Supabase user it belongs to.
func (v *Verifier) Verify(ctx context.Context, token string) (*users.ExternalIdentity, error) {
	// Passing "Authorization" through client headers does not reach GoTrue; WithToken does.
	user, err := v.client.Auth.WithToken(token).GetUser()
	if err != nil {
		v.logger.Debug().Err(err).Msg("supabase token rejected")
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	name := ""
	if n, ok := user.UserMetadata["full_name"].(string); ok {
		name = n
	} else if n, ok := user.UserMetadata["name"].(string); ok {
		name = n
	}

	return &users.ExternalIdentity{
		Provider: users.ProviderSupabase,
		Subject:  user.ID.String(),
		Email:    user.Email,
		Name:     name,
	}, nil
}

var _ users.IdentityVerifier = (*Verifier)(nil)
