package repository

import (
	"context"
	"errors"

	"github.com/fjod/butchershop/internal/domain"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository stores one delivery profile per user, keyed by user id.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	// SaveProfile merges the editable fields into the stored profile. Role is never written.
	SaveProfile(ctx context.Context, profile *domain.Profile) error
}
