package httpapi

import (
	"context"
	"errors"
	"fmt"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/store"
)

var ErrPaymentRequired = errors.New("payment required: this store's subscription is not active")

// Gate decides whether an authenticated actor may use the API at all.
type Gate interface {
	Check(ctx context.Context, actor domain.Actor) error
}

type ProfileReader interface {
	GetProfile(ctx context.Context, profileID int64) (*domain.Profile, error)
}

// ReadyGate admits admins and owners whose profile is marked ready.
type ReadyGate struct {
	profiles ProfileReader
}

func NewReadyGate(profiles ProfileReader) *ReadyGate {
	return &ReadyGate{profiles: profiles}
}

func (g *ReadyGate) Check(ctx context.Context, actor domain.Actor) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	if actor.ProfileID < 1 {
		return ErrPaymentRequired
	}

	profile, err := g.profiles.GetProfile(ctx, actor.ProfileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPaymentRequired
		}
		return fmt.Errorf("%w: %w", store.ErrStoreUnavailable, err)
	}
	if !profile.Ready {
		return ErrPaymentRequired
	}
	return nil
}
