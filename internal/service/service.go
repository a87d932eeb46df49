package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"savdo/backend/internal/cart"
	"savdo/backend/internal/domain"
	"savdo/backend/internal/session"
	"savdo/backend/internal/store"
	"savdo/backend/internal/xid"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "service").Logger()

var (
	ErrTenantRequired = errors.New("store profile required")
	ErrAdminRequired  = errors.New("admin role required")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	sessions session.Store
	loc      *time.Location
	now      func() time.Time
}

func New(repo store.Repository, sessions session.Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		loc:      loc,
		now:      time.Now,
	}
}

// tenant returns the calling owner. Every catalog, cart and receipt use case
// runs inside the caller's profile.
func (s *Service) tenant(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.ProfileID < 1 {
		return domain.Actor{}, ErrTenantRequired
	}
	return actor, nil
}

func (s *Service) requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, ErrAdminRequired
	}
	return actor, nil
}

// storeErr passes domain errors through and classifies everything else as an
// unavailable backend.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, store.ErrDuplicateName),
		errors.Is(err, store.ErrDuplicateQRCode),
		errors.Is(err, store.ErrDuplicateUser),
		errors.Is(err, store.ErrStoreUnavailable),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", store.ErrStoreUnavailable, err)
	}
}

func (s *Service) logAudit(ctx context.Context, profileID int64, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ProfileID:     profileID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		logger.Warn().Err(err).Str("action", action).Str("entity", entityType+"/"+entityID).Msg("failed to write audit log")
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	day := domain.DayRange(s.now(), s.loc)
	if date != "" {
		day, err = domain.ParseDateRange(date, date, s.loc)
		if err != nil {
			return nil, err
		}
	}

	logs, err := s.repo.ListAuditLogs(ctx, actor.ProfileID, day, limit)
	return logs, storeErr(err)
}
