package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/store"
)

const (
	minUsernameLength = 4
	minPasswordLength = 6
)

func (s *Service) GetProfile(ctx context.Context) (domain.Profile, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	profile, err := s.repo.GetProfile(ctx, actor.ProfileID)
	if err != nil {
		return domain.Profile{}, storeErr(err)
	}
	return *profile, nil
}

// UpdateProfile edits the display fields an owner controls. Payment and the
// ready flag stay with the platform admin.
func (s *Service) UpdateProfile(ctx context.Context, req domain.ProfileUpdateRequest) (domain.Profile, error) {
	actor, err := s.tenant(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	existing, err := s.repo.GetProfile(ctx, actor.ProfileID)
	if err != nil {
		return domain.Profile{}, storeErr(err)
	}

	updated := *existing
	if req.Name != nil {
		if updated.Name, err = boundedField("name", *req.Name, 100); err != nil {
			return domain.Profile{}, err
		}
	}
	if req.Location != nil {
		if updated.Location, err = boundedField("location", *req.Location, 255); err != nil {
			return domain.Profile{}, err
		}
	}
	if req.Phone != nil {
		if updated.Phone, err = boundedField("phone", *req.Phone, 20); err != nil {
			return domain.Profile{}, err
		}
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}

	saved, err := s.repo.UpdateProfile(ctx, updated)
	if err != nil {
		return domain.Profile{}, storeErr(err)
	}
	s.logAudit(ctx, actor.ProfileID, "profile_update", "profile", strconv.FormatInt(saved.ID, 10), "")
	return *saved, nil
}

// CreateAccount registers an owner login together with its store profile.
func (s *Service) CreateAccount(ctx context.Context, req domain.AccountCreateRequest) (domain.Profile, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Profile{}, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if utf8.RuneCountInString(username) < minUsernameLength || strings.ContainsAny(username, " \t\r\n") {
		return domain.Profile{}, fmt.Errorf("%w: username must be at least %d characters without spaces", store.ErrInvalidInput, minUsernameLength)
	}
	if len(req.Password) < minPasswordLength {
		return domain.Profile{}, fmt.Errorf("%w: password must be at least %d characters", store.ErrInvalidInput, minPasswordLength)
	}
	if req.Payment < 0 {
		return domain.Profile{}, fmt.Errorf("%w: payment must not be negative", store.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.CreateAccount(ctx,
		domain.UserAccount{
			Username:  username,
			Password:  string(hash),
			Role:      domain.RoleOwner,
			Active:    true,
			CreatedAt: now,
		},
		domain.Profile{
			Username:    username,
			Name:        strings.TrimSpace(req.Name),
			Location:    strings.TrimSpace(req.Location),
			Phone:       strings.TrimSpace(req.Phone),
			Payment:     req.Payment,
			AddedTime:   now,
			Description: strings.TrimSpace(req.Description),
			Ready:       req.Ready,
		},
	)
	if err != nil {
		return domain.Profile{}, storeErr(err)
	}

	s.logAudit(ctx, created.ID, "account_create", "profile", strconv.FormatInt(created.ID, 10), "username="+username)
	return *created, nil
}

// EnsureAdmin creates the platform admin login when the store has no admin yet.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username string, password string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || len(password) < minPasswordLength {
		return false, fmt.Errorf("%w: admin username and a password of at least %d characters are required", store.ErrInvalidInput, minPasswordLength)
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return false, storeErr(err)
	}
	for _, user := range users {
		if user.Role == domain.RoleAdmin {
			return false, nil
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	err = s.repo.CreateUser(ctx, domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      domain.RoleAdmin,
		Active:    true,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return false, storeErr(err)
	}
	logger.Info().Str("username", username).Msg("created admin account")
	return true, nil
}

// SetProfileReady flips the subscription flag the ready gate checks.
func (s *Service) SetProfileReady(ctx context.Context, profileID int64, req domain.ProfileReadyRequest) (domain.Profile, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Profile{}, err
	}
	profile, err := s.repo.SetProfileReady(ctx, profileID, req.Ready)
	if err != nil {
		return domain.Profile{}, storeErr(err)
	}
	s.logAudit(ctx, profile.ID, "profile_ready", "profile", strconv.FormatInt(profile.ID, 10), "ready="+strconv.FormatBool(profile.Ready))
	return *profile, nil
}

func boundedField(field string, raw string, limit int) (string, error) {
	value := strings.TrimSpace(raw)
	if utf8.RuneCountInString(value) > limit {
		return "", fmt.Errorf("%w: %s must be at most %d characters", store.ErrInvalidInput, field, limit)
	}
	return value, nil
}
