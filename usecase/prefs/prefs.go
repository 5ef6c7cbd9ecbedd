// Package prefs manages per-user presentation preferences. The account
// record in the user store is the durable copy; the local cache mirrors
// it so reads survive a backend outage.
package prefs

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/internal/infrastructure/localcache"
	"github.com/taskdeck/backend/repository"
)

const defaultTheme = "light"

type UseCase struct {
	users  repository.UserRepository
	cache  *localcache.Store
	logger *zap.Logger
}

func New(users repository.UserRepository, cache *localcache.Store, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		cache:  cache,
		logger: logger,
	}
}

// Theme returns the user's theme, preferring the local mirror and
// falling back to the account record. An account with no stored
// preference reads as the default.
func (uc *UseCase) Theme(ctx context.Context, userID string) (string, error) {
	theme, err := uc.cache.Theme(userID)
	if err != nil {
		return "", err
	}
	if theme != "" {
		return theme, nil
	}

	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.Theme == "" {
		return defaultTheme, nil
	}

	if cacheErr := uc.cache.SetTheme(userID, user.Theme); cacheErr != nil {
		uc.logger.Warn("theme mirror write failed",
			zap.String("user_id", userID), zap.Error(cacheErr))
	}
	return user.Theme, nil
}

// SetTheme persists the theme on the account record and mirrors it into
// the local cache.
func (uc *UseCase) SetTheme(ctx context.Context, userID, theme string) error {
	if theme == "" {
		return domain.ErrInvalidPayload
	}
	if err := uc.users.UpdateTheme(ctx, userID, theme); err != nil {
		return err
	}
	return uc.cache.SetTheme(userID, theme)
}
