package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/parting-gifts/internal/logging"
	"github.com/parting-gifts/internal/storage"
)

// ErrSelfFollow is returned when a user tries to follow themselves.
var ErrSelfFollow = errors.New("cannot follow yourself")

// FollowStore is the persistence surface SocialService needs.
type FollowStore interface {
	Follow(ctx context.Context, followerID, followeeID int) error
	Unfollow(ctx context.Context, followerID, followeeID int) error
	Following(ctx context.Context, userID int) ([]string, error)
	Followers(ctx context.Context, userID int) ([]string, error)
	Mutuals(ctx context.Context, userID int) ([]string, error)
	Discover(ctx context.Context, userID, limit int) ([]string, error)
	Search(ctx context.Context, userID int, q string) ([]string, error)
}

// DiscoverCache caches per-user discover lists.
type DiscoverCache interface {
	GetDiscover(ctx context.Context, username string) ([]string, error)
	SetDiscover(ctx context.Context, username string, users []string) error
	InvalidateDiscover(ctx context.Context, username string) error
}

const discoverLimit = 50

// SocialService handles the follower graph
type SocialService struct {
	follows FollowStore
	users   UserStore
	cache   DiscoverCache
	logger  *logging.Logger
}

// NewSocialService creates a new social service
func NewSocialService(follows FollowStore, users UserStore, cache DiscoverCache) *SocialService {
	return &SocialService{
		follows: follows,
		users:   users,
		cache:   cache,
		logger:  logging.GetGlobalLogger().WithField("service", "social"),
	}
}

// Followers returns the usernames that follow the given user.
func (s *SocialService) Followers(ctx context.Context, username string) ([]string, error) {
	userID, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.follows.Followers(ctx, userID)
}

// Following returns the usernames the given user follows.
func (s *SocialService) Following(ctx context.Context, username string) ([]string, error) {
	userID, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.follows.Following(ctx, userID)
}

// Discover returns visible users the given user does not follow yet.
// Results are cached briefly; a follow or unfollow invalidates the cache.
func (s *SocialService) Discover(ctx context.Context, username string) ([]string, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetDiscover(ctx, username); err == nil {
			return cached, nil
		}
	}

	userID, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}
	users, err := s.follows.Discover(ctx, userID, discoverLimit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetDiscover(ctx, username, users); err != nil {
			s.logger.WithError(err).Warn("failed to cache discover list")
		}
	}
	return users, nil
}

// Search returns visible users whose name contains the query string.
func (s *SocialService) Search(ctx context.Context, username, query string) ([]string, error) {
	userID, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.follows.Search(ctx, userID, query)
}

// Follow adds a follow edge from username to friendUsername.
func (s *SocialService) Follow(ctx context.Context, username, friendUsername string) error {
	if username == friendUsername {
		return ErrSelfFollow
	}
	followerID, err := s.resolve(ctx, username)
	if err != nil {
		return err
	}
	followeeID, err := s.resolve(ctx, friendUsername)
	if err != nil {
		return err
	}
	if err := s.follows.Follow(ctx, followerID, followeeID); err != nil {
		return fmt.Errorf("failed to follow: %w", err)
	}
	s.invalidateDiscover(ctx, username)
	return nil
}

// Unfollow removes a follow edge. Unfollowing a user that was never
// followed is a no-op.
func (s *SocialService) Unfollow(ctx context.Context, username, friendUsername string) error {
	followerID, err := s.resolve(ctx, username)
	if err != nil {
		return err
	}
	followeeID, err := s.resolve(ctx, friendUsername)
	if err != nil {
		return err
	}
	if err := s.follows.Unfollow(ctx, followerID, followeeID); err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}
	s.invalidateDiscover(ctx, username)
	return nil
}

// EligibleForMessaging returns the users that can message each other with
// the given user: the ones with a follow edge in both directions.
func (s *SocialService) EligibleForMessaging(ctx context.Context, username string) ([]string, error) {
	userID, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.follows.Mutuals(ctx, userID)
}

func (s *SocialService) invalidateDiscover(ctx context.Context, username string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDiscover(ctx, username); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate discover cache")
	}
}

func (s *SocialService) resolve(ctx context.Context, username string) (int, error) {
	userID, err := s.users.IDByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to resolve user: %w", err)
	}
	return userID, nil
}
