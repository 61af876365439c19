package service

import (
	"context"
	"time"

	"github.com/Monthlyaway/shortlink-redirect/internal/apperr"
	"github.com/Monthlyaway/shortlink-redirect/internal/model"
	"github.com/Monthlyaway/shortlink-redirect/internal/repository"
	"github.com/pkg/errors"
)

// Resolve returns the target URL for a short code.
//
// A cache hit is returned as is, without expiry checks or click accounting.
// On a miss the store is consulted; a live link repopulates the cache and
// has its click counter bumped atomically.
func (s *LinkService) Resolve(ctx context.Context, shortCode string) (string, error) {
	ctx, cancel := s.withStoreTimeout(ctx)
	defer cancel()

	cached, ok, err := s.cache.Get(ctx, shortCode)
	if err != nil {
		s.logger.WithError(err).WithField("short_code", shortCode).Warn("cache lookup failed, falling back to store")
	} else if ok {
		return cached, nil
	}

	if s.codes != nil && !s.codes.MightContain(shortCode) {
		return "", apperr.ErrNotFound
	}

	link, err := s.store.FindByCode(ctx, shortCode)
	if err != nil {
		return "", storeErr(err)
	}
	if link == nil {
		return "", apperr.ErrNotFound
	}

	now := s.now()
	if !link.IsActive || link.ExpiredAt(now) {
		return "", apperr.ErrExpired
	}

	if ttl := s.cacheTTLFor(link, now); ttl > 0 {
		if err := s.cache.SetWithTTL(ctx, shortCode, link.OriginalURL, ttl); err != nil {
			s.logger.WithError(err).WithField("short_code", shortCode).Warn("failed to populate cache")
		}
	}

	if err := s.store.IncrementClicks(ctx, shortCode, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// deleted between lookup and increment; drop what we just cached
			s.invalidate(ctx, shortCode)
			return "", apperr.ErrNotFound
		}
		return "", storeErr(err)
	}

	return link.OriginalURL, nil
}

// cacheTTLFor never lets a cache entry outlive the link's own expiry
func (s *LinkService) cacheTTLFor(link *model.Link, now time.Time) time.Duration {
	ttl := s.cacheTTL
	if link.ExpiresAt != nil {
		if remaining := link.ExpiresAt.Sub(now); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl < time.Millisecond {
		return 0
	}
	return ttl
}
