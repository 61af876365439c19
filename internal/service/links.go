package service

import (
	"context"
	"time"

	"github.com/Monthlyaway/shortlink-redirect/internal/apperr"
	"github.com/Monthlyaway/shortlink-redirect/internal/model"
	"github.com/Monthlyaway/shortlink-redirect/internal/repository"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CreateInput describes a shorten request
type CreateInput struct {
	OriginalURL string
	CustomAlias string
	ExpiresAt   *time.Time
	// Owner is empty for anonymous links
	Owner string
}

// CreateResult is a newly stored link and its public URL
type CreateResult struct {
	Link     *model.Link
	ShortURL string
}

// UpdateInput replaces the target and expiry of a link. A nil ExpiresAt clears the expiry.
type UpdateInput struct {
	OriginalURL string
	ExpiresAt   *time.Time
}

// Create stores a new short link
func (s *LinkService) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	originalURL, err := NormalizeURL(in.OriginalURL)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := normalizeTime(in.ExpiresAt)
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, apperr.ErrInvalidExpiration
	}

	shortCode, err := s.Allocate(ctx, in.CustomAlias)
	if err != nil {
		return nil, err
	}

	link := &model.Link{
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
		IsActive:    true,
	}
	if in.Owner != "" {
		owner := in.Owner
		link.OwnerID = &owner
	}

	if err := s.store.Insert(ctx, link); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// lost the race between the availability check and the insert
			if in.CustomAlias != "" {
				return nil, apperr.ErrAliasTaken.Wrap(err)
			}
			return nil, apperr.ErrDuplicateCode.Wrap(err)
		}
		return nil, storeErr(err)
	}

	if s.codes != nil {
		s.codes.Add(shortCode)
	}

	s.logger.WithFields(logrus.Fields{
		"short_code": shortCode,
		"anonymous":  link.OwnerID == nil,
	}).Info("short link created")

	return &CreateResult{Link: link, ShortURL: s.ShortURL(shortCode)}, nil
}

// Update changes the target URL and expiry of an owned link, then invalidates its cache entry
func (s *LinkService) Update(ctx context.Context, shortCode, owner string, in UpdateInput) (*model.Stats, error) {
	originalURL, err := NormalizeURL(in.OriginalURL)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := normalizeTime(in.ExpiresAt)
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, apperr.ErrInvalidExpiration
	}

	link, err := s.ownedLink(ctx, shortCode, owner)
	if err != nil {
		return nil, err
	}
	if link.ExpiredAt(now) {
		return nil, apperr.ErrAlreadyExpired
	}

	link.OriginalURL = originalURL
	link.ExpiresAt = expiresAt
	if err := s.store.Update(ctx, link); err != nil {
		return nil, storeErr(err)
	}
	s.invalidate(ctx, shortCode)

	stats := link.StatsAt(now)
	return &stats, nil
}

// Delete removes an owned link, then invalidates its cache entry
func (s *LinkService) Delete(ctx context.Context, shortCode, owner string) error {
	link, err := s.ownedLink(ctx, shortCode, owner)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, link); err != nil {
		return storeErr(err)
	}
	s.invalidate(ctx, shortCode)

	s.logger.WithField("short_code", shortCode).Info("short link deleted")
	return nil
}
