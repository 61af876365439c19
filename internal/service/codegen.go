package service

import (
	"context"

	"github.com/Monthlyaway/shortlink-redirect/internal/apperr"
	"github.com/Monthlyaway/shortlink-redirect/internal/utils"
	"github.com/pkg/errors"
)

const maxGenerateAttempts = 5

// Allocate returns a short code for a new link. A custom alias is validated
// and checked for prior use; otherwise a random code is generated, retrying
// on collision. The check is advisory: the store's unique index decides at insert.
func (s *LinkService) Allocate(ctx context.Context, customAlias string) (string, error) {
	if customAlias != "" {
		if !utils.ValidAlias(customAlias) {
			return "", apperr.ErrInvalidAlias
		}
		existing, err := s.store.FindByCode(ctx, customAlias)
		if err != nil {
			return "", storeErr(err)
		}
		if existing != nil {
			return "", apperr.ErrAliasTaken
		}
		return customAlias, nil
	}

	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return "", errors.Wrap(err, "failed to generate short code")
		}

		existing, err := s.store.FindByCode(ctx, code)
		if err != nil {
			return "", storeErr(err)
		}
		if existing == nil {
			return code, nil
		}
		s.logger.WithField("attempt", attempt).Debug("short code collision, retrying")
	}
	return "", apperr.ErrCodeSpaceExhausted
}
