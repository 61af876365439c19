package service

import (
	"context"
	"sort"
	"strings"

	"github.com/Monthlyaway/shortlink-redirect/internal/apperr"
	"github.com/Monthlyaway/shortlink-redirect/internal/model"
)

// StatsByCode reports on one owned link
func (s *LinkService) StatsByCode(ctx context.Context, shortCode, owner string) (*model.Stats, error) {
	link, err := s.ownedLink(ctx, shortCode, owner)
	if err != nil {
		return nil, err
	}
	stats := link.StatsAt(s.now())
	return &stats, nil
}

// StatsByURL reports on every owned link pointing at originalURL, most
// clicked first. Equal click counts keep creation order.
func (s *LinkService) StatsByURL(ctx context.Context, originalURL, owner string) ([]model.Stats, error) {
	links, err := s.ownedLinksByURL(ctx, originalURL, owner)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stats := make([]model.Stats, 0, len(links))
	for i := range links {
		stats = append(stats, links[i].StatsAt(now))
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Clicks > stats[j].Clicks
	})
	return stats, nil
}

// Search lists owned links for originalURL: live links first, each group oldest first
func (s *LinkService) Search(ctx context.Context, originalURL, owner string) ([]model.SearchResult, error) {
	links, err := s.ownedLinksByURL(ctx, originalURL, owner)
	if err != nil {
		return nil, err
	}

	now := s.now()
	results := make([]model.SearchResult, 0, len(links))
	for i := range links {
		results = append(results, model.SearchResult{
			ShortCode: links[i].ShortCode,
			CreatedAt: links[i].CreatedAt,
			ExpiresAt: links[i].ExpiresAt,
			Expired:   links[i].ExpiredAt(now),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Expired != results[j].Expired {
			return !results[i].Expired
		}
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results, nil
}

func (s *LinkService) ownedLinksByURL(ctx context.Context, originalURL, owner string) ([]model.Link, error) {
	if owner == "" {
		return nil, apperr.ErrNotFound
	}
	lookup := strings.ToLower(strings.TrimSpace(originalURL))
	links, err := s.store.FindByURLAndOwner(ctx, lookup, owner)
	if err != nil {
		return nil, storeErr(err)
	}
	if len(links) == 0 {
		return nil, apperr.ErrNotFound
	}
	return links, nil
}
