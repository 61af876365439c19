package service

import (
	"time"

	"github.com/Monthlyaway/shortlink-redirect/internal/apperr"
)

func (s *ServiceSuite) resolveTimes(code string, n int) {
	for i := 0; i < n; i++ {
		_, err := s.svc.Resolve(s.ctx, code)
		s.Require().NoError(err)
		s.clearCache(code)
	}
}

func (s *ServiceSuite) TestStatsByCode() {
	expiry := s.clock.Now().Add(time.Hour)
	link := s.create(CreateInput{OriginalURL: "https://example.com", Owner: "alice", ExpiresAt: &expiry})
	s.resolveTimes(link.ShortCode, 2)

	stats, err := s.svc.StatsByCode(s.ctx, link.ShortCode, "alice")
	s.Require().NoError(err)
	s.Equal(uint64(2), stats.Clicks)
	s.False(stats.Expired)
	s.True(stats.IsActive)

	s.clock.Advance(time.Hour)
	stats, err = s.svc.StatsByCode(s.ctx, link.ShortCode, "alice")
	s.Require().NoError(err)
	s.True(stats.Expired)

	_, err = s.svc.StatsByCode(s.ctx, link.ShortCode, "bob")
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *ServiceSuite) TestStatsByURLSortsByClicks() {
	first := s.create(CreateInput{OriginalURL: "https://example.com/x", Owner: "alice", CustomAlias: "first"})
	s.clock.Advance(time.Second)
	second := s.create(CreateInput{OriginalURL: "https://example.com/x", Owner: "alice", CustomAlias: "second"})
	s.clock.Advance(time.Second)
	third := s.create(CreateInput{OriginalURL: "https://example.com/x", Owner: "alice", CustomAlias: "third"})
	s.create(CreateInput{OriginalURL: "https://example.com/x", Owner: "bob", CustomAlias: "bobs"})

	s.resolveTimes(third.ShortCode, 3)
	s.resolveTimes(first.ShortCode, 1)
	s.resolveTimes(second.ShortCode, 1)

	stats, err := s.svc.StatsByURL(s.ctx, "  HTTPS://EXAMPLE.com/x", "alice")
	s.Require().NoError(err)
	s.Require().Len(stats, 3)
	s.Equal([]string{"third", "first", "second"}, []string{stats[0].ShortCode, stats[1].ShortCode, stats[2].ShortCode})

	_, err = s.svc.StatsByURL(s.ctx, "https://example.com/none", "alice")
	s.ErrorIs(err, apperr.ErrNotFound)
	_, err = s.svc.StatsByURL(s.ctx, "https://example.com/x", "")
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *ServiceSuite) TestSearchPutsLiveLinksFirst() {
	soon := s.clock.Now().Add(time.Minute)
	s.create(CreateInput{OriginalURL: "https://example.com/y", Owner: "alice", CustomAlias: "expiring", ExpiresAt: &soon})
	s.clock.Advance(time.Second)
	s.create(CreateInput{OriginalURL: "https://example.com/y", Owner: "alice", CustomAlias: "older"})
	s.clock.Advance(time.Second)
	s.create(CreateInput{OriginalURL: "https://example.com/y", Owner: "alice", CustomAlias: "newer"})
	s.clock.Advance(time.Hour)

	results, err := s.svc.Search(s.ctx, "https://example.com/y", "alice")
	s.Require().NoError(err)
	s.Require().Len(results, 3)
	s.Equal("older", results[0].ShortCode)
	s.Equal("newer", results[1].ShortCode)
	s.Equal("expiring", results[2].ShortCode)
	s.True(results[2].Expired)
	s.False(results[0].Expired)

	_, err = s.svc.Search(s.ctx, "https://example.com/y", "bob")
	s.ErrorIs(err, apperr.ErrNotFound)
}
