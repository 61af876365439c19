package service

import (
	"time"

	"github.com/Monthlyaway/shortlink-redirect/internal/apperr"
	"github.com/Monthlyaway/shortlink-redirect/internal/filter"
)

func (s *ServiceSuite) TestResolveCountsStoreHits() {
	link := s.create(CreateInput{OriginalURL: "https://example.com/a"})

	for i := 1; i <= 3; i++ {
		s.clock.Advance(time.Second)
		target, err := s.svc.Resolve(s.ctx, link.ShortCode)
		s.Require().NoError(err)
		s.Equal("https://example.com/a", target)

		stored := s.stored(link.ShortCode)
		s.Equal(uint64(i), stored.Clicks)
		s.Require().NotNil(stored.LastUsedAt)
		s.True(s.clock.Now().Equal(*stored.LastUsedAt))

		s.clearCache(link.ShortCode)
	}
}

func (s *ServiceSuite) TestResolveCacheHitHasNoSideEffects() {
	link := s.create(CreateInput{OriginalURL: "https://example.com/a"})

	_, err := s.svc.Resolve(s.ctx, link.ShortCode)
	s.Require().NoError(err)
	cached, ok, err := s.cache.Get(s.ctx, link.ShortCode)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("https://example.com/a", cached)

	for i := 0; i < 5; i++ {
		target, err := s.svc.Resolve(s.ctx, link.ShortCode)
		s.Require().NoError(err)
		s.Equal("https://example.com/a", target)
	}
	s.Equal(uint64(1), s.stored(link.ShortCode).Clicks)
}

func (s *ServiceSuite) TestResolveUnknown() {
	_, err := s.svc.Resolve(s.ctx, "nope42")
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *ServiceSuite) TestResolveExpiryBoundary() {
	expiry := s.clock.Now().Add(time.Minute)
	link := s.create(CreateInput{OriginalURL: "https://example.com", ExpiresAt: &expiry})

	s.clock.Advance(time.Minute - time.Millisecond)
	_, err := s.svc.Resolve(s.ctx, link.ShortCode)
	s.Require().NoError(err)
	s.clearCache(link.ShortCode)

	s.clock.Advance(time.Millisecond)
	_, err = s.svc.Resolve(s.ctx, link.ShortCode)
	s.ErrorIs(err, apperr.ErrExpired)
	s.Equal(apperr.KindNotFound, apperr.KindOf(err))
	s.Equal(uint64(1), s.stored(link.ShortCode).Clicks)
}

func (s *ServiceSuite) TestResolveExpiredWithoutSweep() {
	expiry := s.clock.Now().Add(time.Hour)
	link := s.create(CreateInput{OriginalURL: "https://example.com", ExpiresAt: &expiry})
	s.clock.Advance(2 * time.Hour)

	s.True(s.stored(link.ShortCode).IsActive)
	_, err := s.svc.Resolve(s.ctx, link.ShortCode)
	s.ErrorIs(err, apperr.ErrExpired)
}

func (s *ServiceSuite) TestResolveInactiveLink() {
	link := s.create(CreateInput{OriginalURL: "https://example.com"})
	stored := s.stored(link.ShortCode)
	stored.IsActive = false
	s.Require().NoError(s.store.Delete(s.ctx, stored))
	s.Require().NoError(s.store.Insert(s.ctx, stored))

	_, err := s.svc.Resolve(s.ctx, link.ShortCode)
	s.ErrorIs(err, apperr.ErrExpired)
}

func (s *ServiceSuite) TestCacheTTLCappedByExpiry() {
	expiry := s.clock.Now().Add(10 * time.Minute)
	link := s.create(CreateInput{OriginalURL: "https://example.com", ExpiresAt: &expiry})
	now := s.clock.Now()

	s.Equal(10*time.Minute, s.svc.cacheTTLFor(link, now))
	s.Equal(defaultCacheTTL, s.svc.cacheTTLFor(s.create(CreateInput{OriginalURL: "https://example.com"}), now))
	s.Zero(s.svc.cacheTTLFor(link, expiry.Add(-time.Microsecond)))
}

func (s *ServiceSuite) TestBloomFilterShortCircuits() {
	codes := filter.NewCodeFilter(1000, 0.001)
	s.svc = s.newService(Options{}, codes)

	link := s.create(CreateInput{OriginalURL: "https://example.com"})
	s.True(codes.MightContain(link.ShortCode))

	_, err := s.svc.Resolve(s.ctx, link.ShortCode)
	s.Require().NoError(err)

	_, err = s.svc.Resolve(s.ctx, "absent")
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *ServiceSuite) TestInitFilterLoadsExistingCodes() {
	link := s.create(CreateInput{OriginalURL: "https://example.com", CustomAlias: "loaded"})

	codes := filter.NewCodeFilter(1000, 0.001)
	s.svc = s.newService(Options{}, codes)
	s.Require().NoError(s.svc.InitFilter(s.ctx))
	s.True(codes.MightContain(link.ShortCode))
}
