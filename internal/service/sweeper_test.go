package service

import (
	"context"
	"time"

	"github.com/Monthlyaway/shortlink-redirect/internal/apperr"
)

func (s *ServiceSuite) TestSweepDeactivatesExpired() {
	expiry := s.clock.Now().Add(time.Hour)
	expiring := s.create(CreateInput{OriginalURL: "https://example.com", ExpiresAt: &expiry})
	forever := s.create(CreateInput{OriginalURL: "https://example.com"})

	sweeper := NewSweeper(s.store, s.clock.Now, testLogger())

	n, err := sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	s.clock.Advance(time.Hour)
	n, err = sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
	s.False(s.stored(expiring.ShortCode).IsActive)
	s.True(s.stored(forever.ShortCode).IsActive)

	_, err = s.svc.Resolve(s.ctx, expiring.ShortCode)
	s.ErrorIs(err, apperr.ErrExpired)

	n, err = sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *ServiceSuite) TestSweeperRunStopsOnCancel() {
	expiry := s.clock.Now().Add(time.Minute)
	link := s.create(CreateInput{OriginalURL: "https://example.com", ExpiresAt: &expiry})
	s.clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		NewSweeper(s.store, s.clock.Now, testLogger()).Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	s.Eventually(func() bool {
		return !s.stored(link.ShortCode).IsActive
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("sweeper did not stop")
	}
}
