package service

import (
	"sync"
	"testing"
	"time"

	"github.com/Monthlyaway/shortlink-redirect/internal/apperr"
	"github.com/stretchr/testify/require"
)

func requireKind(t *testing.T, err error, code string) {
	t.Helper()
	appErr, ok := apperr.As(err)
	require.True(t, ok, "expected application error, got %v", err)
	require.Equal(t, code, appErr.Code)
}

func (s *ServiceSuite) TestCreateGeneratedCode() {
	res, err := s.svc.Create(s.ctx, CreateInput{OriginalURL: " HTTPS://Example.com/A "})
	s.Require().NoError(err)

	s.Len(res.Link.ShortCode, 6)
	s.Equal("https://example.com/a", res.Link.OriginalURL)
	s.Equal("http://sho.rt/"+res.Link.ShortCode, res.ShortURL)
	s.Nil(res.Link.OwnerID)
	s.True(res.Link.IsActive)
	s.Equal(s.clock.Now(), res.Link.CreatedAt)
	s.NotZero(res.Link.ID)

	_, cached, _ := s.cache.Get(s.ctx, res.Link.ShortCode)
	s.False(cached, "create must not warm the cache")
}

func (s *ServiceSuite) TestCreateRecordsOwner() {
	link := s.create(CreateInput{OriginalURL: "https://example.com", Owner: "alice"})
	s.Require().NotNil(link.OwnerID)
	s.Equal("alice", *link.OwnerID)
}

func (s *ServiceSuite) TestCreateRejectsShortAlias() {
	_, err := s.svc.Create(s.ctx, CreateInput{OriginalURL: "https://example.com", CustomAlias: "ab"})
	s.ErrorIs(err, apperr.ErrInvalidAlias)
	s.Equal(apperr.KindValidation, apperr.KindOf(err))
}

func (s *ServiceSuite) TestCreateAliasTaken() {
	s.create(CreateInput{OriginalURL: "https://example.com/1", CustomAlias: "promo"})

	_, err := s.svc.Create(s.ctx, CreateInput{OriginalURL: "https://example.com/2", CustomAlias: "promo"})
	s.ErrorIs(err, apperr.ErrAliasTaken)
	s.Equal(apperr.KindConflict, apperr.KindOf(err))
	s.Equal("https://example.com/1", s.stored("promo").OriginalURL)
}

func (s *ServiceSuite) TestCreateRejectsPastAndPresentExpiry() {
	past := s.clock.Now().Add(-time.Hour)
	_, err := s.svc.Create(s.ctx, CreateInput{OriginalURL: "https://example.com", ExpiresAt: &past})
	s.ErrorIs(err, apperr.ErrInvalidExpiration)
	s.Equal(apperr.KindValidation, apperr.KindOf(err))

	now := s.clock.Now()
	_, err = s.svc.Create(s.ctx, CreateInput{OriginalURL: "https://example.com", ExpiresAt: &now})
	s.ErrorIs(err, apperr.ErrInvalidExpiration)
}

func (s *ServiceSuite) TestCreateValidatesURLBeforeAlias() {
	_, err := s.svc.Create(s.ctx, CreateInput{OriginalURL: "not a url", CustomAlias: "x"})
	s.ErrorIs(err, apperr.ErrInvalidURL)
}

func (s *ServiceSuite) TestCreateCodeSpaceExhausted() {
	s.create(CreateInput{OriginalURL: "https://example.com", CustomAlias: "AAAAAA"})

	calls := 0
	s.svc = s.newService(Options{GenerateCode: func() (string, error) {
		calls++
		return "AAAAAA", nil
	}})

	_, err := s.svc.Create(s.ctx, CreateInput{OriginalURL: "https://example.com/other"})
	s.ErrorIs(err, apperr.ErrCodeSpaceExhausted)
	s.Equal(maxGenerateAttempts, calls)
}

func (s *ServiceSuite) TestCreateRetriesGeneratedCollision() {
	s.create(CreateInput{OriginalURL: "https://example.com", CustomAlias: "AAAAAA"})

	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	s.svc = s.newService(Options{GenerateCode: func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}})

	link := s.create(CreateInput{OriginalURL: "https://example.com/other"})
	s.Equal("BBBBBB", link.ShortCode)
}

func (s *ServiceSuite) TestConcurrentSameAlias() {
	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Create(s.ctx, CreateInput{OriginalURL: "https://example.com", CustomAlias: "race"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperr.KindOf(err) == apperr.KindConflict {
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, succeeded)
	s.Equal(n-1, conflicts)
}

func (s *ServiceSuite) TestConcurrentGeneratedCodesAreUnique() {
	const n = 50
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = make(map[string]struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.svc.Create(s.ctx, CreateInput{OriginalURL: "https://example.com"})
			s.NoError(err)
			if err != nil {
				return
			}
			mu.Lock()
			codes[res.Link.ShortCode] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Len(codes, n)
}

func (s *ServiceSuite) TestUpdateInvalidatesCache() {
	link := s.create(CreateInput{OriginalURL: "https://example.com/old", Owner: "alice"})

	target, err := s.svc.Resolve(s.ctx, link.ShortCode)
	s.Require().NoError(err)
	s.Equal("https://example.com/old", target)

	stats, err := s.svc.Update(s.ctx, link.ShortCode, "alice", UpdateInput{OriginalURL: "https://example.com/new"})
	s.Require().NoError(err)
	s.Equal("https://example.com/new", stats.OriginalURL)
	s.Equal(uint64(1), stats.Clicks)

	target, err = s.svc.Resolve(s.ctx, link.ShortCode)
	s.Require().NoError(err)
	s.Equal("https://example.com/new", target)
	s.Equal(1, s.cache.deletes[link.ShortCode])
}

func (s *ServiceSuite) TestUpdateSetsAndClearsExpiry() {
	link := s.create(CreateInput{OriginalURL: "https://example.com", Owner: "alice"})

	later := s.clock.Now().Add(48 * time.Hour)
	stats, err := s.svc.Update(s.ctx, link.ShortCode, "alice", UpdateInput{OriginalURL: "https://example.com", ExpiresAt: &later})
	s.Require().NoError(err)
	s.Require().NotNil(stats.ExpiresAt)
	s.True(later.Equal(*stats.ExpiresAt))

	stats, err = s.svc.Update(s.ctx, link.ShortCode, "alice", UpdateInput{OriginalURL: "https://example.com"})
	s.Require().NoError(err)
	s.Nil(stats.ExpiresAt)
	s.Nil(s.stored(link.ShortCode).ExpiresAt)
}

func (s *ServiceSuite) TestUpdateRejections() {
	expiry := s.clock.Now().Add(time.Hour)
	link := s.create(CreateInput{OriginalURL: "https://example.com", Owner: "alice", ExpiresAt: &expiry})

	_, err := s.svc.Update(s.ctx, link.ShortCode, "bob", UpdateInput{OriginalURL: "https://example.com/x"})
	s.ErrorIs(err, apperr.ErrNotFound)

	_, err = s.svc.Update(s.ctx, "missing", "alice", UpdateInput{OriginalURL: "https://example.com/x"})
	s.ErrorIs(err, apperr.ErrNotFound)

	_, err = s.svc.Update(s.ctx, link.ShortCode, "alice", UpdateInput{OriginalURL: "bad"})
	s.ErrorIs(err, apperr.ErrInvalidURL)

	past := s.clock.Now().Add(-time.Minute)
	_, err = s.svc.Update(s.ctx, link.ShortCode, "alice", UpdateInput{OriginalURL: "https://example.com", ExpiresAt: &past})
	s.ErrorIs(err, apperr.ErrInvalidExpiration)

	s.clock.Advance(2 * time.Hour)
	_, err = s.svc.Update(s.ctx, link.ShortCode, "alice", UpdateInput{OriginalURL: "https://example.com/x"})
	s.ErrorIs(err, apperr.ErrAlreadyExpired)
	s.Equal(apperr.KindValidation, apperr.KindOf(err))
}

func (s *ServiceSuite) TestAnonymousLinksCannotBeManaged() {
	link := s.create(CreateInput{OriginalURL: "https://example.com"})

	_, err := s.svc.Update(s.ctx, link.ShortCode, "", UpdateInput{OriginalURL: "https://example.com/x"})
	s.ErrorIs(err, apperr.ErrNotFound)
	s.ErrorIs(s.svc.Delete(s.ctx, link.ShortCode, "alice"), apperr.ErrNotFound)
	_, err = s.svc.StatsByCode(s.ctx, link.ShortCode, "alice")
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *ServiceSuite) TestDelete() {
	link := s.create(CreateInput{OriginalURL: "https://example.com", Owner: "alice"})
	_, err := s.svc.Resolve(s.ctx, link.ShortCode)
	s.Require().NoError(err)

	s.ErrorIs(s.svc.Delete(s.ctx, link.ShortCode, "bob"), apperr.ErrNotFound)
	s.Require().NoError(s.svc.Delete(s.ctx, link.ShortCode, "alice"))

	_, err = s.svc.Resolve(s.ctx, link.ShortCode)
	s.ErrorIs(err, apperr.ErrNotFound)
	s.ErrorIs(s.svc.Delete(s.ctx, link.ShortCode, "alice"), apperr.ErrNotFound)
}

func (s *ServiceSuite) TestInvalidateIsIdempotent() {
	s.svc.invalidate(s.ctx, "never-cached")
	s.svc.invalidate(s.ctx, "never-cached")
	s.Equal(2, s.cache.deletes["never-cached"])
}
