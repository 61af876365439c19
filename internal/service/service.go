package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/Monthlyaway/shortlink-redirect/internal/apperr"
	"github.com/Monthlyaway/shortlink-redirect/internal/filter"
	"github.com/Monthlyaway/shortlink-redirect/internal/model"
	"github.com/Monthlyaway/shortlink-redirect/internal/repository"
	"github.com/Monthlyaway/shortlink-redirect/internal/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LinkStore is the durable link store
type LinkStore interface {
	Insert(ctx context.Context, link *model.Link) error
	FindByCode(ctx context.Context, shortCode string) (*model.Link, error)
	FindByURLAndOwner(ctx context.Context, originalURL, owner string) ([]model.Link, error)
	Update(ctx context.Context, link *model.Link) error
	Delete(ctx context.Context, link *model.Link) error
	IncrementClicks(ctx context.Context, shortCode string, at time.Time) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	AllShortCodes(ctx context.Context) ([]string, error)
}

// LinkCache is the volatile short code to URL cache
type LinkCache interface {
	Get(ctx context.Context, shortCode string) (string, bool, error)
	SetWithTTL(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error
	Delete(ctx context.Context, shortCode string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

const (
	defaultCacheTTL     = 24 * time.Hour
	defaultStoreTimeout = 3 * time.Second
	invalidateTimeout   = 2 * time.Second
)

// Options tunes a LinkService
type Options struct {
	// BaseURL prefixes short codes when building short URLs
	BaseURL string
	// CacheTTL caps how long a resolved URL stays cached
	CacheTTL time.Duration
	// StoreTimeout bounds each store and cache call on the redirect path
	StoreTimeout time.Duration
	// Now overrides the clock, mainly for tests
	Now func() time.Time
	// GenerateCode overrides the random code source, mainly for tests
	GenerateCode func() (string, error)
}

// LinkService creates, resolves and reports on short links, keeping the
// cache coherent with the store
type LinkService struct {
	store        LinkStore
	cache        LinkCache
	codes        *filter.CodeFilter
	baseURL      string
	cacheTTL     time.Duration
	storeTimeout time.Duration
	now          func() time.Time
	generateCode func() (string, error)
	logger       *logrus.Entry
}

// NewLinkService wires a LinkService. codes may be nil to disable the bloom pre-check.
func NewLinkService(store LinkStore, cache LinkCache, codes *filter.CodeFilter, opts Options, log *logrus.Logger) *LinkService {
	s := &LinkService{
		store:        store,
		cache:        cache,
		codes:        codes,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		cacheTTL:     opts.CacheTTL,
		storeTimeout: opts.StoreTimeout,
		now:          opts.Now,
		generateCode: opts.GenerateCode,
		logger:       log.WithField("module", "service/link"),
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = defaultCacheTTL
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = defaultStoreTimeout
	}
	if s.now == nil {
		s.now = utcNow
	}
	if s.generateCode == nil {
		s.generateCode = utils.GenerateShortCode
	}
	return s
}

// InitFilter loads all existing short codes into the bloom filter
func (s *LinkService) InitFilter(ctx context.Context) error {
	if s.codes == nil {
		return nil
	}
	shortCodes, err := s.store.AllShortCodes(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load short codes")
	}
	s.codes.AddAll(shortCodes)
	s.logger.WithField("count", len(shortCodes)).Info("initialized bloom filter")
	return nil
}

// ShortURL builds the public short URL for a code
func (s *LinkService) ShortURL(shortCode string) string {
	return s.baseURL + "/" + shortCode
}

// Ping checks the store and cache when they support it
func (s *LinkService) Ping(ctx context.Context) error {
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "store")
		}
	}
	if p, ok := s.cache.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "cache")
		}
	}
	return nil
}

// ownedLink loads a link and hides it unless owner created it
func (s *LinkService) ownedLink(ctx context.Context, shortCode, owner string) (*model.Link, error) {
	link, err := s.store.FindByCode(ctx, shortCode)
	if err != nil {
		return nil, storeErr(err)
	}
	if link == nil || !link.OwnedBy(owner) {
		return nil, apperr.ErrNotFound
	}
	return link, nil
}

// invalidate drops the cache entry after a committed store write. It runs
// even if the caller's context is already cancelled, and failures are only logged.
func (s *LinkService) invalidate(ctx context.Context, shortCode string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	if err := s.cache.Delete(ctx, shortCode); err != nil {
		s.logger.WithError(err).WithField("short_code", shortCode).Warn("failed to invalidate cache entry")
	}
}

// withStoreTimeout bounds a call to the external stores
func (s *LinkService) withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// storeErr maps a store failure to the application taxonomy
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrNotFound
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.ErrStoreUnavailable.Wrap(err)
}

// NormalizeURL validates an absolute http(s) URL and returns it trimmed and lower-cased
func NormalizeURL(rawURL string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawURL))
	if normalized == "" {
		return "", apperr.ErrInvalidURL
	}

	parsed, err := url.ParseRequestURI(normalized)
	if err != nil {
		return "", apperr.ErrInvalidURL.Wrap(err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", apperr.ErrInvalidURL
	}
	if parsed.Host == "" {
		return "", apperr.ErrInvalidURL
	}
	return normalized, nil
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func normalizeTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := t.UTC().Truncate(time.Millisecond)
	return &n
}
