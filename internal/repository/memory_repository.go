package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Monthlyaway/shortlink-redirect/internal/model"
	"github.com/Monthlyaway/shortlink-redirect/internal/utils"
)

// MemoryRepository keeps links in process memory. It honours the same
// contract as LinkRepository, including the unique short code constraint.
type MemoryRepository struct {
	mu     sync.RWMutex
	ids    *utils.IDGenerator
	byCode map[string]*model.Link
}

// NewMemoryRepository creates an empty in-memory store
func NewMemoryRepository(ids *utils.IDGenerator) *MemoryRepository {
	return &MemoryRepository{
		ids:    ids,
		byCode: make(map[string]*model.Link),
	}
}

func (r *MemoryRepository) Insert(ctx context.Context, link *model.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCode[link.ShortCode]; ok {
		return ErrDuplicateKey
	}
	if link.ID == 0 {
		link.ID = r.ids.NextID()
	}
	stored := clone(link)
	r.byCode[link.ShortCode] = stored
	return nil
}

func (r *MemoryRepository) FindByCode(ctx context.Context, shortCode string) (*model.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.byCode[shortCode]
	if !ok {
		return nil, nil
	}
	return clone(link), nil
}

func (r *MemoryRepository) FindByURLAndOwner(ctx context.Context, originalURL, owner string) ([]model.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var links []model.Link
	for _, link := range r.byCode {
		if link.OriginalURL == originalURL && link.OwnedBy(owner) {
			links = append(links, *clone(link))
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links, nil
}

func (r *MemoryRepository) Update(ctx context.Context, link *model.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byCode[link.ShortCode]
	if !ok || stored.ID != link.ID {
		return ErrNotFound
	}
	stored.OriginalURL = link.OriginalURL
	stored.ExpiresAt = copyTime(link.ExpiresAt)
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, link *model.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byCode[link.ShortCode]
	if !ok || stored.ID != link.ID {
		return ErrNotFound
	}
	delete(r.byCode, link.ShortCode)
	return nil
}

func (r *MemoryRepository) IncrementClicks(ctx context.Context, shortCode string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byCode[shortCode]
	if !ok {
		return ErrNotFound
	}
	stored.Clicks++
	stored.LastUsedAt = &at
	return nil
}

func (r *MemoryRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, link := range r.byCode {
		if link.IsActive && link.ExpiredAt(now) {
			link.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) AllShortCodes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	return codes, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *MemoryRepository) Close() error {
	return nil
}

func clone(link *model.Link) *model.Link {
	c := *link
	c.OwnerID = copyString(link.OwnerID)
	c.ExpiresAt = copyTime(link.ExpiresAt)
	c.LastUsedAt = copyTime(link.LastUsedAt)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
