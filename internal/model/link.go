package model

import (
	"time"
)

// Link represents a short link record
type Link struct {
	ID          int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ShortCode   string     `gorm:"uniqueIndex;type:varchar(30);not null" json:"short_code"`
	OriginalURL string     `gorm:"type:varchar(2048);not null" json:"original_url"`
	OwnerID     *string    `gorm:"index;type:varchar(191)" json:"owner_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `gorm:"index" json:"expires_at,omitempty"`
	Clicks      uint64     `gorm:"not null;default:0" json:"clicks"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	IsActive    bool       `gorm:"not null;default:true;index" json:"is_active"`
}

// TableName specifies the table name for Link
func (Link) TableName() string {
	return "links"
}

// ExpiredAt reports whether the link is expired at the given instant.
// A link whose expiry equals now is already expired.
func (l *Link) ExpiredAt(now time.Time) bool {
	if l.ExpiresAt == nil {
		return false
	}
	return !now.Before(*l.ExpiresAt)
}

// OwnedBy reports whether owner created the link. Anonymous links have no owner.
func (l *Link) OwnedBy(owner string) bool {
	return owner != "" && l.OwnerID != nil && *l.OwnerID == owner
}

// Stats is the read-only view of a link returned by the stats endpoints
type Stats struct {
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Clicks      uint64     `json:"clicks"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	Expired     bool       `json:"expired"`
	IsActive    bool       `json:"is_active"`
}

// StatsAt builds the stats view with the expired flag computed against now
func (l *Link) StatsAt(now time.Time) Stats {
	return Stats{
		OriginalURL: l.OriginalURL,
		ShortCode:   l.ShortCode,
		CreatedAt:   l.CreatedAt,
		ExpiresAt:   l.ExpiresAt,
		Clicks:      l.Clicks,
		LastUsedAt:  l.LastUsedAt,
		Expired:     l.ExpiredAt(now),
		IsActive:    l.IsActive,
	}
}

// SearchResult is one entry of a search by original URL
type SearchResult struct {
	ShortCode string     `json:"short_code"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	Expired   bool       `json:"expired"`
}
