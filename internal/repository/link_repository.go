package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Monthlyaway/shortlink-redirect/internal/model"
	"github.com/Monthlyaway/shortlink-redirect/internal/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LinkRepository persists links in a relational database through gorm
type LinkRepository struct {
	db     *gorm.DB
	ids    *utils.IDGenerator
	logger *logrus.Entry
}

// NewMySQLRepository connects to MySQL, sizes the pool and migrates the links table
func NewMySQLRepository(dsn string, maxIdleConns, maxOpenConns int, ids *utils.IDGenerator, log *logrus.Logger) (*LinkRepository, error) {
	repo, err := open(mysql.Open(dsn), ids, log)
	if err != nil {
		return nil, err
	}

	sqlDB, err := repo.db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database instance")
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return repo, nil
}

// NewSQLiteRepository opens (or creates) a SQLite database at path.
// Use "file::memory:?cache=shared" for a throwaway database.
func NewSQLiteRepository(path string, ids *utils.IDGenerator, log *logrus.Logger) (*LinkRepository, error) {
	repo, err := open(sqlite.Open(path), ids, log)
	if err != nil {
		return nil, err
	}

	// sqlite serialises writers; a single connection avoids SQLITE_BUSY under load
	sqlDB, err := repo.db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database instance")
	}
	sqlDB.SetMaxOpenConns(1)

	return repo, nil
}

func open(dialector gorm.Dialector, ids *utils.IDGenerator, log *logrus.Logger) (*LinkRepository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.AutoMigrate(&model.Link{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return &LinkRepository{
		db:     db,
		ids:    ids,
		logger: log.WithField("module", "repository/link"),
	}, nil
}

// Insert stores a new link, assigning its id
func (r *LinkRepository) Insert(ctx context.Context, link *model.Link) error {
	if link.ID == 0 {
		link.ID = r.ids.NextID()
	}
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateKey
		}
		r.logger.WithError(err).Errorf("failed to create link %s", link.ShortCode)
		return errors.Wrapf(err, "failed to create link %s", link.ShortCode)
	}
	return nil
}

// FindByCode returns the link with the given short code, or nil when absent
func (r *LinkRepository) FindByCode(ctx context.Context, shortCode string) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to get link %s", shortCode)
	}
	return &link, nil
}

// FindByURLAndOwner returns the owner's links for originalURL in insertion order
func (r *LinkRepository) FindByURLAndOwner(ctx context.Context, originalURL, owner string) ([]model.Link, error) {
	var links []model.Link
	if err := r.db.WithContext(ctx).
		Where("original_url = ? AND owner_id = ?", originalURL, owner).
		Order("id ASC").
		Find(&links).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find links by url")
	}
	return links, nil
}

// Update writes the mutable target fields only, leaving counters untouched
func (r *LinkRepository) Update(ctx context.Context, link *model.Link) error {
	res := r.db.WithContext(ctx).Model(&model.Link{}).
		Where("id = ?", link.ID).
		Updates(map[string]any{
			"original_url": link.OriginalURL,
			"expires_at":   link.ExpiresAt,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to update link %s", link.ShortCode)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the link row
func (r *LinkRepository) Delete(ctx context.Context, link *model.Link) error {
	res := r.db.WithContext(ctx).Where("id = ?", link.ID).Delete(&model.Link{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to delete link %s", link.ShortCode)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementClicks bumps the click counter and last use time in one statement
func (r *LinkRepository) IncrementClicks(ctx context.Context, shortCode string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Link{}).
		Where("short_code = ?", shortCode).
		UpdateColumns(map[string]any{
			"clicks":       gorm.Expr("clicks + ?", 1),
			"last_used_at": at,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to increment clicks for %s", shortCode)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateExpired marks every active link whose expiry is at or before now as inactive
func (r *LinkRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Link{}).
			Where("expires_at IS NOT NULL AND expires_at <= ? AND is_active = ?", now, true).
			Update("is_active", false)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to deactivate expired links")
	}
	return affected, nil
}

// AllShortCodes retrieves every short code in the table
func (r *LinkRepository) AllShortCodes(ctx context.Context) ([]string, error) {
	var shortCodes []string
	if err := r.db.WithContext(ctx).Model(&model.Link{}).
		Pluck("short_code", &shortCodes).Error; err != nil {
		return nil, errors.Wrap(err, "failed to get all short codes")
	}
	return shortCodes, nil
}

// Ping checks the database connection
func (r *LinkRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get database instance")
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (r *LinkRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isDuplicate covers drivers that do not implement gorm's error translation
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
