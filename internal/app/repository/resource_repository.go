package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sifan077/ResourceHub/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrResourceNotFound signals that no live record matches the composite key.
	ErrResourceNotFound = errors.New("resource not found")
)

// ResourceRepository is the record store gateway. Implementations treat records
// whose expiry has passed as absent.
type ResourceRepository interface {
	Put(ctx context.Context, resource *model.Resource) error
	Get(ctx context.Context, id, location string) (*model.Resource, error)
	QueryByType(ctx context.Context, resourceType, locationPrefix string) ([]model.Resource, error)
	ScanByLocationPrefix(ctx context.Context, locationPrefix string) ([]model.Resource, error)
}

// ExpiringResourceRepository is a store without native TTL that needs expired
// rows removed by a sweeper.
type ExpiringResourceRepository interface {
	ResourceRepository
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type gormResourceRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormResourceRepository returns a GORM-backed ResourceRepository.
func NewGormResourceRepository(db *gorm.DB) ExpiringResourceRepository {
	return &gormResourceRepository{db: db, now: time.Now}
}

func (r *gormResourceRepository) Put(ctx context.Context, resource *model.Resource) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(resource).Error
}

func (r *gormResourceRepository) Get(ctx context.Context, id, location string) (*model.Resource, error) {
	var resource model.Resource
	err := r.live(ctx).
		Where("id = ? AND location = ?", id, location).
		First(&resource).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return &resource, nil
}

func (r *gormResourceRepository) QueryByType(ctx context.Context, resourceType, locationPrefix string) ([]model.Resource, error) {
	q := r.live(ctx).Where("type = ?", resourceType)
	if locationPrefix != "" {
		q = q.Where(`location LIKE ? ESCAPE '\'`, likePrefix(locationPrefix))
	}

	result := make([]model.Resource, 0)
	if err := q.Order("location ASC, id ASC").Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *gormResourceRepository) ScanByLocationPrefix(ctx context.Context, locationPrefix string) ([]model.Resource, error) {
	result := make([]model.Resource, 0)
	err := r.live(ctx).
		Where(`location LIKE ? ESCAPE '\'`, likePrefix(locationPrefix)).
		Order("location ASC, id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *gormResourceRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now.Unix()).
		Delete(&model.Resource{})
	return result.RowsAffected, result.Error
}

func (r *gormResourceRepository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Resource{}).
		Where("(expires_at IS NULL OR expires_at > ?)", r.now().Unix())
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix turns a literal prefix into a LIKE pattern.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
