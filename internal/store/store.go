// Package store is the gorm-backed persistence layer for the portfolio models.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/aTrapDeer/portfolio-api/internal/models"
)

// ErrNotFound is returned when no row matches the requested identifier.
var ErrNotFound = errors.New("record not found")

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// Scope narrows a query, e.g. a filter on one column.
type Scope = func(*gorm.DB) *gorm.DB

// FieldEquals keeps only rows whose column equals v.
func FieldEquals(column string, v any) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", v)
	}
}

// Newest orders rows most-recently-created first.
var Newest = []string{"created_at DESC", "id DESC"}

// Repository provides single-table CRUD for one model type.
type Repository[T any] struct {
	db    *gorm.DB
	order []string
}

// NewRepository returns a Repository listing rows in the given order;
// with no order, rows come back by id.
func NewRepository[T any](db *gorm.DB, order ...string) *Repository[T] {
	if len(order) == 0 {
		order = []string{"id"}
	}
	return &Repository[T]{db: db, order: order}
}

func (r *Repository[T]) List(ctx context.Context, scopes ...Scope) ([]T, error) {
	q := r.db.WithContext(ctx).Scopes(scopes...)
	for _, o := range r.order {
		q = q.Order(o)
	}
	rows := []T{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %T: %w", rows, err)
	}
	return rows, nil
}

func (r *Repository[T]) Get(ctx context.Context, id uint) (*T, error) {
	var row T
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &row, nil
}

func (r *Repository[T]) Create(ctx context.Context, row *T) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create %T: %w", row, err)
	}
	return nil
}

// Save writes every column of row, refreshing updated_at.
func (r *Repository[T]) Save(ctx context.Context, row *T) error {
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("save %T: %w", row, err)
	}
	return nil
}

func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(new(T), id)
	if result.Error != nil {
		return fmt.Errorf("delete %T: %w", new(T), result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll wipes the table and returns how many rows went.
func (r *Repository[T]) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(new(T))
	if result.Error != nil {
		return 0, fmt.Errorf("delete all %T: %w", new(T), result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %T: %w", new(T), err)
	}
	return n, nil
}

// Profiles adds the singleton semantics of the profile table: at most one
// row is active and that row is "the" profile.
type Profiles struct {
	*Repository[models.Profile]
}

func NewProfiles(db *gorm.DB) *Profiles {
	return &Profiles{Repository: NewRepository[models.Profile](db)}
}

// Active returns the active profile.
func (p *Profiles) Active(ctx context.Context) (*models.Profile, error) {
	var row models.Profile
	err := p.db.WithContext(ctx).Where("active = ?", true).Order("id DESC").First(&row).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &row, nil
}

// CreateActive inserts row and makes it the active profile.
func (p *Profiles) CreateActive(ctx context.Context, row *models.Profile) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deactivateAll(tx); err != nil {
			return err
		}
		row.Active = true
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
}

// Activate makes the profile with the given id the active one.
func (p *Profiles) Activate(ctx context.Context, id uint) (*models.Profile, error) {
	var row models.Profile
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return mapErr(err)
		}
		if err := deactivateAll(tx); err != nil {
			return err
		}
		row.Active = true
		if err := tx.Model(&row).UpdateColumn("active", true).Error; err != nil {
			return fmt.Errorf("activate profile %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func deactivateAll(tx *gorm.DB) error {
	err := tx.Model(&models.Profile{}).Where("active = ?", true).UpdateColumn("active", false).Error
	if err != nil {
		return fmt.Errorf("deactivate profiles: %w", err)
	}
	return nil
}
