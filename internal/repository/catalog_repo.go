package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tourbooking/internal/database"
	"tourbooking/internal/domain"
)

var ErrNotFound = errors.New("record not found")

// CatalogEntity is any of the admin-managed catalog tables.
type CatalogEntity interface {
	domain.Tour | domain.Ship | domain.Agent | domain.Package
}

// CatalogRepository is the CRUD store shared by tours, ships, agents and packages.
type CatalogRepository[T CatalogEntity] struct {
	gw *database.Gateway
}

func NewCatalogRepository[T CatalogEntity](gw *database.Gateway) *CatalogRepository[T] {
	return &CatalogRepository[T]{gw: gw}
}

func (r *CatalogRepository[T]) List(ctx context.Context, activeOnly bool) ([]T, error) {
	var rows []T
	err := r.gw.Read(ctx, func(tx *gorm.DB) error {
		q := tx.Model(new(T))
		if activeOnly {
			q = q.Where("active = ?", true)
		}
		return q.Order("id").Find(&rows).Error
	})
	return rows, err
}

func (r *CatalogRepository[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	var row T
	err := r.gw.Read(ctx, func(tx *gorm.DB) error {
		return tx.First(&row, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByIDs returns the rows keyed by id; missing ids are simply absent.
func (r *CatalogRepository[T]) GetByIDs(ctx context.Context, ids []int64) ([]T, error) {
	var rows []T
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.gw.Read(ctx, func(tx *gorm.DB) error {
		return tx.Where("id IN ?", ids).Find(&rows).Error
	})
	return rows, err
}

func (r *CatalogRepository[T]) Create(ctx context.Context, row *T) error {
	return r.gw.Write(ctx, func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
}

// Update saves every column of row, including zero values.
func (r *CatalogRepository[T]) Update(ctx context.Context, id int64, row *T) error {
	return r.gw.Write(ctx, func(tx *gorm.DB) error {
		var existing T
		if err := tx.First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return tx.Model(&existing).Select("*").Omit("id", "created_at").Updates(row).Error
	})
}

func (r *CatalogRepository[T]) Delete(ctx context.Context, id int64) error {
	return r.gw.Write(ctx, func(tx *gorm.DB) error {
		res := tx.Delete(new(T), id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
