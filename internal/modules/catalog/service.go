package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"tourbooking/internal/domain"
	"tourbooking/internal/pkg/logger"
	"tourbooking/internal/repository"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

type store[T repository.CatalogEntity] interface {
	List(ctx context.Context, activeOnly bool) ([]T, error)
	GetByID(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, row *T) error
	Update(ctx context.Context, id int64, row *T) error
	Delete(ctx context.Context, id int64) error
}

// Service is the CRUD layer over one catalog table. check, when set, runs
// before every create and update.
type Service[T repository.CatalogEntity] struct {
	name  string
	store store[T]
	check func(ctx context.Context, row *T) error
	log   logrus.FieldLogger
}

func NewService[T repository.CatalogEntity](name string, s store[T], log logrus.FieldLogger) *Service[T] {
	return &Service[T]{name: name, store: s, log: logger.OrDiscard(log).WithField("component", "catalog").WithField("entity", name)}
}

// WithCheck installs a validation hook.
func (s *Service[T]) WithCheck(check func(ctx context.Context, row *T) error) *Service[T] {
	s.check = check
	return s
}

func (s *Service[T]) List(ctx context.Context, activeOnly bool) ([]T, error) {
	return s.store.List(ctx, activeOnly)
}

func (s *Service[T]) Get(ctx context.Context, id int64) (*T, error) {
	row, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return row, err
}

func (s *Service[T]) Create(ctx context.Context, row *T) (*T, error) {
	if s.check != nil {
		if err := s.check(ctx, row); err != nil {
			return nil, err
		}
	}
	if err := s.store.Create(ctx, row); err != nil {
		return nil, err
	}
	s.log.Info("catalog row created")
	return row, nil
}

func (s *Service[T]) Update(ctx context.Context, id int64, row *T) (*T, error) {
	if s.check != nil {
		if err := s.check(ctx, row); err != nil {
			return nil, err
		}
	}
	if err := s.store.Update(ctx, id, row); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.log.WithField("id", id).Info("catalog row updated")
	return s.Get(ctx, id)
}

func (s *Service[T]) Delete(ctx context.Context, id int64) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err == nil {
		s.log.WithField("id", id).Info("catalog row deleted")
	}
	return err
}

type tourLister interface {
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Tour, error)
}

// PackageCheck rejects packages whose tour_ids is not a non-empty list of
// existing tours.
func PackageCheck(tours tourLister) func(ctx context.Context, p *domain.Package) error {
	return func(ctx context.Context, p *domain.Package) error {
		var ids []int64
		if len(p.TourIDs) == 0 || json.Unmarshal(p.TourIDs, &ids) != nil || len(ids) == 0 {
			return fmt.Errorf("%w: tour_ids must be a non-empty list of tour ids", ErrValidation)
		}
		found, err := tours.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		known := make(map[int64]bool, len(found))
		for _, t := range found {
			known[t.ID] = true
		}
		for _, id := range ids {
			if !known[id] {
				return fmt.Errorf("%w: unknown tour %d", ErrValidation, id)
			}
		}
		return nil
	}
}

// PriceCheck rejects negative prices on tours.
func PriceCheck(ctx context.Context, t *domain.Tour) error {
	if t.AdultPrice < 0 || t.ChildPrice < 0 {
		return fmt.Errorf("%w: prices must not be negative", ErrValidation)
	}
	return nil
}
