package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// gormStore implements Store over a *gorm.DB that is either the pool or a tx.
type gormStore struct {
	db *gorm.DB
}

type gormRepo struct {
	*gormStore
}

// NewGormRepo returns the PostgreSQL-backed repository.
func NewGormRepo(db *gorm.DB) FulfillmentRepository {
	return &gormRepo{&gormStore{db: db}}
}

func (r *gormRepo) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// gormErr maps gorm errors to the package sentinels.
func gormErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}
