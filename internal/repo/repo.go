package repo

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/prockx/storefront/internal/apperr"
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func conflictOr(err error, what string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s already exists", apperr.ErrConflict, what)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %s is still referenced", apperr.ErrConflict, what)
	}
	return err
}
