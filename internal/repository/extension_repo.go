package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
)

// ExtensionRepository stores the append-only extension history of loans.
type ExtensionRepository interface {
	Create(ctx context.Context, ext *model.Extension) error
	ListByLoan(ctx context.Context, loanID uint) ([]model.Extension, error)
}

type extensionRepository struct {
	db *gorm.DB
}

// NewExtensionRepository returns a new instance of ExtensionRepository
func NewExtensionRepository(db *gorm.DB) ExtensionRepository {
	return &extensionRepository{db: db}
}

func (r *extensionRepository) Create(ctx context.Context, ext *model.Extension) error {
	return GetDB(ctx, r.db).Create(ext).Error
}

func (r *extensionRepository) ListByLoan(ctx context.Context, loanID uint) ([]model.Extension, error) {
	var exts []model.Extension
	err := GetDB(ctx, r.db).
		Preload("Approver").
		Where("loan_id = ?", loanID).
		Order("created_at DESC").
		Find(&exts).Error
	if err != nil {
		return nil, err
	}
	return exts, nil
}
