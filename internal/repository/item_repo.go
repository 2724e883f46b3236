package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemRepository defines the data access surface for inventory items that the
// loan lifecycle needs: plain reads, locked reads, and status flips.
type ItemRepository interface {
	GetByID(ctx context.Context, id uint) (*model.Item, error)
	// GetByIDForUpdate loads the item under an exclusive row lock. It must be
	// called inside a transaction; the lock is held until commit or rollback.
	GetByIDForUpdate(ctx context.Context, id uint) (*model.Item, error)
	UpdateStatus(ctx context.Context, id uint, status model.ItemStatus) error
}

type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository returns a new instance of ItemRepository
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) GetByID(ctx context.Context, id uint) (*model.Item, error) {
	var item model.Item
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) GetByIDForUpdate(ctx context.Context, id uint) (*model.Item, error) {
	var item model.Item
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) UpdateStatus(ctx context.Context, id uint, status model.ItemStatus) error {
	return GetDB(ctx, r.db).Model(&model.Item{}).Where("id = ?", id).
		Update("status", status).Error
}
