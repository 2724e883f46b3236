package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
)

// ActivityFilter narrows activity listings. Zero values mean "no filter".
type ActivityFilter struct {
	EntityType string
	Action     string
	UserID     uint
	Page       int
	Limit      int
}

type ActivityRepository interface {
	Log(ctx context.Context, entry *model.ActivityLog) error
	List(ctx context.Context, filter ActivityFilter) ([]model.ActivityLog, int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.ActivityLog, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Log(ctx context.Context, entry *model.ActivityLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *activityRepository) List(ctx context.Context, filter ActivityFilter) ([]model.ActivityLog, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.ActivityLog{})
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var logs []model.ActivityLog
	fetch := db.Preload("User")
	if filter.EntityType != "" {
		fetch = fetch.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Action != "" {
		fetch = fetch.Where("action = ?", filter.Action)
	}
	if filter.UserID != 0 {
		fetch = fetch.Where("user_id = ?", filter.UserID)
	}
	if err := fetch.Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *activityRepository) ListRecent(ctx context.Context, limit int) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	err := GetDB(ctx, r.db).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
