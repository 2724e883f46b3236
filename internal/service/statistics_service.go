package service

import (
	"context"
	"fmt"

	"backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context) (model.StatisticsResponse, error)
}

type statisticsService struct {
	db    *gorm.DB
	clock Clock
}

func NewStatisticsService(db *gorm.DB, clock Clock) StatisticsService {
	return &statisticsService{db: db, clock: clock}
}

// GetStatistics assembles the admin dashboard: loan and item counts, fee
// totals and the most recent activity. The overdue count uses the derived
// rule (still out AND planned return before today), never a stored column.
func (s *statisticsService) GetStatistics(ctx context.Context) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	now := s.clock.Now()
	response.GeneratedAt = now

	db := s.db.WithContext(ctx)

	// Loan counts by persisted status
	if err := db.Model(&model.Loan{}).Count(&response.Loans.Total).Error; err != nil {
		return response, fmt.Errorf("failed to count loans: %w", err)
	}
	statusCounts := map[model.LoanStatus]*int64{
		model.LoanStatusOnLoan:        &response.Loans.OnLoan,
		model.LoanStatusPendingReturn: &response.Loans.PendingReturn,
		model.LoanStatusReturned:      &response.Loans.Returned,
		model.LoanStatusLost:          &response.Loans.Lost,
	}
	for status, dest := range statusCounts {
		if err := db.Model(&model.Loan{}).Where("status = ?", status).Count(dest).Error; err != nil {
			return response, fmt.Errorf("failed to count %s loans: %w", status, err)
		}
	}
	if err := db.Model(&model.Loan{}).
		Where("status IN ?", []model.LoanStatus{model.LoanStatusOnLoan, model.LoanStatusPendingReturn}).
		Where("planned_return_at < ?", model.DateOf(now)).
		Count(&response.Loans.Overdue).Error; err != nil {
		return response, fmt.Errorf("failed to count overdue loans: %w", err)
	}

	// Item counts by availability
	if err := db.Model(&model.Item{}).Count(&response.Items.Total).Error; err != nil {
		return response, fmt.Errorf("failed to count items: %w", err)
	}
	itemCounts := map[model.ItemStatus]*int64{
		model.ItemStatusAvailable:   &response.Items.Available,
		model.ItemStatusOnLoan:      &response.Items.OnLoan,
		model.ItemStatusMaintenance: &response.Items.Maintenance,
	}
	for status, dest := range itemCounts {
		if err := db.Model(&model.Item{}).Where("status = ?", status).Count(dest).Error; err != nil {
			return response, fmt.Errorf("failed to count %s items: %w", status, err)
		}
	}

	// Fee totals in rupiah
	var collected, outstanding struct {
		Value int64
	}
	if err := db.Model(&model.Loan{}).
		Select("COALESCE(SUM(late_fee), 0) as value").
		Where("status = ?", model.LoanStatusReturned).
		Scan(&collected).Error; err != nil {
		return response, fmt.Errorf("failed to sum collected fees: %w", err)
	}
	if err := db.Model(&model.Loan{}).
		Select("COALESCE(SUM(late_fee), 0) as value").
		Where("status = ?", model.LoanStatusPendingReturn).
		Scan(&outstanding).Error; err != nil {
		return response, fmt.Errorf("failed to sum outstanding fees: %w", err)
	}
	response.Fees.Collected = decimal.NewFromInt(collected.Value)
	response.Fees.Outstanding = decimal.NewFromInt(outstanding.Value)

	// Recent activities (last 10)
	if err := db.Preload("User").
		Order("created_at DESC").
		Limit(10).
		Find(&response.RecentActivities).Error; err != nil {
		return response, fmt.Errorf("failed to fetch recent activities: %w", err)
	}

	return response, nil
}
