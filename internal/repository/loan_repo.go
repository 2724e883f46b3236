package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoanFilter narrows loan listings. Zero values mean "no filter".
type LoanFilter struct {
	Status     model.LoanStatus
	BorrowerID uint
	ItemID     uint
	Page       int
	Limit      int
}

// LoanRepository defines the data access surface for loan records.
type LoanRepository interface {
	Create(ctx context.Context, loan *model.Loan) error
	GetByID(ctx context.Context, id uint) (*model.Loan, error)
	// GetByIDForUpdate loads the loan under an exclusive row lock so two
	// concurrent transitions on the same loan serialize. Transaction-scoped.
	GetByIDForUpdate(ctx context.Context, id uint) (*model.Loan, error)
	Update(ctx context.Context, loan *model.Loan) error
	List(ctx context.Context, filter LoanFilter) ([]model.Loan, int64, error)
	ListByBorrower(ctx context.Context, borrowerID uint, page, limit int) ([]model.Loan, int64, error)
	// ListOverdue returns loans that are still out past their planned return
	// date, oldest due date first. Overdue is derived here, never stored.
	ListOverdue(ctx context.Context, today time.Time) ([]model.Loan, error)
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository returns a new instance of LoanRepository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *model.Loan) error {
	return GetDB(ctx, r.db).Create(loan).Error
}

func (r *loanRepository) GetByID(ctx context.Context, id uint) (*model.Loan, error) {
	var loan model.Loan
	if err := GetDB(ctx, r.db).
		Preload("Item").Preload("Borrower").Preload("Handler").
		First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uint) (*model.Loan, error) {
	var loan model.Loan
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *model.Loan) error {
	return GetDB(ctx, r.db).Save(loan).Error
}

func (r *loanRepository) List(ctx context.Context, filter LoanFilter) ([]model.Loan, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.Loan{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.BorrowerID != 0 {
		query = query.Where("borrower_id = ?", filter.BorrowerID)
	}
	if filter.ItemID != 0 {
		query = query.Where("item_id = ?", filter.ItemID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	offset := (filter.Page - 1) * filter.Limit

	var loans []model.Loan
	fetch := db.Preload("Item").Preload("Borrower").Preload("Handler")
	if filter.Status != "" {
		fetch = fetch.Where("status = ?", filter.Status)
	}
	if filter.BorrowerID != 0 {
		fetch = fetch.Where("borrower_id = ?", filter.BorrowerID)
	}
	if filter.ItemID != 0 {
		fetch = fetch.Where("item_id = ?", filter.ItemID)
	}
	if err := fetch.Order("created_at DESC").Offset(offset).Limit(filter.Limit).
		Find(&loans).Error; err != nil {
		return nil, 0, err
	}

	return loans, total, nil
}

func (r *loanRepository) ListByBorrower(ctx context.Context, borrowerID uint, page, limit int) ([]model.Loan, int64, error) {
	return r.List(ctx, LoanFilter{BorrowerID: borrowerID, Page: page, Limit: limit})
}

func (r *loanRepository) ListOverdue(ctx context.Context, today time.Time) ([]model.Loan, error) {
	var loans []model.Loan
	err := GetDB(ctx, r.db).
		Preload("Item").Preload("Borrower").
		Where("status IN ?", []model.LoanStatus{model.LoanStatusOnLoan, model.LoanStatusPendingReturn}).
		Where("planned_return_at < ?", model.DateOf(today)).
		Order("planned_return_at ASC").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}
