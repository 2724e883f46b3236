package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"gorm.io/gorm"
)

// --- DTOs ---

type CreateLoanRequest struct {
	ItemID            uint   `json:"item_id" binding:"required"`
	PlannedReturnDate string `json:"planned_return_date" binding:"required"` // YYYY-MM-DD
	Purpose           string `json:"purpose" binding:"required"`
	ConditionAtLoan   string `json:"condition_at_loan"`
}

type SubmitReturnRequest struct {
	ConditionAtReturn string `json:"condition_at_return" binding:"required"`
	Note              string `json:"note"`
	PhotoURL          string `json:"photo_url"`
}

type ConfirmReturnRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

type DirectReturnRequest struct {
	ConditionAtReturn string `json:"condition_at_return" binding:"required"`
	Note              string `json:"note"`
	PhotoURL          string `json:"photo_url"`
}

type ExtendLoanRequest struct {
	NewPlannedReturnDate string `json:"new_planned_return_date" binding:"required"` // YYYY-MM-DD
	Reason               string `json:"reason" binding:"required"`
}

type LoanResponse struct {
	ID                uint             `json:"id"`
	ItemID            uint             `json:"item_id"`
	ItemName          string           `json:"item_name,omitempty"`
	BorrowerID        uint             `json:"borrower_id"`
	BorrowerName      string           `json:"borrower_name,omitempty"`
	HandlerID         uint             `json:"handler_id"`
	HandlerName       string           `json:"handler_name,omitempty"`
	BorrowedAt        time.Time        `json:"borrowed_at"`
	PlannedReturnAt   time.Time        `json:"planned_return_at"`
	ActualReturnAt    *time.Time       `json:"actual_return_at,omitempty"`
	ReturnSubmittedAt *time.Time       `json:"return_submitted_at,omitempty"`
	ConfirmedAt       *time.Time       `json:"confirmed_at,omitempty"`
	ConfirmedBy       *uint            `json:"confirmed_by,omitempty"`
	Purpose           string           `json:"purpose"`
	ConditionAtLoan   string           `json:"condition_at_loan"`
	ConditionAtReturn *string          `json:"condition_at_return,omitempty"`
	ReturnNote        *string          `json:"return_note,omitempty"`
	ReturnPhotoURL    *string          `json:"return_photo_url,omitempty"`
	LateFee           int64            `json:"late_fee"`
	DaysLate          int              `json:"days_late"`
	Status            model.LoanStatus `json:"status"` // display status; overdue is derived
}

type LoanDetailResponse struct {
	LoanResponse
	Extensions []ExtensionResponse `json:"extensions"`
}

type SubmitReturnResponse struct {
	LoanID            uint             `json:"loan_id"`
	Status            model.LoanStatus `json:"status"`
	ReturnSubmittedAt time.Time        `json:"return_submitted_at"`
	DaysLate          int              `json:"days_late"`
	LateFee           int64            `json:"late_fee"`
}

type DirectReturnResponse struct {
	LoanID            uint             `json:"loan_id"`
	Status            model.LoanStatus `json:"status"`
	ActualReturnAt    time.Time        `json:"actual_return_at"`
	ConditionAtReturn string           `json:"condition_at_return"`
	DaysLate          int              `json:"days_late"`
	LateFee           int64            `json:"late_fee"`
}

type ExtensionResponse struct {
	ID                 uint      `json:"id"`
	LoanID             uint      `json:"loan_id"`
	OldPlannedReturnAt time.Time `json:"old_planned_return_at"`
	NewPlannedReturnAt time.Time `json:"new_planned_return_at"`
	Reason             string    `json:"reason"`
	ApprovedBy         uint      `json:"approved_by"`
	ApproverName       string    `json:"approver_name,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

const dateLayout = "2006-01-02"

// --- Interface ---

// LoanService owns the borrow/return lifecycle of inventory items: creation,
// return submission, administrative confirmation, the legacy single-step
// return, extensions and the derived overdue view. Every multi-write
// transition runs in one transaction; activity entries are recorded after
// commit, best-effort.
type LoanService interface {
	CreateLoan(ctx context.Context, borrowerID uint, req CreateLoanRequest) (*LoanResponse, error)
	SubmitReturn(ctx context.Context, loanID, callerID uint, req SubmitReturnRequest) (*SubmitReturnResponse, error)
	ConfirmReturn(ctx context.Context, loanID, callerID uint, callerRole string, req ConfirmReturnRequest) (*LoanResponse, error)
	DirectReturn(ctx context.Context, loanID, callerID uint, callerRole string, req DirectReturnRequest) (*DirectReturnResponse, error)
	ExtendLoan(ctx context.Context, loanID, requesterID uint, req ExtendLoanRequest) (*ExtensionResponse, error)
	GetLoan(ctx context.Context, id uint) (*LoanDetailResponse, error)
	ListLoans(ctx context.Context, filter repository.LoanFilter) ([]LoanResponse, int64, error)
	ListUserLoans(ctx context.Context, userID uint, page, limit int) ([]LoanResponse, int64, error)
	ListOverdue(ctx context.Context) ([]LoanResponse, error)
}

type loanService struct {
	loans      repository.LoanRepository
	items      repository.ItemRepository
	extensions repository.ExtensionRepository
	tx         repository.TransactionManager
	activity   ActivityRecorder
	clock      Clock
}

// NewLoanService wires the loan lifecycle manager. All collaborators are
// injected; the service itself holds no mutable state.
func NewLoanService(
	loans repository.LoanRepository,
	items repository.ItemRepository,
	extensions repository.ExtensionRepository,
	tx repository.TransactionManager,
	activity ActivityRecorder,
	clock Clock,
) LoanService {
	return &loanService{
		loans:      loans,
		items:      items,
		extensions: extensions,
		tx:         tx,
		activity:   activity,
		clock:      clock,
	}
}

// --- Implementation ---

// CreateLoan borrows an available item. The item row is locked for the whole
// check-and-update so two concurrent borrow requests against the same item
// cannot both succeed.
func (s *loanService) CreateLoan(ctx context.Context, borrowerID uint, req CreateLoanRequest) (*LoanResponse, error) {
	planned, err := time.Parse(dateLayout, req.PlannedReturnDate)
	if err != nil {
		return nil, fmt.Errorf("%w: expected YYYY-MM-DD", ErrInvalidDate)
	}

	now := s.clock.Now()
	if !planned.After(model.DateOf(now)) {
		return nil, fmt.Errorf("%w: planned return must be after today", ErrInvalidDate)
	}

	condition := req.ConditionAtLoan
	if condition == "" {
		condition = "good"
	}

	var loan *model.Loan
	var itemName string
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		item, err := s.items.GetByIDForUpdate(txCtx, req.ItemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock item: %w", err)
		}
		if item.Status != model.ItemStatusAvailable {
			return fmt.Errorf("%w: current status is %s", ErrItemUnavailable, item.Status)
		}
		itemName = item.Name

		if err := s.items.UpdateStatus(txCtx, item.ID, model.ItemStatusOnLoan); err != nil {
			return fmt.Errorf("failed to update item status: %w", err)
		}

		loan = &model.Loan{
			ItemID:          item.ID,
			BorrowerID:      borrowerID,
			HandlerID:       borrowerID, // self-service: borrower handles their own loan
			BorrowedAt:      now,
			PlannedReturnAt: planned,
			Purpose:         req.Purpose,
			ConditionAtLoan: condition,
			Status:          model.LoanStatusOnLoan,
		}
		if err := s.loans.Create(txCtx, loan); err != nil {
			return fmt.Errorf("failed to create loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{
		UserID:     borrowerID,
		Action:     model.ActionCreateLoan,
		EntityType: model.EntityLoan,
		EntityID:   loan.ID,
		NewData: map[string]interface{}{
			"item_id":           loan.ItemID,
			"planned_return_at": planned.Format(dateLayout),
			"purpose":           req.Purpose,
		},
		Description: fmt.Sprintf("Borrowed %s until %s for %s", itemName, planned.Format(dateLayout), req.Purpose),
	})

	return s.loadResponse(ctx, loan.ID)
}

// SubmitReturn records the borrower's return evidence and moves the loan to
// pending_return. The item stays on_loan until an admin confirms.
func (s *loanService) SubmitReturn(ctx context.Context, loanID, callerID uint, req SubmitReturnRequest) (*SubmitReturnResponse, error) {
	if req.PhotoURL == "" {
		return nil, ErrMissingEvidence
	}

	now := s.clock.Now()
	var daysLate int
	var fee int64
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loans.GetByIDForUpdate(txCtx, loanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLoanNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock loan: %w", err)
		}
		if loan.BorrowerID != callerID {
			return ErrNotOwner
		}
		if loan.Status != model.LoanStatusOnLoan {
			return fmt.Errorf("%w: loan is %s", ErrWrongState, loan.Status)
		}

		daysLate, fee = model.LateFeeFor(now, loan.PlannedReturnAt)

		loan.ConditionAtReturn = &req.ConditionAtReturn
		loan.ReturnSubmittedAt = &now
		loan.ReturnPhotoURL = &req.PhotoURL
		loan.LateFee = fee
		loan.Status = model.LoanStatusPendingReturn
		if req.Note != "" {
			note := req.Note
			loan.ReturnNote = &note
		}
		if err := s.loans.Update(txCtx, loan); err != nil {
			return fmt.Errorf("failed to update loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{
		UserID:     callerID,
		Action:     model.ActionSubmitReturn,
		EntityType: model.EntityLoan,
		EntityID:   loanID,
		OldData:    map[string]interface{}{"status": model.LoanStatusOnLoan},
		NewData: map[string]interface{}{
			"status":    model.LoanStatusPendingReturn,
			"days_late": daysLate,
			"late_fee":  fee,
		},
		Description: submitDescription(daysLate, fee),
	})

	return &SubmitReturnResponse{
		LoanID:            loanID,
		Status:            model.LoanStatusPendingReturn,
		ReturnSubmittedAt: now,
		DaysLate:          daysLate,
		LateFee:           fee,
	}, nil
}

// ConfirmReturn finalizes or rejects a submitted return. Approval frees the
// item; rejection wipes the evidence fields and puts the loan back on_loan.
func (s *loanService) ConfirmReturn(ctx context.Context, loanID, callerID uint, callerRole string, req ConfirmReturnRequest) (*LoanResponse, error) {
	if callerRole != model.RoleAdmin {
		return nil, ErrNotAdmin
	}

	now := s.clock.Now()
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loans.GetByIDForUpdate(txCtx, loanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLoanNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock loan: %w", err)
		}
		if loan.Status != model.LoanStatusPendingReturn {
			return fmt.Errorf("%w: loan is %s", ErrWrongState, loan.Status)
		}

		if req.Approve {
			loan.Status = model.LoanStatusReturned
			loan.ActualReturnAt = &now
			loan.ConfirmedAt = &now
			loan.ConfirmedBy = &callerID
			if err := s.items.UpdateStatus(txCtx, loan.ItemID, model.ItemStatusAvailable); err != nil {
				return fmt.Errorf("failed to release item: %w", err)
			}
		} else {
			loan.Status = model.LoanStatusOnLoan
			loan.ConditionAtReturn = nil
			loan.ReturnNote = nil
			loan.ReturnPhotoURL = nil
			loan.ReturnSubmittedAt = nil
			loan.LateFee = 0
		}

		if err := s.loans.Update(txCtx, loan); err != nil {
			return fmt.Errorf("failed to update loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.Approve {
		s.activity.Record(ctx, ActivityEntry{
			UserID:      callerID,
			Action:      model.ActionConfirmReturn,
			EntityType:  model.EntityLoan,
			EntityID:    loanID,
			OldData:     map[string]interface{}{"status": model.LoanStatusPendingReturn},
			NewData:     map[string]interface{}{"status": model.LoanStatusReturned},
			Description: "Return confirmed, item released",
		})
	} else {
		s.activity.Record(ctx, ActivityEntry{
			UserID:      callerID,
			Action:      model.ActionRejectReturn,
			EntityType:  model.EntityLoan,
			EntityID:    loanID,
			OldData:     map[string]interface{}{"status": model.LoanStatusPendingReturn},
			NewData:     map[string]interface{}{"status": model.LoanStatusOnLoan, "reason": req.Note},
			Description: "Return rejected: " + req.Note,
		})
	}

	return s.loadResponse(ctx, loanID)
}

// DirectReturn is the legacy single-step return path: no evidence review,
// the loan goes straight to returned and the item is freed. Kept for
// compatibility with older clients.
func (s *loanService) DirectReturn(ctx context.Context, loanID, callerID uint, callerRole string, req DirectReturnRequest) (*DirectReturnResponse, error) {
	now := s.clock.Now()
	var daysLate int
	var fee int64
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loans.GetByIDForUpdate(txCtx, loanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLoanNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock loan: %w", err)
		}
		if loan.Status == model.LoanStatusReturned || loan.Status == model.LoanStatusLost {
			return fmt.Errorf("%w: loan is %s", ErrWrongState, loan.Status)
		}
		if loan.BorrowerID != callerID && callerRole != model.RoleAdmin {
			return ErrNotOwner
		}

		daysLate, fee = model.LateFeeFor(now, loan.PlannedReturnAt)

		loan.Status = model.LoanStatusReturned
		loan.ActualReturnAt = &now
		loan.ConditionAtReturn = &req.ConditionAtReturn
		loan.LateFee = fee
		if req.Note != "" {
			note := req.Note
			loan.ReturnNote = &note
		}
		if req.PhotoURL != "" {
			photo := req.PhotoURL
			loan.ReturnPhotoURL = &photo
		}
		if err := s.loans.Update(txCtx, loan); err != nil {
			return fmt.Errorf("failed to update loan: %w", err)
		}

		if err := s.items.UpdateStatus(txCtx, loan.ItemID, model.ItemStatusAvailable); err != nil {
			return fmt.Errorf("failed to release item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{
		UserID:     callerID,
		Action:     model.ActionDirectReturn,
		EntityType: model.EntityLoan,
		EntityID:   loanID,
		NewData: map[string]interface{}{
			"status":    model.LoanStatusReturned,
			"days_late": daysLate,
			"late_fee":  fee,
		},
		Description: submitDescription(daysLate, fee),
	})

	return &DirectReturnResponse{
		LoanID:            loanID,
		Status:            model.LoanStatusReturned,
		ActualReturnAt:    now,
		ConditionAtReturn: req.ConditionAtReturn,
		DaysLate:          daysLate,
		LateFee:           fee,
	}, nil
}

// ExtendLoan pushes the planned return date later and records the change in
// the append-only extension history. Allowed while the loan is out, including
// when it displays as overdue.
func (s *loanService) ExtendLoan(ctx context.Context, loanID, requesterID uint, req ExtendLoanRequest) (*ExtensionResponse, error) {
	newPlanned, err := time.Parse(dateLayout, req.NewPlannedReturnDate)
	if err != nil {
		return nil, fmt.Errorf("%w: expected YYYY-MM-DD", ErrInvalidDate)
	}

	var ext *model.Extension
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loans.GetByIDForUpdate(txCtx, loanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLoanNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock loan: %w", err)
		}
		if loan.Status != model.LoanStatusOnLoan {
			return fmt.Errorf("%w: loan is %s", ErrWrongState, loan.Status)
		}
		if !model.DateOf(newPlanned).After(model.DateOf(loan.PlannedReturnAt)) {
			return fmt.Errorf("%w: new date must be after the current planned return", ErrInvalidDate)
		}

		ext = &model.Extension{
			LoanID:             loan.ID,
			OldPlannedReturnAt: loan.PlannedReturnAt,
			NewPlannedReturnAt: newPlanned,
			Reason:             req.Reason,
			ApprovedBy:         requesterID,
		}
		if err := s.extensions.Create(txCtx, ext); err != nil {
			return fmt.Errorf("failed to record extension: %w", err)
		}

		loan.PlannedReturnAt = newPlanned
		loan.Status = model.LoanStatusOnLoan
		if err := s.loans.Update(txCtx, loan); err != nil {
			return fmt.Errorf("failed to update loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{
		UserID:     requesterID,
		Action:     model.ActionExtendLoan,
		EntityType: model.EntityLoan,
		EntityID:   loanID,
		OldData:    map[string]interface{}{"planned_return_at": ext.OldPlannedReturnAt.Format(dateLayout)},
		NewData:    map[string]interface{}{"planned_return_at": newPlanned.Format(dateLayout)},
		Description: fmt.Sprintf("Extended loan until %s. Reason: %s",
			newPlanned.Format(dateLayout), req.Reason),
	})

	return toExtensionResponse(ext), nil
}

func (s *loanService) GetLoan(ctx context.Context, id uint) (*LoanDetailResponse, error) {
	loan, err := s.loans.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch loan: %w", err)
	}

	exts, err := s.extensions.ListByLoan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch extensions: %w", err)
	}

	detail := LoanDetailResponse{
		LoanResponse: toLoanResponse(loan, s.clock.Now()),
		Extensions:   make([]ExtensionResponse, 0, len(exts)),
	}
	for i := range exts {
		detail.Extensions = append(detail.Extensions, *toExtensionResponse(&exts[i]))
	}
	return &detail, nil
}

func (s *loanService) ListLoans(ctx context.Context, filter repository.LoanFilter) ([]LoanResponse, int64, error) {
	loans, total, err := s.loans.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list loans: %w", err)
	}
	return s.toResponses(loans), total, nil
}

func (s *loanService) ListUserLoans(ctx context.Context, userID uint, page, limit int) ([]LoanResponse, int64, error) {
	loans, total, err := s.loans.ListByBorrower(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list user loans: %w", err)
	}
	return s.toResponses(loans), total, nil
}

func (s *loanService) ListOverdue(ctx context.Context) ([]LoanResponse, error) {
	loans, err := s.loans.ListOverdue(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}
	return s.toResponses(loans), nil
}

// --- Helpers ---

func (s *loanService) loadResponse(ctx context.Context, id uint) (*LoanResponse, error) {
	loan, err := s.loans.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload loan: %w", err)
	}
	resp := toLoanResponse(loan, s.clock.Now())
	return &resp, nil
}

func (s *loanService) toResponses(loans []model.Loan) []LoanResponse {
	now := s.clock.Now()
	result := make([]LoanResponse, 0, len(loans))
	for i := range loans {
		result = append(result, toLoanResponse(&loans[i], now))
	}
	return result
}

func toLoanResponse(l *model.Loan, now time.Time) LoanResponse {
	resp := LoanResponse{
		ID:                l.ID,
		ItemID:            l.ItemID,
		BorrowerID:        l.BorrowerID,
		HandlerID:         l.HandlerID,
		BorrowedAt:        l.BorrowedAt,
		PlannedReturnAt:   l.PlannedReturnAt,
		ActualReturnAt:    l.ActualReturnAt,
		ReturnSubmittedAt: l.ReturnSubmittedAt,
		ConfirmedAt:       l.ConfirmedAt,
		ConfirmedBy:       l.ConfirmedBy,
		Purpose:           l.Purpose,
		ConditionAtLoan:   l.ConditionAtLoan,
		ConditionAtReturn: l.ConditionAtReturn,
		ReturnNote:        l.ReturnNote,
		ReturnPhotoURL:    l.ReturnPhotoURL,
		LateFee:           l.LateFee,
		Status:            l.EffectiveStatus(now),
	}

	switch {
	case l.ActualReturnAt != nil:
		resp.DaysLate = model.DaysLate(*l.ActualReturnAt, l.PlannedReturnAt)
	case l.Status == model.LoanStatusOnLoan || l.Status == model.LoanStatusPendingReturn:
		resp.DaysLate = model.DaysLate(now, l.PlannedReturnAt)
	}

	if l.Item != nil {
		resp.ItemName = l.Item.Name
	}
	if l.Borrower != nil {
		resp.BorrowerName = l.Borrower.Username
	}
	if l.Handler != nil {
		resp.HandlerName = l.Handler.Username
	}
	return resp
}

func toExtensionResponse(e *model.Extension) *ExtensionResponse {
	resp := &ExtensionResponse{
		ID:                 e.ID,
		LoanID:             e.LoanID,
		OldPlannedReturnAt: e.OldPlannedReturnAt,
		NewPlannedReturnAt: e.NewPlannedReturnAt,
		Reason:             e.Reason,
		ApprovedBy:         e.ApprovedBy,
		CreatedAt:          e.CreatedAt,
	}
	if e.Approver != nil {
		resp.ApproverName = e.Approver.Username
	}
	return resp
}

func submitDescription(daysLate int, fee int64) string {
	if fee > 0 {
		return fmt.Sprintf("Returned item %d day(s) late, fee Rp %d", daysLate, fee)
	}
	return "Returned item on time"
}
