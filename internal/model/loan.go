package model

import (
	"time"
)

// LoanStatus is the closed set of lifecycle states for a Loan.
type LoanStatus string

const (
	LoanStatusOnLoan        LoanStatus = "on_loan"
	LoanStatusPendingReturn LoanStatus = "pending_return"
	LoanStatusReturned      LoanStatus = "returned"
	// LoanStatusOverdue is a display-only status derived at read time; no
	// operation persists it as a column value.
	LoanStatusOverdue LoanStatus = "overdue"
	// LoanStatusLost is terminal and reserved for manual administrative use.
	LoanStatusLost LoanStatus = "lost"
)

// FeePerDay is the late fee charged per full day past the planned return date,
// in rupiah.
const FeePerDay int64 = 5000

// Valid reports whether s is a persistable loan status.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusOnLoan, LoanStatusPendingReturn, LoanStatusReturned, LoanStatusLost:
		return true
	}
	return false
}

// transitions is the exhaustive table of allowed persisted state changes.
var transitions = map[LoanStatus][]LoanStatus{
	LoanStatusOnLoan:        {LoanStatusPendingReturn, LoanStatusReturned},
	LoanStatusPendingReturn: {LoanStatusReturned, LoanStatusOnLoan},
	LoanStatusReturned:      {},
	LoanStatusLost:          {},
}

// CanTransition reports whether a loan may move from s to target.
func (s LoanStatus) CanTransition(target LoanStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Loan represents one borrowing transaction of an inventory item. Loans are
// never deleted; they serve as a permanent audit trail.
type Loan struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	ItemID     uint  `gorm:"not null;index" json:"item_id"`
	Item       *Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	BorrowerID uint  `gorm:"not null;index" json:"borrower_id"`
	Borrower   *User `gorm:"foreignKey:BorrowerID" json:"borrower,omitempty"`
	// HandlerID is the staff member who processed the loan; for self-service
	// borrowing it defaults to the borrower.
	HandlerID uint  `gorm:"not null" json:"handler_id"`
	Handler   *User `gorm:"foreignKey:HandlerID" json:"handler,omitempty"`

	BorrowedAt        time.Time  `gorm:"not null" json:"borrowed_at"`
	PlannedReturnAt   time.Time  `gorm:"not null;index" json:"planned_return_at"`
	ActualReturnAt    *time.Time `json:"actual_return_at"`
	ReturnSubmittedAt *time.Time `json:"return_submitted_at"`
	ConfirmedAt       *time.Time `json:"confirmed_at"`
	ConfirmedBy       *uint      `json:"confirmed_by"`

	Purpose           string  `gorm:"type:text;not null" json:"purpose"`
	ConditionAtLoan   string  `gorm:"type:text" json:"condition_at_loan"`
	ConditionAtReturn *string `gorm:"type:text" json:"condition_at_return"`
	ReturnNote        *string `gorm:"type:text" json:"return_note"`
	ReturnPhotoURL    *string `gorm:"type:varchar(500)" json:"return_photo_url"`

	LateFee int64      `gorm:"not null;default:0" json:"late_fee"`
	Status  LoanStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOverdue reports whether the loan is past its planned return date while the
// item is still out. Overdue is a pure function of (status, planned return,
// now) and is never written back to the row.
func (l *Loan) IsOverdue(now time.Time) bool {
	if l.Status != LoanStatusOnLoan && l.Status != LoanStatusPendingReturn {
		return false
	}
	return DateOf(l.PlannedReturnAt).Before(DateOf(now))
}

// EffectiveStatus returns the status to display: the persisted status, or
// overdue when the derived rule applies.
func (l *Loan) EffectiveStatus(now time.Time) LoanStatus {
	if l.IsOverdue(now) {
		return LoanStatusOverdue
	}
	return l.Status
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysLate returns the number of full calendar days returnedAt falls after
// plannedReturn. Early or on-time returns yield 0.
func DaysLate(returnedAt, plannedReturn time.Time) int {
	diff := DateOf(returnedAt).Sub(DateOf(plannedReturn))
	days := int(diff.Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// LateFeeFor computes the fee owed for returning at returnedAt against the
// planned return date.
func LateFeeFor(returnedAt, plannedReturn time.Time) (daysLate int, fee int64) {
	daysLate = DaysLate(returnedAt, plannedReturn)
	return daysLate, int64(daysLate) * FeePerDay
}

// Extension records an approved change pushing a loan's planned return date
// later. Rows are append-only; a loan may accumulate several.
type Extension struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	LoanID             uint      `gorm:"not null;index" json:"loan_id"`
	OldPlannedReturnAt time.Time `gorm:"not null" json:"old_planned_return_at"`
	NewPlannedReturnAt time.Time `gorm:"not null" json:"new_planned_return_at"`
	Reason             string    `gorm:"type:text;not null" json:"reason"`
	ApprovedBy         uint      `gorm:"not null" json:"approved_by"`
	Approver           *User     `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func (Extension) TableName() string { return "loan_extensions" }
