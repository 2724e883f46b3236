package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanCounts breaks loans down by persisted status plus the derived overdue
// count.
type LoanCounts struct {
	Total         int64 `json:"total"`
	OnLoan        int64 `json:"on_loan"`
	PendingReturn int64 `json:"pending_return"`
	Returned      int64 `json:"returned"`
	Lost          int64 `json:"lost"`
	Overdue       int64 `json:"overdue"` // derived: still out AND planned return < today
}

// ItemCounts breaks inventory items down by availability.
type ItemCounts struct {
	Total       int64 `json:"total"`
	Available   int64 `json:"available"`
	OnLoan      int64 `json:"on_loan"`
	Maintenance int64 `json:"maintenance"`
}

// FeeTotals aggregates late fees in rupiah.
type FeeTotals struct {
	Collected   decimal.Decimal `json:"collected"`   // fees on returned loans
	Outstanding decimal.Decimal `json:"outstanding"` // fees on returns awaiting confirmation
}

// StatisticsResponse is the admin dashboard payload.
type StatisticsResponse struct {
	GeneratedAt      time.Time     `json:"generated_at"`
	Loans            LoanCounts    `json:"loans"`
	Items            ItemCounts    `json:"items"`
	Fees             FeeTotals     `json:"fees"`
	RecentActivities []ActivityLog `json:"recent_activities"`
}
