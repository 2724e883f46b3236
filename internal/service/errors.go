package service

import "errors"

// Business-rule errors surfaced synchronously to the caller. Handlers map
// these to HTTP statuses; anything else is treated as an infrastructure
// failure. None of them are retried internally.
var (
	ErrLoanNotFound    = errors.New("loan not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrItemUnavailable = errors.New("item is not available for borrowing")
	ErrWrongState      = errors.New("operation not valid for current loan status")
	ErrNotOwner        = errors.New("caller is not the borrower of this loan")
	ErrNotAdmin        = errors.New("caller is not an administrator")
	ErrInvalidDate     = errors.New("invalid planned return date")
	ErrMissingEvidence = errors.New("return photo evidence is required")
)
