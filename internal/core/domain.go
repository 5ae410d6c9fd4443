package core

import "errors"

// StatusOK is the only status an accepted insert reports.
const StatusOK = "ok"

type (
	// Expense is a single dated monetary entry. Date is an ISO date string and is
	// compared lexicographically; it is never parsed as a calendar date.
	Expense struct {
		ID          int64   `json:"id"`
		Date        string  `json:"date"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Subcategory string  `json:"subcategory"`
		Note        string  `json:"note"`
	}

	// CategoryTotal is the sum of amounts for one category over a date range.
	CategoryTotal struct {
		Category    string  `json:"category"`
		TotalAmount float64 `json:"total_amount"`
	}

	// InsertResult acknowledges a stored expense.
	InsertResult struct {
		Status string `json:"status"`
		ID     int64  `json:"id"`
	}
)

// Storage failure categories. Store errors are wrapped with one of these so
// callers can branch with errors.Is while the driver error stays reachable.
var (
	ErrInitialization    = errors.New("storage initialization failed")
	ErrStorageContention = errors.New("storage contention")
	ErrStorageIO         = errors.New("storage i/o failure")
	ErrMalformedInput    = errors.New("malformed input")
)

// NewExpense builds an expense ready for insertion. Subcategory and note are
// optional and default to the empty string.
func NewExpense(date string, amount float64, category string, optional ...string) Expense {
	e := Expense{
		Date:     date,
		Amount:   amount,
		Category: category,
	}
	if len(optional) > 0 {
		e.Subcategory = optional[0]
	}
	if len(optional) > 1 {
		e.Note = optional[1]
	}
	return e
}

// IsTransient reports whether err is worth retrying by the caller.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStorageContention) || errors.Is(err, ErrInitialization)
}
