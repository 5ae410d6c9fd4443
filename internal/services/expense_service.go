package services

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// ExpenseStore is the persistence the service needs. *storage.SQLiteRepository
// satisfies it.
type ExpenseStore interface {
	Insert(ctx context.Context, e core.Expense) (int64, error)
	ListInRange(ctx context.Context, startDate, endDate string) ([]core.Expense, error)
	Summarize(ctx context.Context, startDate, endDate, category string) ([]core.CategoryTotal, error)
	Close() error
}

// EventPublisher announces stored expenses. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, id int64, e core.Expense) error
	Close() error
}

// ExpenseService orchestrates expense operations across the store and the
// optional event publisher.
type ExpenseService struct {
	storage   ExpenseStore
	publisher EventPublisher
}

// NewExpenseService wires a store and an optional publisher. Pass a nil
// publisher to run without events.
func NewExpenseService(store ExpenseStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		storage:   store,
		publisher: publisher,
	}
}

// AddExpense stores one expense and reports the id it was given.
func (s *ExpenseService) AddExpense(ctx context.Context, date string, amount float64, category, subcategory, note string) (core.InsertResult, error) {
	e := core.NewExpense(date, amount, category, subcategory, note)

	id, err := s.storage.Insert(ctx, e)
	if err != nil {
		logger(ctx).ErrorContext(ctx, "Failed to add expense",
			applog.NewFields().
				WithOperation(applog.OpInsert).
				WithExpense(0, date, amount, category, subcategory).
				WithError(err).
				ToSlice()...)
		return core.InsertResult{}, fmt.Errorf("add expense: %w", err)
	}

	// The row is durable at this point; a lost event must not fail the call.
	if err := s.publishCreated(ctx, id, e); err != nil {
		logger(ctx).ErrorContext(ctx, "Failed to publish expense created event",
			applog.FieldExpenseID, id,
			applog.FieldError, err)
	}

	return core.InsertResult{Status: core.StatusOK, ID: id}, nil
}

// ListExpenses returns the expenses dated within [startDate, endDate] in the
// order they were added.
func (s *ExpenseService) ListExpenses(ctx context.Context, startDate, endDate string) ([]core.Expense, error) {
	expenses, err := s.storage.ListInRange(ctx, startDate, endDate)
	logger(ctx).LogOperation(ctx, applog.OpList, err,
		applog.NewFields().WithRange(startDate, endDate).ToSlice()...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Summarize totals expenses per category within [startDate, endDate]. An
// empty category means every category.
func (s *ExpenseService) Summarize(ctx context.Context, startDate, endDate, category string) ([]core.CategoryTotal, error) {
	totals, err := s.storage.Summarize(ctx, startDate, endDate, category)
	fields := applog.NewFields().WithRange(startDate, endDate)
	if category != "" {
		fields[applog.FieldCategory] = category
	}
	logger(ctx).LogOperation(ctx, applog.OpSummarize, err, fields.ToSlice()...)
	if err != nil {
		return nil, fmt.Errorf("summarize expenses: %w", err)
	}
	return totals, nil
}

// logger returns the request-scoped logger tagged for this service.
func logger(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(applog.ComponentExpense)
}

func (s *ExpenseService) publishCreated(ctx context.Context, id int64, e core.Expense) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishExpenseCreated(ctx, id, e)
}

// Close closes both storage and publisher connections
func (s *ExpenseService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}

	return nil
}
