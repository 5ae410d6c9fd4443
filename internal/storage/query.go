package storage

import "strings"

const (
	insertExpenseSQL = `INSERT INTO expenses(date, amount, category, subcategory, note) VALUES (?, ?, ?, ?, ?)`

	listExpensesSQL = `SELECT id, date, amount, category, COALESCE(subcategory, ''), COALESCE(note, '') FROM expenses WHERE date BETWEEN ? AND ? ORDER BY id ASC`

	summarySelect   = `SELECT category, SUM(amount) AS total_amount FROM expenses WHERE date BETWEEN ? AND ?`
	summaryCategory = ` AND category = ?`
	summaryGroup    = ` GROUP BY category ORDER BY category ASC`
)

// buildSummaryQuery composes the aggregate statement for Summarize. The clause
// structure is fixed; the only variation is the category predicate, present
// when category is non-empty. Values are always returned as bound arguments in
// the order start, end, [category].
func buildSummaryQuery(startDate, endDate, category string) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, 3)

	b.WriteString(summarySelect)
	args = append(args, startDate, endDate)

	if category != "" {
		b.WriteString(summaryCategory)
		args = append(args, category)
	}

	b.WriteString(summaryGroup)
	return b.String(), args
}
