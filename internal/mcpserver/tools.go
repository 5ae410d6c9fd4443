package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

const (
	ToolAddExpense   = "add_expense"
	ToolListExpenses = "list_expenses"
	ToolSummarize    = "summarize"
)

func addExpenseTool() mcp.Tool {
	return mcp.NewTool(ToolAddExpense,
		mcp.WithDescription("Record a new expense and return the id it was stored under."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Expense date, YYYY-MM-DD")),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Amount spent")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Top-level category")),
		mcp.WithString("subcategory", mcp.DefaultString(""), mcp.Description("Optional subcategory")),
		mcp.WithString("note", mcp.DefaultString(""), mcp.Description("Optional free-text note")),
	)
}

func listExpensesTool() mcp.Tool {
	return mcp.NewTool(ToolListExpenses,
		mcp.WithDescription("List expenses dated within an inclusive range, in the order they were added."),
		mcp.WithString("start_date", mcp.Required(), mcp.Description("First date, inclusive")),
		mcp.WithString("end_date", mcp.Required(), mcp.Description("Last date, inclusive")),
	)
}

func summarizeTool() mcp.Tool {
	return mcp.NewTool(ToolSummarize,
		mcp.WithDescription("Total expenses per category within an inclusive date range."),
		mcp.WithString("start_date", mcp.Required(), mcp.Description("First date, inclusive")),
		mcp.WithString("end_date", mcp.Required(), mcp.Description("Last date, inclusive")),
		mcp.WithString("category", mcp.Description("Restrict the summary to this category")),
	)
}

// AddExpense handles add_expense.
func (h *Handlers) AddExpense(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return malformed(err), nil
	}
	amount, err := req.RequireFloat("amount")
	if err != nil {
		return malformed(err), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return malformed(err), nil
	}
	subcategory, err := optionalString(req, "subcategory")
	if err != nil {
		return malformed(err), nil
	}
	note, err := optionalString(req, "note")
	if err != nil {
		return malformed(err), nil
	}

	res, err := h.service.AddExpense(ctx, date, amount, category, subcategory, note)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("add_expense failed", err), nil
	}
	return jsonResult(res)
}

// ListExpenses handles list_expenses.
func (h *Handlers) ListExpenses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, errResult := dateRange(req)
	if errResult != nil {
		return errResult, nil
	}

	expenses, err := h.service.ListExpenses(ctx, start, end)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list_expenses failed", err), nil
	}
	return jsonResult(expenses)
}

// Summarize handles summarize.
func (h *Handlers) Summarize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, errResult := dateRange(req)
	if errResult != nil {
		return errResult, nil
	}
	category, err := optionalString(req, "category")
	if err != nil {
		return malformed(err), nil
	}

	totals, err := h.service.Summarize(ctx, start, end, category)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("summarize failed", err), nil
	}
	return jsonResult(totals)
}

func dateRange(req mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	start, err := req.RequireString("start_date")
	if err != nil {
		return "", "", malformed(err)
	}
	end, err := req.RequireString("end_date")
	if err != nil {
		return "", "", malformed(err)
	}
	return start, end, nil
}

// optionalString reads an argument that may be omitted or null. Any other
// non-string value is rejected rather than treated as absent.
func optionalString(req mcp.CallToolRequest, key string) (string, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, v)
	}
	return s, nil
}

func malformed(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Errorf("%w: %w", core.ErrMalformedInput, err).Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}

// logged records the duration and outcome of every tool call.
func logged(name string, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := next(ctx, req)

		level := slog.LevelInfo
		if err != nil || (res != nil && res.IsError) {
			level = slog.LevelWarn
		}
		applog.FromContext(ctx).WithComponent(applog.ComponentMCP).Log(ctx, level, "Tool call completed",
			applog.FieldTool, name,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldSuccess, level == slog.LevelInfo)
		return res, err
	}
}
