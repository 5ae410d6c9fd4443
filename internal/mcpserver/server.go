// Package mcpserver exposes the expense operations as Model Context Protocol
// tools and the category catalog as a resource.
package mcpserver

import (
	"context"
	"io"
	stdlog "log"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"expensetracker/internal/core"
)

// Name is the server name announced to clients.
const Name = "ExpenseTracker"

// Version is overridden at build time.
var Version = "dev"

// ExpenseService is what the tools call into. *services.ExpenseService
// satisfies it.
type ExpenseService interface {
	AddExpense(ctx context.Context, date string, amount float64, category, subcategory, note string) (core.InsertResult, error)
	ListExpenses(ctx context.Context, startDate, endDate string) ([]core.Expense, error)
	Summarize(ctx context.Context, startDate, endDate, category string) ([]core.CategoryTotal, error)
}

// CategoryCatalog returns the category document. *catalog.Catalog satisfies it.
type CategoryCatalog interface {
	Read(ctx context.Context) ([]byte, error)
}

// Handlers implements the tool and resource callbacks.
type Handlers struct {
	service ExpenseService
	catalog CategoryCatalog
}

func NewHandlers(service ExpenseService, catalog CategoryCatalog) *Handlers {
	return &Handlers{service: service, catalog: catalog}
}

// New builds the MCP server with every tool and resource registered.
func New(service ExpenseService, catalog CategoryCatalog) *server.MCPServer {
	h := NewHandlers(service, catalog)

	s := server.NewMCPServer(Name, Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	s.AddTool(addExpenseTool(), logged(ToolAddExpense, h.AddExpense))
	s.AddTool(listExpensesTool(), logged(ToolListExpenses, h.ListExpenses))
	s.AddTool(summarizeTool(), logged(ToolSummarize, h.Summarize))
	s.AddResource(categoriesResource(), h.Categories)

	return s
}

// HTTPHandler serves s over streamable HTTP.
func HTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s)
}

// ServeStdio serves s over in and out until ctx is cancelled or in closes.
// Diagnostics from the transport go to errLog.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer, errLog io.Writer) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(stdlog.New(errLog, "", stdlog.LstdFlags))
	return stdio.Listen(ctx, in, out)
}

// Tools lists the registered tool definitions.
func Tools() []mcp.Tool {
	return []mcp.Tool{addExpenseTool(), listExpensesTool(), summarizeTool()}
}
