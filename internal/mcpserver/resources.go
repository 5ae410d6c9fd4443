package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"expensetracker/internal/catalog"
)

// CategoriesURI identifies the category catalog resource.
const CategoriesURI = "expense://categories"

func categoriesResource() mcp.Resource {
	return mcp.NewResource(CategoriesURI, "categories",
		mcp.WithResourceDescription("Categories and subcategories to choose from when adding an expense"),
		mcp.WithMIMEType(catalog.MIMEType),
	)
}

// Categories serves the catalog document unchanged.
func (h *Handlers) Categories(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := h.catalog.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", CategoriesURI, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CategoriesURI,
			MIMEType: catalog.MIMEType,
			Text:     string(data),
		},
	}, nil
}
