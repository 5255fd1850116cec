// ABOUTME: MCP resource implementations for the menu cache.
// ABOUTME: Provides menu://all and menu://categories resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harperreed/littlelemon/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	resourceAll        = "menu://all"
	resourceCategories = "menu://categories"
)

func (s *Server) registerResources() {
	// menu://all - every cached dish grouped by category
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         resourceAll,
		Name:        "Little Lemon Menu",
		Description: "Every cached dish grouped by category",
		MIMEType:    "application/json",
	}, s.handleAllResource)

	// menu://categories - category chips with counts
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         resourceCategories,
		Name:        "Menu Categories",
		Description: "Known categories with display labels and dish counts",
		MIMEType:    "application/json",
	}, s.handleCategoriesResource)
}

// Resource handlers

func (s *Server) handleAllResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	items, err := s.svc.Search(ctx, models.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list menu: %w", err)
	}

	grouped := make(map[string][]menuItemOutput)
	for _, m := range items {
		grouped[m.Category] = append(grouped[m.Category], s.itemOutput(m))
	}

	return jsonResource(resourceAll, map[string]any{
		"count":      len(items),
		"categories": grouped,
	})
}

func (s *Server) handleCategoriesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	items, err := s.svc.Search(ctx, models.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list menu: %w", err)
	}

	counts := make(map[string]int)
	for _, m := range items {
		counts[m.Category]++
	}

	type category struct {
		Name  string `json:"name"`
		Label string `json:"label"`
		Count int    `json:"count"`
	}
	out := make([]category, 0, len(models.AllCategories))
	for _, c := range models.AllCategories {
		name := string(c)
		out = append(out, category{Name: name, Label: models.CategoryLabel(name), Count: counts[name]})
	}

	return jsonResource(resourceCategories, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
