// ABOUTME: MCP tool implementations for the menu cache.
// ABOUTME: Provides listing, filtered search, and forced refresh of the menu.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/littlelemon/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	// list_menu
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_menu",
		Description: "List every dish on the Little Lemon menu",
	}, s.handleListMenu)

	// search_menu
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search_menu",
		Description: "Search dishes by title text and/or categories (starters, mains, desserts, drinks)",
	}, s.handleSearchMenu)

	// refresh_menu
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "refresh_menu",
		Description: "Download the menu again and replace the local cache",
	}, s.handleRefreshMenu)
}

// Tool input/output types

type listMenuInput struct{}

type searchMenuInput struct {
	Text       string   `json:"text,omitempty" jsonschema:"Substring to find in dish titles, case-insensitive for ASCII letters"`
	Categories []string `json:"categories,omitempty" jsonschema:"Only dishes in one of these categories"`
}

type menuItemOutput struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url,omitempty"`
}

type menuOutput struct {
	Count   int              `json:"count"`
	Items   []menuItemOutput `json:"items"`
	Message string           `json:"message"`
}

type refreshOutput struct {
	Count      int    `json:"count"`
	Generation string `json:"generation"`
	Message    string `json:"message"`
}

// Tool handlers

func (s *Server) handleListMenu(ctx context.Context, req *mcp.CallToolRequest, input listMenuInput) (*mcp.CallToolResult, menuOutput, error) {
	items, err := s.svc.Search(ctx, models.Filter{})
	if err != nil {
		return nil, menuOutput{}, fmt.Errorf("failed to list menu: %w", err)
	}
	return nil, s.menuOutput(items, models.Filter{}), nil
}

func (s *Server) handleSearchMenu(ctx context.Context, req *mcp.CallToolRequest, input searchMenuInput) (*mcp.CallToolResult, menuOutput, error) {
	f := models.Filter{Text: input.Text}
	for _, c := range input.Categories {
		if c = strings.TrimSpace(strings.ToLower(c)); c != "" {
			f.Categories = append(f.Categories, c)
		}
	}

	items, err := s.svc.Search(ctx, f)
	if err != nil {
		return nil, menuOutput{}, fmt.Errorf("failed to search menu: %w", err)
	}
	return nil, s.menuOutput(items, f), nil
}

func (s *Server) handleRefreshMenu(ctx context.Context, req *mcp.CallToolRequest, input listMenuInput) (*mcp.CallToolResult, refreshOutput, error) {
	res, err := s.svc.Refresh(ctx)
	if err != nil {
		return nil, refreshOutput{}, fmt.Errorf("failed to refresh menu: %w", err)
	}
	return nil, refreshOutput{
		Count:      res.Count,
		Generation: res.Generation,
		Message:    fmt.Sprintf("Refreshed menu: %d dishes", res.Count),
	}, nil
}

func (s *Server) menuOutput(items []models.MenuItem, f models.Filter) menuOutput {
	out := menuOutput{Count: len(items), Items: make([]menuItemOutput, len(items))}
	for i, m := range items {
		out.Items[i] = s.itemOutput(m)
	}

	switch {
	case len(items) == 0 && f.IsEmpty():
		out.Message = "No menu items."
	case len(items) == 0:
		out.Message = "No dishes match."
	default:
		out.Message = fmt.Sprintf("Found %d dishes", len(items))
	}
	return out
}

func (s *Server) itemOutput(m models.MenuItem) menuItemOutput {
	out := menuItemOutput{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Price:       m.DisplayPrice(),
		Category:    m.Category,
	}
	if s.imageURL != nil {
		out.ImageURL = s.imageURL(m.ImageFileName)
	}
	return out
}
