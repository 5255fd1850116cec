// ABOUTME: Tests for MCP server, tools, and resources.
// ABOUTME: Runs handlers against a real menu service over a temp SQLite store.
package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harperreed/littlelemon/internal/menu"
	"github.com/harperreed/littlelemon/internal/models"
	"github.com/harperreed/littlelemon/internal/remote"
	"github.com/harperreed/littlelemon/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubFetcher struct {
	items []models.MenuItem
	err   error
}

func (f stubFetcher) FetchMenu(ctx context.Context) ([]models.MenuItem, error) {
	return f.items, f.err
}

func testMenu() []models.MenuItem {
	return []models.MenuItem{
		{Title: "Greek Salad", Description: "Crispy", Price: "12.99", ImageFileName: "greekSalad.jpg", Category: "starters"},
		{Title: "Lemon Pasta", Description: "Zesty", Price: "15", ImageFileName: "pasta.jpg", Category: "mains"},
		{Title: "Lemonade", Description: "Cold", Price: "3.50", ImageFileName: "lemonade.jpg", Category: "drinks"},
	}
}

// setupTestServer bootstraps a menu service over a temp database.
func setupTestServer(t *testing.T, fetcher stubFetcher) *Server {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "little_lemon.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := menu.NewService(db, fetcher)
	res, err := svc.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if err := <-res.Persisted; err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	client := remote.New()
	server, err := NewServer(svc, client.ImageURL, "test")
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return server
}

func TestNewServer(t *testing.T) {
	server := setupTestServer(t, stubFetcher{items: testMenu()})

	if server.mcpServer == nil {
		t.Error("Expected non-nil mcpServer")
	}
	if server.svc == nil {
		t.Error("Expected non-nil svc")
	}
}

func TestHandleListMenu(t *testing.T) {
	server := setupTestServer(t, stubFetcher{items: testMenu()})

	_, out, err := server.handleListMenu(context.Background(), &mcp.CallToolRequest{}, listMenuInput{})
	if err != nil {
		t.Fatalf("handleListMenu failed: %v", err)
	}
	if out.Count != 3 {
		t.Errorf("Count = %d, want 3", out.Count)
	}
	if out.Items[0].Price != "$12.99" {
		t.Errorf("Price = %q, want $12.99", out.Items[0].Price)
	}
	if !strings.HasSuffix(out.Items[0].ImageURL, "/images/greekSalad.jpg?raw=true") {
		t.Errorf("unexpected image URL %q", out.Items[0].ImageURL)
	}
}

func TestHandleListMenuEmpty(t *testing.T) {
	server := setupTestServer(t, stubFetcher{})

	_, out, err := server.handleListMenu(context.Background(), &mcp.CallToolRequest{}, listMenuInput{})
	if err != nil {
		t.Fatalf("handleListMenu failed: %v", err)
	}
	if out.Count != 0 || out.Message != "No menu items." {
		t.Errorf("unexpected output: %+v", out)
	}
}

func TestHandleSearchMenu(t *testing.T) {
	server := setupTestServer(t, stubFetcher{items: testMenu()})
	ctx := context.Background()

	tests := []struct {
		name  string
		input searchMenuInput
		want  []string
	}{
		{"text", searchMenuInput{Text: "LEMON"}, []string{"Lemon Pasta", "Lemonade"}},
		{"category", searchMenuInput{Categories: []string{"Drinks"}}, []string{"Lemonade"}},
		{"both", searchMenuInput{Text: "lemon", Categories: []string{"mains"}}, []string{"Lemon Pasta"}},
		{"wildcard literal", searchMenuInput{Text: "_"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := server.handleSearchMenu(ctx, &mcp.CallToolRequest{}, tt.input)
			if err != nil {
				t.Fatalf("handleSearchMenu failed: %v", err)
			}
			got := make([]string, len(out.Items))
			for i, item := range out.Items {
				got[i] = item.Title
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleRefreshMenu(t *testing.T) {
	server := setupTestServer(t, stubFetcher{items: testMenu()})

	_, out, err := server.handleRefreshMenu(context.Background(), &mcp.CallToolRequest{}, listMenuInput{})
	if err != nil {
		t.Fatalf("handleRefreshMenu failed: %v", err)
	}
	if out.Count != 3 || out.Generation == "" {
		t.Errorf("unexpected output: %+v", out)
	}
}

func TestHandleRefreshMenuFetchError(t *testing.T) {
	server := setupTestServer(t, stubFetcher{items: testMenu()})
	server.svc = refreshFails{MenuService: server.svc}

	_, _, err := server.handleRefreshMenu(context.Background(), &mcp.CallToolRequest{}, listMenuInput{})
	if err == nil {
		t.Fatal("expected error when refresh fails")
	}
}

type refreshFails struct {
	MenuService
}

func (refreshFails) Refresh(ctx context.Context) (*menu.RefreshResult, error) {
	return nil, remote.ErrFetch
}

func TestHandleAllResource(t *testing.T) {
	server := setupTestServer(t, stubFetcher{items: testMenu()})

	result, err := server.handleAllResource(context.Background(), &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleAllResource failed: %v", err)
	}
	if len(result.Contents) == 0 {
		t.Fatal("Expected at least one content item")
	}
	if result.Contents[0].URI != "menu://all" {
		t.Errorf("URI = %s, want menu://all", result.Contents[0].URI)
	}
	if result.Contents[0].MIMEType != "application/json" {
		t.Errorf("MIMEType = %s, want application/json", result.Contents[0].MIMEType)
	}

	var body struct {
		Count      int                         `json:"count"`
		Categories map[string][]menuItemOutput `json:"categories"`
	}
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Count != 3 || len(body.Categories["mains"]) != 1 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHandleCategoriesResource(t *testing.T) {
	server := setupTestServer(t, stubFetcher{items: testMenu()})

	result, err := server.handleCategoriesResource(context.Background(), &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleCategoriesResource failed: %v", err)
	}

	text := result.Contents[0].Text
	for _, want := range []string{`"label": "Starters"`, `"name": "desserts"`, `"count": 0`} {
		if !strings.Contains(text, want) {
			t.Errorf("categories resource missing %s", want)
		}
	}
}
