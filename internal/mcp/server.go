// ABOUTME: MCP server setup for the littlelemon menu cache.
// ABOUTME: Wraps the MCP server around the menu service and an image URL resolver.
package mcp

import (
	"context"

	"github.com/harperreed/littlelemon/internal/menu"
	"github.com/harperreed/littlelemon/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MenuService is the part of menu.Service the MCP tools use.
type MenuService interface {
	Search(ctx context.Context, f models.Filter) ([]models.MenuItem, error)
	Refresh(ctx context.Context) (*menu.RefreshResult, error)
}

// Server wraps the MCP server with menu access.
type Server struct {
	mcpServer *mcp.Server
	svc       MenuService
	imageURL  func(string) string
}

// NewServer creates a new MCP server over the given menu service.
func NewServer(svc MenuService, imageURL func(string) string, version string) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "littlelemon",
			Version: version,
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		svc:       svc,
		imageURL:  imageURL,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
