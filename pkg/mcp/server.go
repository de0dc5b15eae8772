package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/device/schema"
	"github.com/urmzd/gryfd/pkg/integration"
)

// Services are the bus services offered as tools.
type Services interface {
	Reset(ctx context.Context, entryID string) error
	SearchModules(ctx context.Context, entryID string) error
	GryfExpert(ctx context.Context, entryID, action string) error
	Status() []integration.BusStatus
}

// Server wraps the MCP server with gryfd's entity control functionality
type Server struct {
	mcpServer  *server.MCPServer
	controller device.Controller
	validator  *schema.Validator
	services   Services
}

// NewServer creates a new MCP server for entity control. services may be
// nil, which leaves the service tools out.
func NewServer(controller device.Controller, validator *schema.Validator, services Services) *Server {
	s := &Server{
		controller: controller,
		validator:  validator,
		services:   services,
	}

	s.mcpServer = server.NewMCPServer(
		"gryfd",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
