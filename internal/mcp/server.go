package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"chartly/internal/service"
	"chartly/internal/storage"
	"chartly/internal/web"
)

// Server is the MCP server for the import pipeline. It exposes tools
// so AI agents can inspect sources, suggest schemas, and drive imports.
type Server struct {
	mcp *server.MCPServer
	log *logrus.Logger

	// Services (injected from main)
	imports    *service.ImportService
	uploads    *storage.UploadStore
	provenance web.ProvenanceReader

	// Imports triggered over MCP run as this user.
	userID string
}

// Deps holds the dependencies passed to the MCP server.
type Deps struct {
	Imports    *service.ImportService
	Uploads    *storage.UploadStore
	Provenance web.ProvenanceReader
	Log        *logrus.Logger
	UserID     string
}

// New creates and configures an MCP server with all import tools.
func New(deps Deps) *Server {
	s := &Server{
		log:        deps.Log,
		imports:    deps.Imports,
		uploads:    deps.Uploads,
		provenance: deps.Provenance,
		userID:     deps.UserID,
	}
	if s.userID == "" {
		s.userID = "default"
	}

	s.mcp = server.NewMCPServer(
		"chartly-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerImportTools()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("mcp server listening on stdio")
	return server.ServeStdio(s.mcp)
}
