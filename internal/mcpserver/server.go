// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes mdorg conversion and lookup tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mdorg/internal/convert"
	"github.com/starford/mdorg/internal/ledger"
)

const headerFormatURI = "mdorg://header-format"

// Server wraps the MCP server with mdorg tools.
type Server struct {
	mcp  *server.MCPServer
	conv *convert.Converter
	db   ledger.Store
}

// New creates a new MCP server with all mdorg tools registered.
// db may be nil when the ledger is disabled.
func New(conv *convert.Converter, db ledger.Store, version string) *Server {
	s := &Server{conv: conv, db: db}

	s.mcp = server.NewMCPServer(
		"mdorg",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("convert_markdown",
		mcp.WithDescription("Convert an Obsidian-style Markdown note to Org-roam. "+
			"Wiki-links resolve against the identifier index of the converted vault. "+
			"Nothing is written to disk. See the "+headerFormatURI+" resource for the output format."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title (file name without extension)")),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown content of the note")),
	), s.convertMarkdown)

	s.mcp.AddTool(mcp.NewTool("lookup_id",
		mcp.WithDescription("Look up the Org-roam identifier assigned to a note title."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
	), s.lookupID)

	s.mcp.AddTool(mcp.NewTool("list_ids",
		mcp.WithDescription("List every indexed title with its identifier and output path."),
	), s.listIDs)

	s.mcp.AddTool(mcp.NewTool("list_unresolved_links",
		mcp.WithDescription("List wiki-links whose target had no identifier when their source was converted."),
	), s.listUnresolvedLinks)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all sources that link to the given title."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Target note title")),
	), s.getBacklinks)

	s.mcp.AddResource(
		mcp.NewResource(headerFormatURI, "Org Header Format",
			mcp.WithResourceDescription("Header layout and link forms of converted notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readHeaderFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) convertMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	markdown, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.conv.ConvertText(ctx, title, markdown)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(res.Unresolved) == 0 {
		return mcp.NewToolResultText(res.Org), nil
	}
	targets := make([]string, len(res.Unresolved))
	for i, r := range res.Unresolved {
		targets[i] = r.Target
	}
	return mcp.NewToolResultText(res.Org + "\n# unresolved: " + strings.Join(targets, ", ") + "\n"), nil
}

func (s *Server) lookupID(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, ok := s.conv.Index().Get(title)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", title)), nil
	}
	return mcp.NewToolResultText(e.ID), nil
}

func (s *Server) listIDs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.conv.Index().Snapshot(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

var errLedgerDisabled = errors.New("ledger disabled")

func (s *Server) listUnresolvedLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.db == nil {
		return mcp.NewToolResultError(errLedgerDisabled.Error()), nil
	}
	links, err := s.db.UnresolvedLinks()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(links) == 0 {
		return mcp.NewToolResultText("no unresolved links"), nil
	}
	lines := make([]string, len(links))
	for i, l := range links {
		lines[i] = l.Source + " -> " + l.Target
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError(errLedgerDisabled.Error()), nil
	}
	bl, err := s.db.Backlinks(title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) readHeaderFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      headerFormatURI,
			MIMEType: "text/markdown",
			Text:     HeaderFormat,
		},
	}, nil
}
