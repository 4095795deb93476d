// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes note navigation tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/zettelnav/internal/apperr"
	"github.com/starford/zettelnav/internal/models"
	"github.com/starford/zettelnav/internal/noteservice"
)

// Server wraps the MCP server with note navigation tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Zettelnav",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("jump",
		mcp.WithDescription("Resolve a cursor position in the corpus to a navigation target. "+
			"Returns {} when no link is under the cursor, {\"line\":n} for a note, "+
			"{\"path\":p} for a file or {\"path\":p,\"text\":t} for a file search."),
		mcp.WithString("mode", mcp.Description("Jump mode"),
			mcp.Enum("Forward", "Backward", "ForwardEnd", "BackwardEnd"), mcp.DefaultString("Forward")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("1-based line of the cursor")),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("0-based byte column of the cursor")),
	), s.jump)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List every note with its id, title and 0-based declaration line."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one note: title, declaration line, outgoing links and backlinks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id as written in its header")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the given address (e.g. @asdf or file.md@asdf)."),
		mcp.WithString("address", mcp.Required(), mcp.Description("Link address; the #text part is ignored")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search note ids and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("rebuild_index",
		mcp.WithDescription("Rebuild the index. With content, index that text; "+
			"without it, reload the corpus file from disk. "+
			"Read the link syntax first via get_link_syntax or the "+LinkSyntaxURI+" resource."),
		mcp.WithString("content", mcp.Description("Full corpus text (optional)")),
	), s.rebuildIndex)

	s.mcp.AddTool(mcp.NewTool("get_link_syntax",
		mcp.WithDescription("Returns the note header and link address syntax."),
	), s.getLinkSyntax)

	s.mcp.AddResource(
		mcp.NewResource(LinkSyntaxURI, "Link Syntax",
			mcp.WithResourceDescription("Note header and link address grammar."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLinkSyntaxResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) jump(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := models.ParseMode(req.GetString("mode", models.ModeForward.String()))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	line, err := req.RequireInt("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	column, err := req.RequireInt("column")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	target, err := s.svc.Jump(ctx, models.NewJumpRequest(mode, line, column))
	if err != nil {
		msg := fmt.Sprintf("%s: %s", apperr.Kind(err), err)
		var me *apperr.MissingNoteError
		if errors.As(err, &me) {
			if alt := s.svc.Suggest(me.ID, 3); len(alt) > 0 {
				msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(alt, ", "))
			}
		}
		return mcp.NewToolResultError(msg), nil
	}
	return jsonResult(target), nil
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListNotes(ctx)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("address")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) rebuildIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		res     noteservice.RebuildResult
		changed = true
		err     error
	)
	if content := req.GetString("content", ""); content != "" {
		res, err = s.svc.Rebuild(ctx, content)
	} else {
		res, changed, err = s.svc.Reload(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", apperr.Kind(err), err)), nil
	}
	if !changed {
		return mcp.NewToolResultText("corpus unchanged"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("indexed %d notes, %d links", res.Notes, res.Links)), nil
}

func (s *Server) getLinkSyntax(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LinkSyntax), nil
}

func (s *Server) readLinkSyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LinkSyntaxURI,
			MIMEType: "text/markdown",
			Text:     LinkSyntax,
		},
	}, nil
}
