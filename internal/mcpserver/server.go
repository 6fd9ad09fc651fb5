// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Holocron tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/catalog"
	"github.com/starford/holocron/internal/display"
	"github.com/starford/holocron/internal/models"
	"github.com/starford/holocron/internal/session"
)

const fieldRulesURI = "holocron://field-rules"

// Server wraps the MCP server with Holocron tools.
type Server struct {
	mcp        *server.MCPServer
	catalog    *catalog.Service
	controller func() *session.Controller
	now        func() time.Time
}

// New creates a new MCP server with all Holocron tools registered.
// newController builds the controller used for each edit or reset call.
func New(cat *catalog.Service, newController func() *session.Controller) *Server {
	s := &Server{catalog: cat, controller: newController, now: time.Now}

	s.mcp = server.NewMCPServer(
		"Holocron",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_characters",
		mcp.WithDescription("List one page of Star Wars characters with local edits applied."),
		mcp.WithNumber("page", mcp.Description("Page number, 1-based (default 1)")),
	), s.listCharacters)

	s.mcp.AddTool(mcp.NewTool("search_characters",
		mcp.WithDescription("Search characters by name. Results include local edits."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Name fragment to search for")),
	), s.searchCharacters)

	s.mcp.AddTool(mcp.NewTool("get_character",
		mcp.WithDescription("Show one character with local edits applied, as a readable card."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Character id, e.g. 1 for Luke Skywalker")),
	), s.getCharacter)

	s.mcp.AddTool(mcp.NewTool("edit_character",
		mcp.WithDescription("Change one or more fields of a character and save them locally. "+
			"Only values that differ from the upstream record are stored. Read the field "+
			"rules first via get_field_rules or the holocron://field-rules resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Character id")),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Map of field name to new value, e.g. {\"height\": \"175\"}")),
	), s.editCharacter)

	s.mcp.AddTool(mcp.NewTool("reset_character",
		mcp.WithDescription("Discard every local edit of a character and restore the upstream record."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Character id")),
	), s.resetCharacter)

	s.mcp.AddTool(mcp.NewTool("list_modified",
		mcp.WithDescription("List every character that has local edits."),
	), s.listModified)

	s.mcp.AddTool(mcp.NewTool("get_field_rules",
		mcp.WithDescription("Returns the editable fields and the rules their values must satisfy."),
	), s.getFieldRules)

	s.mcp.AddResource(
		mcp.NewResource(fieldRulesURI, "Field Rules",
			mcp.WithResourceDescription("Editable character fields and their validation rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFieldRulesResource,
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

// errorResult turns err into a message an LLM can act on.
func errorResult(err error) *mcp.CallToolResult {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		return mcp.NewToolResultError(ve.Error() + " (see get_field_rules)")
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("character not found")
	case errors.Is(err, apperr.ErrBusy):
		return mcp.NewToolResultError("another change to this character is in progress, retry shortly")
	case errors.Is(err, apperr.ErrNetwork):
		return mcp.NewToolResultError("the Star Wars API is unavailable: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listCharacters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.catalog.List(ctx, req.GetInt("page", 1))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(page), nil
}

func (s *Server) searchCharacters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.catalog.Search(ctx, query)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(page), nil
}

func (s *Server) getCharacter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.catalog.Get(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(display.Card(rec, s.now())), nil
}

func (s *Server) editCharacter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, ok := req.GetArguments()["fields"].(map[string]any)
	if !ok || len(raw) == 0 {
		return mcp.NewToolResultError("fields must be a non-empty object"), nil
	}
	fields := make(models.Fields, len(raw))
	for k, v := range raw {
		str, ok := v.(string)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("field %q: value must be a string", k)), nil
		}
		fields[models.Field(k)] = str
	}

	snap, err := session.Edit(ctx, s.controller(), id, fields)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(display.Card(*snap.Effective, s.now())), nil
}

func (s *Server) resetCharacter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ctrl := s.controller()
	if _, err := ctrl.Load(ctx, id); err != nil {
		return errorResult(err), nil
	}
	snap, err := ctrl.ResetToCanonical(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(display.Card(*snap.Effective, s.now())), nil
}

func (s *Server) listModified(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.catalog.Modified(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if len(recs) == 0 {
		return mcp.NewToolResultText("no locally modified characters"), nil
	}
	return jsonResult(recs), nil
}

func (s *Server) getFieldRules(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FieldRules), nil
}

func (s *Server) readFieldRulesResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      fieldRulesURI,
			MIMEType: "text/markdown",
			Text:     FieldRules,
		},
	}, nil
}
