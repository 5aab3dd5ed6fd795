// Package mcp exposes the symbol index and refactoring engine as MCP tools
// over stdio, so AI assistants and editor hosts consume the query and
// refactor APIs without a bespoke protocol.
package mcp

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/refx-dev/refx/internal/analyzer"
	"github.com/refx-dev/refx/internal/config"
	"github.com/refx-dev/refx/internal/debug"
	"github.com/refx-dev/refx/internal/index"
	"github.com/refx-dev/refx/internal/safety"
)

// Server wires the index, safety analyzer, and refactoring operations into
// an MCP tool server. The engine itself is single-threaded; the MCP
// transport delivers one tool call at a time, which provides the
// serialization the engine requires.
type Server struct {
	cfg    *config.Config
	index  *index.Index
	safety *safety.Analyzer
	server *mcp.Server
}

// NewServer creates an MCP server over a fresh index for cfg's project root.
// The initial build happens on the first scan tool call, not at startup.
func NewServer(cfg *config.Config) *Server {
	a := analyzer.New(cfg.Runtime)
	ix := index.New(cfg, a)

	s := &Server{
		cfg:    cfg,
		index:  ix,
		safety: safety.New(cfg.Runtime, ix),
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "refx-mcp-server",
		Version: "0.1.0",
	}, nil)
	s.registerTools()
	return s
}

// Start runs the server over stdio until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	debug.LogMCP("starting MCP server with stdio transport\n")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "scan",
		Description: "Rebuild the project symbol table. A blocking full rescan; run it before querying and after external edits.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"root": {
					Type:        "string",
					Description: "Project root to scan (defaults to the configured root)",
				},
			},
		},
	}, s.handleScan)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_symbol",
		Description: "Resolve a symbol by exact key, Class.name suffix, or bare name. Includes fuzzy suggestions when nothing matches.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Symbol name or Class.Member key",
				},
			},
			Required: []string{"name"},
		},
	}, s.handleFindSymbol)

	s.server.AddTool(&mcp.Tool{
		Name:        "search_symbols",
		Description: "Case-insensitive substring search over symbol names, optionally filtered by kind.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"pattern": {
					Type:        "string",
					Description: "Substring to search for",
				},
				"kind": {
					Type:        "string",
					Description: "Optional kind filter: class, struct, interface, enum, method, field, property, event",
				},
			},
			Required: []string{"pattern"},
		},
	}, s.handleSearchSymbols)

	s.server.AddTool(&mcp.Tool{
		Name:        "references",
		Description: "Whole-word textual references to a name across the scanned file set. Not scope-aware: every identical token counts.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Identifier to search for",
				},
			},
			Required: []string{"name"},
		},
	}, s.handleReferences)

	s.server.AddTool(&mcp.Tool{
		Name:        "call_hierarchy",
		Description: "One level of callers and callees for a method, with an indented text rendering.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"method": {
					Type:        "string",
					Description: "Method name or Class.Method key",
				},
				"max_depth": {
					Type:        "integer",
					Description: "Requested expansion depth (currently clamped to one level each direction, default 3)",
				},
			},
			Required: []string{"method"},
		},
	}, s.handleCallHierarchy)

	s.server.AddTool(&mcp.Tool{
		Name:        "file_symbols",
		Description: "All symbols declared in one file, ordered by line.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "File path as discovered by scan",
				},
			},
			Required: []string{"path"},
		},
	}, s.handleFileSymbols)

	s.server.AddTool(&mcp.Tool{
		Name:        "class_members",
		Description: "Methods or fields attributed to a class.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"class": {
					Type:        "string",
					Description: "Class name",
				},
				"member_kind": {
					Type:        "string",
					Description: "Either \"methods\" or \"fields\" (default \"methods\")",
				},
			},
			Required: []string{"class"},
		},
	}, s.handleClassMembers)

	s.server.AddTool(&mcp.Tool{
		Name:        "rename",
		Description: "Safety-checked whole-word rename. Returns a preview with per-file diffs by default; set apply=true to commit transactionally.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Symbol name or Class.Member key to rename",
				},
				"new_name": {
					Type:        "string",
					Description: "Proposed new identifier",
				},
				"apply": {
					Type:        "boolean",
					Description: "Commit the change after preview (default false)",
				},
			},
			Required: []string{"name", "new_name"},
		},
	}, s.handleRename)

	s.server.AddTool(&mcp.Tool{
		Name:        "extract_method",
		Description: "Extract a verbatim text selection from a method into a new private method. Preview by default; set apply=true to commit.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"method": {
					Type:        "string",
					Description: "Containing method name or Class.Method key",
				},
				"selection": {
					Type:        "string",
					Description: "Verbatim fragment of the method body to extract",
				},
				"new_name": {
					Type:        "string",
					Description: "Name for the synthesized method",
				},
				"apply": {
					Type:        "boolean",
					Description: "Commit the change after preview (default false)",
				},
			},
			Required: []string{"method", "selection", "new_name"},
		},
	}, s.handleExtractMethod)
}
