package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/groq-intel/internal/watcher"
	"github.com/DeusData/groq-intel/internal/workspace"
)

// Version is reported to MCP clients. Overridden at build time via -ldflags.
var Version = "0.1.0"

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp *mcp.Server
	svc *workspace.Service

	watcher *watcher.Watcher

	mu         sync.Mutex
	schemaPath string
}

// Option configures a Server.
type Option func(*Server)

// WithWatcher makes load_schema register the loaded path with w, replacing
// the previously watched schema.
func WithWatcher(w *watcher.Watcher) Option {
	return func(s *Server) { s.watcher = w }
}

// WithSchemaPath sets the path load_schema uses when called without one.
// The path is considered watched already.
func WithSchemaPath(path string) Option {
	return func(s *Server) { s.schemaPath = path }
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(svc *workspace.Service, opts ...Option) *Server {
	srv := &Server{
		svc: svc,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "groq-intel",
				Version: Version,
			},
			nil,
		),
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	// 1. load_schema
	s.mcp.AddTool(&mcp.Tool{
		Name:        "load_schema",
		Description: "Load a content schema (document-store schema JSON or compiled schema JSON) used for GROQ type inference. Validates size and nesting limits; a failed load leaves no schema loaded.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Path to the schema JSON file. If omitted, uses the configured schema path."
				}
			}
		}`),
	}, s.handleLoadSchema)

	// 2. schema_types
	s.mcp.AddTool(&mcp.Tool{
		Name:        "schema_types",
		Description: "List the types of the loaded schema, or the fields of one type including reference targets and array element types.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"type_name": {
					"type": "string",
					"description": "Type to describe (e.g. 'post'). Empty lists all types."
				},
				"documents_only": {
					"type": "boolean",
					"description": "When listing, include only top-level document types (default: false)"
				}
			}
		}`),
	}, s.handleSchemaTypes)

	// 3. analyze_query
	s.mcp.AddTool(&mcp.Tool{
		Name:        "analyze_query",
		Description: "Analyze a GROQ query: user-defined functions, inferred parameter types from call sites, and diagnostics (syntax errors, recursion, arity, duplicate definitions, annotation problems).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "GROQ query text"
				}
			},
			"required": ["query"]
		}`),
	}, s.handleAnalyzeQuery)

	// 4. type_context
	s.mcp.AddTool(&mcp.Tool{
		Name:        "type_context",
		Description: "Infer the schema type in scope at a position of a GROQ query. Returns the resolved type, candidate document types, the field under the cursor, and the fields available for completion.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "GROQ query text"
				},
				"offset": {
					"type": "integer",
					"description": "Byte offset of the cursor (default: end of query)"
				}
			},
			"required": ["query"]
		}`),
	}, s.handleTypeContext)

	// 5. hover
	s.mcp.AddTool(&mcp.Tool{
		Name:        "hover",
		Description: "Markdown hover text for the field, parameter or function at a position of a GROQ query.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "GROQ query text"
				},
				"offset": {
					"type": "integer",
					"description": "Byte offset of the cursor"
				}
			},
			"required": ["query", "offset"]
		}`),
	}, s.handleHover)
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw tool arguments.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	f, ok := v.(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

// getBoolArg extracts a boolean argument from parsed args.
func getBoolArg(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		return false
	}
	return b
}
