package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleAnalyzeQuery(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	query, ok := args["query"].(string)
	if !ok {
		return errResult("query is required"), nil
	}
	return jsonResult(s.svc.Analyze(query)), nil
}

func (s *Server) handleTypeContext(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	query, ok := args["query"].(string)
	if !ok {
		return errResult("query is required"), nil
	}
	offset, err := cursorArg(args, query, len(query))
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(s.svc.ContextAt(query, offset)), nil
}

func (s *Server) handleHover(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	query, ok := args["query"].(string)
	if !ok {
		return errResult("query is required"), nil
	}
	offset, err := cursorArg(args, query, -1)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"contents": s.svc.Hover(query, offset),
	}), nil
}

// cursorArg reads the offset argument. A negative default makes it required.
func cursorArg(args map[string]any, query string, defaultVal int) (int, error) {
	offset := getIntArg(args, "offset", defaultVal)
	if offset < 0 || offset > len(query) {
		return 0, fmt.Errorf("offset %d out of range [0, %d]", offset, len(query))
	}
	return offset, nil
}
