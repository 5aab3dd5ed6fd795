package mcp

// CallTool invokes a registered tool handler in-process, bypassing the stdio
// transport. Intended for tests: direct invocation keeps stack traces usable
// and avoids process plumbing.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CallTool simulates an MCP tool call and returns the first text content of
// the result.
func (s *Server) CallTool(toolName string, params map[string]interface{}) (string, error) {
	ctx := context.Background()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal params: %w", err)
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      toolName,
			Arguments: paramsJSON,
		},
	}

	var result *mcp.CallToolResult
	switch toolName {
	case "scan":
		result, err = s.handleScan(ctx, req)
	case "find_symbol":
		result, err = s.handleFindSymbol(ctx, req)
	case "search_symbols":
		result, err = s.handleSearchSymbols(ctx, req)
	case "references":
		result, err = s.handleReferences(ctx, req)
	case "call_hierarchy":
		result, err = s.handleCallHierarchy(ctx, req)
	case "file_symbols":
		result, err = s.handleFileSymbols(ctx, req)
	case "class_members":
		result, err = s.handleClassMembers(ctx, req)
	case "rename":
		result, err = s.handleRename(ctx, req)
	case "extract_method":
		result, err = s.handleExtractMethod(ctx, req)
	default:
		return "", fmt.Errorf("unknown tool %q", toolName)
	}
	if err != nil {
		return "", err
	}
	if result.IsError {
		return textOf(result), fmt.Errorf("tool %s reported an error", toolName)
	}
	return textOf(result), nil
}

func textOf(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
