package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// createJSONResponse wraps data as an indented JSON text result.
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return createErrorResponse("marshal", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createTextResponse wraps a pre-rendered text result.
func createTextResponse(text string) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil
}

// createErrorResponse reports a failed operation as structured content
// rather than a protocol error, so hosts can render it.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	payload := map[string]interface{}{
		"error":     err.Error(),
		"operation": operation,
	}
	content, marshalErr := json.MarshalIndent(payload, "", "  ")
	if marshalErr != nil {
		content = []byte(fmt.Sprintf(`{"error": %q, "operation": %q}`, err.Error(), operation))
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}
