package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/refx-dev/refx/internal/debug"
	"github.com/refx-dev/refx/internal/refactor"
	"github.com/refx-dev/refx/internal/render"
	"github.com/refx-dev/refx/internal/types"
)

// ScanParams are the arguments for the scan tool
type ScanParams struct {
	Root string `json:"root"`
}

// NameParams are the arguments for single-name lookup tools
type NameParams struct {
	Name string `json:"name"`
}

// SearchParams are the arguments for the search_symbols tool
type SearchParams struct {
	Pattern string `json:"pattern"`
	Kind    string `json:"kind"`
}

// CallHierarchyParams are the arguments for the call_hierarchy tool
type CallHierarchyParams struct {
	Method   string `json:"method"`
	MaxDepth int    `json:"max_depth"`
}

// FileParams are the arguments for the file_symbols tool
type FileParams struct {
	Path string `json:"path"`
}

// ClassMembersParams are the arguments for the class_members tool
type ClassMembersParams struct {
	Class      string `json:"class"`
	MemberKind string `json:"member_kind"`
}

// RenameParams are the arguments for the rename tool
type RenameParams struct {
	Name    string `json:"name"`
	NewName string `json:"new_name"`
	Apply   bool   `json:"apply"`
}

// ExtractParams are the arguments for the extract_method tool
type ExtractParams struct {
	Method    string `json:"method"`
	Selection string `json:"selection"`
	NewName   string `json:"new_name"`
	Apply     bool   `json:"apply"`
}

// rebuildNotifier rebuilds the index after a successful apply so subsequent
// queries see the committed text.
type rebuildNotifier struct {
	s *Server
}

func (n rebuildNotifier) ProjectChanged(files []string) {
	debug.LogMCP("project changed (%d files), rebuilding index\n", len(files))
	if _, err := n.s.index.Build(n.s.index.Root(), nil); err != nil {
		debug.LogMCP("rebuild after apply failed: %v\n", err)
	}
}

func symbolJSON(sym *types.CodeSymbol) map[string]interface{} {
	return map[string]interface{}{
		"key":                   sym.Key(),
		"name":                  sym.Name,
		"kind":                  sym.Kind.String(),
		"file":                  sym.FilePath,
		"start_line":            sym.StartLine,
		"end_line":              sym.EndLine,
		"enclosing_class":       sym.EnclosingClass,
		"signature":             sym.Signature,
		"modifiers":             sym.Modifiers,
		"attributes":            sym.Attributes,
		"framework_lifecycle":   sym.FrameworkLifecycle,
		"serialization_exposed": sym.SerializationExposed,
	}
}

func symbolListJSON(symbols []*types.CodeSymbol) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, symbolJSON(sym))
	}
	return out
}

func safetyJSON(report *types.SafetyReport) map[string]interface{} {
	return map[string]interface{}{
		"risk":        report.Risk.String(),
		"warnings":    report.Warnings,
		"blockers":    report.Blockers,
		"can_proceed": report.CanProceed(),
	}
}

func (s *Server) handleScan(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ScanParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return createErrorResponse("scan", fmt.Errorf("invalid parameters: %w", err))
		}
	}
	root := params.Root
	if root == "" {
		root = s.cfg.Project.Root
	}

	stats, err := s.index.Build(root, nil)
	if err != nil {
		return createErrorResponse("scan", err)
	}

	scanErrors := make([]string, 0, len(stats.ScanErrors))
	for _, se := range stats.ScanErrors {
		scanErrors = append(scanErrors, fmt.Sprintf("%s: %v", se.Path, se.Err))
	}
	return createJSONResponse(map[string]interface{}{
		"root":          root,
		"files_scanned": stats.FilesScanned,
		"symbol_count":  stats.SymbolCount,
		"scan_errors":   scanErrors,
		"generation":    stats.Generation,
		"duration_ms":   stats.Duration.Milliseconds(),
	})
}

func (s *Server) handleFindSymbol(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params NameParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("find_symbol", fmt.Errorf("invalid parameters: %w", err))
	}

	sym := s.index.FindSymbol(params.Name)
	if sym == nil {
		return createJSONResponse(map[string]interface{}{
			"found":       false,
			"name":        params.Name,
			"suggestions": s.index.SuggestSymbols(params.Name, 5),
		})
	}
	return createJSONResponse(map[string]interface{}{
		"found":  true,
		"symbol": symbolJSON(sym),
	})
}

func (s *Server) handleSearchSymbols(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params SearchParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("search_symbols", fmt.Errorf("invalid parameters: %w", err))
	}

	var results []*types.CodeSymbol
	if params.Kind != "" {
		kind := types.ParseSymbolKind(params.Kind)
		if kind == types.SymbolKindUnknown {
			return createErrorResponse("search_symbols", fmt.Errorf("unknown symbol kind %q", params.Kind))
		}
		results = s.index.SearchSymbols(params.Pattern, kind)
	} else {
		results = s.index.SearchSymbols(params.Pattern)
	}

	return createJSONResponse(map[string]interface{}{
		"pattern": params.Pattern,
		"count":   len(results),
		"symbols": symbolListJSON(results),
	})
}

func (s *Server) handleReferences(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params NameParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("references", fmt.Errorf("invalid parameters: %w", err))
	}

	refs := s.index.References(params.Name)
	out := make([]map[string]interface{}, 0, len(refs))
	for _, ref := range refs {
		out = append(out, map[string]interface{}{
			"file":    ref.FilePath,
			"line":    ref.Line,
			"column":  ref.Column,
			"context": ref.Context,
		})
	}
	return createJSONResponse(map[string]interface{}{
		"name":       params.Name,
		"count":      len(refs),
		"references": out,
	})
}

func (s *Server) handleCallHierarchy(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params CallHierarchyParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("call_hierarchy", fmt.Errorf("invalid parameters: %w", err))
	}

	sym := s.index.FindSymbol(params.Method)
	if sym == nil {
		return createErrorResponse("call_hierarchy", fmt.Errorf("symbol %q not found", params.Method))
	}
	if sym.Kind != types.SymbolKindMethod {
		return createErrorResponse("call_hierarchy", fmt.Errorf("%q is a %s, not a method", sym.Key(), sym.Kind))
	}

	maxDepth := params.MaxDepth
	if maxDepth == 0 {
		maxDepth = 3
	}
	node := s.index.CallHierarchy(sym, maxDepth)
	return createTextResponse(render.CallHierarchyText(node))
}

func (s *Server) handleFileSymbols(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params FileParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("file_symbols", fmt.Errorf("invalid parameters: %w", err))
	}

	symbols := s.index.SymbolsInFile(params.Path)
	return createJSONResponse(map[string]interface{}{
		"file":    params.Path,
		"count":   len(symbols),
		"symbols": symbolListJSON(symbols),
	})
}

func (s *Server) handleClassMembers(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ClassMembersParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("class_members", fmt.Errorf("invalid parameters: %w", err))
	}

	var members []*types.CodeSymbol
	switch params.MemberKind {
	case "", "methods":
		members = s.index.ClassMethods(params.Class)
	case "fields":
		members = s.index.ClassFields(params.Class)
	default:
		return createErrorResponse("class_members", fmt.Errorf("member_kind must be \"methods\" or \"fields\", got %q", params.MemberKind))
	}

	return createJSONResponse(map[string]interface{}{
		"class":   params.Class,
		"count":   len(members),
		"members": symbolListJSON(members),
	})
}

func (s *Server) handleRename(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params RenameParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("rename", fmt.Errorf("invalid parameters: %w", err))
	}

	sym := s.index.FindSymbol(params.Name)
	if sym == nil {
		return createErrorResponse("rename", fmt.Errorf("symbol %q not found (suggestions: %v)",
			params.Name, s.index.SuggestSymbols(params.Name, 3)))
	}

	op := refactor.NewRename(s.index, s.safety, sym, params.NewName,
		refactor.WithNotifier(rebuildNotifier{s}))
	preview, err := op.Prepare()
	if err != nil {
		return createErrorResponse("rename", err)
	}

	result, err := s.previewJSON(preview)
	if err != nil {
		return createErrorResponse("rename", err)
	}

	if params.Apply {
		if !preview.Safety.CanProceed() {
			result["applied"] = false
			result["apply_error"] = "operation is blocked; see safety report"
			return createJSONResponse(result)
		}
		if applyErr := op.Apply(ctx); applyErr != nil {
			result["applied"] = false
			result["apply_error"] = applyErr.Error()
			return createJSONResponse(result)
		}
		result["applied"] = true
	}
	return createJSONResponse(result)
}

func (s *Server) handleExtractMethod(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ExtractParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("extract_method", fmt.Errorf("invalid parameters: %w", err))
	}

	sym := s.index.FindSymbol(params.Method)
	if sym == nil {
		return createErrorResponse("extract_method", fmt.Errorf("method %q not found", params.Method))
	}
	if sym.Kind != types.SymbolKindMethod {
		return createErrorResponse("extract_method", fmt.Errorf("%q is a %s, not a method", sym.Key(), sym.Kind))
	}

	op := refactor.NewExtractMethod(s.index, s.safety, sym, params.Selection, params.NewName,
		refactor.WithNotifier(rebuildNotifier{s}))
	preview, err := op.Prepare()
	if err != nil {
		return createErrorResponse("extract_method", err)
	}

	result, err := s.previewJSON(preview)
	if err != nil {
		return createErrorResponse("extract_method", err)
	}

	if params.Apply {
		if !preview.Safety.CanProceed() {
			result["applied"] = false
			result["apply_error"] = "operation is blocked; see safety report"
			return createJSONResponse(result)
		}
		if applyErr := op.Apply(ctx); applyErr != nil {
			result["applied"] = false
			result["apply_error"] = applyErr.Error()
			return createJSONResponse(result)
		}
		result["applied"] = true
	}
	return createJSONResponse(result)
}

// previewJSON converts a refactoring preview into the response shape shared
// by rename and extract_method, including a rendered diff per affected file.
func (s *Server) previewJSON(preview *types.RefactoringPreview) (map[string]interface{}, error) {
	diffs := make([]map[string]interface{}, 0, len(preview.Files))
	for _, fp := range preview.Files {
		text, err := render.UnifiedDiff(fp.FilePath, fp.Before, fp.After)
		if err != nil {
			return nil, err
		}
		diffs = append(diffs, map[string]interface{}{
			"file":         fp.FilePath,
			"change_count": fp.ChangeCount,
			"diff":         text,
		})
	}
	return map[string]interface{}{
		"operation":     preview.Operation.String(),
		"target":        preview.Target.Key(),
		"safety":        safetyJSON(&preview.Safety),
		"total_changes": preview.TotalChanges,
		"files":         diffs,
	}, nil
}
