package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/importglob/internal/build"
	"github.com/DeusData/importglob/internal/pipeline"
	"github.com/DeusData/importglob/internal/watcher"
)

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp         *mcp.Server
	transformer *pipeline.Transformer
	registry    *watcher.Registry
	builder     *build.Builder

	// buildMu serializes builds with the watcher.
	buildMu *sync.Mutex
}

// NewServer creates a new MCP server with all tools registered. builder may
// be nil, in which case build_project is not offered.
func NewServer(t *pipeline.Transformer, reg *watcher.Registry, b *build.Builder, version string) *Server {
	if reg == nil {
		reg = watcher.NewRegistry(t.Root())
	}
	srv := &Server{
		transformer: t,
		registry:    reg,
		builder:     b,
		buildMu:     &sync.Mutex{},
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "importglob",
				Version: version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// BuildLock returns the mutex held while a build runs.
func (s *Server) BuildLock() *sync.Mutex {
	return s.buildMu
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "transform_file",
		Description: "Rewrite the import.meta.importGlob calls of a JavaScript or TypeScript file into static imports or lazy import() maps. Returns the transformed code and the resolved glob patterns. The file on disk is not modified.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "File path (absolute, or relative to project root)"
				},
				"code": {
					"type": "string",
					"description": "Source to transform instead of the file contents (optional)"
				}
			},
			"required": ["path"]
		}`),
	}, s.handleTransformFile)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_glob_calls",
		Description: "List the glob import calls of a file with their byte offsets, patterns and parsed options, without resolving or expanding them. Reports validation errors with their kind.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "File path (absolute, or relative to project root)"
				}
			},
			"required": ["path"]
		}`),
	}, s.handleListGlobCalls)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "affected_files",
		Description: "Return the importers whose glob calls match a file, i.e. the files that must be transformed again when it is added or removed. Only importers seen by transform_file or build_project are known.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Added or removed file (absolute, or relative to project root)"
				}
			},
			"required": ["path"]
		}`),
	}, s.handleAffectedFiles)

	if s.builder != nil {
		s.mcp.AddTool(&mcp.Tool{
			Name:        "build_project",
			Description: "Transform every script of the project into the output directory. Unchanged outputs are skipped using content hashes of the source and of the matched file lists.",
			InputSchema: json.RawMessage(`{"type": "object"}`),
		}, s.handleBuildProject)
	}
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

// parseArgs unmarshals the raw JSON arguments into a map.
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
