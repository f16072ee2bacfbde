package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/importglob/internal/pipeline"
)

// absPath resolves a tool path argument against the project root.
func (s *Server) absPath(p string) string {
	p = filepath.ToSlash(p)
	if !path.IsAbs(p) {
		p = path.Join(s.transformer.Root(), p)
	}
	return path.Clean(p)
}

// errorPayload describes a failed transform for tool clients.
func errorPayload(err error) map[string]any {
	out := map[string]any{"error": err.Error()}
	var ge *pipeline.GlobError
	if errors.As(err, &ge) {
		out["kind"] = ge.Kind.String()
		out["pos"] = ge.Pos
	}
	return out
}

func (s *Server) handleTransformFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	filePath := getStringArg(args, "path")
	if filePath == "" {
		return errResult("path is required"), nil
	}
	id := s.absPath(filePath)

	var code []byte
	if c, ok := args["code"].(string); ok {
		code = []byte(c)
	} else {
		code, err = os.ReadFile(filepath.FromSlash(id))
		if err != nil {
			return errResult(fmt.Sprintf("file not found: %s", id)), nil
		}
	}

	res, err := s.transformer.Transform(ctx, code, id)
	if err != nil {
		slog.Warn("tools.transform", "file", id, "err", err)
		r := jsonResult(errorPayload(err))
		r.IsError = true
		return r, nil
	}
	if res == nil {
		s.registry.Remove(id)
		return jsonResult(map[string]any{
			"file":    id,
			"changed": false,
		}), nil
	}
	s.registry.Update(id, res.Globs)

	files := 0
	for _, c := range res.Calls {
		files += len(c.Files)
	}
	return jsonResult(map[string]any{
		"file":    id,
		"changed": true,
		"calls":   len(res.Calls),
		"matched": files,
		"globs":   res.Globs,
		"code":    res.Code,
	}), nil
}

// callSummary is the list_glob_calls view of a call site.
type callSummary struct {
	Kind       string   `json:"kind"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Ordinal    int      `json:"ordinal"`
	Globs      []string `json:"globs"`
	Eager      bool     `json:"eager,omitempty"`
	Export     string   `json:"export,omitempty"`
	Query      string   `json:"query,omitempty"`
	As         string   `json:"as,omitempty"`
	Exhaustive bool     `json:"exhaustive,omitempty"`
}

func (s *Server) handleListGlobCalls(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	filePath := getStringArg(args, "path")
	if filePath == "" {
		return errResult("path is required"), nil
	}
	id := s.absPath(filePath)
	code, err := os.ReadFile(filepath.FromSlash(id))
	if err != nil {
		return errResult(fmt.Sprintf("file not found: %s", id)), nil
	}

	sites, err := s.transformer.Parse(code, id)
	if err != nil {
		r := jsonResult(errorPayload(err))
		r.IsError = true
		return r, nil
	}
	calls := make([]callSummary, 0, len(sites))
	for _, site := range sites {
		c := callSummary{
			Kind:       string(site.Kind),
			Start:      site.Start,
			End:        site.End,
			Ordinal:    site.Ordinal,
			Globs:      site.Globs,
			Eager:      site.Options.Eager,
			Export:     site.Options.Export,
			As:         site.Options.As,
			Exhaustive: site.Options.Exhaustive,
		}
		if site.Options.Query != nil {
			c.Query = site.Options.Query.String()
		}
		calls = append(calls, c)
	}
	return jsonResult(map[string]any{
		"file":  id,
		"calls": calls,
	}), nil
}

func (s *Server) handleAffectedFiles(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	filePath := getStringArg(args, "path")
	if filePath == "" {
		return errResult("path is required"), nil
	}
	id := s.absPath(filePath)
	importers := s.registry.Affected(id)
	if importers == nil {
		importers = []string{}
	}
	return jsonResult(map[string]any{
		"file":      id,
		"importers": importers,
	}), nil
}

func (s *Server) handleBuildProject(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	stats, err := s.builder.Run(ctx)
	out := map[string]any{
		"files":       stats.Files,
		"transformed": stats.Transformed,
		"written":     stats.Written,
		"unchanged":   stats.Unchanged,
		"removed":     stats.Removed,
		"failed":      stats.Failed,
		"elapsed_ms":  stats.Elapsed.Milliseconds(),
	}
	if err != nil {
		out["error"] = err.Error()
		r := jsonResult(out)
		r.IsError = true
		return r, nil
	}
	return jsonResult(out), nil
}
