package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"conventest/internal/execution"
	"conventest/internal/lifecycle"
	"conventest/internal/reporting"
	"conventest/pkg/logging"
)

// TestInfo describes one discovered test.
type TestInfo struct {
	Name   string `json:"name"`
	Class  string `json:"class"`
	Method string `json:"method"`
}

// CaseInfo describes one case outcome.
type CaseInfo struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message,omitempty"`
	Details    string `json:"details,omitempty"`
	Output     string `json:"output,omitempty"`
}

// RunResult is returned by the test_run tool.
type RunResult struct {
	RunID   string                     `json:"run_id"`
	Summary reporting.ExecutionSummary `json:"summary"`
	Cases   []CaseInfo                 `json:"cases"`
	Error   string                     `json:"error,omitempty"`
}

// handleDiscover handles the test_discover MCP tool
func (s *Server) handleDiscover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tests, err := s.runner.Discover(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Discovery failed: %v", err)), nil
	}
	if len(tests) == 0 {
		return mcp.NewToolResultText("No tests discovered"), nil
	}

	infos := make([]TestInfo, len(tests))
	for i, test := range tests {
		infos[i] = TestInfo{Name: test.Name(), Class: test.Class, Method: test.Method}
	}

	jsonData, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format tests: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// handleRun handles the test_run MCP tool
func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	var selected []lifecycle.Test
	if raw, ok := args["tests"]; ok && raw != nil {
		names, ok := raw.([]any)
		if !ok {
			return mcp.NewToolResultError("tests must be an array of Class.Method names"), nil
		}
		for _, n := range names {
			name, ok := n.(string)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("Invalid test name %v: expected a string", n)), nil
			}
			test, err := lifecycle.ParseTest(name)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			selected = append(selected, test)
		}
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	cases := &caseCollector{}
	runner := s.runner.With(execution.WithListeners(cases))

	var (
		summary reporting.ExecutionSummary
		runErr  error
	)
	if selected == nil {
		summary, runErr = runner.RunAll(ctx)
	} else {
		summary, runErr = runner.RunSelected(ctx, selected)
	}

	result := RunResult{
		RunID:   cases.runID,
		Summary: summary,
		Cases:   cases.snapshot(),
	}
	if runErr != nil {
		logging.Error("Agent", runErr, "Run requested over MCP failed")
		result.Error = runErr.Error()
	}

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format results: %v", err)), nil
	}
	if runErr != nil {
		return mcp.NewToolResultError(string(jsonData)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// caseCollector gathers case outcomes of one run.
type caseCollector struct {
	mu    sync.Mutex
	runID string
	cases []CaseInfo
}

func (c *caseCollector) Handle(_ context.Context, event reporting.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := event.(type) {
	case *reporting.AssemblyStarted:
		c.runID = e.RunID
	case reporting.CaseCompleted:
		r := e.Result()
		info := CaseInfo{
			Name:       r.Name,
			Status:     e.Status().String(),
			DurationMs: r.Duration.Milliseconds(),
			Output:     r.Output,
		}
		switch e := e.(type) {
		case *reporting.CaseSkipped:
			info.Reason = e.Reason
		case *reporting.CaseFailed:
			info.Message = e.Message()
			info.Details = e.FailureText()
		}
		c.cases = append(c.cases, info)
	}
	return nil
}

func (c *caseCollector) snapshot() []CaseInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CaseInfo{}, c.cases...)
}
