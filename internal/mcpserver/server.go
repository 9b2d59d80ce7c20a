// Package mcpserver exposes the decision layer as an MCP tool so agents can
// classify log lines directly.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dorzhavian/hardwareexpress-logai/internal/classify"
)

// ToolName is the name of the single tool the server registers.
const ToolName = "classify_log"

var inputSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text": map[string]any{
			"type":        "string",
			"description": "The raw log entry to classify.",
		},
	},
	"required": []string{"text"},
}

// Server wraps an MCP server with the classify_log tool registered.
type Server struct {
	mcp     *mcp.Server
	decider classify.Decider
	logger  *slog.Logger
}

// New creates a Server backed by decider.
func New(decider classify.Decider, version string, logger *slog.Logger) *Server {
	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{Name: "logai", Version: version},
			&mcp.ServerOptions{Logger: logger},
		),
		decider: decider,
		logger:  logger.With("area", "mcp"),
	}
	s.mcp.AddTool(&mcp.Tool{
		Name:        ToolName,
		Description: "Classify one log entry as suspicious or normal. Returns the verdict as JSON.",
		InputSchema: inputSchema,
	}, s.classifyLog)
	return s
}

// Run serves on transport until ctx is cancelled or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcp.Run(ctx, transport)
}

// RunStdio serves on stdin/stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("starting stdio transport", "mode", s.decider.Mode())
	return s.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) classifyLog(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Text *string `json:"text"`
	}
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return toolError("invalid arguments: " + err.Error()), nil
		}
	}
	if args.Text == nil {
		return toolError("text is required"), nil
	}

	verdict, err := s.decider.Decide(ctx, *args.Text)
	if err != nil {
		s.logger.Warn("classify_log failed", "err", err)
		return toolError(err.Error()), nil
	}

	out, err := json.Marshal(verdict)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(out)}},
	}, nil
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
