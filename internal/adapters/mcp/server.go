// Package mcpadapter exposes the assistant as an MCP tool.
package mcpadapter

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
)

const (
	serverName = "matercare-assistant"
	version    = "1.0.0"
	toolName   = "answer"
	endpoint   = "mcp"
)

// Observer records answered calls. *metrics.AnswerMetrics satisfies it.
type Observer interface {
	ObserveResponse(endpoint string, resp *domain.Response, duration time.Duration)
	ObserveError(endpoint string, err error)
}

func NewServer(answerer ports.Answerer, observer Observer) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Perinatal mental health assistant. Call answer with the user's message."),
	)
	s.AddTool(answerTool(), HandleAnswer(answerer, observer))
	return s
}

func answerTool() mcp.Tool {
	return mcp.NewTool(toolName,
		mcp.WithDescription("Answer a message about pregnancy and postpartum wellbeing. Crisis messages get escalation resources."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The user's message"),
		),
		mcp.WithString("user_id",
			mcp.Description("Opaque caller identity"),
		),
	)
}

func HandleAnswer(answerer ports.Answerer, observer Observer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil || text == "" {
			return mcp.NewToolResultError("Field 'text' is required"), nil
		}

		start := time.Now()
		resp, err := answerer.Answer(ctx, domain.Query{
			Text:     text,
			CallerID: request.GetString("user_id", ""),
		})
		if err != nil {
			if observer != nil {
				observer.ObserveError(endpoint, err)
			}
			slog.Error("mcp_answer_failed", "error", err)
			if domain.IsKind(err, domain.ErrBackendUnavailable) {
				return mcp.NewToolResultError("LLM call failed"), nil
			}
			return mcp.NewToolResultError("internal error"), nil
		}
		if observer != nil {
			observer.ObserveResponse(endpoint, resp, time.Since(start))
		}
		return mcp.NewToolResultText(resp.Text), nil
	}
}
