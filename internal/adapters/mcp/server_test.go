package mcpadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

type answererFake struct {
	resp *domain.Response
	err  error
	last domain.Query
}

func (f *answererFake) Answer(_ context.Context, q domain.Query) (*domain.Response, error) {
	f.last = q
	return f.resp, f.err
}

func callAnswer(t *testing.T, answerer *answererFake, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	result, err := HandleAnswer(answerer, nil)(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestAnswerToolReturnsReply(t *testing.T) {
	answerer := &answererFake{resp: &domain.Response{Text: "Hi! How are you feeling today?", Outcome: domain.OutcomeChitchat}}
	result := callAnswer(t, answerer, map[string]any{"text": "hello", "user_id": "u-2"})

	if result.IsError {
		t.Fatalf("unexpected error result")
	}
	if got := resultText(t, result); got != "Hi! How are you feeling today?" {
		t.Fatalf("unexpected text %q", got)
	}
	if answerer.last.Text != "hello" || answerer.last.CallerID != "u-2" {
		t.Fatalf("unexpected query %+v", answerer.last)
	}
}

func TestAnswerToolRequiresText(t *testing.T) {
	result := callAnswer(t, &answererFake{}, map[string]any{})
	if !result.IsError {
		t.Fatalf("expected error result")
	}
	if got := resultText(t, result); got != "Field 'text' is required" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestAnswerToolMapsBackendUnavailable(t *testing.T) {
	answerer := &answererFake{err: domain.WrapError(domain.ErrBackendUnavailable, "answer", errors.New("down"))}
	result := callAnswer(t, answerer, map[string]any{"text": "what is epds"})
	if !result.IsError || resultText(t, result) != "LLM call failed" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestNewServerRegistersAnswerTool(t *testing.T) {
	tool := answerTool()
	if tool.Name != "answer" {
		t.Fatalf("unexpected tool name %q", tool.Name)
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "text" {
		t.Fatalf("expected text to be required, got %v", tool.InputSchema.Required)
	}
	if NewServer(&answererFake{}, nil) == nil {
		t.Fatalf("expected server")
	}
}
