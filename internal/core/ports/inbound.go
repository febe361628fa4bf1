package ports

import (
	"context"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

// Answerer is the inbound contract shared by every caller: HTTP, the NATS
// worker, the MCP tool and the CLI.
type Answerer interface {
	Answer(ctx context.Context, query domain.Query) (*domain.Response, error)
}
