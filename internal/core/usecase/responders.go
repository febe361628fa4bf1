package usecase

import (
	"context"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
)

// Responders produce reply text for each branch. The chitchat and grounded
// replies fall back to fixed text, so they never return an empty string.
type Responders struct {
	generator *GenerationClient
}

func NewResponders(generator *GenerationClient) *Responders {
	return &Responders{generator: generator}
}

// Chitchat reports fallback=true when the fixed text was used.
func (r *Responders) Chitchat(ctx context.Context, text string) (reply string, fallback bool) {
	out := r.generator.Generate(ctx, ports.GenerationRequest{
		System:      chitchatSystemPrompt,
		Prompt:      text,
		Temperature: chitchatTemperature,
	})
	if out == "" {
		return ChitchatFallback, true
	}
	return out, false
}

func (r *Responders) Grounded(ctx context.Context, text string, items []domain.ContextItem) (reply string, fallback bool) {
	out := r.generator.Generate(ctx, ports.GenerationRequest{
		System:      groundedSystemPrompt,
		Prompt:      buildGroundedPrompt(text, items),
		Temperature: groundedTemperature,
	})
	if out == "" {
		return GroundedFallback, true
	}
	return out, false
}

// Crisis is static so that it works during every upstream outage.
func (r *Responders) Crisis() string {
	return CrisisMessage
}
