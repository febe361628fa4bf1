package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
)

var crisisSignals = []string{
	"suicide", "kill myself", "end my life", "want to die",
	"hurt my baby", "hurt the baby", "harm my baby",
	"voices", "hallucination", "delusion", "psychosis",
	"emergency", "urgent help", "call 911", "988", "self harm", "self-harm",
	"kill my baby", "kill him", "kill her", "hurt myself", "hurt others",
}

var retrievalMarkers = []string{"what is", "how do", "can you provide", "link"}

// IntentClassifier labels a message. A crisis keyword short-circuits to
// CRISIS before the model is asked, so the label holds during outages.
type IntentClassifier struct {
	generator *GenerationClient
}

func NewIntentClassifier(generator *GenerationClient) *IntentClassifier {
	return &IntentClassifier{generator: generator}
}

func (c *IntentClassifier) Classify(ctx context.Context, text string) domain.Classification {
	if hasCrisisSignal(text) {
		return domain.Classification{Label: domain.IntentCrisis, Source: domain.IntentSourceSafetyKeyword}
	}

	raw := c.generator.Generate(ctx, ports.GenerationRequest{
		System:      classifierSystemPrompt,
		Prompt:      buildClassifierPrompt(text),
		Temperature: classifyTemperature,
		JSON:        true,
	})
	if label, ok := parseIntent(raw); ok {
		return domain.Classification{Label: label, Source: domain.IntentSourceModel}
	}
	return domain.Classification{Label: HeuristicIntent(text), Source: domain.IntentSourceHeuristic}
}

// HeuristicIntent is the keyword fallback used when the model answer is
// missing or unusable.
func HeuristicIntent(text string) domain.IntentLabel {
	label := domain.IntentChitchat
	if hasCrisisSignal(text) {
		label = domain.MoreCautious(label, domain.IntentCrisis)
	}
	lowered := strings.ToLower(text)
	for _, marker := range retrievalMarkers {
		if strings.Contains(lowered, marker) {
			label = domain.MoreCautious(label, domain.IntentRetrieve)
			break
		}
	}
	return label
}

func hasCrisisSignal(text string) bool {
	lowered := strings.ToLower(text)
	for _, signal := range crisisSignals {
		if strings.Contains(lowered, signal) {
			return true
		}
	}
	return false
}

func parseIntent(raw string) (domain.IntentLabel, bool) {
	obj, ok := extractJSONObject(stripCodeFence(raw))
	if !ok {
		return 0, false
	}
	var payload struct {
		Intent *int `json:"intent"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil || payload.Intent == nil {
		return 0, false
	}
	label := domain.IntentLabel(*payload.Intent)
	if !label.Valid() {
		return 0, false
	}
	return label, true
}

// stripCodeFence returns the body of the first ``` block, or raw unchanged.
func stripCodeFence(raw string) string {
	start := strings.Index(raw, "```")
	if start < 0 {
		return raw
	}
	body := raw[start+3:]
	end := strings.Index(body, "```")
	if end < 0 {
		return raw
	}
	body = body[:end]
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	return strings.TrimSpace(body)
}

// extractJSONObject finds the first balanced {...} span, ignoring braces
// inside JSON strings.
func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
