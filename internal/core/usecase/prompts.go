package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

const (
	classifyTemperature float32 = 0.0
	chitchatTemperature float32 = 0.4
	groundedTemperature float32 = 0.2
)

const classifierSystemPrompt = `You are a precise intent classifier for a postpartum support chatbot.
You must output STRICT JSON with exactly one key "intent" and an integer value:
- 0 → general conversation that does NOT require retrieval-augmented generation (RAG).
        Small talk, emotional check-ins, validation, reflective listening.
- 1 → conversation that DOES require RAG (the user asks for factual, clinical, policy,
        or resource info that should be grounded in external snippets).
        This includes discussions of symptoms or experiences that may indicate postpartum depression (PPD),
        such as persistent sadness, mood swings, anxiety, trouble bonding with the baby, or changes in sleep/appetite.
- 2 → conversation indicating HELP is needed (safety risk or crisis), including:
        self-harm, harm to baby/others, psychosis signs (confusion, delusions, hallucinations),
        suicidal ideation, domestic violence, medical emergencies, or urgent danger.

Rules:
- Output ONLY JSON, no prose, no markdown, no explanation.
- If unsure, choose the safer higher category between 0 and 1; if any crisis signal appears, return 2.`

const chitchatSystemPrompt = `You are a warm, supportive postpartum assistant for general conversation.
Be empathetic, validating, concise, and non-clinical. Do not give medical advice.
Offer gentle coping ideas if appropriate (breathing, journaling, talking to a trusted person).`

const groundedSystemPrompt = `You are a supportive postpartum assistant for educational purposes. You must adhere to the following rules:
1. Use ONLY the provided context snippets as your primary source of truth.
2. Be warm, non-judgmental, concise, and include actionable coping steps where appropriate.
3. Do NOT prescribe or suggest specific medications, doses, or schedules. If asked, state that you cannot provide prescription advice and recommend consulting a licensed clinician.
4. If you detect crisis language (intent to self-harm/harm others, postpartum psychosis signs), advise the user to seek immediate help from a local emergency number or a crisis hotline like 988 in the US.`

const (
	ChitchatFallback = "I'm here with you. Tell me more about how you're feeling."
	GroundedFallback = "I couldn't find that in the provided materials. Would you like me to look for reliable resources?"
	NoMatchesMessage = "I don't have information on that in my reference materials right now. " +
		"A licensed clinician or Postpartum Support International (www.postpartum.net) can help with questions like this."
	CrisisMessage = "I’m really glad you reached out. Your safety matters. If you feel in danger or have thoughts of harming yourself or your baby, " +
		"please call your local emergency number now. In the U.S., you can dial 988 for the Suicide & Crisis Lifeline (24/7). " +
		"If you can, consider contacting a trusted person nearby. I’m here to listen."
)

func buildClassifierPrompt(text string) string {
	return fmt.Sprintf("User message:\n%s\n\nReturn only JSON like {\"intent\": 0}.", text)
}

func buildGroundingBlock(items []domain.ContextItem) string {
	blocks := make([]string, 0, len(items))
	for _, item := range items {
		blocks = append(blocks, fmt.Sprintf(
			"- Source: %s | URL: %s\n  Snippet: %s",
			orNA(item.Source),
			orNA(item.URL),
			item.Snippet,
		))
	}
	return strings.Join(blocks, "\n\n")
}

func buildGroundedPrompt(text string, items []domain.ContextItem) string {
	return fmt.Sprintf(`User question:
%s

Grounding snippets (cite sources inline like [Source: NAME]):
%s

Respond with a short, supportive answer grounded in the snippets. If the information is not in the snippets, say so and suggest a next best step (e.g., talk therapy, support group, screening like EPDS).`,
		text, buildGroundingBlock(items))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
