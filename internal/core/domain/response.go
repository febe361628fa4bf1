package domain

type Query struct {
	Text     string
	CallerID string
}

// Outcome names the terminal state a Query reached.
type Outcome string

const (
	OutcomeChitchat  Outcome = "chitchat"
	OutcomeGrounded  Outcome = "grounded"
	OutcomeNoMatches Outcome = "no_matches"
	OutcomeCrisis    Outcome = "crisis"
)

type Response struct {
	Text               string           `json:"text"`
	Intent             IntentLabel      `json:"intent"`
	IntentSource       IntentSource     `json:"intent_source"`
	Outcome            Outcome          `json:"outcome"`
	Sources            []ContextItem    `json:"sources"`
	RetrievedCount     int              `json:"retrieved_count"`
	RerankDegenerate   bool             `json:"rerank_degenerate"`
	GenerationFallback bool             `json:"generation_fallback"`
	Resources          []CrisisResource `json:"resources,omitempty"`
}

type CrisisResource struct {
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Text        string `json:"text,omitempty"`
	Website     string `json:"website"`
	Description string `json:"description"`
}

// CrisisResources returns a fresh copy of the static escalation contacts.
func CrisisResources() []CrisisResource {
	return []CrisisResource{
		{
			Name:        "988 Suicide & Crisis Lifeline",
			Phone:       "988",
			Text:        "Text HOME to 741741",
			Website:     "https://988lifeline.org",
			Description: "24/7 free and confidential support for people in distress",
		},
		{
			Name:        "Postpartum Support International",
			Phone:       "1-944-4-WARMLINE",
			Website:     "https://www.postpartum.net",
			Description: "Specialized support for perinatal mental health",
		},
		{
			Name:        "Crisis Text Line",
			Text:        "Text HOME to 741741",
			Website:     "https://www.crisistextline.org",
			Description: "24/7 crisis support via text message",
		},
	}
}
