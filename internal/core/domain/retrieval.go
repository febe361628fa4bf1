package domain

// EmbeddingMode distinguishes query vectors from document vectors. The two
// are produced by different instructions to the same model.
type EmbeddingMode string

const (
	EmbeddingModeDocument EmbeddingMode = "document"
	EmbeddingModeQuery    EmbeddingMode = "query"
)

// CandidateMetadata is the metadata written by the ingestion job. Keys the
// ingestion job adds beyond the named fields land in Extra.
type CandidateMetadata struct {
	URL       string         `json:"url"`
	Source    string         `json:"source"`
	Section   string         `json:"section"`
	DocID     string         `json:"doc_id"`
	Text      string         `json:"text"`
	StartChar *int           `json:"start_char,omitempty"`
	EndChar   *int           `json:"end_char,omitempty"`
	CharLen   int            `json:"char_len,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Candidate is one vector index match, in similarity order.
type Candidate struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata CandidateMetadata `json:"metadata"`
}

type RankedCandidate struct {
	Candidate
	LexicalScore float64 `json:"lexical_score"`
}

// ContextItem is one grounding snippet handed to the grounded generator.
type ContextItem struct {
	URL     string `json:"url"`
	Source  string `json:"source"`
	Section string `json:"section"`
	DocID   string `json:"doc_id"`
	Snippet string `json:"snippet"`
}
