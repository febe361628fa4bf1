package usecase

import "github.com/kirillkom/matercare-assistant/internal/core/domain"

// AssembleContext maps ranked candidates one-to-one onto grounding items,
// keeping rerank order.
func AssembleContext(query string, ranked []domain.RankedCandidate, maxSentences int) []domain.ContextItem {
	items := make([]domain.ContextItem, 0, len(ranked))
	for _, rc := range ranked {
		md := rc.Metadata
		items = append(items, domain.ContextItem{
			URL:     md.URL,
			Source:  md.Source,
			Section: md.Section,
			DocID:   md.DocID,
			Snippet: CompressSnippet(query, md.Text, maxSentences),
		})
	}
	return items
}
