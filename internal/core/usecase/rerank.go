package usecase

import (
	"math"
	"sort"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

// BM25 Okapi parameters.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// RerankBM25 reorders vector candidates by BM25 Okapi score, using the
// candidate batch itself as the corpus. Ties keep vector order. When every
// candidate text is empty the first finalK candidates are returned unscored
// and degenerate is true.
func RerankBM25(query string, candidates []domain.Candidate, finalK int) (ranked []domain.RankedCandidate, degenerate bool) {
	if len(candidates) == 0 || finalK <= 0 {
		return []domain.RankedCandidate{}, false
	}
	if finalK > len(candidates) {
		finalK = len(candidates)
	}

	corpus := make([][]string, len(candidates))
	empty := true
	for i, c := range candidates {
		corpus[i] = tokenizeWords(c.Metadata.Text)
		if len(corpus[i]) > 0 {
			empty = false
		}
	}

	if empty {
		out := make([]domain.RankedCandidate, 0, finalK)
		for _, c := range candidates[:finalK] {
			out = append(out, domain.RankedCandidate{Candidate: c})
		}
		return out, true
	}

	scores := newBM25Okapi(corpus).scores(tokenizeWords(query))
	out := make([]domain.RankedCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = domain.RankedCandidate{Candidate: c, LexicalScore: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LexicalScore > out[j].LexicalScore
	})
	return out[:finalK], false
}

type bm25Okapi struct {
	docFreqs []map[string]int
	docLen   []int
	avgdl    float64
	idf      map[string]float64
}

func newBM25Okapi(corpus [][]string) *bm25Okapi {
	m := &bm25Okapi{
		docFreqs: make([]map[string]int, len(corpus)),
		docLen:   make([]int, len(corpus)),
		idf:      make(map[string]float64),
	}

	nd := make(map[string]int)
	total := 0
	for i, doc := range corpus {
		m.docLen[i] = len(doc)
		total += len(doc)
		freqs := make(map[string]int, len(doc))
		for _, token := range doc {
			freqs[token]++
		}
		m.docFreqs[i] = freqs
		for token := range freqs {
			nd[token]++
		}
	}
	m.avgdl = float64(total) / float64(len(corpus))

	// Negative idf (terms in more than half the batch) is floored to a
	// fraction of the mean idf so common terms still count a little.
	n := float64(len(corpus))
	idfSum := 0.0
	negative := make([]string, 0)
	for token, df := range nd {
		idf := math.Log(n-float64(df)+0.5) - math.Log(float64(df)+0.5)
		m.idf[token] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, token)
		}
	}
	if len(m.idf) > 0 {
		eps := bm25Epsilon * idfSum / float64(len(m.idf))
		for _, token := range negative {
			m.idf[token] = eps
		}
	}
	return m
}

func (m *bm25Okapi) scores(query []string) []float64 {
	out := make([]float64, len(m.docFreqs))
	for _, q := range query {
		idf := m.idf[q]
		if idf == 0 {
			continue
		}
		for i, freqs := range m.docFreqs {
			tf := float64(freqs[q])
			if tf == 0 {
				continue
			}
			norm := bm25K1 * (1 - bm25B + bm25B*float64(m.docLen[i])/m.avgdl)
			out[i] += idf * (tf * (bm25K1 + 1) / (tf + norm))
		}
	}
	return out
}
