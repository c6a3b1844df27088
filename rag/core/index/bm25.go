package index

import (
	"math"
	"sort"
)

// Okapi BM25 parameters. Standard values work well for short clinical
// guideline chunks.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

type bm25Doc struct {
	terms map[string]int
	len   int
}

// bm25Index scores documents against tokenized queries using Okapi BM25.
// It is immutable once built; rebuild to pick up corpus changes.
type bm25Index struct {
	docs   []bm25Doc
	df     map[string]int // document frequency per term
	avgLen float64
}

func newBM25Index(corpus [][]string) *bm25Index {
	idx := &bm25Index{
		docs: make([]bm25Doc, len(corpus)),
		df:   make(map[string]int),
	}

	totalLen := 0
	for i, tokens := range corpus {
		terms := make(map[string]int, len(tokens))
		for _, t := range tokens {
			terms[t]++
		}
		for t := range terms {
			idx.df[t]++
		}
		idx.docs[i] = bm25Doc{terms: terms, len: len(tokens)}
		totalLen += len(tokens)
	}
	if len(corpus) > 0 {
		idx.avgLen = float64(totalLen) / float64(len(corpus))
	}
	return idx
}

type bm25Hit struct {
	docIndex int
	score    float64
}

// search returns the top-k documents by BM25 score, best first. Documents
// that match no query term are excluded. Ties keep corpus order.
func (idx *bm25Index) search(queryTokens []string, k int) []bm25Hit {
	if len(idx.docs) == 0 || len(queryTokens) == 0 {
		return nil
	}

	n := float64(len(idx.docs))
	scores := make([]float64, len(idx.docs))
	for _, term := range queryTokens {
		df, ok := idx.df[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
		for i, doc := range idx.docs {
			tf := float64(doc.terms[term])
			if tf == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*float64(doc.len)/idx.avgLen
			scores[i] += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
	}

	hits := make([]bm25Hit, 0, len(idx.docs))
	for i, s := range scores {
		if s > 0 {
			hits = append(hits, bm25Hit{docIndex: i, score: s})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
