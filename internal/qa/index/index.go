// Package index implements BM25 ranking over a tokenized corpus snapshot.
package index

import (
	"math"
	"sort"
)

// Params are the BM25 tuning constants.
type Params struct {
	K1 float64
	B  float64
}

// Hit is one ranked document: its position in the corpus and its score.
type Hit struct {
	Pos   int
	Score float64
}

// posting records one document's term frequency for a term.
type posting struct {
	doc int
	tf  int
}

// Index is an immutable BM25 index. Build produces a complete index for one
// corpus snapshot; it is never updated in place and is safe for any number of
// concurrent readers.
type Index struct {
	params   Params
	postings map[string][]posting
	idf      map[string]float64
	docLens  []int
	avgdl    float64
}

// Build constructs the index from tokenized documents. Document position in
// the slice is the document id used in hits.
func Build(docs [][]string, params Params) *Index {
	ix := &Index{
		params:   params,
		postings: make(map[string][]posting),
		idf:      make(map[string]float64),
		docLens:  make([]int, len(docs)),
	}
	totalLen := 0
	for i, doc := range docs {
		ix.docLens[i] = len(doc)
		totalLen += len(doc)
		tf := make(map[string]int, len(doc))
		for _, tok := range doc {
			tf[tok]++
		}
		for tok, n := range tf {
			ix.postings[tok] = append(ix.postings[tok], posting{doc: i, tf: n})
		}
	}
	if len(docs) > 0 {
		ix.avgdl = float64(totalLen) / float64(len(docs))
	}
	n := float64(len(docs))
	for tok, plist := range ix.postings {
		df := float64(len(plist))
		ix.idf[tok] = math.Log((n-df+0.5)/(df+0.5) + 1)
	}
	return ix
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.docLens)
}

// Terms returns the vocabulary size.
func (ix *Index) Terms() int {
	return len(ix.postings)
}

// TopK scores every document containing at least one query token and returns
// up to k hits with positive scores, ordered by score descending with corpus
// position breaking ties. Query tokens are scored in order and with
// repetition, so a token asked twice contributes twice.
func (ix *Index) TopK(queryTokens []string, k int) []Hit {
	if k <= 0 || len(ix.docLens) == 0 || len(queryTokens) == 0 {
		return nil
	}
	scores := make(map[int]float64)
	for _, tok := range queryTokens {
		idf, ok := ix.idf[tok]
		if !ok {
			continue
		}
		for _, p := range ix.postings[tok] {
			tf := float64(p.tf)
			dl := float64(ix.docLens[p.doc])
			denom := tf + ix.params.K1*(1-ix.params.B+ix.params.B*dl/ix.avgdl)
			scores[p.doc] += idf * (tf * (ix.params.K1 + 1)) / denom
		}
	}
	hits := make([]Hit, 0, len(scores))
	for doc, score := range scores {
		if score > 0 {
			hits = append(hits, Hit{Pos: doc, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Pos < hits[j].Pos
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
