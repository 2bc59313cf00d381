package index

import (
	"fmt"
	"math"
	"testing"
)

var testParams = Params{K1: 1.5, B: 0.75}

func TestTopKScoreValue(t *testing.T) {
	// Two single-token documents. For the query term: tf=1, dl=avgdl=1, so
	// the length normalisation cancels and score = idf = ln((2-1+0.5)/(1+0.5)+1) = ln 2.
	ix := Build([][]string{{"aspen"}, {"tokyo"}}, testParams)
	hits := ix.TopK([]string{"aspen"}, 5)
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].Pos != 0 {
		t.Errorf("got pos %d, want 0", hits[0].Pos)
	}
	if diff := math.Abs(hits[0].Score - math.Ln2); diff > 1e-12 {
		t.Errorf("got score %v, want ln 2 (diff %v)", hits[0].Score, diff)
	}
}

func TestTopKOrdersByScoreThenPosition(t *testing.T) {
	docs := [][]string{
		{"paris", "trip"},
		{"spa", "day"},
		{"paris", "trip"},
	}
	ix := Build(docs, testParams)
	hits := ix.TopK([]string{"paris"}, 10)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Pos != 0 || hits[1].Pos != 2 {
		t.Errorf("tie not broken by corpus position: got %d, %d", hits[0].Pos, hits[1].Pos)
	}
	if hits[0].Score != hits[1].Score {
		t.Errorf("identical documents should tie exactly: %v vs %v", hits[0].Score, hits[1].Score)
	}
}

func TestTopKHigherTermFrequencyRanksFirst(t *testing.T) {
	docs := [][]string{
		{"spa", "day", "plan"},
		{"spa", "spa", "day"},
	}
	ix := Build(docs, testParams)
	hits := ix.TopK([]string{"spa"}, 10)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Pos != 1 {
		t.Errorf("document with tf=2 should rank first, got pos %d", hits[0].Pos)
	}
}

func TestTopKRepeatedQueryTokenScoresTwice(t *testing.T) {
	ix := Build([][]string{{"tokyo", "hotel"}, {"dinner", "plan"}}, testParams)
	once := ix.TopK([]string{"tokyo"}, 5)
	twice := ix.TopK([]string{"tokyo", "tokyo"}, 5)
	if len(once) != 1 || len(twice) != 1 {
		t.Fatalf("got %d and %d hits, want 1 and 1", len(once), len(twice))
	}
	if diff := math.Abs(twice[0].Score - 2*once[0].Score); diff > 1e-12 {
		t.Errorf("repeated token should double the score: %v vs 2*%v", twice[0].Score, once[0].Score)
	}
}

func TestTopKExcludesNonMatchingDocuments(t *testing.T) {
	docs := [][]string{
		{"aspen", "chalet"},
		{"tokyo", "hotel"},
	}
	ix := Build(docs, testParams)
	hits := ix.TopK([]string{"aspen"}, 10)
	for _, h := range hits {
		if h.Pos == 1 {
			t.Errorf("document without query terms must not appear in hits")
		}
	}
	if got := ix.TopK([]string{"zurich"}, 10); len(got) != 0 {
		t.Errorf("unknown term should yield no hits, got %v", got)
	}
}

func TestTopKTruncatesToK(t *testing.T) {
	docs := make([][]string, 6)
	for i := range docs {
		docs[i] = []string{"dinner", fmt.Sprintf("filler%d", i)}
	}
	ix := Build(docs, testParams)
	if got := ix.TopK([]string{"dinner"}, 3); len(got) != 3 {
		t.Errorf("got %d hits, want 3", len(got))
	}
}

func TestTopKEmptyInputs(t *testing.T) {
	ix := Build([][]string{{"aspen"}}, testParams)
	if got := ix.TopK(nil, 5); got != nil {
		t.Errorf("empty query: got %v, want nil", got)
	}
	if got := ix.TopK([]string{"aspen"}, 0); got != nil {
		t.Errorf("k=0: got %v, want nil", got)
	}
	empty := Build(nil, testParams)
	if got := empty.TopK([]string{"aspen"}, 5); got != nil {
		t.Errorf("empty corpus: got %v, want nil", got)
	}
}

func TestBuildCounts(t *testing.T) {
	ix := Build([][]string{{"a", "b"}, {"b", "c"}}, testParams)
	if ix.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ix.Len())
	}
	if ix.Terms() != 3 {
		t.Errorf("Terms() = %d, want 3", ix.Terms())
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	docs := [][]string{
		{"book", "the", "aspen", "chalet"},
		{"trip", "to", "london", "on", "march", "3"},
		{"dinner", "at", "nobu", "tonight"},
	}
	query := []string{"trip", "to", "london"}
	a := Build(docs, testParams).TopK(query, 10)
	b := Build(docs, testParams).TopK(query, 10)
	if len(a) != len(b) {
		t.Fatalf("hit counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("hit %d differs across rebuilds: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func BenchmarkTopK(b *testing.B) {
	docs := make([][]string, 500)
	vocab := []string{"book", "trip", "dinner", "hotel", "flight", "table", "spa", "yacht", "villa", "chef"}
	for i := range docs {
		doc := make([]string, 12)
		for j := range doc {
			doc[j] = vocab[(i+j*7)%len(vocab)]
		}
		docs[i] = doc
	}
	ix := Build(docs, testParams)
	query := []string{"trip", "to", "dinner", "hotel"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.TopK(query, 20)
	}
}
