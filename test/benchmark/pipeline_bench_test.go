package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/concierge-labs/member-qa/internal/corpus"
	"github.com/concierge-labs/member-qa/internal/qa"
	"github.com/concierge-labs/member-qa/internal/qa/classify"
	"github.com/concierge-labs/member-qa/internal/qa/entity"
	"github.com/concierge-labs/member-qa/internal/qa/tokenizer"
	"github.com/concierge-labs/member-qa/pkg/config"
)

type benchWireMessage struct {
	ID        int    `json:"id"`
	UserName  string `json:"user_name"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func writeBenchCorpus(b *testing.B, n int) string {
	b.Helper()

	items := make([]benchWireMessage, n)
	base := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		user, text := benchMessage(i)
		items[i] = benchWireMessage{
			ID:        i + 1,
			UserName:  user,
			Message:   text,
			Timestamp: base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		}
	}
	data, err := json.Marshal(map[string]any{"items": items})
	if err != nil {
		b.Fatalf("marshaling corpus: %v", err)
	}
	path := filepath.Join(b.TempDir(), "messages.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		b.Fatalf("writing corpus: %v", err)
	}
	return path
}

func newBenchService(b *testing.B, n int) *qa.Service {
	b.Helper()

	cfg := &config.Config{
		Ranking:  config.RankingConfig{K1: 1.5, B: 0.75, TopK: 20},
		Entities: config.EntityConfig{CorpusProperNouns: true},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := qa.NewService(cfg, corpus.NewFileSource(writeBenchCorpus(b, n)), logger)
	if _, err := svc.Refresh(context.Background()); err != nil {
		b.Fatalf("building snapshot: %v", err)
	}
	return svc
}

// BenchmarkClassify measures question classification across the question
// shapes the service distinguishes.
func BenchmarkClassify(b *testing.B) {
	questions := []struct {
		name     string
		question string
	}{
		{"who", "Who wants to go to Aspen this weekend?"},
		{"when", "When is the trip to London happening?"},
		{"where", "Where is Sophia going for the holidays?"},
		{"how_many", "How many people are joining the dinner?"},
		{"what_are", "What are the options for tonight?"},
		{"generic", "Tell me about the yacht charter"},
	}

	for _, q := range questions {
		tokens := tokenizer.Tokenize(q.question)
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				qtype := classify.Classify(tokens)
				_ = qtype
			}
		})
	}
}

// BenchmarkEntityExtract measures entity extraction against gazetteers built
// from a 10 000 message corpus.
func BenchmarkEntityExtract(b *testing.B) {
	svc := newBenchService(b, 10000)
	gaz := svc.Snapshot().Gazetteers
	question := "Where is Sophia Al-Farsi going with 4 people next weekend?"

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ents := entity.Extract(question, gaz)
		_ = ents
	}
}

// BenchmarkAnswer measures the full pipeline (tokenize, classify, extract
// entities, rank, filter, answer) at increasing corpus sizes.
func BenchmarkAnswer(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, n := range sizes {
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			svc := newBenchService(b, n)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				result := svc.Answer("Where is Sophia going this weekend?")
				_ = result
			}
		})
	}
}

// BenchmarkAnswerByType measures per-type extractor cost over a fixed corpus.
func BenchmarkAnswerByType(b *testing.B) {
	svc := newBenchService(b, 10000)

	questions := []struct {
		name     string
		question string
	}{
		{"who", "Who is going to Aspen?"},
		{"when", "When is the trip to London?"},
		{"where", "Where is Marcus going?"},
		{"how_many", "How many people are at the club?"},
		{"generic", "Tell me about the yacht in Monaco"},
	}

	for _, q := range questions {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				result := svc.Answer(q.question)
				_ = result
			}
		})
	}
}

// BenchmarkAnswerParallel measures concurrent answer throughput; the read
// path shares one immutable snapshot with no locks.
func BenchmarkAnswerParallel(b *testing.B) {
	svc := newBenchService(b, 10000)

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			result := svc.Answer("Where is Sophia going this weekend?")
			_ = result
		}
	})
}

// BenchmarkRefresh measures a full snapshot rebuild including the corpus
// file read.
func BenchmarkRefresh(b *testing.B) {
	svc := newBenchService(b, 1000)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Refresh(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
