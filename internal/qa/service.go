// Package qa orchestrates the question-answering pipeline: tokenize and
// classify the question, extract entities against the snapshot's
// gazetteers, rank messages with the lexical index, filter candidates by
// entity, and dispatch to the answer extractor for the question type.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/concierge-labs/member-qa/internal/corpus"
	"github.com/concierge-labs/member-qa/internal/qa/classify"
	"github.com/concierge-labs/member-qa/internal/qa/entity"
	"github.com/concierge-labs/member-qa/internal/qa/extract"
	"github.com/concierge-labs/member-qa/internal/qa/index"
	"github.com/concierge-labs/member-qa/internal/qa/tokenizer"
	"github.com/concierge-labs/member-qa/pkg/config"
	"github.com/concierge-labs/member-qa/pkg/tracing"
)

// Result is the outcome of answering one question.
type Result struct {
	Answer          string `json:"answer"`
	Type            string `json:"type"`
	Found           bool   `json:"found"`
	Candidates      int    `json:"candidates"`
	SnapshotVersion uint64 `json:"snapshot_version"`
}

// Service answers questions over the currently published corpus snapshot.
// The read path takes no locks; it loads the snapshot pointer once per
// question and works entirely on that immutable view.
type Service struct {
	ranking  config.RankingConfig
	pipeline config.PipelineConfig
	entities config.EntityConfig
	source   corpus.Source
	logger   *slog.Logger

	current atomic.Pointer[Snapshot]
	version atomic.Uint64
	group   singleflight.Group
}

// NewService wires a question-answering service around a corpus source.
// The service starts with an empty snapshot (version 0) and serves
// "not found" until the first successful Refresh.
func NewService(cfg *config.Config, source corpus.Source, logger *slog.Logger) *Service {
	s := &Service{
		ranking:  cfg.Ranking,
		pipeline: cfg.Pipeline,
		entities: cfg.Entities,
		source:   source,
		logger:   logger,
	}
	s.current.Store(&Snapshot{})
	return s
}

// Snapshot returns the currently published snapshot. Before the first
// successful Refresh this is the empty snapshot with version 0.
func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

// Answer runs the full pipeline for one question against the current
// snapshot. It never fails for a syntactically valid question: an empty
// snapshot, an unindexable question, or exhausted extractors all produce
// the "not found" answer.
func (s *Service) Answer(question string) Result {
	snap := s.current.Load()
	tokens := tokenizer.Tokenize(question)
	qtype := classify.Classify(tokens)
	result := Result{
		Answer:          extract.NotFound,
		Type:            qtype.String(),
		SnapshotVersion: snap.Version,
	}
	if snap.Index == nil || len(snap.Corpus) == 0 || len(tokens) == 0 {
		return result
	}

	ents := entity.Extract(question, snap.Gazetteers)
	hits := snap.Index.TopK(tokens, s.ranking.TopK)
	cands := extract.Filter(s.candidates(snap, hits), ents)
	result.Candidates = len(cands)

	req := extract.Request{
		Question:   question,
		Tokens:     tokens,
		Entities:   ents,
		Gazetteers: snap.Gazetteers,
	}
	result.Answer, result.Found = extract.Answer(qtype, req, cands)
	return result
}

// candidates maps ranked hits onto corpus messages. With a positive
// context window each hit also pulls in that many neighbouring messages
// on each side, deduplicated first-seen, carrying the hit's score.
func (s *Service) candidates(snap *Snapshot, hits []index.Hit) []extract.Candidate {
	w := s.pipeline.ContextWindow
	if w <= 0 {
		cands := make([]extract.Candidate, len(hits))
		for i, h := range hits {
			cands[i] = extract.Candidate{Message: snap.Corpus[h.Pos], Score: h.Score, Pos: h.Pos}
		}
		return cands
	}

	seen := make(map[int]struct{}, len(hits))
	cands := make([]extract.Candidate, 0, len(hits))
	for _, h := range hits {
		lo, hi := h.Pos-w, h.Pos+w
		if lo < 0 {
			lo = 0
		}
		if last := len(snap.Corpus) - 1; hi > last {
			hi = last
		}
		for pos := lo; pos <= hi; pos++ {
			if _, dup := seen[pos]; dup {
				continue
			}
			seen[pos] = struct{}{}
			cands = append(cands, extract.Candidate{Message: snap.Corpus[pos], Score: h.Score, Pos: pos})
		}
	}
	return cands
}

// Refresh loads the corpus from the configured source, builds a fresh
// snapshot beside the live one, and publishes it atomically. Concurrent
// calls coalesce into a single load. A failed refresh returns the error
// and leaves the previous snapshot serving.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	v, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (s *Service) refresh(ctx context.Context) (*Snapshot, error) {
	started := time.Now()
	ctx, span := tracing.StartSpan(ctx, "refresh", fmt.Sprintf("refresh-%d", s.version.Load()+1))
	defer func() {
		span.End()
		span.Log()
	}()

	_, loadSpan := tracing.StartChildSpan(ctx, "corpus.load")
	messages, err := s.source.Load(ctx)
	if err != nil {
		loadSpan.End()
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	loadSpan.SetAttr("documents", len(messages))
	loadSpan.End()

	snap := &Snapshot{Corpus: messages, LoadedAt: time.Now()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, buildSpan := tracing.StartChildSpan(gctx, "index.build")
		defer buildSpan.End()
		docs := make([][]string, len(messages))
		for i, m := range messages {
			docs[i] = tokenizer.Tokenize(m.UserName + " " + m.Text)
		}
		snap.Index = index.Build(docs, index.Params{K1: s.ranking.K1, B: s.ranking.B})
		buildSpan.SetAttr("terms", snap.Index.Terms())
		return nil
	})
	g.Go(func() error {
		_, gazSpan := tracing.StartChildSpan(gctx, "gazetteers.build")
		defer gazSpan.End()
		snap.Gazetteers = entity.BuildGazetteers(messages, entity.Options{
			ExtraLocations:    s.entities.ExtraLocations,
			CorpusProperNouns: s.entities.CorpusProperNouns,
		})
		gazSpan.SetAttr("persons", len(snap.Gazetteers.Persons))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.Version = s.version.Add(1)
	s.current.Store(snap)
	s.logger.Info("snapshot published",
		"version", snap.Version,
		"documents", len(messages),
		"terms", snap.Index.Terms(),
		"persons", len(snap.Gazetteers.Persons),
		"duration", time.Since(started),
	)
	return snap, nil
}
