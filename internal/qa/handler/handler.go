// Package handler exposes the question answering service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/concierge-labs/member-qa/internal/analytics"
	"github.com/concierge-labs/member-qa/internal/qa"
	"github.com/concierge-labs/member-qa/internal/qa/cache"
	apperrors "github.com/concierge-labs/member-qa/pkg/errors"
	"github.com/concierge-labs/member-qa/pkg/logger"
	"github.com/concierge-labs/member-qa/pkg/metrics"
	"github.com/concierge-labs/member-qa/pkg/middleware"
)

// AskService answers questions against the current corpus snapshot.
type AskService interface {
	Answer(question string) qa.Result
	Refresh(ctx context.Context) (*qa.Snapshot, error)
	Snapshot() *qa.Snapshot
}

type Handler struct {
	service AskService
	cache   *cache.AnswerCache
	tracker analytics.Tracker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds the handler. The cache and metrics may be nil when those
// subsystems are disabled; a nil tracker is replaced with a no-op.
func New(service AskService, answerCache *cache.AnswerCache, tracker analytics.Tracker, m *metrics.Metrics) *Handler {
	if tracker == nil {
		tracker = analytics.NopTracker{}
	}
	return &Handler{
		service: service,
		cache:   answerCache,
		tracker: tracker,
		metrics: m,
		logger:  slog.Default().With("component", "qa-handler"),
	}
}

type askResponse struct {
	Answer string `json:"answer"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	question := strings.TrimSpace(r.URL.Query().Get("q"))
	if question == "" {
		h.writeError(w, apperrors.Invalid("query parameter 'q' is required"), "invalid request")
		return
	}

	var result qa.Result
	cacheHit := false

	if h.cache != nil {
		result, cacheHit = h.cache.GetOrCompute(ctx, h.service.Snapshot().Version, question, func() qa.Result {
			return h.service.Answer(question)
		})
	} else {
		result = h.service.Answer(question)
	}

	latency := time.Since(start)

	log.Info("question answered",
		"question", question,
		"type", result.Type,
		"found", result.Found,
		"candidates", result.Candidates,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)

	if h.metrics != nil {
		h.metrics.QuestionsTotal.WithLabelValues(result.Type).Inc()
		outcome := "answered"
		if !result.Found {
			outcome = "not_found"
		}
		h.metrics.AnswersTotal.WithLabelValues(outcome).Inc()
		h.metrics.AnswerLatency.WithLabelValues(h.cacheStatus(cacheHit)).Observe(latency.Seconds())
		h.metrics.CandidateCount.Observe(float64(result.Candidates))
		if h.cache != nil {
			if cacheHit {
				h.metrics.CacheHitsTotal.Inc()
			} else {
				h.metrics.CacheMissesTotal.Inc()
			}
		}
	}

	h.tracker.Track(analytics.QuestionEvent{
		Type:            analytics.EventQuestion,
		Question:        question,
		QuestionType:    result.Type,
		Answer:          result.Answer,
		Found:           result.Found,
		Candidates:      result.Candidates,
		CacheHit:        cacheHit,
		LatencyMs:       latency.Milliseconds(),
		SnapshotVersion: result.SnapshotVersion,
		Timestamp:       time.Now().UTC(),
		RequestID:       middleware.GetRequestID(ctx),
	})

	h.writeJSON(w, http.StatusOK, askResponse{Answer: result.Answer})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	snap, err := h.service.Refresh(ctx)
	duration := time.Since(start)

	if err != nil {
		log.Error("corpus refresh failed", "error", err)
		if h.metrics != nil {
			h.metrics.RefreshTotal.WithLabelValues("error").Inc()
		}
		h.tracker.Track(analytics.RefreshEvent{
			Type:       analytics.EventRefresh,
			DurationMs: duration.Milliseconds(),
			Error:      err.Error(),
			Timestamp:  time.Now().UTC(),
		})
		h.writeError(w, err, "corpus refresh failed")
		return
	}

	if h.metrics != nil {
		h.metrics.RefreshTotal.WithLabelValues("success").Inc()
		h.metrics.RefreshDuration.Observe(duration.Seconds())
		h.metrics.SnapshotDocuments.Set(float64(snap.Documents()))
		h.metrics.SnapshotTerms.Set(float64(snap.Index.Terms()))
	}

	if h.cache != nil {
		if n, err := h.cache.Invalidate(ctx); err != nil {
			log.Warn("answer cache invalidation failed", "error", err)
		} else if n > 0 {
			log.Info("answer cache invalidated", "entries", n)
		}
	}

	log.Info("corpus refreshed",
		"version", snap.Version,
		"documents", snap.Documents(),
		"duration_ms", duration.Milliseconds(),
	)

	h.tracker.Track(analytics.RefreshEvent{
		Type:       analytics.EventRefresh,
		Documents:  snap.Documents(),
		Version:    snap.Version,
		DurationMs: duration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	})

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "refreshed",
		"documents": snap.Documents(),
	})
}

func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"service":          "member-qa",
		"version":          "1.0.0",
		"documents":        snap.Documents(),
		"snapshot_version": snap.Version,
		"endpoints": map[string]string{
			"ask":     "GET /ask?q=<question>",
			"refresh": "GET /refresh",
		},
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) cacheStatus(hit bool) string {
	if h.cache == nil {
		return "bypass"
	}
	if hit {
		return "hit"
	}
	return "miss"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status and body. public is the wording used when
// err carries no caller-facing message of its own.
func (h *Handler) writeError(w http.ResponseWriter, err error, public string) {
	if msg := apperrors.Message(err); msg != "" {
		public = msg
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": public})
}
