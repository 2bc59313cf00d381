package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/concierge-labs/member-qa/pkg/config"
	apperrors "github.com/concierge-labs/member-qa/pkg/errors"
	"github.com/concierge-labs/member-qa/pkg/resilience"
)

// pageHandler serves a corpus of `total` synthetic messages in pages of
// `limit`, mimicking the remote API's skip/limit contract.
func pageHandler(t *testing.T, total, limit int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		gotLimit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if gotLimit != limit {
			t.Errorf("got limit=%d, want %d", gotLimit, limit)
		}
		var items []map[string]string
		for i := skip; i < total && i < skip+limit; i++ {
			items = append(items, map[string]string{
				"id":        strconv.Itoa(i),
				"user_name": "Member",
				"message":   fmt.Sprintf("message %d", i),
				"timestamp": time.Date(2024, 6, 1, 0, 0, i, 0, time.UTC).Format(time.RFC3339),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	}
}

func TestRemoteSourcePaginates(t *testing.T) {
	var requests atomic.Int32
	handler := pageHandler(t, 7, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		handler(w, r)
	}))
	defer srv.Close()

	src := NewRemoteSource(config.CorpusConfig{URL: srv.URL, PageLimit: 3, PageTimeout: 5 * time.Second})
	msgs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(msgs) != 7 {
		t.Fatalf("got %d messages, want 7", len(msgs))
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("got %d page requests, want 3", got)
	}
}

func TestRemoteSourceStopsOnEmptyPage(t *testing.T) {
	var requests atomic.Int32
	handler := pageHandler(t, 6, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		handler(w, r)
	}))
	defer srv.Close()

	src := NewRemoteSource(config.CorpusConfig{URL: srv.URL, PageLimit: 3, PageTimeout: 5 * time.Second})
	msgs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(msgs) != 6 {
		t.Fatalf("got %d messages, want 6", len(msgs))
	}
	// Two full pages, then an empty page terminates pagination.
	if got := requests.Load(); got != 3 {
		t.Errorf("got %d page requests, want 3", got)
	}
}

func TestRemoteSourceFailsWholeLoadOnPageError(t *testing.T) {
	handler := pageHandler(t, 7, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		if skip >= 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		handler(w, r)
	}))
	defer srv.Close()

	src := NewRemoteSource(config.CorpusConfig{URL: srv.URL, PageLimit: 3, PageTimeout: 5 * time.Second})
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected error when a page fails mid-pagination")
	}
}

func TestRemoteSourceBreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewRemoteSource(config.CorpusConfig{URL: srv.URL, PageLimit: 3, PageTimeout: time.Second})
	for i := 0; i < 5; i++ {
		if _, err := src.Load(context.Background()); err == nil {
			t.Fatal("expected load failure")
		}
	}
	_, err := src.Load(context.Background())
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("got %v, want circuit-open error", err)
	}
}

func TestResolveFallsBackToRemote(t *testing.T) {
	srv := httptest.NewServer(pageHandler(t, 2, 1000))
	defer srv.Close()

	src, err := Resolve(config.CorpusConfig{
		Path:        filepath.Join(t.TempDir(), "absent.json"),
		URL:         srv.URL,
		PageLimit:   1000,
		PageTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	msgs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}

func TestResolveAllSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src, err := Resolve(config.CorpusConfig{
		Path:        filepath.Join(t.TempDir(), "absent.json"),
		URL:         srv.URL,
		PageLimit:   10,
		PageTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	_, err = src.Load(context.Background())
	if !errors.Is(err, apperrors.ErrSourceUnavailable) {
		t.Fatalf("got %v, want ErrSourceUnavailable", err)
	}
}
