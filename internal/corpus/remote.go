package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/concierge-labs/member-qa/pkg/config"
	"github.com/concierge-labs/member-qa/pkg/logger"
	"github.com/concierge-labs/member-qa/pkg/resilience"
)

const defaultPageLimit = 1000

// RemoteSource loads the corpus from a paginated HTTP API. Pages are fetched
// with ?skip=N&limit=M until a short or empty page signals the end. A failed
// page fails the whole load: a partial corpus would silently change ranking
// and gazetteer contents.
type RemoteSource struct {
	url       string
	pageLimit int
	timeout   time.Duration
	client    *http.Client
	breaker   *resilience.CircuitBreaker
	logger    *slog.Logger
}

// NewRemoteSource creates a RemoteSource from corpus config.
func NewRemoteSource(cfg config.CorpusConfig) *RemoteSource {
	limit := cfg.PageLimit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	return &RemoteSource{
		url:       cfg.URL,
		pageLimit: limit,
		timeout:   cfg.PageTimeout,
		client:    &http.Client{},
		breaker:   resilience.NewCircuitBreaker("corpus-remote", resilience.CircuitBreakerConfig{}),
		logger:    logger.WithComponent("corpus-remote"),
	}
}

func (s *RemoteSource) Name() string {
	return "remote:" + s.url
}

// Load pages through the remote API, accumulating items, then normalises the
// full set once.
func (s *RemoteSource) Load(ctx context.Context) ([]Message, error) {
	var items []wireMessage
	pages := 0
	for skip := 0; ; skip += s.pageLimit {
		page, err := s.fetchPage(ctx, skip)
		if err != nil {
			return nil, fmt.Errorf("fetching corpus page at skip=%d: %w", skip, err)
		}
		items = append(items, page...)
		pages++
		if len(page) < s.pageLimit {
			break
		}
	}
	msgs, err := normalize(items, s.logger)
	if err != nil {
		return nil, err
	}
	s.logger.Info("corpus loaded from remote",
		"url", s.url,
		"pages", pages,
		"messages", len(msgs),
	)
	return msgs, nil
}

func (s *RemoteSource) fetchPage(ctx context.Context, skip int) ([]wireMessage, error) {
	pageURL, err := s.pageURL(skip)
	if err != nil {
		return nil, err
	}
	var items []wireMessage
	err = s.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, s.timeout, "corpus page fetch", func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
			if err != nil {
				return fmt.Errorf("building page request: %w", err)
			}
			resp, err := s.client.Do(req)
			if err != nil {
				return fmt.Errorf("requesting page: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status %d from corpus API", resp.StatusCode)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading page body: %w", err)
			}
			page, err := decodeEnvelope(body)
			if err != nil {
				return err
			}
			items = page
			return nil
		})
	})
	return items, err
}

func (s *RemoteSource) pageURL(skip int) (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", fmt.Errorf("parsing corpus URL: %w", err)
	}
	q := u.Query()
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(s.pageLimit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
