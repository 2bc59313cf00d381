package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/concierge-labs/member-qa/pkg/config"
	apperrors "github.com/concierge-labs/member-qa/pkg/errors"
	"github.com/concierge-labs/member-qa/pkg/logger"
)

// Source supplies the corpus from one backing location.
type Source interface {
	// Load fetches, validates, and sorts the full corpus.
	Load(ctx context.Context) ([]Message, error)
	// Name identifies the source in logs and errors.
	Name() string
}

// Resolve builds the source chain from config: the local file first, then the
// remote API when a URL is configured. At least one must be set.
func Resolve(cfg config.CorpusConfig) (Source, error) {
	var sources []Source
	if cfg.Path != "" {
		sources = append(sources, NewFileSource(cfg.Path))
	}
	if cfg.URL != "" {
		sources = append(sources, NewRemoteSource(cfg))
	}
	switch len(sources) {
	case 0:
		return nil, errors.New("no corpus source configured: set corpus.path or corpus.url")
	case 1:
		return sources[0], nil
	default:
		return &fallbackSource{
			sources: sources,
			logger:  logger.WithComponent("corpus"),
		}, nil
	}
}

// fallbackSource tries each source in order and returns the first success.
type fallbackSource struct {
	sources []Source
	logger  *slog.Logger
}

func (f *fallbackSource) Name() string {
	names := make([]string, len(f.sources))
	for i, src := range f.sources {
		names[i] = src.Name()
	}
	return strings.Join(names, ",")
}

func (f *fallbackSource) Load(ctx context.Context) ([]Message, error) {
	var errs []error
	for _, src := range f.sources {
		msgs, err := src.Load(ctx)
		if err == nil {
			return msgs, nil
		}
		f.logger.Warn("corpus source failed, trying next",
			"source", src.Name(),
			"error", err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}
	return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, errors.Join(errs...))
}
