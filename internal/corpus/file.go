package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/concierge-labs/member-qa/pkg/logger"
)

// FileSource loads the corpus from a JSON envelope file on disk.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{
		path:   path,
		logger: logger.WithComponent("corpus-file"),
	}
}

func (s *FileSource) Name() string {
	return "file:" + s.path
}

// Load reads and normalises the corpus file.
func (s *FileSource) Load(ctx context.Context) ([]Message, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	items, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	msgs, err := normalize(items, s.logger)
	if err != nil {
		return nil, err
	}
	s.logger.Info("corpus loaded from file",
		"path", s.path,
		"messages", len(msgs),
	)
	return msgs, nil
}
