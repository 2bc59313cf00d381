package qa

import (
	"time"

	"github.com/concierge-labs/member-qa/internal/corpus"
	"github.com/concierge-labs/member-qa/internal/qa/entity"
	"github.com/concierge-labs/member-qa/internal/qa/index"
)

// Snapshot is one complete, immutable view of the loaded corpus: the
// messages, the lexical index over them, and the gazetteers derived from
// them. A snapshot is never mutated after publication; Refresh builds a
// new one off to the side and swaps it in with a single atomic store, so
// in-flight questions keep the snapshot they started with.
type Snapshot struct {
	Corpus     []corpus.Message
	Index      *index.Index
	Gazetteers entity.Gazetteers
	Version    uint64
	LoadedAt   time.Time
}

// Documents returns the number of messages in the snapshot.
func (s *Snapshot) Documents() int {
	return len(s.Corpus)
}
