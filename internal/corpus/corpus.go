// Package corpus loads and normalises the member-message corpus the answer
// pipeline runs against. Messages arrive as a JSON envelope from a local file
// or a paginated remote API, are validated and timestamp-sorted here, and are
// treated as immutable afterwards.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// ErrNoMessages is returned when a source yields zero valid messages.
var ErrNoMessages = errors.New("corpus contains no valid messages")

// Message is a single member message after validation and normalisation.
type Message struct {
	ID        string    `json:"id"`
	UserName  string    `json:"user_name"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// envelope mirrors the wire format shared by the corpus file and the remote
// API: a single "items" array of messages.
type envelope struct {
	Items []wireMessage `json:"items"`
}

type wireMessage struct {
	ID        flexID `json:"id"`
	UserName  string `json:"user_name"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// flexID accepts both quoted and bare-numeric ids on the wire.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	*f = flexID(b)
	return nil
}

// timestampLayouts are tried in order. Messages whose timestamp matches none
// keep the zero time and sort to the front.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func decodeEnvelope(data []byte) ([]wireMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding corpus envelope: %w", err)
	}
	return env.Items, nil
}

// normalize validates wire messages, drops blanks, parses timestamps, and
// returns the corpus sorted by timestamp ascending. The sort is stable so
// equal or unparseable timestamps keep their arrival order, which keeps the
// corpus order deterministic across reloads of the same data.
func normalize(items []wireMessage, logger *slog.Logger) ([]Message, error) {
	msgs := make([]Message, 0, len(items))
	skipped := 0
	for _, item := range items {
		userName := strings.TrimSpace(item.UserName)
		text := strings.TrimSpace(item.Message)
		if userName == "" || text == "" {
			skipped++
			continue
		}
		msgs = append(msgs, Message{
			ID:        string(item.ID),
			UserName:  userName,
			Text:      text,
			Timestamp: parseTimestamp(item.Timestamp),
		})
	}
	if skipped > 0 {
		logger.Warn("skipped messages with blank user_name or text", "count", skipped)
	}
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs, nil
}
