package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/concierge-labs/member-qa/internal/qa/tokenizer"
)

// tokenSink keeps the compiler from eliding Tokenize calls.
var tokenSink []string

var tokenizeCases = []struct {
	name string
	text string
}{
	{"question", "How many cabanas does Marcus need on Saturday?"},
	{"message", "Can you book the usual table at Nobu for 6 people tonight at 8:00 and have the driver wait?"},
	{"thread", strings.Repeat("Heading to Aspen on March 3 with the group, need 4 rooms, dinner for 8, and a late checkout before the flight home. ", 25)},
}

func BenchmarkTokenize(b *testing.B) {
	for _, tc := range tokenizeCases {
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(tc.text)))
			for i := 0; i < b.N; i++ {
				tokenSink = tokenizer.Tokenize(tc.text)
			}
		})
	}
}

// BenchmarkTokenizeBatch approximates the tokenizer's share of a corpus
// refresh: every message in the batch goes through Tokenize once per
// iteration, author name included.
func BenchmarkTokenizeBatch(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		msgs := make([]string, size)
		var total int64
		for i := range msgs {
			user, text := benchMessage(i)
			msgs[i] = user + " " + text
			total += int64(len(msgs[i]))
		}
		b.Run(fmt.Sprintf("messages_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(total)
			for i := 0; i < b.N; i++ {
				for _, m := range msgs {
					tokenSink = tokenizer.Tokenize(m)
				}
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := tokenizeCases[1].text
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokenSink = tokenizer.Tokenize(text)
		}
	})
}
