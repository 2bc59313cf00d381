package tokenizer

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"question", "Who wants to visit Japan?", []string{"who", "wants", "to", "visit", "japan"}},
		{"apostrophes split", "It's Sophia's booking", []string{"it", "s", "sophia", "s", "booking"}},
		{"digits kept", "table for 4 at 8:30", []string{"table", "for", "4", "at", "8", "30"}},
		{"hyphenated name", "Sophia Al-Farsi", []string{"sophia", "al", "farsi"}},
		{"underscores split", "user_name field", []string{"user", "name", "field"}},
		{"accents kept", "Dinner at Café Marly", []string{"dinner", "at", "café", "marly"}},
		{"repeated separators", "one,,  two!!three", []string{"one", "two", "three"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokenizeEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "?!, --"} {
		if got := Tokenize(in); len(got) != 0 {
			t.Errorf("Tokenize(%q) = %v, want no tokens", in, got)
		}
	}
}

func BenchmarkTokenize(b *testing.B) {
	cases := []struct {
		name string
		text string
	}{
		{"question", "When is Layla planning her trip to London?"},
		{"message", strings.Repeat("Can you book a table for two at a quiet restaurant in Paris on June 5? ", 8)},
	}
	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(tc.text)))
			for i := 0; i < b.N; i++ {
				Tokenize(tc.text)
			}
		})
	}
}
