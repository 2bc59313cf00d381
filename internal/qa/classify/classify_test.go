package classify

import (
	"testing"

	"github.com/concierge-labs/member-qa/internal/qa/tokenizer"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		question string
		want     Type
	}{
		{"Who wants to visit Japan?", Who},
		{"When is Layla planning her trip to London?", When},
		{"Where is Sophia going?", Where},
		{"How many cars?", HowMany},
		{"Can you tell me how many cabanas we need?", HowMany},
		{"What are the options for dinner?", WhatAre},
		{"Which restaurant is the dinner at?", Which},
		{"Why does Marcus need two cabanas?", Why},
		{"Book me a table for four", Generic},
		{"", Generic},
		{"   ?!  ", Generic},
		// Leading-token rules win over the anywhere-rule.
		{"Who knows how many cars there are?", Who},
		{"Where did the how many question go?", Where},
		// "what" without "are" is not WHAT_ARE.
		{"What time works?", Generic},
		// Case and punctuation do not matter.
		{"WHO booked the villa??", Who},
		{"  where   to?  ", Where},
		// "how" and "many" must be adjacent.
		{"How very many options", Generic},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := Classify(tokenizer.Tokenize(tt.question))
			if got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.question, got, tt.want)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	want := map[Type]string{
		Generic: "GENERIC",
		Who:     "WHO",
		When:    "WHEN",
		Where:   "WHERE",
		HowMany: "HOW_MANY",
		WhatAre: "WHAT_ARE",
		Which:   "WHICH",
		Why:     "WHY",
	}
	for typ, name := range want {
		if got := typ.String(); got != name {
			t.Errorf("%d.String() = %q, want %q", typ, got, name)
		}
	}
	if got := Type(99).String(); got != "GENERIC" {
		t.Errorf("unknown type should stringify as GENERIC, got %q", got)
	}
}
