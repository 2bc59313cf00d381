// Package classify assigns each question one of eight types that select the
// answer extraction strategy.
package classify

// Type is a question type. Every question classifies to exactly one Type;
// Generic is the total fallback.
type Type int

const (
	Generic Type = iota
	Who
	When
	Where
	HowMany
	WhatAre
	Which
	Why
)

func (t Type) String() string {
	switch t {
	case Who:
		return "WHO"
	case When:
		return "WHEN"
	case Where:
		return "WHERE"
	case HowMany:
		return "HOW_MANY"
	case WhatAre:
		return "WHAT_ARE"
	case Which:
		return "WHICH"
	case Why:
		return "WHY"
	default:
		return "GENERIC"
	}
}

// Classify maps a tokenized question to its Type. The cascade is ordered;
// the first rule that matches wins. Leading-token rules come before the
// anywhere-rule for "how many", so "Who knows how many cars" is WHO.
func Classify(tokens []string) Type {
	if len(tokens) == 0 {
		return Generic
	}
	switch tokens[0] {
	case "who":
		return Who
	case "when":
		return When
	case "where":
		return Where
	}
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i] == "how" && tokens[i+1] == "many" {
			return HowMany
		}
	}
	switch {
	case tokens[0] == "what" && len(tokens) > 1 && tokens[1] == "are":
		return WhatAre
	case tokens[0] == "which":
		return Which
	case tokens[0] == "why":
		return Why
	}
	return Generic
}
