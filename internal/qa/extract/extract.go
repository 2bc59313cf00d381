// Package extract turns ranked candidate messages into answer strings.
//
// One extractor exists per question type. Each receives the filtered,
// rank-ordered candidates and claims the first message it can pull an
// answer from; a question whose candidates all fail yields NotFound.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/concierge-labs/member-qa/internal/corpus"
	"github.com/concierge-labs/member-qa/internal/qa/classify"
	"github.com/concierge-labs/member-qa/internal/qa/entity"
)

// NotFound is the answer used when no candidate yields an extraction.
// Absence of data is a normal outcome, not an error.
const NotFound = "not found"

// Candidate is a corpus message that survived ranking, paired with its
// retrieval score and corpus position.
type Candidate struct {
	Message corpus.Message
	Score   float64
	Pos     int
}

// Request carries the question-side inputs extractors may consult.
type Request struct {
	Question   string
	Tokens     []string
	Entities   entity.Entities
	Gazetteers entity.Gazetteers
}

type extractorFunc func(req Request, c Candidate) (string, bool)

var extractors = map[classify.Type]extractorFunc{
	classify.Who:     extractWho,
	classify.When:    extractWhen,
	classify.Where:   extractWhere,
	classify.HowMany: extractHowMany,
	classify.WhatAre: extractWhatAre,
	classify.Which:   extractWhich,
	classify.Why:     extractWhy,
	classify.Generic: extractGeneric,
}

// Answer dispatches to the extractor for qtype and scans cands in rank
// order, returning the first successful extraction. When every candidate
// fails it returns NotFound and false.
func Answer(qtype classify.Type, req Request, cands []Candidate) (string, bool) {
	fn, ok := extractors[qtype]
	if !ok {
		fn = extractGeneric
	}
	for _, c := range cands {
		if answer, ok := fn(req, c); ok {
			return answer, true
		}
	}
	return NotFound, false
}

func extractWho(_ Request, c Candidate) (string, bool) {
	return c.Message.UserName, true
}

// datePatterns mark a message as carrying a date or time mention:
// month+day, relative day phrases, weekday names, slash dates, clock times.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}\b`),
	regexp.MustCompile(`(?i)\b(today|tomorrow|tonight|next\s+\w+|this\s+\w+|last\s+\w+)\b`),
	regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}(?:/\d{2,4})?\b`),
	regexp.MustCompile(`\b\d{1,2}:\d{2}\b`),
}

// extractWhen returns the full message text when any date/time pattern
// matches, keeping the context around the mention.
func extractWhen(_ Request, c Candidate) (string, bool) {
	for _, p := range datePatterns {
		if p.MatchString(c.Message.Text) {
			return c.Message.Text, true
		}
	}
	return "", false
}

// extractWhere scans locations most specific first: those extracted from
// the question itself, then the curated gazetteer, then corpus-derived
// names. The matched location is echoed back in the casing the message
// used; when a word-bounded span cannot be recovered the full text stands
// in.
func extractWhere(req Request, c Candidate) (string, bool) {
	text := c.Message.Text
	textLower := strings.ToLower(text)
	// Lowercasing changes byte length for a handful of runes; only slice
	// the original text when offsets are guaranteed to line up.
	sameLen := len(textLower) == len(text)
	for _, tier := range [][]string{req.Entities.Locations, req.Gazetteers.Curated, req.Gazetteers.Derived} {
		for _, loc := range tier {
			if !strings.Contains(textLower, loc) {
				continue
			}
			if start, end, ok := entity.FindWordSpan(textLower, loc); ok && sameLen {
				return text[start:end], true
			}
			return text, true
		}
	}
	return "", false
}

var (
	howManyNoun  = regexp.MustCompile(`how many\s+(\w+)`)
	digitPattern = regexp.MustCompile(`\b\d+\b`)
)

// extractHowMany only considers messages mentioning the counted noun, then
// returns the first number in the text by position, digit runs and spelled
// words competing on equal terms. Spelled words are rendered as digits.
func extractHowMany(req Request, c Candidate) (string, bool) {
	m := howManyNoun.FindStringSubmatch(strings.ToLower(req.Question))
	if m == nil {
		return "", false
	}
	noun := m[1]
	textLower := strings.ToLower(c.Message.Text)
	if !strings.Contains(textLower, noun) {
		return "", false
	}
	dLoc := digitPattern.FindStringIndex(textLower)
	wLoc := entity.NumberWordPattern.FindStringIndex(textLower)
	switch {
	case dLoc == nil && wLoc == nil:
		return "", false
	case wLoc == nil || (dLoc != nil && dLoc[0] < wLoc[0]):
		return textLower[dLoc[0]:dLoc[1]], true
	default:
		return strconv.Itoa(entity.NumberWords[textLower[wLoc[0]:wLoc[1]]]), true
	}
}

var arePattern = regexp.MustCompile(`(?i)\bare\b`)

func extractWhatAre(_ Request, c Candidate) (string, bool) {
	return afterMatch(c.Message.Text, arePattern)
}

var atPattern = regexp.MustCompile(`(?i)\bat\b`)

func extractWhich(_ Request, c Candidate) (string, bool) {
	return afterMatch(c.Message.Text, atPattern)
}

// afterMatch returns the trimmed remainder of text following the first
// match of p. An absent match or an empty remainder defers to the next
// candidate.
func afterMatch(text string, p *regexp.Regexp) (string, bool) {
	loc := p.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := strings.TrimSpace(text[loc[1]:])
	if rest == "" {
		return "", false
	}
	return rest, true
}

func extractWhy(_ Request, c Candidate) (string, bool) {
	if strings.Contains(strings.ToLower(c.Message.Text), "because") {
		return c.Message.Text, true
	}
	return "", false
}

func extractGeneric(_ Request, c Candidate) (string, bool) {
	return c.Message.Text, true
}
