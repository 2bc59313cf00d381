package entity

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/concierge-labs/member-qa/internal/qa/tokenizer"
)

// Entities are the mentions extracted from one question. Slices preserve
// extraction order and contain no duplicates; all strings are lowercase.
// Empty slices mean "unconstrained" to the candidate filter.
type Entities struct {
	Persons   []string
	Locations []string
	Numbers   []int
}

// multiWordName matches adjacent capitalized words, the strongest signal for
// a person name the gazetteer does not know.
var multiWordName = regexp.MustCompile(`[A-Z][a-z]+(?:\s[A-Z][a-z]+)+`)

// Extract pulls person, location, and number mentions from a question.
// Locations are matched first (curated before derived) so the person
// fallback never mistakes a place for a name.
func Extract(question string, gaz Gazetteers) Entities {
	qLower := strings.ToLower(question)
	var ents Entities

	claimed := make(map[string]struct{})
	for _, loc := range gaz.Curated {
		if ContainsWord(qLower, loc) {
			ents.Locations = append(ents.Locations, loc)
			claimWords(claimed, loc)
		}
	}
	for _, loc := range gaz.Derived {
		if ContainsWord(qLower, loc) && !contains(ents.Locations, loc) {
			ents.Locations = append(ents.Locations, loc)
			claimWords(claimed, loc)
		}
	}

	for _, name := range gaz.Persons {
		if ContainsWord(qLower, name) {
			ents.Persons = append(ents.Persons, name)
		}
	}
	if len(ents.Persons) == 0 {
		ents.Persons = fallbackPersons(question, claimed)
	}

	ents.Numbers = extractNumbers(qLower)
	return ents
}

// fallbackPersons applies the capitalized-token heuristic when no known
// member name appears: multi-word capitalized phrases win; failing that,
// single capitalized words. Stopwords and words already claimed by a matched
// location are never treated as names.
func fallbackPersons(question string, claimed map[string]struct{}) []string {
	var persons []string
	for _, phrase := range multiWordName.FindAllString(question, -1) {
		lower := strings.ToLower(phrase)
		if anyWordIn(lower, claimed) || anyWordIn(lower, questionStopwords) {
			continue
		}
		if !contains(persons, lower) {
			persons = append(persons, lower)
		}
	}
	if len(persons) > 0 {
		return persons
	}
	for _, tok := range capitalToken.FindAllString(question, -1) {
		lower := strings.ToLower(tok)
		if _, ok := claimed[lower]; ok {
			continue
		}
		if _, ok := questionStopwords[lower]; ok {
			continue
		}
		if !contains(persons, lower) {
			persons = append(persons, lower)
		}
	}
	return persons
}

var digitRun = regexp.MustCompile(`\b\d+\b`)

// numberWordList orders the spelled-out numbers the pipeline recognises.
var numberWordList = []string{
	"one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
	"seventeen", "eighteen", "nineteen", "twenty",
}

// NumberWords maps spelled-out numbers to their values.
var NumberWords = func() map[string]int {
	m := make(map[string]int, len(numberWordList))
	for i, w := range numberWordList {
		m[w] = i + 1
	}
	return m
}()

// NumberWordPattern matches any spelled-out number as a whole word.
var NumberWordPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(numberWordList, "|") + `)\b`)

// extractNumbers collects digit runs and spelled-out numbers, digits first,
// deduplicated by value.
func extractNumbers(qLower string) []int {
	var nums []int
	seen := make(map[int]struct{})
	add := func(n int) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			nums = append(nums, n)
		}
	}
	for _, m := range digitRun.FindAllString(qLower, -1) {
		if n, err := strconv.Atoi(m); err == nil {
			add(n)
		}
	}
	for _, tok := range tokenizer.Tokenize(qLower) {
		if n, ok := NumberWords[tok]; ok {
			add(n)
		}
	}
	return nums
}

// ContainsWord reports whether needle occurs in haystack bounded by
// non-alphanumeric runes. Both arguments must already be lowercase; needle
// may span multiple words.
func ContainsWord(haystack, needle string) bool {
	_, _, ok := FindWordSpan(haystack, needle)
	return ok
}

// FindWordSpan returns the byte offsets of the first word-bounded occurrence
// of needle in haystack.
func FindWordSpan(haystack, needle string) (start, end int, ok bool) {
	if needle == "" {
		return 0, 0, false
	}
	for from := 0; from+len(needle) <= len(haystack); {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return 0, 0, false
		}
		i += from
		if boundedBefore(haystack, i) && boundedAfter(haystack, i+len(needle)) {
			return i, i + len(needle), true
		}
		from = i + 1
	}
	return 0, 0, false
}

func boundedBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundedAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func claimWords(claimed map[string]struct{}, loc string) {
	claimed[loc] = struct{}{}
	for _, w := range tokenizer.Tokenize(loc) {
		claimed[w] = struct{}{}
	}
}

func anyWordIn(phrase string, set map[string]struct{}) bool {
	for _, w := range tokenizer.Tokenize(phrase) {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
