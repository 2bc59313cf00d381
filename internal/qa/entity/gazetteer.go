// Package entity builds corpus-derived gazetteers and extracts person,
// location, and number mentions from questions.
package entity

import (
	"regexp"
	"sort"
	"strings"

	"github.com/concierge-labs/member-qa/internal/corpus"
	"github.com/concierge-labs/member-qa/internal/qa/tokenizer"
)

// curatedLocations seeds the location gazetteer with destinations the member
// corpus mentions constantly. Deployments extend the set via config.
var curatedLocations = []string{
	"london", "paris", "tokyo", "new york", "dubai", "singapore",
	"bangkok", "aspen", "maldives", "bali", "cannes", "monaco",
	"tuscany", "santorini", "riviera", "milan", "switzerland",
	"kyoto", "pebble beach",
}

// questionStopwords are tokens never treated as proper-noun candidates by the
// capitalized-token heuristics: question words plus the verbs and articles
// that routinely open member requests.
var questionStopwords = map[string]struct{}{
	"what": {}, "when": {}, "why": {}, "where": {}, "how": {}, "who": {},
	"which": {}, "can": {}, "please": {}, "looking": {}, "will": {},
	"should": {}, "is": {}, "are": {}, "need": {}, "thank": {}, "book": {},
	"check": {}, "send": {}, "find": {}, "get": {}, "arrange": {},
	"could": {}, "would": {}, "do": {}, "does": {}, "many": {}, "the": {},
	"a": {},
}

// capitalToken matches a single capitalized word. The shape deliberately
// rejects bare "I" and all-caps acronyms.
var capitalToken = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// Options tunes gazetteer construction.
type Options struct {
	// ExtraLocations extends the curated location list.
	ExtraLocations []string
	// CorpusProperNouns controls the capitalized-token location heuristic:
	// when true, capitalized words seen in message text become candidate
	// locations. It over-triggers on brand names and sentence-initial words,
	// so it can be switched off for corpora where that hurts.
	CorpusProperNouns bool
}

// Gazetteers hold the lookup tables for entity extraction, rebuilt from the
// corpus on every snapshot refresh. All entries are lowercase; each list is
// ordered longest-first so multi-word entries win before their parts.
type Gazetteers struct {
	// Persons are the distinct member names in the corpus.
	Persons []string
	// Curated are the configured location names.
	Curated []string
	// Derived are capitalized tokens observed in message text, minus
	// stopwords, member-name parts, and curated duplicates.
	Derived []string
}

// BuildGazetteers derives the lookup tables from a corpus snapshot.
func BuildGazetteers(msgs []corpus.Message, opts Options) Gazetteers {
	personSet := make(map[string]struct{})
	var persons []string
	for _, m := range msgs {
		name := strings.ToLower(strings.TrimSpace(m.UserName))
		if name == "" {
			continue
		}
		if _, ok := personSet[name]; !ok {
			personSet[name] = struct{}{}
			persons = append(persons, name)
		}
	}

	curatedSet := make(map[string]struct{})
	var curated []string
	addCurated := func(loc string) {
		loc = strings.ToLower(strings.TrimSpace(loc))
		if loc == "" {
			return
		}
		if _, ok := curatedSet[loc]; !ok {
			curatedSet[loc] = struct{}{}
			curated = append(curated, loc)
		}
	}
	for _, loc := range curatedLocations {
		addCurated(loc)
	}
	for _, loc := range opts.ExtraLocations {
		addCurated(loc)
	}

	var derived []string
	if opts.CorpusProperNouns {
		nameParts := make(map[string]struct{})
		for name := range personSet {
			for _, part := range tokenizer.Tokenize(name) {
				nameParts[part] = struct{}{}
			}
		}
		derivedSet := make(map[string]struct{})
		for _, m := range msgs {
			for _, tok := range capitalToken.FindAllString(m.Text, -1) {
				lower := strings.ToLower(tok)
				if _, ok := questionStopwords[lower]; ok {
					continue
				}
				if _, ok := nameParts[lower]; ok {
					continue
				}
				if _, ok := curatedSet[lower]; ok {
					continue
				}
				if _, ok := derivedSet[lower]; ok {
					continue
				}
				derivedSet[lower] = struct{}{}
				derived = append(derived, lower)
			}
		}
	}

	sortLongestFirst(persons)
	sortLongestFirst(curated)
	sortLongestFirst(derived)
	return Gazetteers{Persons: persons, Curated: curated, Derived: derived}
}

// sortLongestFirst orders entries by descending length, then lexically, so
// gazetteer scans match "new york" before "york" and stay deterministic.
func sortLongestFirst(items []string) {
	sort.Slice(items, func(i, j int) bool {
		if len(items[i]) != len(items[j]) {
			return len(items[i]) > len(items[j])
		}
		return items[i] < items[j]
	})
}
