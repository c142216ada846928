package search

import "strings"

// Words ignored when checking a document for the query's terms.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "do": true, "at": true, "this": true, "but": true, "by": true,
	"from": true, "what": true, "which": true, "who": true, "about": true,
	"news": true, "latest": true,
}

// terms splits text into lowercase words without surrounding punctuation
// or stop words.
func terms(text string) []string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}“”‘’"))
		if cleaned != "" && !stopWords[cleaned] {
			out = append(out, cleaned)
		}
	}
	return out
}

// containsAll reports whether every query term occurs as a word of doc.
// An empty term list never matches.
func containsAll(doc string, queryTerms []string) bool {
	if len(queryTerms) == 0 {
		return false
	}
	words := make(map[string]struct{})
	for _, w := range terms(doc) {
		words[w] = struct{}{}
	}
	for _, t := range queryTerms {
		if _, ok := words[t]; !ok {
			return false
		}
	}
	return true
}
