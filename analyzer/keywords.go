package analyzer

import (
	"strings"
	"unicode"
)

// Stop words for keyword extraction. Tuned for product titles rather than
// prose, so it stays small on purpose.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"your": true, "you": true, "are": true, "this": true, "that": true,
	"our": true, "has": true, "have": true, "was": true, "will": true,
	"can": true, "not": true, "but": true, "all": true, "any": true,
	"per": true, "etsy": true, "item": true, "items": true,
}

// Filler adjectives that waste prime title space. Sellers love them, search
// engines ignore them.
var fillerAdjectives = map[string]bool{
	"beautiful": true, "cute": true, "lovely": true, "gorgeous": true,
	"amazing": true, "stunning": true, "awesome": true, "pretty": true,
	"perfect": true, "wonderful": true, "great": true, "nice": true,
	"adorable": true, "charming": true, "fabulous": true, "elegant": true,
}

// stemPrefixLen is the crude stemming width: two tokens sharing their first
// four characters count as the same stem ("wooden"/"woodland" -> "wood").
const stemPrefixLen = 4

func isSeparator(r rune) bool {
	switch r {
	case ',', '|', '•', '-', '–', '—', '/', '(', ')', '&', '+', ':', ';',
		'.', '!', '?', '"', '\'':
		return true
	}
	return unicode.IsSpace(r)
}

// SplitTokens lowercases s and splits it on whitespace and the punctuation
// set shared by every metric. No filtering beyond the split.
func SplitTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), isSeparator)
}

// Keywords returns the meaningful tokens of s: lowercased, punctuation-split,
// longer than two characters and not a stop word.
func Keywords(s string) []string {
	toks := SplitTokens(s)
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		if len(t) <= 2 || stopWords[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// IsMeaningful reports whether a single token would survive Keywords.
func IsMeaningful(tok string) bool {
	return len(tok) > 2 && !stopWords[tok] && !fillerAdjectives[tok]
}

// IsFiller reports whether tok is a curated filler adjective.
func IsFiller(tok string) bool {
	return fillerAdjectives[tok]
}

// Stem truncates a token to its crude stem prefix.
func Stem(tok string) string {
	if len(tok) <= stemPrefixLen {
		return tok
	}
	return tok[:stemPrefixLen]
}

// StemSet collects the unique stems of the given tokens.
func StemSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[Stem(t)] = true
	}
	return set
}

// TokenSet collects the unique tokens of the given slice.
func TokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
