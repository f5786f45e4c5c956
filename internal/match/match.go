// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match decides whether a locally-known book and a candidate group
// from the target tracker denote the same work. The matcher is a pure
// function of its inputs: a normalized title-prefix substring check plus an
// author-surname membership check, aggregated over all candidates a search
// returned.
package match

import (
	"strings"

	"github.com/pdiddy/shelfgap/pkg/types"
)

// Normalize lowercases s and strips every character that is not an ASCII
// letter or digit. Normalizing an already-normalized string returns it
// unchanged. Non-ASCII letters are dropped along with punctuation; the
// matcher is deliberately ASCII-only and does no Unicode folding.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens splits s into lowercased words, treating every run of
// non-alphanumeric characters as a boundary.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

// TitlePrefix returns the first n title words in normalized, concatenated
// form. "Encyclopedia of Video Games: The Culture..." with n=5 gives
// "encyclopediaofvideogamesthe".
func TitlePrefix(title string, n int) string {
	words := Tokens(title)
	if len(words) > n {
		words = words[:n]
	}
	return Normalize(strings.Join(words, " "))
}

// Surname returns the normalized last whitespace-delimited token of an
// author string, the sole author-matching key. "Mark J P Wolf" gives
// "wolf"; an empty author gives "".
func Surname(author string) string {
	fields := strings.Fields(author)
	if len(fields) == 0 {
		return ""
	}
	return Normalize(strings.TrimRight(fields[len(fields)-1], ",."))
}

// TitleMatches reports whether the configured-length word prefix of the
// local title appears verbatim, post-normalization, inside the candidate
// group name. A difference outside the prefix window does not affect the
// outcome.
func TitleMatches(title, groupName string, prefixWords int) bool {
	prefix := TitlePrefix(title, prefixWords)
	if prefix == "" || groupName == "" {
		return false
	}
	return strings.Contains(Normalize(groupName), prefix)
}

// artistSurnames collects the normalized surnames of every usable artist
// entry. Entries that decoded to an empty name contribute nothing.
func artistSurnames(artists []types.Artist) map[string]bool {
	set := make(map[string]bool)
	for _, a := range artists {
		if sn := Surname(a.Name); sn != "" {
			set[sn] = true
		}
	}
	return set
}

// AuthorMatches reports whether the local author's surname is among the
// candidate's artist surnames. When the candidate carries no usable artist
// names at all and cfg.AcceptMissingArtists is set, the check passes on
// title alone (the lenient rule). An empty local author always passes:
// there is nothing to cross-check. Only the primary author field is
// checked; co-authors are a known limitation the matcher does not cover.
func AuthorMatches(author string, artists []types.Artist, cfg types.MatchConfig) bool {
	surname := Surname(author)
	if surname == "" {
		return true
	}

	set := artistSurnames(artists)
	if len(set) == 0 {
		return cfg.AcceptMissingArtists
	}
	return set[surname]
}

// IsStrongMatch reports whether one candidate group denotes the same work
// as the local book: the category matches, the title prefix matches, and
// (unless title-only mode is on) the author surname matches.
func IsStrongMatch(title, author string, c types.Candidate, cfg types.MatchConfig) bool {
	if c.CategoryID != cfg.EbookCategoryID {
		return false
	}
	if !TitleMatches(title, c.Name, cfg.TitlePrefixWords) {
		return false
	}
	if cfg.TitleOnly {
		return true
	}
	return AuthorMatches(author, c.Artists, cfg)
}

// Result is the aggregate verdict across every candidate a search returned.
type Result struct {
	Status types.MatchStatus

	// Matches holds the strong-matching candidates: one for a match,
	// all of them for an ambiguous result, none otherwise.
	Matches []types.Candidate
}

// Classify aggregates the per-candidate verdicts for one book. Exactly one
// strong match is a match; two or more are ambiguous, with every matching
// candidate retained for manual review; zero means the book is not yet on
// the target tracker.
func Classify(title, author string, candidates []types.Candidate, cfg types.MatchConfig) Result {
	if cfg.TitlePrefixWords <= 0 {
		cfg.TitlePrefixWords = 5
	}
	if cfg.EbookCategoryID == 0 {
		cfg.EbookCategoryID = 3
	}

	var matches []types.Candidate
	for _, c := range candidates {
		if IsStrongMatch(title, author, c, cfg) {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		return Result{Status: types.StatusNoMatch}
	case 1:
		return Result{Status: types.StatusMatch, Matches: matches}
	default:
		return Result{Status: types.StatusAmbiguous, Matches: matches}
	}
}
