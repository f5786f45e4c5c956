// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify runs the classification pass: it walks the unchecked
// books in the library, searches the target tracker for each title, and
// records the match verdict.
package verify

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/shelfgap/internal/gazelle"
	"github.com/pdiddy/shelfgap/internal/match"
	"github.com/pdiddy/shelfgap/pkg/types"
)

// Searcher is the slice of the tracker client the verifier needs.
type Searcher interface {
	SearchEbooks(ctx context.Context, query string) ([]gazelle.Group, error)
}

// Library is the slice of the book store the verifier needs.
type Library interface {
	Pending(ctx context.Context, force bool, limit int) ([]types.BookRecord, error)
	SetClassification(ctx context.Context, detailURL string, c types.Classification) error
}

// Summary holds the verdict counts from one verification run.
type Summary struct {
	Checked   int
	Matched   int
	NoMatch   int
	Ambiguous int
	Errors    int
}

// Verifier classifies pending books one at a time. The tracker client's
// rate limiter paces the run; the verifier itself adds no delays.
type Verifier struct {
	lib    Library
	search Searcher
	cfg    types.VerifyConfig
	out    io.Writer

	// now is injectable so tests get stable timestamps.
	now func() time.Time
}

// NewVerifier returns a verifier writing progress to out.
func NewVerifier(lib Library, search Searcher, cfg types.VerifyConfig, out io.Writer) *Verifier {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 25
	}
	return &Verifier{
		lib:    lib,
		search: search,
		cfg:    cfg,
		out:    out,
		now:    time.Now,
	}
}

// Run classifies every pending book, persisting each verdict as it is
// reached. A failed search marks that one book with an error status and
// the run continues; only a store failure or cancellation aborts it.
func (v *Verifier) Run(ctx context.Context) (Summary, error) {
	books, err := v.lib.Pending(ctx, v.cfg.ForceRecheck, v.cfg.MaxBooks)
	if err != nil {
		return Summary{}, fmt.Errorf("loading pending books: %w", err)
	}
	fmt.Fprintf(v.out, "verifying %d books\n", len(books))

	var summary Summary
	for _, b := range books {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		cls := v.checkBook(ctx, b)
		if err := v.lib.SetClassification(ctx, b.DetailURL, cls); err != nil {
			return summary, fmt.Errorf("saving verdict: %w", err)
		}

		summary.Checked++
		switch cls.Status {
		case types.StatusMatch:
			summary.Matched++
		case types.StatusAmbiguous:
			summary.Ambiguous++
		case types.StatusError:
			summary.Errors++
			fmt.Fprintf(v.out, "  error   %s\n", b.Title)
		default:
			summary.NoMatch++
		}

		if summary.Checked%v.cfg.ProgressInterval == 0 {
			fmt.Fprintf(v.out, "  %d/%d checked (match: %d, no_match: %d, ambiguous: %d, error: %d)\n",
				summary.Checked, len(books),
				summary.Matched, summary.NoMatch, summary.Ambiguous, summary.Errors)
		}
	}

	fmt.Fprintf(v.out, "\nchecked: %d, match: %d, no_match: %d, ambiguous: %d, error: %d\n",
		summary.Checked, summary.Matched, summary.NoMatch, summary.Ambiguous, summary.Errors)
	return summary, nil
}

// CheckMatch holds one strong-matching group from an ad-hoc check, with
// its release details.
type CheckMatch struct {
	Candidate types.Candidate
	Details   gazelle.Details
}

// Check runs the matcher for one ad-hoc title/author pair without touching
// the library: one tracker search, classified the same way a verification
// run classifies a book. Returned matches carry release details so the
// caller can show formats and seeders.
func Check(ctx context.Context, search Searcher, title, author string, cfg types.MatchConfig) (types.MatchStatus, []CheckMatch, error) {
	groups, err := search.SearchEbooks(ctx, title)
	if err != nil {
		return types.StatusError, nil, err
	}

	byID := make(map[int64]gazelle.Group, len(groups))
	candidates := make([]types.Candidate, 0, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
		candidates = append(candidates, g.Candidate())
	}

	res := match.Classify(title, author, candidates, cfg)
	matches := make([]CheckMatch, 0, len(res.Matches))
	for _, m := range res.Matches {
		matches = append(matches, CheckMatch{
			Candidate: m,
			Details:   byID[m.GroupID].Details(),
		})
	}
	return res.Status, matches, nil
}

// checkBook searches the tracker for one book and reduces the hits to a
// stored classification.
func (v *Verifier) checkBook(ctx context.Context, b types.BookRecord) types.Classification {
	verifiedAt := v.now().UTC().Format(time.RFC3339)

	groups, err := v.search.SearchEbooks(ctx, b.Title)
	if err != nil {
		return types.Classification{Status: types.StatusError, VerifiedAt: verifiedAt}
	}

	byID := make(map[int64]gazelle.Group, len(groups))
	candidates := make([]types.Candidate, 0, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
		candidates = append(candidates, g.Candidate())
	}

	res := match.Classify(b.Title, b.Author, candidates, v.cfg.Match)
	cls := types.Classification{Status: res.Status, VerifiedAt: verifiedAt}
	if len(res.Matches) == 0 {
		return cls
	}

	// One id for a match, every strong-matching id for an ambiguous
	// verdict. Release details are aggregated across all of them.
	ids := make([]string, 0, len(res.Matches))
	formats := make(map[string]bool)
	for i, m := range res.Matches {
		ids = append(ids, strconv.FormatInt(m.GroupID, 10))
		d := byID[m.GroupID].Details()
		if i == 0 {
			cls.GroupName = d.GroupName
		}
		for _, f := range d.Formats {
			formats[f] = true
		}
		cls.Seeders += d.Seeders
		cls.Snatched += d.Snatched
	}
	cls.GroupIDs = strings.Join(ids, ";")
	cls.Formats = joinSorted(formats)
	return cls
}

func joinSorted(set map[string]bool) string {
	if len(set) == 0 {
		return ""
	}
	list := make([]string, 0, len(set))
	for f := range set {
		list = append(list, f)
	}
	sort.Strings(list)
	return strings.Join(list, ";")
}
