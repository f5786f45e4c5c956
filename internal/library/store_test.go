package library

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/shelfgap/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.LibraryConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleBook(url string) *types.BookRecord {
	return &types.BookRecord{
		DetailURL:      url,
		Title:          "StarCraft: Ghost--Spectres",
		Author:         "Nate Kenyon",
		Size:           "1.2 MiB",
		Tags:           "Video Game, Novel",
		FilesNumber:    1,
		Filetypes:      "epub",
		AddedTime:      "2025-11-02 10:00:00",
		SearchLabel:    "Video Game + epub",
		SearchPosition: 1,
		SearchURL:      "https://source.example/browse?x=1",
		ScrapedAt:      "2026-08-30T12:00:00Z",
	}
}

func TestUpsertAndExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := sampleBook("https://source.example/t/1001")
	require.NoError(t, s.Upsert(ctx, book))

	exists, err := s.Exists(ctx, book.DetailURL)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.Exists(ctx, "https://source.example/t/9999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpsertReplacesByDetailURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := sampleBook("https://source.example/t/1001")
	require.NoError(t, s.Upsert(ctx, book))

	book.Title = "StarCraft: Ghost--Spectres (Revised)"
	require.NoError(t, s.Upsert(ctx, book))

	pending, err := s.Pending(ctx, false, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "StarCraft: Ghost--Spectres (Revised)", pending[0].Title)
}

func TestUpsertPreservesClassification(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := sampleBook("https://source.example/t/1001")
	require.NoError(t, s.Upsert(ctx, book))
	require.NoError(t, s.SetClassification(ctx, book.DetailURL, types.Classification{
		Status: types.StatusMatch, GroupIDs: "4021", VerifiedAt: "2026-08-30T13:00:00Z",
	}))

	// Re-harvesting the same URL must not wipe the verification columns.
	require.NoError(t, s.Upsert(ctx, book))

	c, err := s.Classification(ctx, book.DetailURL)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, types.StatusMatch, c.Status)
	assert.Equal(t, "4021", c.GroupIDs)
}

func TestPendingSelection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	urls := []string{
		"https://source.example/t/1",
		"https://source.example/t/2",
		"https://source.example/t/3",
		"https://source.example/t/4",
	}
	for _, u := range urls {
		require.NoError(t, s.Upsert(ctx, sampleBook(u)))
	}
	require.NoError(t, s.SetClassification(ctx, urls[0], types.Classification{Status: types.StatusMatch}))
	require.NoError(t, s.SetClassification(ctx, urls[1], types.Classification{Status: types.StatusError}))

	// Unverified books plus errored ones are pending; terminal statuses skip.
	pending, err := s.Pending(ctx, false, 0)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, urls[1], pending[0].DetailURL)

	// Force selects everything.
	all, err := s.Pending(ctx, true, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	// Limit caps the run.
	capped, err := s.Pending(ctx, false, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestSetClassificationUnknownBook(t *testing.T) {
	s := newTestStore(t)
	err := s.SetClassification(context.Background(), "https://source.example/t/404",
		types.Classification{Status: types.StatusNoMatch})
	assert.Error(t, err)
}

func TestCandidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	epub := sampleBook("https://source.example/t/1")
	epub.SeriesName = "StarCraft"
	pdf := sampleBook("https://source.example/t/2")
	pdf.Title = "Video Game Design for Dummies"
	pdf.Filetypes = "pdf"
	matched := sampleBook("https://source.example/t/3")

	for _, b := range []*types.BookRecord{epub, pdf, matched} {
		require.NoError(t, s.Upsert(ctx, b))
	}
	require.NoError(t, s.SetClassification(ctx, epub.DetailURL, types.Classification{Status: types.StatusNoMatch}))
	require.NoError(t, s.SetClassification(ctx, pdf.DetailURL, types.Classification{Status: types.StatusNoMatch}))
	require.NoError(t, s.SetClassification(ctx, matched.DetailURL, types.Classification{Status: types.StatusMatch}))

	all, err := s.Candidates(ctx, CandidateFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byFormat, err := s.Candidates(ctx, CandidateFilter{Format: "pdf"})
	require.NoError(t, err)
	require.Len(t, byFormat, 1)
	assert.Equal(t, pdf.DetailURL, byFormat[0].DetailURL)

	bySeries, err := s.Candidates(ctx, CandidateFilter{Series: "StarCraft"})
	require.NoError(t, err)
	require.Len(t, bySeries, 1)
	assert.Equal(t, epub.DetailURL, bySeries[0].DetailURL)

	byText, err := s.Candidates(ctx, CandidateFilter{Text: "Dummies"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, pdf.DetailURL, byText[0].DetailURL)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleBook("https://source.example/t/1")
	b := sampleBook("https://source.example/t/2")
	b.Filetypes = "pdf"
	c := sampleBook("https://source.example/t/3")

	for _, book := range []*types.BookRecord{a, b, c} {
		require.NoError(t, s.Upsert(ctx, book))
	}
	require.NoError(t, s.SetClassification(ctx, a.DetailURL, types.Classification{Status: types.StatusMatch}))
	require.NoError(t, s.SetClassification(ctx, b.DetailURL, types.Classification{Status: types.StatusNoMatch}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.ByStatus["match"])
	assert.Equal(t, 1, st.ByStatus["no_match"])
	assert.Equal(t, 1, st.ByStatus["not_checked"])
	assert.Equal(t, 3, st.ByLabel["Video Game + epub"])
	assert.Equal(t, 1, st.ByFiletype["pdf"])
	assert.Equal(t, "2026-08-30T12:00:00Z", st.LastScrape)
}

func TestSeries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// StarCraft: three books, one candidate, one on target, one unchecked.
	sc1 := sampleBook("https://source.example/t/1")
	sc1.SeriesName = "StarCraft"
	sc2 := sampleBook("https://source.example/t/2")
	sc2.SeriesName = "StarCraft"
	sc3 := sampleBook("https://source.example/t/3")
	sc3.SeriesName = "StarCraft"

	// Diablo: fully on target, so it has no gap to report.
	d1 := sampleBook("https://source.example/t/4")
	d1.SeriesName = "Diablo"

	// No series name: never rolled up.
	loose := sampleBook("https://source.example/t/5")

	for _, b := range []*types.BookRecord{sc1, sc2, sc3, d1, loose} {
		require.NoError(t, s.Upsert(ctx, b))
	}
	require.NoError(t, s.SetClassification(ctx, sc1.DetailURL, types.Classification{Status: types.StatusNoMatch}))
	require.NoError(t, s.SetClassification(ctx, sc2.DetailURL, types.Classification{Status: types.StatusMatch}))
	require.NoError(t, s.SetClassification(ctx, d1.DetailURL, types.Classification{Status: types.StatusMatch}))
	require.NoError(t, s.SetClassification(ctx, loose.DetailURL, types.Classification{Status: types.StatusNoMatch}))

	summaries, err := s.Series(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1, "only series with candidates are listed")

	got := summaries[0]
	assert.Equal(t, "StarCraft", got.Name)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.Candidates)
	assert.Equal(t, 1, got.OnTarget)
}

func TestSeriesOrderedByTotal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	big1 := sampleBook("https://source.example/t/1")
	big1.SeriesName = "Warcraft"
	big2 := sampleBook("https://source.example/t/2")
	big2.SeriesName = "Warcraft"
	small := sampleBook("https://source.example/t/3")
	small.SeriesName = "Halo"

	for _, b := range []*types.BookRecord{big1, big2, small} {
		require.NoError(t, s.Upsert(ctx, b))
		require.NoError(t, s.SetClassification(ctx, b.DetailURL, types.Classification{Status: types.StatusNoMatch}))
	}

	summaries, err := s.Series(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Warcraft", summaries[0].Name)
	assert.Equal(t, "Halo", summaries[1].Name)
}

func TestSeriesBooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b1 := sampleBook("https://source.example/t/1")
	b1.Title = "Zerg Rising"
	b1.SeriesName = "StarCraft"
	b2 := sampleBook("https://source.example/t/2")
	b2.Title = "Archon Dawn"
	b2.SeriesName = "StarCraft"
	other := sampleBook("https://source.example/t/3")
	other.SeriesName = "Diablo"

	for _, b := range []*types.BookRecord{b1, b2, other} {
		require.NoError(t, s.Upsert(ctx, b))
	}
	require.NoError(t, s.SetClassification(ctx, b1.DetailURL, types.Classification{Status: types.StatusNoMatch}))

	entries, err := s.SeriesBooks(ctx, "StarCraft")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Ordered by title, verdicts attached where present.
	assert.Equal(t, "Archon Dawn", entries[0].Title)
	assert.Nil(t, entries[0].Classification)
	assert.Equal(t, "Zerg Rising", entries[1].Title)
	require.NotNil(t, entries[1].Classification)
	assert.Equal(t, types.StatusNoMatch, entries[1].Classification.Status)
}

func TestExportJSON(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := sampleBook("https://source.example/t/1")
	require.NoError(t, s.Upsert(ctx, book))
	require.NoError(t, s.SetClassification(ctx, book.DetailURL, types.Classification{
		Status: types.StatusNoMatch, VerifiedAt: "2026-08-30T13:00:00Z",
	}))

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, s.ExportJSON(ctx, path, ExportOptions{Status: types.StatusNoMatch}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []ExportEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, book.DetailURL, entries[0].DetailURL)
	require.NotNil(t, entries[0].Classification)
	assert.Equal(t, types.StatusNoMatch, entries[0].Classification.Status)
}

func TestExportYAMLFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleBook("https://source.example/t/1")
	b := sampleBook("https://source.example/t/2")
	require.NoError(t, s.Upsert(ctx, a))
	require.NoError(t, s.Upsert(ctx, b))
	require.NoError(t, s.SetClassification(ctx, a.DetailURL, types.Classification{Status: types.StatusMatch}))

	path := filepath.Join(t.TempDir(), "export.yaml")
	require.NoError(t, s.ExportYAML(ctx, path, ExportOptions{Status: types.StatusMatch}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), a.DetailURL)
	assert.NotContains(t, string(data), b.DetailURL)
}
