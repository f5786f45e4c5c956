// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library persists harvested book records and their verification
// status in a local SQLite database. Records are keyed by detail URL;
// harvesting upserts, verification writes a classification alongside.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/shelfgap/pkg/types"
)

// Store manages the book library SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the library database at cfg.Path and creates
// the schema if it does not exist.
func NewStore(cfg types.LibraryConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = "shelfgap.db"
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			detail_url TEXT UNIQUE NOT NULL,
			title TEXT,
			author TEXT,
			co_author TEXT,
			series_name TEXT,
			series_id INTEGER,
			size TEXT,
			tags TEXT,
			files_number INTEGER,
			filetypes TEXT,
			added_time TEXT,
			description_html TEXT,
			cover_image_url TEXT,
			torrent_url TEXT,
			search_label TEXT,
			search_position INTEGER,
			search_url TEXT,
			scraped_at TEXT NOT NULL,
			match_status TEXT,
			match_group_ids TEXT,
			match_group_name TEXT,
			match_formats TEXT,
			match_seeders INTEGER,
			match_snatched INTEGER,
			verified_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_books_status ON books(match_status)`,
		`CREATE INDEX IF NOT EXISTS idx_books_series ON books(series_name)`,
		`CREATE INDEX IF NOT EXISTS idx_books_title ON books(title)`,
		`CREATE INDEX IF NOT EXISTS idx_books_label ON books(search_label)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Upsert inserts a harvested record or replaces the existing row with the
// same detail URL. Verification columns on an existing row are preserved.
func (s *Store) Upsert(ctx context.Context, b *types.BookRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO books (
			detail_url, title, author, co_author, series_name, series_id,
			size, tags, files_number, filetypes, added_time,
			description_html, cover_image_url, torrent_url,
			search_label, search_position, search_url, scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(detail_url) DO UPDATE SET
			title=excluded.title, author=excluded.author,
			co_author=excluded.co_author, series_name=excluded.series_name,
			series_id=excluded.series_id, size=excluded.size,
			tags=excluded.tags, files_number=excluded.files_number,
			filetypes=excluded.filetypes, added_time=excluded.added_time,
			description_html=excluded.description_html,
			cover_image_url=excluded.cover_image_url,
			torrent_url=excluded.torrent_url,
			search_label=excluded.search_label,
			search_position=excluded.search_position,
			search_url=excluded.search_url, scraped_at=excluded.scraped_at`,
		b.DetailURL, b.Title, b.Author, b.CoAuthor, b.SeriesName, b.SeriesID,
		b.Size, b.Tags, b.FilesNumber, b.Filetypes, b.AddedTime,
		b.DescriptionHTML, b.CoverImageURL, b.TorrentURL,
		b.SearchLabel, b.SearchPosition, b.SearchURL, b.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting book %s: %w", b.DetailURL, err)
	}
	return nil
}

// Exists reports whether a detail URL is already stored.
func (s *Store) Exists(ctx context.Context, detailURL string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM books WHERE detail_url = ? LIMIT 1`, detailURL,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", detailURL, err)
	}
	return true, nil
}

const bookColumns = `id, detail_url, title, author, co_author, series_name,
	series_id, size, tags, files_number, filetypes, added_time,
	description_html, cover_image_url, torrent_url, search_label,
	search_position, search_url, scraped_at`

func scanBook(rows *sql.Rows) (types.BookRecord, error) {
	var b types.BookRecord
	var coAuthor, seriesName, size, tags, filetypes, addedTime sql.NullString
	var descriptionHTML, coverImageURL, torrentURL, searchLabel, searchURL sql.NullString
	var title, author sql.NullString
	var seriesID sql.NullInt64
	var filesNumber, searchPosition sql.NullInt64

	err := rows.Scan(
		&b.ID, &b.DetailURL, &title, &author, &coAuthor, &seriesName,
		&seriesID, &size, &tags, &filesNumber, &filetypes, &addedTime,
		&descriptionHTML, &coverImageURL, &torrentURL, &searchLabel,
		&searchPosition, &searchURL, &b.ScrapedAt,
	)
	if err != nil {
		return b, err
	}

	b.Title = title.String
	b.Author = author.String
	b.CoAuthor = coAuthor.String
	b.SeriesName = seriesName.String
	b.SeriesID = seriesID.Int64
	b.Size = size.String
	b.Tags = tags.String
	b.FilesNumber = int(filesNumber.Int64)
	b.Filetypes = filetypes.String
	b.AddedTime = addedTime.String
	b.DescriptionHTML = descriptionHTML.String
	b.CoverImageURL = coverImageURL.String
	b.TorrentURL = torrentURL.String
	b.SearchLabel = searchLabel.String
	b.SearchPosition = int(searchPosition.Int64)
	b.SearchURL = searchURL.String
	return b, nil
}

// Pending returns the books a verification run should process: those with
// no classification yet, plus those whose last attempt errored. With force
// set every book is returned. A positive limit caps the result.
func (s *Store) Pending(ctx context.Context, force bool, limit int) ([]types.BookRecord, error) {
	query := `SELECT ` + bookColumns + ` FROM books`
	if !force {
		query += ` WHERE match_status IS NULL OR match_status = ?`
	}
	query += ` ORDER BY id`

	var args []any
	if !force {
		args = append(args, string(types.StatusError))
	}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting pending books: %w", err)
	}
	defer rows.Close()

	var books []types.BookRecord
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// SetClassification records the verification outcome for one book.
func (s *Store) SetClassification(ctx context.Context, detailURL string, c types.Classification) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE books SET
			match_status = ?, match_group_ids = ?, match_group_name = ?,
			match_formats = ?, match_seeders = ?, match_snatched = ?,
			verified_at = ?
		WHERE detail_url = ?`,
		string(c.Status), c.GroupIDs, c.GroupName,
		c.Formats, c.Seeders, c.Snatched, c.VerifiedAt, detailURL,
	)
	if err != nil {
		return fmt.Errorf("classifying %s: %w", detailURL, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("classifying %s: no such book", detailURL)
	}
	return nil
}

// Classification returns the stored verification outcome for one book, or
// nil when the book has not been verified yet.
func (s *Store) Classification(ctx context.Context, detailURL string) (*types.Classification, error) {
	var status, groupIDs, groupName, formats, verifiedAt sql.NullString
	var seeders, snatched sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT match_status, match_group_ids, match_group_name,
			match_formats, match_seeders, match_snatched, verified_at
		FROM books WHERE detail_url = ?`, detailURL,
	).Scan(&status, &groupIDs, &groupName, &formats, &seeders, &snatched, &verifiedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no such book: %s", detailURL)
	}
	if err != nil {
		return nil, fmt.Errorf("reading classification for %s: %w", detailURL, err)
	}
	if !status.Valid {
		return nil, nil
	}

	return &types.Classification{
		Status:     types.MatchStatus(status.String),
		GroupIDs:   groupIDs.String,
		GroupName:  groupName.String,
		Formats:    formats.String,
		Seeders:    int(seeders.Int64),
		Snatched:   int(snatched.Int64),
		VerifiedAt: verifiedAt.String,
	}, nil
}

// CandidateFilter narrows the upload-candidate listing.
type CandidateFilter struct {
	// Series restricts to one series name.
	Series string

	// Format substring-matches the filetypes column (e.g. "epub").
	Format string

	// Text substring-matches the title or author.
	Text string

	// Limit caps the result when positive.
	Limit int
}

// Candidates lists the books classified no_match: locally-known works
// believed absent from the target tracker.
func (s *Store) Candidates(ctx context.Context, f CandidateFilter) ([]types.BookRecord, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT ` + bookColumns + ` FROM books WHERE match_status = ?`)
	args := []any{string(types.StatusNoMatch)}

	if f.Series != "" {
		qb.WriteString(` AND series_name = ?`)
		args = append(args, f.Series)
	}
	if f.Format != "" {
		qb.WriteString(` AND filetypes LIKE ?`)
		args = append(args, "%"+f.Format+"%")
	}
	if f.Text != "" {
		qb.WriteString(` AND (title LIKE ? OR author LIKE ?)`)
		args = append(args, "%"+f.Text+"%", "%"+f.Text+"%")
	}

	qb.WriteString(` ORDER BY series_name, title`)
	if f.Limit > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("selecting candidates: %w", err)
	}
	defer rows.Close()

	var books []types.BookRecord
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// SeriesSummary is one series rollup row: how many of the series' books
// are upload candidates versus already on the target tracker.
type SeriesSummary struct {
	Name       string
	Total      int
	Candidates int
	OnTarget   int
}

// Series lists every series that still has at least one upload candidate,
// largest series first. Books without a series name are not rolled up.
func (s *Store) Series(ctx context.Context) ([]SeriesSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT series_name,
			COUNT(*) AS total,
			SUM(CASE WHEN match_status = ? THEN 1 ELSE 0 END) AS candidates,
			SUM(CASE WHEN match_status = ? THEN 1 ELSE 0 END) AS on_target
		FROM books
		WHERE series_name IS NOT NULL AND series_name != ''
		GROUP BY series_name
		HAVING candidates > 0
		ORDER BY total DESC, series_name`,
		string(types.StatusNoMatch), string(types.StatusMatch),
	)
	if err != nil {
		return nil, fmt.Errorf("selecting series rollup: %w", err)
	}
	defer rows.Close()

	var summaries []SeriesSummary
	for rows.Next() {
		var sum SeriesSummary
		if err := rows.Scan(&sum.Name, &sum.Total, &sum.Candidates, &sum.OnTarget); err != nil {
			return nil, fmt.Errorf("scanning series rollup: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// SeriesBooks lists every book in one series with its verdict, ordered
// by title.
func (s *Store) SeriesBooks(ctx context.Context, name string) ([]ExportEntry, error) {
	return s.exportEntries(ctx, ExportOptions{Series: name})
}

// Stats summarizes the library for reporting.
type Stats struct {
	Total      int
	ByStatus   map[string]int
	ByLabel    map[string]int
	ByFiletype map[string]int
	LastScrape string
}

// Stats computes record counts by status, search label, and filetype.
// Unverified books are counted under "not_checked".
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{
		ByStatus:   make(map[string]int),
		ByLabel:    make(map[string]int),
		ByFiletype: make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&st.Total); err != nil {
		return st, fmt.Errorf("counting books: %w", err)
	}

	group := func(expr string, into map[string]int) error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+expr+`, COUNT(*) FROM books GROUP BY `+expr)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var key sql.NullString
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				return err
			}
			into[key.String] += n
		}
		return rows.Err()
	}

	if err := group(`COALESCE(match_status, 'not_checked')`, st.ByStatus); err != nil {
		return st, fmt.Errorf("counting by status: %w", err)
	}
	if err := group(`search_label`, st.ByLabel); err != nil {
		return st, fmt.Errorf("counting by label: %w", err)
	}
	if err := group(`filetypes`, st.ByFiletype); err != nil {
		return st, fmt.Errorf("counting by filetype: %w", err)
	}

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(scraped_at) FROM books`).Scan(&last); err != nil {
		return st, fmt.Errorf("reading last scrape time: %w", err)
	}
	st.LastScrape = last.String

	return st, nil
}
