// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/shelfgap/pkg/types"
)

// ExportEntry is one book with its classification, if verified.
type ExportEntry struct {
	types.BookRecord `yaml:",inline"`
	Classification   *types.Classification `json:"classification,omitempty" yaml:"classification,omitempty"`
}

// ExportOptions narrows an export to one status or series ("" means no
// filter).
type ExportOptions struct {
	Status types.MatchStatus
	Series string
}

// ExportYAML writes the library (or a status-filtered subset) to path.
func (s *Store) ExportYAML(ctx context.Context, path string, opts ExportOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the library (or a status-filtered subset) to path.
func (s *Store) ExportJSON(ctx context.Context, path string, opts ExportOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts ExportOptions) ([]ExportEntry, error) {
	query := `SELECT ` + bookColumns + `,
		match_status, match_group_ids, match_group_name,
		match_formats, match_seeders, match_snatched, verified_at
	FROM books`
	var conds []string
	var args []any
	if opts.Status != "" {
		conds = append(conds, `match_status = ?`)
		args = append(args, string(opts.Status))
	}
	if opts.Series != "" {
		conds = append(conds, `series_name = ?`)
		args = append(args, opts.Series)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY title, author`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	defer rows.Close()

	var entries []ExportEntry
	for rows.Next() {
		var b types.BookRecord
		var coAuthor, seriesName, size, tags, filetypes, addedTime sql.NullString
		var descriptionHTML, coverImageURL, torrentURL, searchLabel, searchURL sql.NullString
		var title, author sql.NullString
		var seriesID, filesNumber, searchPosition sql.NullInt64
		var status, groupIDs, groupName, formats, verifiedAt sql.NullString
		var seeders, snatched sql.NullInt64

		err := rows.Scan(
			&b.ID, &b.DetailURL, &title, &author, &coAuthor, &seriesName,
			&seriesID, &size, &tags, &filesNumber, &filetypes, &addedTime,
			&descriptionHTML, &coverImageURL, &torrentURL, &searchLabel,
			&searchPosition, &searchURL, &b.ScrapedAt,
			&status, &groupIDs, &groupName, &formats, &seeders, &snatched, &verifiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning export row: %w", err)
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

		entry := ExportEntry{BookRecord: b}
		if status.Valid {
			entry.Classification = &types.Classification{
				Status:     types.MatchStatus(status.String),
				GroupIDs:   groupIDs.String,
				GroupName:  groupName.String,
				Formats:    formats.String,
				Seeders:    int(seeders.Int64),
				Snatched:   int(snatched.Int64),
				VerifiedAt: verifiedAt.String,
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
