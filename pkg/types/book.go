// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "encoding/json"

// BookRecord is one harvested detail page from the source tracker. Records
// are keyed by DetailURL; re-harvesting the same URL overwrites in place.
type BookRecord struct {
	ID              int64  `json:"id" yaml:"id"`
	DetailURL       string `json:"detail_url" yaml:"detail_url"`
	Title           string `json:"title" yaml:"title"`
	Author          string `json:"author" yaml:"author"`
	CoAuthor        string `json:"co_author,omitempty" yaml:"co_author,omitempty"`
	SeriesName      string `json:"series_name,omitempty" yaml:"series_name,omitempty"`
	SeriesID        int64  `json:"series_id,omitempty" yaml:"series_id,omitempty"`
	Size            string `json:"size" yaml:"size"`
	Tags            string `json:"tags" yaml:"tags"`
	FilesNumber     int    `json:"files_number" yaml:"files_number"`
	Filetypes       string `json:"filetypes" yaml:"filetypes"`
	AddedTime       string `json:"added_time" yaml:"added_time"`
	DescriptionHTML string `json:"description_html,omitempty" yaml:"description_html,omitempty"`
	CoverImageURL   string `json:"cover_image_url,omitempty" yaml:"cover_image_url,omitempty"`
	TorrentURL      string `json:"torrent_url,omitempty" yaml:"torrent_url,omitempty"`
	SearchLabel     string `json:"search_label" yaml:"search_label"`
	SearchPosition  int    `json:"search_position" yaml:"search_position"`
	SearchURL       string `json:"search_url" yaml:"search_url"`
	ScrapedAt       string `json:"scraped_at" yaml:"scraped_at"`
}

// MatchStatus is the terminal classification of one book against the target
// tracker. A later run may re-derive and overwrite it; there are no other
// transitions.
type MatchStatus string

const (
	// StatusMatch: exactly one candidate group matched.
	StatusMatch MatchStatus = "match"

	// StatusNoMatch: no candidate matched; the book is an upload candidate.
	StatusNoMatch MatchStatus = "no_match"

	// StatusAmbiguous: two or more candidates matched; needs manual review.
	StatusAmbiguous MatchStatus = "ambiguous"

	// StatusError: the search or response parsing failed; the book is
	// retried on a later run.
	StatusError MatchStatus = "error"
)

// Classification is the persisted outcome of verifying one book.
type Classification struct {
	Status MatchStatus `json:"status" yaml:"status"`

	// GroupIDs holds the matched group id, or every matched id joined
	// with ";" when the status is ambiguous.
	GroupIDs  string `json:"group_ids,omitempty" yaml:"group_ids,omitempty"`
	GroupName string `json:"group_name,omitempty" yaml:"group_name,omitempty"`

	// Formats is a ";"-joined list of release formats seen across the
	// matched group's torrents.
	Formats  string `json:"formats,omitempty" yaml:"formats,omitempty"`
	Seeders  int    `json:"seeders,omitempty" yaml:"seeders,omitempty"`
	Snatched int    `json:"snatched,omitempty" yaml:"snatched,omitempty"`

	VerifiedAt string `json:"verified_at,omitempty" yaml:"verified_at,omitempty"`
}

// Artist is one entry of a candidate group's artist list. The target
// tracker serializes entries either as a plain string or as an object
// carrying the name under one of several keys; both decode into Name.
// An entry in an unrecognized shape decodes to an empty Name and is
// treated as absent author metadata rather than an error.
type Artist struct {
	Name string
}

// artistNameKeys are the object keys probed, in order, for a structured
// artist entry.
var artistNameKeys = []string{"name", "Name", "artist", "Artist"}

// UnmarshalJSON accepts both the plain-string and the object form.
func (a *Artist) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		a.Name = plain
		return nil
	}

	var structured map[string]any
	if err := json.Unmarshal(data, &structured); err != nil {
		a.Name = ""
		return nil
	}
	for _, key := range artistNameKeys {
		if v, ok := structured[key]; ok {
			if s, ok := v.(string); ok {
				a.Name = s
				return nil
			}
		}
	}
	a.Name = ""
	return nil
}

// MarshalJSON writes the plain-string form.
func (a Artist) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Name)
}

// Candidate is the slice of a target tracker search hit the matcher
// consumes: the group identity, its category, and who the tracker thinks
// made it.
type Candidate struct {
	GroupID    int64    `json:"group_id" yaml:"group_id"`
	Name       string   `json:"name" yaml:"name"`
	CategoryID int      `json:"category_id" yaml:"category_id"`
	Artists    []Artist `json:"artists" yaml:"artists"`
}
