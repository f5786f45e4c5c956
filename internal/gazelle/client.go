// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gazelle is a rate-limited client for the target tracker's
// Gazelle-style JSON API. It issues one search at a time, honors the
// tracker's request budget, and converts the API's loosely-shaped group
// payloads into typed results.
package gazelle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/shelfgap/internal/httputil"
	"github.com/pdiddy/shelfgap/pkg/types"
)

// Client queries the target tracker search API.
type Client struct {
	http    *http.Client
	cfg     types.GazelleConfig
	limiter *Limiter
}

// NewClient returns a client for cfg. The rate limiter defaults to
// 5 requests per 10 seconds when cfg leaves the budget unset.
func NewClient(cfg types.GazelleConfig) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		limiter: NewLimiter(cfg.MaxRequests, cfg.RateWindow),
	}
}

// Torrent is one release within a candidate group.
type Torrent struct {
	Format       string
	ReleaseTitle string
	Seeders      int
	Snatched     int
}

// Group is one search hit: a published work and its known releases.
type Group struct {
	ID         int64
	Name       string
	CategoryID int
	Artists    []types.Artist
	Torrents   []Torrent
}

// Candidate returns the slice of the group the matcher consumes.
func (g Group) Candidate() types.Candidate {
	return types.Candidate{
		GroupID:    g.ID,
		Name:       g.Name,
		CategoryID: g.CategoryID,
		Artists:    g.Artists,
	}
}

// releaseFormats are the format tokens recognized inside release titles in
// addition to the structured Format field.
var releaseFormats = []string{"EPUB", "PDF", "MOBI", "AZW3", "CBR", "CBZ"}

// Details aggregates the group's releases: the distinct formats seen and
// the seeder and snatch totals.
type Details struct {
	GroupID   int64
	GroupName string
	Formats   []string
	Seeders   int
	Snatched  int
}

// Details summarizes the group's torrent list.
func (g Group) Details() Details {
	formats := make(map[string]bool)
	d := Details{GroupID: g.ID, GroupName: g.Name}

	for _, t := range g.Torrents {
		if t.Format != "" {
			formats[strings.ToUpper(t.Format)] = true
		}
		title := strings.ToUpper(t.ReleaseTitle)
		for _, f := range releaseFormats {
			if strings.Contains(title, f) {
				formats[f] = true
			}
		}
		d.Seeders += t.Seeders
		d.Snatched += t.Snatched
	}

	for f := range formats {
		d.Formats = append(d.Formats, f)
	}
	sort.Strings(d.Formats)
	return d
}

// SearchEbooks searches the tracker for query within the e-books category
// and returns zero or more candidate groups. The call blocks on the rate
// limiter first; HTTP 429 responses are retried with increasing delay up
// to cfg.MaxRetries before giving up.
func (c *Client) SearchEbooks(ctx context.Context, query string) ([]Group, error) {
	c.limiter.Wait()

	category := c.cfg.EbookCategoryID()

	params := url.Values{
		"request":     {"search"},
		"search_type": {"torrents"},
		"searchstr":   {query},
	}
	params.Set(fmt.Sprintf("filter_cat[%d]", category), "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("tracker search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracker API returned HTTP %d", resp.StatusCode)
	}

	var envelope struct {
		Status   string          `json:"status"`
		Error    string          `json:"error"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("parsing tracker response: %w", err)
	}
	if envelope.Status != "success" {
		msg := envelope.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("tracker API error: %s", msg)
	}

	return parseGroups(envelope.Response)
}

// parseGroups handles the API's two response shapes: a map of groupID to
// group when there are hits, and an empty JSON array when there are none.
func parseGroups(raw json.RawMessage) ([]Group, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var empty []json.RawMessage
	if err := json.Unmarshal(raw, &empty); err == nil {
		if len(empty) != 0 {
			return nil, fmt.Errorf("unexpected array response with %d entries", len(empty))
		}
		return nil, nil
	}

	var byID map[string]groupWire
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("parsing group map: %w", err)
	}

	groups := make([]Group, 0, len(byID))
	for id, w := range byID {
		gid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		groups = append(groups, w.group(gid))
	}

	// Map iteration order is random; keep output deterministic.
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

// groupWire mirrors the API's group payload.
type groupWire struct {
	Name       string         `json:"Name"`
	CategoryID flexInt        `json:"CategoryID"`
	Artists    []types.Artist `json:"Artists"`
	Torrents   torrentList    `json:"Torrents"`
}

func (w groupWire) group(id int64) Group {
	g := Group{
		ID:         id,
		Name:       w.Name,
		CategoryID: int(w.CategoryID),
		Artists:    w.Artists,
	}
	for _, t := range w.Torrents {
		title := t.ReleaseTitle
		if title == "" {
			title = t.TorrentName
		}
		g.Torrents = append(g.Torrents, Torrent{
			Format:       t.Format,
			ReleaseTitle: title,
			Seeders:      int(t.Seeders),
			Snatched:     int(t.Snatched),
		})
	}
	return g
}

type torrentWire struct {
	Format       string  `json:"Format"`
	ReleaseTitle string  `json:"ReleaseTitle"`
	TorrentName  string  `json:"torrentName"`
	Seeders      flexInt `json:"Seeders"`
	Snatched     flexInt `json:"Snatched"`
}

// torrentList accepts both shapes the API serializes torrents in: a map of
// torrentID to torrent, or a plain list.
type torrentList []torrentWire

func (l *torrentList) UnmarshalJSON(data []byte) error {
	var slice []torrentWire
	if err := json.Unmarshal(data, &slice); err == nil {
		*l = slice
		return nil
	}

	var byID map[string]torrentWire
	if err := json.Unmarshal(data, &byID); err != nil {
		return fmt.Errorf("parsing torrent list: %w", err)
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		*l = append(*l, byID[id])
	}
	return nil
}

// flexInt decodes JSON numbers that the API sometimes serializes as
// strings ("3" vs 3). Unparsable values decode to zero.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}
