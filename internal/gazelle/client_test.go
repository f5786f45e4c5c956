package gazelle

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/shelfgap/internal/httputil"
	"github.com/pdiddy/shelfgap/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func testClient(baseURL string) *Client {
	c := NewClient(types.GazelleConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "shelfgap-test/0.1"},
		BaseURL:    baseURL,
		APIKey:     "test-key",
	})
	// No waiting in tests.
	c.limiter.sleep = func(time.Duration) {}
	return c
}

const groupMapBody = `{
	"status": "success",
	"response": {
		"4021": {
			"Name": "Starcraft Ghost Spectres by Nate Kenyon EPUB",
			"CategoryID": "3",
			"Artists": ["Nate Kenyon", {"name": "Blizzard Entertainment"}],
			"Torrents": {
				"9001": {"Format": "epub", "ReleaseTitle": "Starcraft Ghost Spectres EPUB", "Seeders": 4, "Snatched": 12},
				"9002": {"Format": "", "ReleaseTitle": "Starcraft Ghost Spectres PDF", "Seeders": "1", "Snatched": "3"}
			}
		},
		"4022": {
			"Name": "Starcraft Field Manual",
			"CategoryID": 3,
			"Artists": [],
			"Torrents": []
		}
	}
}`

func TestSearchEbooksParsesGroups(t *testing.T) {
	var gotHeader, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-API-Key")
		gotQuery = r.URL.Query().Get("searchstr")
		if r.URL.Query().Get("filter_cat[3]") != "1" {
			t.Errorf("filter_cat[3] = %q, want 1", r.URL.Query().Get("filter_cat[3]"))
		}
		fmt.Fprint(w, groupMapBody)
	}))
	defer ts.Close()

	groups, err := testClient(ts.URL).SearchEbooks(context.Background(), "Starcraft Ghost")
	if err != nil {
		t.Fatalf("SearchEbooks: %v", err)
	}
	if gotHeader != "test-key" {
		t.Errorf("X-API-Key = %q, want test-key", gotHeader)
	}
	if gotQuery != "Starcraft Ghost" {
		t.Errorf("searchstr = %q", gotQuery)
	}
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}

	// Sorted by id.
	g := groups[0]
	if g.ID != 4021 {
		t.Errorf("ID = %d, want 4021", g.ID)
	}
	if g.CategoryID != 3 {
		t.Errorf("CategoryID = %d, want 3 (string-typed in payload)", g.CategoryID)
	}
	if len(g.Artists) != 2 || g.Artists[0].Name != "Nate Kenyon" || g.Artists[1].Name != "Blizzard Entertainment" {
		t.Errorf("Artists = %+v", g.Artists)
	}
	if len(g.Torrents) != 2 {
		t.Fatalf("len(Torrents) = %d, want 2 (map shape)", len(g.Torrents))
	}
	if g.Torrents[1].Seeders != 1 {
		t.Errorf("Seeders = %d, want 1 (string-typed in payload)", g.Torrents[1].Seeders)
	}
}

func TestSearchEbooksEmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status": "success", "response": []}`)
	}))
	defer ts.Close()

	groups, err := testClient(ts.URL).SearchEbooks(context.Background(), "nothing here")
	if err != nil {
		t.Fatalf("SearchEbooks: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("len(groups) = %d, want 0", len(groups))
	}
}

func TestSearchEbooksAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status": "failure", "error": "bad api key"}`)
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).SearchEbooks(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error for failure status")
	}
}

func TestSearchEbooksMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>not json</html>`)
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).SearchEbooks(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestSearchEbooksHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).SearchEbooks(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error for HTTP 502")
	}
}

func TestSearchEbooksRetriesOn429(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"status": "success", "response": []}`)
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).SearchEbooks(context.Background(), "query")
	if err != nil {
		t.Fatalf("SearchEbooks: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", calls)
	}
}

func TestGroupDetails(t *testing.T) {
	g := Group{
		ID:   4021,
		Name: "Starcraft Ghost Spectres",
		Torrents: []Torrent{
			{Format: "epub", ReleaseTitle: "Starcraft Ghost Spectres EPUB", Seeders: 4, Snatched: 12},
			{Format: "", ReleaseTitle: "Starcraft Ghost Spectres [PDF]", Seeders: 1, Snatched: 3},
			{Format: "MOBI", ReleaseTitle: "Starcraft Ghost Spectres", Seeders: 2, Snatched: 5},
		},
	}

	d := g.Details()
	if d.Seeders != 7 || d.Snatched != 20 {
		t.Errorf("totals = %d/%d, want 7/20", d.Seeders, d.Snatched)
	}
	want := []string{"EPUB", "MOBI", "PDF"}
	if len(d.Formats) != len(want) {
		t.Fatalf("Formats = %v, want %v", d.Formats, want)
	}
	for i, f := range want {
		if d.Formats[i] != f {
			t.Errorf("Formats[%d] = %q, want %q", i, d.Formats[i], f)
		}
	}
}

func TestGroupCandidate(t *testing.T) {
	g := Group{ID: 7, Name: "A Book", CategoryID: 3, Artists: []types.Artist{{Name: "Someone"}}}
	c := g.Candidate()
	if c.GroupID != 7 || c.Name != "A Book" || c.CategoryID != 3 || len(c.Artists) != 1 {
		t.Errorf("Candidate() = %+v", c)
	}
}
