// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest collects eBook records from the source tracker's browse
// and detail pages into the local library. Crawling is strictly sequential
// with randomized polite delays; one page's failure is logged and skipped,
// never fatal to the run.
package harvest

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/shelfgap/pkg/types"
)

// Selector probe lists for the detail page fields. The tracker's markup
// varies across page generations, so each field is tried against several
// selectors and the first non-empty hit wins.
var (
	titleSelectors       = []string{"h1.torrent-title", "h1#torrent-title", ".torrent-header h1", "h1"}
	authorSelectors      = []string{".torrent-author a", ".torrent-author", "dt:contains('Author') + dd", "#author a"}
	coAuthorSelectors    = []string{".torrent-coauthor a", "dt:contains('Co-Author') + dd"}
	sizeSelectors        = []string{".torrent-size", "dt:contains('Size') + dd"}
	tagsSelectors        = []string{".torrent-tags", "dt:contains('Tags') + dd"}
	filesSelectors       = []string{".torrent-files", "dt:contains('Files') + dd"}
	filetypesSelectors   = []string{".torrent-filetypes", "dt:contains('Filetypes') + dd"}
	addedSelectors       = []string{".torrent-added", "dt:contains('Added') + dd"}
	descriptionSelectors = []string{".torrent-description", "#description"}
)

var seriesIDPattern = regexp.MustCompile(`/series/(\d+)`)

// ParseDetail extracts a book record from one detail page. Missing fields
// are left empty rather than treated as errors; only a page with no title
// at all is rejected.
func ParseDetail(r io.Reader, detailURL string) (*types.BookRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing detail page %s: %w", detailURL, err)
	}

	b := &types.BookRecord{
		DetailURL: detailURL,
		ScrapedAt: time.Now().UTC().Format(time.RFC3339),
	}

	b.Title = firstText(doc, titleSelectors)
	if b.Title == "" {
		return nil, fmt.Errorf("detail page %s: no title found", detailURL)
	}

	b.Author = firstText(doc, authorSelectors)
	b.CoAuthor = firstText(doc, coAuthorSelectors)
	b.Size = firstText(doc, sizeSelectors)
	b.Tags = NormalizeTags(firstText(doc, tagsSelectors))
	b.FilesNumber = ParseFilesNumber(firstText(doc, filesSelectors))
	b.Filetypes = NormalizeFiletypes(firstText(doc, filetypesSelectors))
	b.AddedTime = firstText(doc, addedSelectors)

	for _, sel := range descriptionSelectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if html, err := node.Html(); err == nil {
				b.DescriptionHTML = strings.TrimSpace(html)
				break
			}
		}
	}

	if src, ok := doc.Find(".torrent-cover img, img.cover").First().Attr("src"); ok {
		b.CoverImageURL = resolveURL(detailURL, src)
	}
	if href, ok := doc.Find(`a[href*="download.php"]`).First().Attr("href"); ok {
		b.TorrentURL = resolveURL(detailURL, href)
	}

	series := doc.Find(`a[href*="/series/"]`).First()
	if series.Length() > 0 {
		b.SeriesName = strings.TrimSpace(series.Text())
		if href, ok := series.Attr("href"); ok {
			if m := seriesIDPattern.FindStringSubmatch(href); m != nil {
				b.SeriesID, _ = strconv.ParseInt(m[1], 10, 64)
			}
		}
	}

	return b, nil
}

// firstText returns the trimmed text of the first selector that matches a
// non-empty node.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// resolveURL makes a possibly-relative href absolute against the page URL.
func resolveURL(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// NormalizeTags cleans a comma-separated tag string: trimmed entries,
// empties dropped, joined with ", ".
func NormalizeTags(tags string) string {
	return joinCleaned(tags, false)
}

// NormalizeFiletypes cleans a comma-separated filetype string the same way
// and lowercases the entries.
func NormalizeFiletypes(filetypes string) string {
	return joinCleaned(filetypes, true)
}

func joinCleaned(s string, lower bool) string {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if lower {
			p = strings.ToLower(p)
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

var digitsPattern = regexp.MustCompile(`\d+`)

// ParseFilesNumber extracts the file count from strings like "2 files".
// Returns 0 when no number is present.
func ParseFilesNumber(s string) int {
	m := digitsPattern.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}
