// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly"

	"github.com/pdiddy/shelfgap/pkg/types"
)

// BookStore is the slice of the library the crawler needs.
type BookStore interface {
	Exists(ctx context.Context, detailURL string) (bool, error)
	Upsert(ctx context.Context, b *types.BookRecord) error
}

// Summary holds the counts from one harvest run.
type Summary struct {
	Scraped int
	Skipped int
	Failed  int
}

// Crawler walks the configured browse searches and stores every unseen
// detail page it finds.
type Crawler struct {
	store BookStore
	cfg   types.HarvestConfig
	out   io.Writer

	// sleep and rng are injectable so tests run without real waits.
	sleep func(time.Duration)
	rng   *rand.Rand
}

// NewCrawler returns a crawler writing progress to out.
func NewCrawler(store BookStore, cfg types.HarvestConfig, out io.Writer) *Crawler {
	return &Crawler{
		store: store,
		cfg:   cfg,
		out:   out,
		sleep: time.Sleep,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run processes every configured search in order, stopping early when the
// run-level record cap is reached or the context is cancelled.
func (c *Crawler) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	for _, spec := range c.cfg.Searches {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		remaining := c.cfg.MaxRecordsTotal - summary.Scraped
		if c.cfg.MaxRecordsTotal > 0 && remaining <= 0 {
			fmt.Fprintf(c.out, "record cap reached, stopping\n")
			break
		}

		fmt.Fprintf(c.out, "search: %s\n", spec.Label)
		s, err := c.runSearch(ctx, spec, remaining)
		summary.Scraped += s.Scraped
		summary.Skipped += s.Skipped
		summary.Failed += s.Failed
		if err != nil {
			// One search failing does not abort the rest.
			fmt.Fprintf(c.out, "warning: search %s: %v\n", spec.Label, err)
		}
	}

	fmt.Fprintf(c.out, "\nscraped: %d, skipped: %d, failed: %d\n",
		summary.Scraped, summary.Skipped, summary.Failed)
	return summary, nil
}

func (c *Crawler) runSearch(ctx context.Context, spec types.SearchSpec, remaining int) (Summary, error) {
	var summary Summary

	browser := c.newCollector()
	var pageLinks []string
	browser.OnHTML(`a[href*="/t/"]`, func(e *colly.HTMLElement) {
		pageLinks = append(pageLinks, e.Request.AbsoluteURL(e.Attr("href")))
	})

	fetcher := c.newCollector()
	var detailBody []byte
	fetcher.OnResponse(func(r *colly.Response) {
		detailBody = r.Body
	})
	fetch := func(link string) ([]byte, error) {
		detailBody = nil
		if err := fetcher.Visit(link); err != nil {
			return nil, err
		}
		if detailBody == nil {
			return nil, fmt.Errorf("empty response")
		}
		return detailBody, nil
	}

	position := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if c.cfg.MaxPagesPerSearch > 0 && page > c.cfg.MaxPagesPerSearch {
			fmt.Fprintf(c.out, "  page cap reached (%d)\n", c.cfg.MaxPagesPerSearch)
			break
		}

		searchURL := c.browseURL(spec, page)
		pageLinks = pageLinks[:0]
		if err := browser.Visit(searchURL); err != nil {
			return summary, fmt.Errorf("visiting results page %d: %w", page, err)
		}
		if len(pageLinks) == 0 {
			break
		}
		fmt.Fprintf(c.out, "  page %d: %d torrents\n", page, len(pageLinks))

		for _, link := range pageLinks {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			position++

			if c.cfg.MaxRecordsTotal > 0 && summary.Scraped >= remaining {
				fmt.Fprintf(c.out, "  record cap reached\n")
				return summary, nil
			}

			exists, err := c.store.Exists(ctx, link)
			if err != nil {
				return summary, fmt.Errorf("checking %s: %w", link, err)
			}
			if exists {
				summary.Skipped++
				continue
			}

			if err := c.scrapeDetail(ctx, fetch, link, spec.Label, position, searchURL); err != nil {
				fmt.Fprintf(c.out, "  failed  %s: %v\n", link, err)
				summary.Failed++
				continue
			}
			summary.Scraped++
			c.politePause()
		}

		if c.cfg.PagesBeforeLongPause > 0 && page%c.cfg.PagesBeforeLongPause == 0 {
			c.sleep(c.cfg.LongPause)
		} else {
			c.politePause()
		}
	}

	return summary, nil
}

// scrapeDetail fetches one detail page, parses it, and stores the record.
func (c *Crawler) scrapeDetail(ctx context.Context, fetch func(string) ([]byte, error), link, label string, position int, searchURL string) error {
	body, err := fetch(link)
	if err != nil {
		return fmt.Errorf("fetching: %w", err)
	}

	record, err := ParseDetail(bytes.NewReader(body), link)
	if err != nil {
		return err
	}
	record.SearchLabel = label
	record.SearchPosition = position
	record.SearchURL = searchURL

	if err := c.store.Upsert(ctx, record); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "  saved   %s\n", record.Title)
	return nil
}

func (c *Crawler) newCollector() *colly.Collector {
	col := colly.NewCollector(
		colly.UserAgent(c.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	if c.cfg.Timeout > 0 {
		col.SetRequestTimeout(c.cfg.Timeout)
	}
	return col
}

// browseURL builds the results URL for one search page.
func (c *Crawler) browseURL(spec types.SearchSpec, page int) string {
	params := url.Values{}
	if spec.Category != "" {
		params.Set("category", spec.Category)
	}
	if spec.Language != "" {
		params.Set("language", spec.Language)
	}
	if len(spec.Tags) > 0 {
		params.Set("tags", strings.Join(spec.Tags, ","))
	}
	if len(spec.Filetypes) > 0 {
		params.Set("filetypes", strings.Join(spec.Filetypes, ","))
	}
	params.Set("page", strconv.Itoa(page))
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/tor/browse.php?" + params.Encode()
}

// politePause sleeps a random duration within the configured delay bounds.
func (c *Crawler) politePause() {
	min := c.cfg.MinDelay
	max := c.cfg.MaxDelay
	if max <= min {
		c.sleep(min)
		return
	}
	c.sleep(min + time.Duration(c.rng.Int63n(int64(max-min))))
}
