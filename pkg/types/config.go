// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the shared data structures and configuration for shelfgap.
package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "shelfgap/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// MatchConfig holds the tunables of the title/author matcher.
type MatchConfig struct {
	// TitlePrefixWords is the number of leading title words compared
	// against the candidate group name (default 5). Shorter prefixes
	// increase recall at the cost of false positives.
	TitlePrefixWords int `json:"title_prefix_words" yaml:"title_prefix_words"`

	// EbookCategoryID is the target tracker category a candidate must
	// carry to be considered (default 3, e-books).
	EbookCategoryID int `json:"ebook_category_id" yaml:"ebook_category_id"`

	// TitleOnly disables the author check entirely (default false).
	TitleOnly bool `json:"title_only" yaml:"title_only"`

	// AcceptMissingArtists accepts a candidate on title alone when the
	// target tracker recorded no usable artist names for it (default
	// true). This trades false negatives for false positives and is a
	// deliberate policy of the matcher, not an accident.
	AcceptMissingArtists bool `json:"accept_missing_artists" yaml:"accept_missing_artists"`
}

// DefaultMatchConfig returns the matcher defaults.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		TitlePrefixWords:     5,
		EbookCategoryID:      3,
		AcceptMissingArtists: true,
	}
}

// GazelleConfig holds settings for the target tracker API client.
type GazelleConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the ajax endpoint (e.g. "https://tracker.example/api.php").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is sent as the X-API-Key header. Loaded from the
	// environment or .env, never from the config file.
	APIKey string `json:"-" yaml:"-"`

	// MaxRequests and RateWindow define the tracker's request budget
	// (default 5 requests per 10 seconds).
	MaxRequests int           `json:"max_requests" yaml:"max_requests"`
	RateWindow  time.Duration `json:"rate_window" yaml:"rate_window"`

	// MaxRetries caps wait-and-retry attempts on HTTP 429 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CategoryID is the category filter applied to every search
	// (default 3, e-books).
	CategoryID int `json:"category_id" yaml:"category_id"`
}

// EbookCategoryID returns the configured search category filter,
// defaulting to the e-books category.
func (c GazelleConfig) EbookCategoryID() int {
	if c.CategoryID > 0 {
		return c.CategoryID
	}
	return 3
}

// SearchSpec defines one source tracker browse search.
type SearchSpec struct {
	// Label identifies the search in stored records (e.g. "Video Game + epub").
	Label     string   `json:"label" yaml:"label"`
	Category  string   `json:"category" yaml:"category"`
	Language  string   `json:"language" yaml:"language"`
	Tags      []string `json:"tags" yaml:"tags"`
	Filetypes []string `json:"filetypes" yaml:"filetypes"`
}

// HarvestConfig holds settings for source tracker collection.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the source tracker root (e.g. "https://tracker.example").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Searches lists the browse searches to walk.
	Searches []SearchSpec `json:"searches" yaml:"searches"`

	// MinDelay and MaxDelay bound the randomized pause after each page
	// visit (defaults 3s and 7s).
	MinDelay time.Duration `json:"min_delay" yaml:"min_delay"`
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`

	// PagesBeforeLongPause and LongPause introduce a longer rest every
	// N result pages (defaults 15 pages, 20s).
	PagesBeforeLongPause int           `json:"pages_before_long_pause" yaml:"pages_before_long_pause"`
	LongPause            time.Duration `json:"long_pause" yaml:"long_pause"`

	// MaxPagesPerSearch and MaxRecordsTotal are per-run safety limits
	// (defaults 50 and 1000).
	MaxPagesPerSearch int `json:"max_pages_per_search" yaml:"max_pages_per_search"`
	MaxRecordsTotal   int `json:"max_records_total" yaml:"max_records_total"`
}

// DefaultHarvestConfig returns the polite-crawl defaults.
func DefaultHarvestConfig() HarvestConfig {
	return HarvestConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "shelfgap/0.1",
		},
		MinDelay:             3 * time.Second,
		MaxDelay:             7 * time.Second,
		PagesBeforeLongPause: 15,
		LongPause:            20 * time.Second,
		MaxPagesPerSearch:    50,
		MaxRecordsTotal:      1000,
	}
}

// LibraryConfig holds settings for the local book library.
type LibraryConfig struct {
	// Path is the SQLite database file (default "shelfgap.db").
	Path string `json:"path" yaml:"path"`
}

// VerifyConfig holds settings for a verification run.
type VerifyConfig struct {
	Match MatchConfig `yaml:",inline"`

	// MaxBooks caps the number of books processed in one run (0 = all).
	MaxBooks int `json:"max_books" yaml:"max_books"`

	// ForceRecheck reprocesses books that already carry a terminal
	// status.
	ForceRecheck bool `json:"force_recheck" yaml:"force_recheck"`

	// ProgressInterval is how often a progress summary is printed
	// (default every 25 books).
	ProgressInterval int `json:"progress_interval" yaml:"progress_interval"`
}
