// Package models defines the report structures produced by the explorer.
package models

import "time"

// Category is the coarse content bucket a sitemap is filed under.
type Category string

const (
	CategoryProducts    Category = "products"
	CategoryCollections Category = "collections"
	CategoryBlogs       Category = "blogs"
	CategoryPages       Category = "pages"
	CategoryOther       Category = "other"
	// CategoryError marks a sitemap that could not be fetched or decoded.
	CategoryError Category = "error"
)

// Categories lists the buckets that carry totals, in report order.
var Categories = []Category{
	CategoryProducts,
	CategoryCollections,
	CategoryBlogs,
	CategoryPages,
	CategoryOther,
}

// SitemapEntry is one row of a report.
type SitemapEntry struct {
	URL   string   `json:"url"`
	Type  Category `json:"type"`
	Count int      `json:"count"`
	Error string   `json:"error,omitempty"`
}

// Failed reports whether the entry records a fetch or decode failure.
func (e SitemapEntry) Failed() bool {
	return e.Type == CategoryError
}

// CategoryTotals sums URL counts per bucket. Error entries never contribute.
type CategoryTotals struct {
	Products    int `json:"products"`
	Collections int `json:"collections"`
	Blogs       int `json:"blogs"`
	Pages       int `json:"pages"`
	Other       int `json:"other"`
}

// Add credits n URLs to the bucket for c. It returns false for CategoryError
// and any value that is not one of Categories.
func (t *CategoryTotals) Add(c Category, n int) bool {
	switch c {
	case CategoryProducts:
		t.Products += n
	case CategoryCollections:
		t.Collections += n
	case CategoryBlogs:
		t.Blogs += n
	case CategoryPages:
		t.Pages += n
	case CategoryOther:
		t.Other += n
	default:
		return false
	}
	return true
}

// Get returns the running total for c, or 0 for non-bucket categories.
func (t CategoryTotals) Get(c Category) int {
	switch c {
	case CategoryProducts:
		return t.Products
	case CategoryCollections:
		return t.Collections
	case CategoryBlogs:
		return t.Blogs
	case CategoryPages:
		return t.Pages
	case CategoryOther:
		return t.Other
	default:
		return 0
	}
}

// Sum returns the total URL count across every bucket.
func (t CategoryTotals) Sum() int {
	return t.Products + t.Collections + t.Blogs + t.Pages + t.Other
}

// Tally builds totals from a finished entry list.
func Tally(entries []SitemapEntry) CategoryTotals {
	var totals CategoryTotals
	for _, entry := range entries {
		if entry.Failed() {
			continue
		}
		totals.Add(entry.Type, entry.Count)
	}
	return totals
}

// Report is the aggregate result of exploring one site.
type Report struct {
	Site          string         `json:"site"`
	MainSitemap   string         `json:"mainSitemap"`
	TotalSitemaps int            `json:"totalSitemaps"`
	Sitemaps      []SitemapEntry `json:"sitemaps"`
	Counts        CategoryTotals `json:"counts"`

	StartTime time.Time `json:"-"`
	EndTime   time.Time `json:"-"`
}

// NewReport assembles a report and computes its totals from entries.
func NewReport(site, mainSitemap string, totalSitemaps int, entries []SitemapEntry) *Report {
	return &Report{
		Site:          site,
		MainSitemap:   mainSitemap,
		TotalSitemaps: totalSitemaps,
		Sitemaps:      entries,
		Counts:        Tally(entries),
	}
}

// ErrorCount returns how many entries failed.
func (r *Report) ErrorCount() int {
	count := 0
	for _, entry := range r.Sitemaps {
		if entry.Failed() {
			count++
		}
	}
	return count
}

// Duration is the wall time spent building the report.
func (r *Report) Duration() time.Duration {
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
