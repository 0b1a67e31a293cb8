package models

import (
	"testing"
	"time"
)

func TestTallySkipsErrorEntries(t *testing.T) {
	entries := []SitemapEntry{
		{URL: "https://example.test/products-sitemap.xml", Type: CategoryProducts, Count: 50},
		{URL: "https://example.test/blog-sitemap.xml", Type: CategoryBlogs, Count: 12},
		{URL: "https://example.test/broken.xml", Type: CategoryError, Count: 7, Error: "boom"},
		{URL: "https://example.test/misc.xml", Type: CategoryOther, Count: 3},
		{URL: "https://example.test/more-products.xml", Type: CategoryProducts, Count: 5},
	}

	totals := Tally(entries)
	want := CategoryTotals{Products: 55, Blogs: 12, Other: 3}
	if totals != want {
		t.Fatalf("totals = %+v, want %+v", totals, want)
	}
	if got := totals.Sum(); got != 70 {
		t.Fatalf("sum = %d, want 70", got)
	}
}

func TestCategoryTotalsAdd(t *testing.T) {
	tests := []struct {
		category Category
		accepted bool
	}{
		{category: CategoryProducts, accepted: true},
		{category: CategoryCollections, accepted: true},
		{category: CategoryBlogs, accepted: true},
		{category: CategoryPages, accepted: true},
		{category: CategoryOther, accepted: true},
		{category: CategoryError, accepted: false},
		{category: Category("videos"), accepted: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			var totals CategoryTotals
			if got := totals.Add(tt.category, 4); got != tt.accepted {
				t.Fatalf("Add(%q) = %v, want %v", tt.category, got, tt.accepted)
			}
			want := 0
			if tt.accepted {
				want = 4
			}
			if got := totals.Get(tt.category); got != want {
				t.Fatalf("Get(%q) = %d, want %d", tt.category, got, want)
			}
			if got := totals.Sum(); got != want {
				t.Fatalf("Sum() = %d, want %d", got, want)
			}
		})
	}
}

func TestNewReport(t *testing.T) {
	entries := []SitemapEntry{
		{URL: "https://example.test/pages.xml", Type: CategoryPages, Count: 9},
		{URL: "https://example.test/broken.xml", Type: CategoryError, Error: "not_found"},
	}

	report := NewReport("https://example.test", "https://example.test/sitemap.xml", 2, entries)
	if report.Counts.Pages != 9 {
		t.Fatalf("pages = %d, want 9", report.Counts.Pages)
	}
	if got := report.ErrorCount(); got != 1 {
		t.Fatalf("error count = %d, want 1", got)
	}
	if report.Duration() != 0 {
		t.Fatalf("duration without timestamps should be zero")
	}

	report.StartTime = time.Unix(100, 0)
	report.EndTime = time.Unix(102, 0)
	if got := report.Duration(); got != 2*time.Second {
		t.Fatalf("duration = %v, want 2s", got)
	}
}
