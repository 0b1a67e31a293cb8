// Package scraper resolves a site's sitemap tree into an aggregate report.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/sitemap-explorer/config"
	"github.com/aluiziolira/sitemap-explorer/models"
	"github.com/aluiziolira/sitemap-explorer/parser"
	"golang.org/x/sync/errgroup"
)

// Explorer fetches a root sitemap, fans out over any child sitemaps it
// references and aggregates their URL counts per category.
type Explorer struct {
	cfg     *config.Config
	fetcher *Fetcher
	Metrics *Metrics
}

// NewExplorer builds an explorer instance configured from cfg.
func NewExplorer(cfg *config.Config) (*Explorer, error) {
	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	return &Explorer{
		cfg:     cfg,
		fetcher: fetcher,
		Metrics: metrics,
	}, nil
}

// WithTransport replaces the HTTP transport used for every fetch.
func (e *Explorer) WithTransport(rt http.RoundTripper) {
	e.fetcher.collector.WithTransport(rt)
}

// Explore builds the report for one site reference.
//
// It fails with parser.ErrInvalidInput for an empty or host-less reference
// and with *ErrRootUnavailable when the root sitemap cannot be fetched.
// Child failures never fail the call; they become error entries.
func (e *Explorer) Explore(ctx context.Context, ref string) (report *models.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("explore panic", slog.String("site", ref), slog.Any("panic", r))
			e.Metrics.IncReport("internal")
			report, err = nil, fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()
	return e.explore(ctx, ref)
}

func (e *Explorer) explore(ctx context.Context, ref string) (*models.Report, error) {
	start := time.Now()

	origin, err := parser.NormalizeSiteReference(ref)
	if err != nil {
		e.Metrics.IncReport("invalid")
		return nil, fmt.Errorf("%w: %q", err, ref)
	}
	root := parser.SitemapLocation(origin)

	body, err := e.fetcher.Fetch(ctx, phaseRoot, root)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, e.canceled(origin, ctxErr)
		}
		e.Metrics.IncReport("unavailable")
		return nil, &ErrRootUnavailable{Location: root, Err: err}
	}

	parsed := parser.Parse(body)
	var (
		entries []models.SitemapEntry
		total   int
	)
	switch {
	case parsed.Kind == parser.KindIndex && len(parsed.ChildLocations) > 0:
		entries = e.resolveChildren(ctx, root, parsed.ChildLocations)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, e.canceled(origin, ctxErr)
		}
		total = len(entries)
	default:
		if parsed.Malformed() {
			slog.Warn("root sitemap malformed", slog.String("url", root))
		}
		entries = []models.SitemapEntry{{
			URL:   root,
			Type:  models.CategoryPages,
			Count: parsed.URLCount,
		}}
		total = 1
	}

	report := models.NewReport(origin, root, total, entries)
	report.StartTime = start
	report.EndTime = time.Now()
	e.Metrics.IncReport("ok")

	slog.Info("site explored",
		slog.String("site", origin),
		slog.String("kind", parsed.Kind.String()),
		slog.Int("sitemaps", report.TotalSitemaps),
		slog.Int("errors", report.ErrorCount()),
		slog.Int("urls", report.Counts.Sum()),
		slog.Duration("duration", report.Duration()),
	)
	return report, nil
}

// resolveChildren runs one task per child. Each task owns exactly one slot
// of entries, so order follows the index document regardless of completion.
func (e *Explorer) resolveChildren(ctx context.Context, root string, locations []string) []models.SitemapEntry {
	base, _ := url.Parse(root)
	entries := make([]models.SitemapEntry, len(locations))

	var g errgroup.Group
	for i, loc := range locations {
		location := resolveLocation(base, loc)
		g.Go(func() error {
			entries[i] = e.resolveChild(ctx, location)
			return nil
		})
	}
	_ = g.Wait()

	return entries
}

func (e *Explorer) resolveChild(ctx context.Context, location string) (entry models.SitemapEntry) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("child sitemap panic", slog.String("url", location), slog.Any("panic", r))
			entry = e.errorEntry(location, fmt.Errorf("%w: %v", ErrInternal, r))
		}
	}()

	body, err := e.fetcher.Fetch(ctx, phaseChild, location)
	if err != nil {
		return e.errorEntry(location, err)
	}

	parsed := parser.Parse(body)
	if parsed.Malformed() {
		e.Metrics.IncError(errorTypeLabel(ErrMalformedSitemap))
		return e.errorEntry(location, ErrMalformedSitemap)
	}
	if parsed.Kind == parser.KindIndex {
		slog.Debug("nested sitemap index not followed", slog.String("url", location))
	}

	category := parser.Classify(location)
	e.Metrics.IncSitemap(category)
	return models.SitemapEntry{
		URL:   location,
		Type:  category,
		Count: parsed.URLCount,
	}
}

// canceled reports an exploration cut short by its context. Child entries
// gathered so far are discarded.
func (e *Explorer) canceled(origin string, err error) error {
	e.Metrics.IncReport("canceled")
	slog.Debug("exploration canceled", slog.String("site", origin), slog.Any("error", err))
	return fmt.Errorf("explore %s: %w", origin, err)
}

func (e *Explorer) errorEntry(location string, err error) models.SitemapEntry {
	e.Metrics.IncSitemap(models.CategoryError)
	return models.SitemapEntry{
		URL:   location,
		Type:  models.CategoryError,
		Error: err.Error(),
	}
}

// resolveLocation makes a relative child location absolute against the
// root sitemap URL. Absolute locations are returned untouched.
func resolveLocation(base *url.URL, loc string) string {
	if base == nil {
		return loc
	}
	ref, err := url.Parse(loc)
	if err != nil || ref.IsAbs() {
		return loc
	}
	return base.ResolveReference(ref).String()
}

// IsRootUnavailable reports whether err means the site's root sitemap could
// not be fetched.
func IsRootUnavailable(err error) bool {
	var target *ErrRootUnavailable
	return errors.As(err, &target)
}
