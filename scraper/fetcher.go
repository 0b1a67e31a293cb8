package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aluiziolira/sitemap-explorer/config"
	"github.com/aluiziolira/sitemap-explorer/parser"
	"github.com/gocolly/colly/v2"
)

const acceptHeader = "application/xml, text/xml;q=0.9, */*;q=0.8"

const (
	phaseRoot  = "root"
	phaseChild = "child"
)

var errNoResponse = errors.New("no response received")

// Fetcher retrieves raw sitemap documents over HTTP. It is safe for
// concurrent use: each fetch runs on its own clone of a shared collector.
type Fetcher struct {
	collector *colly.Collector
	metrics   *Metrics
}

// NewFetcher builds a fetcher configured from cfg. Metrics may be nil.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(cfg.MaxBodySize),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if cfg.Concurrency > 0 {
		if err := collector.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: cfg.Concurrency,
		}); err != nil {
			return nil, fmt.Errorf("configure fetch limits: %w", err)
		}
	}

	return &Fetcher{collector: collector, metrics: metrics}, nil
}

// Fetch performs a single GET for location and returns the body of a 2xx
// response. Every other outcome is a *FetchError. There are no retries.
func (f *Fetcher) Fetch(ctx context.Context, phase, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, f.fail(phase, location, err)
	}

	var (
		status      int
		body        []byte
		contentType string
	)

	c := f.collector.Clone()
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", acceptHeader)
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
		contentType = r.Headers.Get("Content-Type")
	})

	f.metrics.IncRequest(phase)
	start := time.Now()
	err := c.Visit(location)
	f.metrics.ObserveDuration(time.Since(start))

	if err == nil && status >= http.StatusOK && status < http.StatusMultipleChoices {
		if transcoded(contentType) {
			body = parser.DropDeclaredEncoding(body)
		}
		slog.Debug("sitemap fetched",
			slog.String("phase", phase),
			slog.String("url", location),
			slog.Int("bytes", len(body)),
		)
		return body, nil
	}

	classified := classifyError(err, status)
	if classified == nil {
		classified = errNoResponse
	}
	return nil, f.fail(phase, location, classified)
}

// transcoded reports whether colly re-encoded the body to UTF-8, which it
// does whenever Content-Type names another charset.
func transcoded(contentType string) bool {
	contentType = strings.ToLower(contentType)
	if !strings.Contains(contentType, "charset") {
		return false
	}
	return !strings.Contains(contentType, "utf-8") && !strings.Contains(contentType, "utf8")
}

func (f *Fetcher) fail(phase, location string, err error) error {
	category := errorTypeLabel(err)
	f.metrics.IncError(category)
	slog.Debug("sitemap fetch failed",
		slog.String("phase", phase),
		slog.String("url", location),
		slog.String("category", category),
		slog.Any("error", err),
	)
	return &FetchError{Location: location, Err: err}
}
