package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aluiziolira/sitemap-explorer/config"
	"github.com/aluiziolira/sitemap-explorer/models"
	"github.com/aluiziolira/sitemap-explorer/scraper"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExplorer struct {
	mu    sync.Mutex
	calls []string
	fn    func(ref string) (*models.Report, error)
}

func (f *fakeExplorer) Explore(_ context.Context, ref string) (*models.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ref)
	f.mu.Unlock()
	return f.fn(ref)
}

func (f *fakeExplorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func workedExample(ref string) (*models.Report, error) {
	return models.NewReport(ref, ref+"/sitemap.xml", 3, []models.SitemapEntry{
		{URL: ref + "/products-sitemap.xml", Type: models.CategoryProducts, Count: 50},
		{URL: ref + "/blog-sitemap.xml", Type: models.CategoryBlogs, Count: 12},
		{URL: ref + "/broken.xml", Type: models.CategoryError, Error: "fetch failed"},
	}), nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.RateLimit = 0
	return cfg
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/sitemap", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAnalyzeSuccess(t *testing.T) {
	explorer := &fakeExplorer{fn: workedExample}
	s := New(testConfig(), explorer, nil)

	rec := post(t, s.Handler(), `{"url":"example.test/"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "https://example.test", body["site"])
	assert.Equal(t, "https://example.test/sitemap.xml", body["mainSitemap"])
	assert.EqualValues(t, 3, body["totalSitemaps"])

	counts, ok := body["counts"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 50, counts["products"])
	assert.EqualValues(t, 12, counts["blogs"])
	assert.EqualValues(t, 0, counts["pages"])
	assert.NotContains(t, counts, "error")

	sitemaps, ok := body["sitemaps"].([]any)
	require.True(t, ok)
	require.Len(t, sitemaps, 3)
	first := sitemaps[0].(map[string]any)
	assert.Equal(t, "products", first["type"])
	assert.NotContains(t, first, "error")
	third := sitemaps[2].(map[string]any)
	assert.Equal(t, "error", third["type"])
	assert.Equal(t, "fetch failed", third["error"])
}

func TestAnalyzeBadRequests(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{name: "missing url", body: `{}`, wantError: msgURLRequired},
		{name: "empty url", body: `{"url":""}`, wantError: msgURLRequired},
		{name: "blank url", body: `{"url":"   "}`, wantError: msgURLRequired},
		{name: "no host", body: `{"url":"https://"}`, wantError: msgURLRequired},
		{name: "not json", body: `url=example.test`, wantError: msgInvalidBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			explorer := &fakeExplorer{fn: workedExample}
			s := New(testConfig(), explorer, nil)

			rec := post(t, s.Handler(), tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantError, decode(t, rec)["error"])
			assert.Zero(t, explorer.callCount())
		})
	}
}

func TestAnalyzeExactMissingURLBody(t *testing.T) {
	s := New(testConfig(), &fakeExplorer{fn: workedExample}, nil)
	rec := post(t, s.Handler(), `{"url":""}`)
	assert.JSONEq(t, `{"error":"URL is required"}`, rec.Body.String())
}

func TestAnalyzeRootUnavailable(t *testing.T) {
	explorer := &fakeExplorer{fn: func(ref string) (*models.Report, error) {
		return nil, &scraper.ErrRootUnavailable{
			Location: ref + "/sitemap.xml",
			Err:      &scraper.FetchError{Location: ref + "/sitemap.xml", Err: errors.New("not_found")},
		}
	}}
	s := New(testConfig(), explorer, nil)

	rec := post(t, s.Handler(), `{"url":"example.test"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, msgRootUnavailable, body["error"])
	assert.Equal(t, msgRootDetail, body["message"])
	assert.Contains(t, body["details"], "not_found")
}

func TestAnalyzeInternalError(t *testing.T) {
	explorer := &fakeExplorer{fn: func(string) (*models.Report, error) {
		return nil, scraper.ErrInternal
	}}
	s := New(testConfig(), explorer, nil)

	rec := post(t, s.Handler(), `{"url":"example.test"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, msgAnalyzeFailed, body["error"])
	assert.NotEmpty(t, body["message"])
}

func TestAnalyzePanicRecovered(t *testing.T) {
	explorer := &fakeExplorer{fn: func(string) (*models.Report, error) {
		panic("boom")
	}}
	s := New(testConfig(), explorer, nil)

	rec := post(t, s.Handler(), `{"url":"example.test"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgAnalyzeFailed, decode(t, rec)["error"])
}

func TestInfoEndpoint(t *testing.T) {
	s := New(testConfig(), &fakeExplorer{fn: workedExample}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sitemap", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Sitemap Explorer API","endpoints":{"POST /api/sitemap":"Analyze a website sitemap"}}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	s := New(testConfig(), &fakeExplorer{fn: workedExample}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sitemap", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
}

func TestHealthAndRequestID(t *testing.T) {
	s := New(testConfig(), &fakeExplorer{fn: workedExample}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestReportCache(t *testing.T) {
	explorer := &fakeExplorer{fn: workedExample}
	s := New(testConfig(), explorer, nil)

	for _, ref := range []string{"example.test", "https://example.test/", " example.test "} {
		rec := post(t, s.Handler(), `{"url":"`+ref+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, explorer.callCount())
	assert.Equal(t, 1, s.cache.size())
}

func TestReportCacheSkipsFailures(t *testing.T) {
	explorer := &fakeExplorer{fn: func(string) (*models.Report, error) {
		return nil, scraper.ErrInternal
	}}
	s := New(testConfig(), explorer, nil)

	post(t, s.Handler(), `{"url":"example.test"}`)
	post(t, s.Handler(), `{"url":"example.test"}`)
	assert.Equal(t, 2, explorer.callCount())
	assert.Zero(t, s.cache.size())
}

func TestReportCacheSkipsCanceledRequests(t *testing.T) {
	explorer := &fakeExplorer{fn: workedExample}
	s := New(testConfig(), explorer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/sitemap", strings.NewReader(`{"url":"example.test"}`)).WithContext(ctx)
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)
	assert.Zero(t, s.cache.size())

	rec := post(t, s.Handler(), `{"url":"example.test"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, explorer.callCount())
	assert.Equal(t, 1, s.cache.size())
}

func TestCanceledExplorationIsNotCached(t *testing.T) {
	cfg := testConfig()
	explorer, err := scraper.NewExplorer(cfg)
	require.NoError(t, err)

	var cancelFirst context.CancelFunc
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://shop.test/sitemap.xml", func(*http.Request) (*http.Response, error) {
		if cancelFirst != nil {
			cancelFirst()
		}
		return httpmock.NewStringResponse(http.StatusOK,
			`<sitemapindex><sitemap><loc>https://shop.test/sitemap_products_1.xml</loc></sitemap></sitemapindex>`), nil
	})
	transport.RegisterResponder("GET", "https://shop.test/sitemap_products_1.xml",
		httpmock.NewStringResponder(http.StatusOK, `<urlset><url><loc>https://shop.test/p/1</loc></url></urlset>`))
	explorer.WithTransport(transport)

	s := New(cfg, explorer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelFirst = cancel
	req := httptest.NewRequest(http.MethodPost, "/api/sitemap", strings.NewReader(`{"url":"shop.test"}`)).WithContext(ctx)
	first := httptest.NewRecorder()
	s.Handler().ServeHTTP(first, req)
	assert.NotEqual(t, http.StatusOK, first.Code)
	assert.Zero(t, s.cache.size())

	cancelFirst = nil
	rec := post(t, s.Handler(), `{"url":"shop.test"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["counts"].(map[string]any)["products"])
	assert.Equal(t, 2, transport.GetCallCountInfo()["GET https://shop.test/sitemap.xml"])
}

func TestCacheDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.CacheSize = 0
	explorer := &fakeExplorer{fn: workedExample}
	s := New(cfg, explorer, nil)

	post(t, s.Handler(), `{"url":"example.test"}`)
	post(t, s.Handler(), `{"url":"example.test"}`)
	assert.Equal(t, 2, explorer.callCount())
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 2
	s := New(cfg, &fakeExplorer{fn: workedExample}, nil)

	assert.Equal(t, http.StatusOK, post(t, s.Handler(), `{"url":"a.test"}`).Code)
	assert.Equal(t, http.StatusOK, post(t, s.Handler(), `{"url":"b.test"}`).Code)

	rec := post(t, s.Handler(), `{"url":"c.test"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())

	health := httptest.NewRecorder()
	s.Handler().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestWithRealExplorer(t *testing.T) {
	cfg := testConfig()
	explorer, err := scraper.NewExplorer(cfg)
	require.NoError(t, err)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://shop.test/sitemap.xml",
		httpmock.NewStringResponder(http.StatusOK, `<urlset><url><loc>https://shop.test/</loc></url></urlset>`))
	transport.RegisterResponder("GET", "https://gone.test/sitemap.xml",
		httpmock.NewStringResponder(http.StatusForbidden, ""))
	explorer.WithTransport(transport)

	s := New(cfg, explorer, explorer.Metrics.Registry)

	rec := post(t, s.Handler(), `{"url":"shop.test"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["totalSitemaps"])
	assert.EqualValues(t, 1, body["counts"].(map[string]any)["pages"])

	rec = post(t, s.Handler(), `{"url":"gone.test"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec)["details"], "forbidden")

	metrics := httptest.NewRecorder()
	s.Handler().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `sitemap_explorer_reports_total{outcome="ok"} 1`)
	assert.Contains(t, metrics.Body.String(), `sitemap_explorer_errors_total{error_type="forbidden"} 1`)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	s := New(cfg, &fakeExplorer{fn: workedExample}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx)
	}()
	cancel()

	require.NoError(t, <-done)
}
