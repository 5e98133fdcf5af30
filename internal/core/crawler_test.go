package core

import (
	"context"
	"errors"
	"testing"

	"github.com/RecoveryAshes/tourcheck/internal/crawlers"
	"github.com/RecoveryAshes/tourcheck/internal/metrics"
	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const austinStart = "https://example.com/austin/"

func newTestCrawler(t *testing.T, cfg *Config, fetcher *fakeFetcher, sessions crawlers.SessionFactory) (*Crawler, *Aggregator) {
	t.Helper()
	agg := NewAggregator(AggregatorOptions{RunID: "test-run", OutputDir: t.TempDir(), Config: cfg.Crawl})
	c, err := NewCrawler(cfg, CrawlerDeps{Static: fetcher, Sessions: sessions, Aggregator: agg})
	require.NoError(t, err)
	return c, agg
}

// austinSite 入口页含iframe、平台链接、站内链接、范围外链接和嵌入按钮
func austinSite() *fakeFetcher {
	f := newFakeFetcher()
	f.page(austinStart, htmlPage(
		`<iframe src="https://truetour.app/tt/abc"></iframe>`,
		`<a href="https://my.visitingmedia.com/tt/xyz">Explore</a>`,
		`<a href="/austin/rooms/">Rooms</a>`,
		`<a href="/dallas/">Dallas</a>`,
		`<button type="button">Take a 360 Tour</button>`,
	))
	f.page("https://example.com/austin/rooms/", htmlPage(
		`<iframe src="https://truetour.app/tt/abc"></iframe>`,
		`<a href="/austin/">Back</a>`,
	))
	f.redirect("https://truetour.app/tt/abc", "https://my.visitingmedia.com/media/1234567")
	f.redirect("https://my.visitingmedia.com/tt/xyz", "https://my.visitingmedia.com/all-assets-share/hotel")
	return f
}

func statusByURL(results []models.RedirectResult) map[string]models.RedirectStatus {
	out := make(map[string]models.RedirectStatus, len(results))
	for _, r := range results {
		out[r.OriginalURL] = r.Status
	}
	return out
}

func TestCrawler_PropertyCrawl(t *testing.T) {
	fetcher := austinSite()
	c, agg := newTestCrawler(t, testConfig(), fetcher, nil)

	stats, err := c.Crawl(context.Background(), "Austin", austinStart, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.PagesFetched)
	assert.Equal(t, 0, stats.PagesFailed)
	assert.Equal(t, 3, stats.Resolved)

	got := statusByURL(agg.Results())
	assert.Equal(t, map[string]models.RedirectStatus{
		"https://truetour.app/tt/abc":         models.StatusGood,
		"https://my.visitingmedia.com/tt/xyz": models.StatusBadRedirect,
		"embedded://button/take-a-360-tour":   models.StatusEmbedded,
	}, got)

	assert.False(t, fetcher.called("https://example.com/dallas/"), "范围外页面不应抓取")

	abcCalls := 0
	for _, u := range fetcher.calls {
		if u == "https://truetour.app/tt/abc" {
			abcCalls++
		}
	}
	assert.Equal(t, 1, abcCalls, "同一巡览链接只解析一次")

	for _, r := range agg.Results() {
		assert.Equal(t, "Austin", r.Property)
		if r.OriginalURL == "https://truetour.app/tt/abc" {
			assert.Equal(t, models.MethodIframeSrc, r.Source)
			assert.Equal(t, austinStart, r.PageURL)
		}
	}
}

func TestCrawler_PageFailureContinues(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.page(austinStart, htmlPage(
		`<a href="/austin/a/">A</a>`,
		`<a href="/austin/b/">B</a>`,
	))
	fetcher.errs["https://example.com/austin/a/"] = context.DeadlineExceeded
	fetcher.page("https://example.com/austin/b/", htmlPage(
		`<a href="https://my.visitingmedia.com/media/7654321">Tour</a>`,
	))
	fetcher.page("https://my.visitingmedia.com/media/7654321", htmlPage())

	c, agg := newTestCrawler(t, testConfig(), fetcher, nil)
	stats, err := c.Crawl(context.Background(), "Austin", austinStart, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.PagesFetched)
	assert.Equal(t, 1, stats.PagesFailed)

	totals := agg.Totals()
	assert.Equal(t, 1, totals.Error, "超时页面记为ERROR")
	assert.Equal(t, 1, totals.Good)

	pageErrs := agg.PageErrors()
	require.Len(t, pageErrs, 1)
	assert.Equal(t, models.MethodPageFetch, pageErrs[0].Source)
	assert.Equal(t, "https://example.com/austin/a/", pageErrs[0].OriginalURL)
	assert.NotEmpty(t, pageErrs[0].ErrorDetail)
}

func TestCrawler_PageBudget(t *testing.T) {
	tests := []struct {
		name      string
		maxPages  int
		wantCalls int
	}{
		{"上限为0不抓取", 0, 0},
		{"上限为1只抓入口", 1, 1},
		{"上限为2", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newFakeFetcher()
			fetcher.page(austinStart, htmlPage(
				`<a href="/austin/a/">A</a>`,
				`<a href="/austin/b/">B</a>`,
				`<a href="/austin/c/">C</a>`,
			))
			for _, p := range []string{"a", "b", "c"} {
				fetcher.page("https://example.com/austin/"+p+"/", htmlPage())
			}

			c, _ := newTestCrawler(t, testConfig(), fetcher, nil)
			stats, err := c.Crawl(context.Background(), "Austin", austinStart, tt.maxPages)
			require.NoError(t, err)
			assert.Len(t, fetcher.calls, tt.wantCalls)
			assert.Equal(t, tt.wantCalls, stats.PagesFetched)
		})
	}
}

func TestCrawler_BlockedPage(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.page(austinStart, `<html><body><h1>Attention Required! | Cloudflare</h1>
		<a href="https://my.visitingmedia.com/tt/xyz">tour</a></body></html>`)

	c, agg := newTestCrawler(t, testConfig(), fetcher, nil)
	stats, err := c.Crawl(context.Background(), "Austin", austinStart, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.PagesBlocked)
	assert.Empty(t, agg.Results(), "拦截页面不提取巡览")

	review := agg.ManualReview()
	require.Len(t, review, 1)
	assert.Equal(t, austinStart, review[0].URL)
	assert.Equal(t, 1, agg.Totals().Blocked)
}

func TestCrawler_ErrorStatusPage(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages[austinStart] = &models.Page{URL: austinStart, FinalURL: austinStart, StatusCode: 404, HTML: htmlPage("Not Found")}

	c, agg := newTestCrawler(t, testConfig(), fetcher, nil)
	stats, err := c.Crawl(context.Background(), "Austin", austinStart, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.PagesFailed)
	assert.Empty(t, agg.Results())
	results := agg.PageErrors()
	require.Len(t, results, 1)
	assert.Equal(t, models.StatusError, results[0].Status)
	assert.Contains(t, results[0].ErrorDetail, "404")
}

func TestCrawler_ResolutionError(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.page(austinStart, htmlPage(`<iframe src="https://truetour.app/tt/gone"></iframe>`))
	fetcher.pages["https://truetour.app/tt/gone"] = &models.Page{
		URL: "https://truetour.app/tt/gone", FinalURL: "https://truetour.app/tt/gone", StatusCode: 410,
	}

	m := metrics.NewMetrics()
	cfg := testConfig()
	agg := NewAggregator(AggregatorOptions{RunID: "test-run", OutputDir: t.TempDir(), Metrics: m})
	c, err := NewCrawler(cfg, CrawlerDeps{Static: fetcher, Aggregator: agg, Metrics: m})
	require.NoError(t, err)

	_, err = c.Crawl(context.Background(), "Austin", austinStart, 5)
	require.NoError(t, err)

	got := statusByURL(agg.Results())
	assert.Equal(t, models.StatusError, got["https://truetour.app/tt/gone"])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("resolution")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PagesTotal.WithLabelValues("ok")))
}

func TestCrawler_SessionLifecycle(t *testing.T) {
	t.Run("初始化失败返回SetupError", func(t *testing.T) {
		cfg := testConfig()
		cfg.Crawl.UseBrowser = true
		fetcher := austinSite()

		failing := func(context.Context) (crawlers.BrowserSession, error) {
			return nil, errors.New("chrome not found")
		}
		c, _ := newTestCrawler(t, cfg, fetcher, failing)

		_, err := c.Crawl(context.Background(), "Austin", austinStart, 5)
		var setupErr *models.SetupError
		require.True(t, errors.As(err, &setupErr))
		assert.Equal(t, "Austin", setupErr.Property)
		assert.Empty(t, fetcher.calls)
	})

	t.Run("爬取结束关闭会话", func(t *testing.T) {
		cfg := testConfig()
		cfg.Crawl.UseBrowser = true
		session := &fakeSession{}
		factory := func(context.Context) (crawlers.BrowserSession, error) { return session, nil }

		c, _ := newTestCrawler(t, cfg, austinSite(), factory)
		_, err := c.Crawl(context.Background(), "Austin", austinStart, 5)
		require.NoError(t, err)
		assert.True(t, session.closed)
	})

	t.Run("未启用浏览器时不创建会话", func(t *testing.T) {
		called := false
		factory := func(context.Context) (crawlers.BrowserSession, error) {
			called = true
			return &fakeSession{}, nil
		}
		c, _ := newTestCrawler(t, testConfig(), austinSite(), factory)
		_, err := c.Crawl(context.Background(), "Austin", austinStart, 5)
		require.NoError(t, err)
		assert.False(t, called)
	})
}

func TestCrawler_InvalidStartURL(t *testing.T) {
	c, _ := newTestCrawler(t, testConfig(), newFakeFetcher(), nil)
	_, err := c.Crawl(context.Background(), "Bad", "ftp://example.com/", 5)
	assert.Error(t, err)
}

func TestCrawler_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newTestCrawler(t, testConfig(), austinSite(), nil)
	_, err := c.Crawl(ctx, "Austin", austinStart, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrawler_CanceledInFlight(t *testing.T) {
	const abc = "https://truetour.app/tt/abc"

	tests := []struct {
		name   string
		cancel string
	}{
		{"解析巡览链接时中断", abc},
		{"抓取页面时中断", "https://example.com/austin/rooms/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			fetcher := austinSite()
			fetcher.onFetch[tt.cancel] = cancel

			m := metrics.NewMetrics()
			agg := NewAggregator(AggregatorOptions{RunID: "test-run", OutputDir: t.TempDir(), Metrics: m})
			c, err := NewCrawler(testConfig(), CrawlerDeps{Static: fetcher, Aggregator: agg, Metrics: m})
			require.NoError(t, err)

			stats, err := c.Crawl(ctx, "Austin", austinStart, 5)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, 0, stats.PagesFailed)

			for _, r := range agg.Results() {
				assert.NotEqual(t, models.StatusError, r.Status, "中断不应产生ERROR结果: %s", r.OriginalURL)
			}
			assert.Empty(t, agg.PageErrors())
			assert.Equal(t, 0, agg.Totals().Error)
			assert.Equal(t, float64(0), testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("resolution")))

			restored := NewAggregator(AggregatorOptions{OutputDir: t.TempDir()})
			restored.Restore(agg.Snapshot())
			if tt.cancel == abc {
				assert.False(t, restored.Seen("Austin", abc), "恢复后应重新解析")
			}
			assert.Equal(t, 0, restored.Totals().Error)
		})
	}
}

func TestCrawler_SharedURLPageFailure(t *testing.T) {
	const tourPage = "https://example.com/austin/tour/"

	fetcher := newFakeFetcher()
	fetcher.page(austinStart, htmlPage(`<div class="tour"><a href="/austin/tour/">Our hotel</a></div>`))
	fetcher.errs[tourPage] = errors.New("connection reset")

	c, agg := newTestCrawler(t, testConfig(), fetcher, nil)
	_, err := c.Crawl(context.Background(), "Austin", austinStart, 5)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, r := range agg.Results() {
		seen[r.OriginalURL]++
	}
	assert.Equal(t, 1, seen[tourPage], "巡览结果日志中同一URL只出现一次")

	pageErrs := agg.PageErrors()
	require.Len(t, pageErrs, 1)
	assert.Equal(t, tourPage, pageErrs[0].OriginalURL)
	assert.Equal(t, 2, agg.Totals().Error)
}

func TestCrawler_EmbeddedPerProperty(t *testing.T) {
	fetcher := austinSite()
	fetcher.page(dallasStart, htmlPage(`<button type="button">Take a 360 Tour</button>`))

	c, agg := newTestCrawler(t, testConfig(), fetcher, nil)
	_, err := c.Crawl(context.Background(), "Austin", austinStart, 5)
	require.NoError(t, err)
	stats, err := c.Crawl(context.Background(), "Dallas", dallasStart, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 2, agg.Totals().Embedded)

	properties := []string{}
	for _, r := range agg.Results() {
		if r.Status == models.StatusEmbedded {
			properties = append(properties, r.Property)
		}
	}
	assert.Equal(t, []string{"Austin", "Dallas"}, properties)
}

func TestCrawler_ScopeScenario(t *testing.T) {
	cfg := testConfig()
	cfg.Detection.PlatformDomains = append(cfg.Detection.PlatformDomains, "tours.example")

	fetcher := newFakeFetcher()
	fetcher.page(austinStart, htmlPage(
		`<iframe src="https://tours.example/tt/abc#intro"></iframe>`,
		`<a href="amenities">Amenities</a>`,
		`<a href="https://other.com/x">Elsewhere</a>`,
	))
	fetcher.page("https://example.com/austin/amenities", htmlPage(
		`<iframe src="https://tours.example/tt/abc"></iframe>`,
	))
	fetcher.redirect("https://tours.example/tt/abc", "https://tours.example/media/123456")

	c, agg := newTestCrawler(t, cfg, fetcher, nil)
	stats, err := c.Crawl(context.Background(), "Austin", austinStart, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{
		austinStart,
		"https://tours.example/tt/abc",
		"https://example.com/austin/amenities",
	}, fetcher.calls)
	assert.Equal(t, 2, stats.PagesFetched)

	results := agg.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "https://tours.example/tt/abc", results[0].OriginalURL)
	assert.Equal(t, models.StatusGood, results[0].Status)
}
