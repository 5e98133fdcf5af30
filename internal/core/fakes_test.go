package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/crawlers"
	"github.com/RecoveryAshes/tourcheck/internal/models"
)

// fakeFetcher 按URL返回预设页面
// onFetch 中的回调在抓取对应URL时执行,之后若ctx已取消则返回取消错误
type fakeFetcher struct {
	pages   map[string]*models.Page
	errs    map[string]error
	onFetch map[string]func()
	calls   []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:   make(map[string]*models.Page),
		errs:    make(map[string]error),
		onFetch: make(map[string]func()),
	}
}

// page 注册一个直接返回的页面
func (f *fakeFetcher) page(url, html string) {
	f.pages[url] = &models.Page{URL: url, FinalURL: url, StatusCode: 200, HTML: html}
}

// redirect 注册一个重定向到finalURL的地址
func (f *fakeFetcher) redirect(url, finalURL string) {
	f.pages[url] = &models.Page{URL: url, FinalURL: finalURL, StatusCode: 200, HTML: "<html></html>"}
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, mode models.FetchMode) (*models.Page, error) {
	f.calls = append(f.calls, rawURL)
	if hook, ok := f.onFetch[rawURL]; ok {
		hook()
		if err := ctx.Err(); err != nil {
			return nil, &models.FetchError{URL: rawURL, Err: err}
		}
	}
	if err, ok := f.errs[rawURL]; ok {
		return nil, &models.FetchError{URL: rawURL, Err: err}
	}
	if p, ok := f.pages[rawURL]; ok {
		copied := *p
		copied.Mode = mode
		return &copied, nil
	}
	return nil, &models.FetchError{URL: rawURL, Err: errors.New("no such page")}
}

func (f *fakeFetcher) called(rawURL string) bool {
	for _, c := range f.calls {
		if c == rawURL {
			return true
		}
	}
	return false
}

// fakeSession 只记录是否被关闭
type fakeSession struct {
	closed bool
}

func (s *fakeSession) Render(_ context.Context, rawURL string, _ time.Duration) (*models.Page, error) {
	return nil, &models.FetchError{URL: rawURL, Err: errors.New("not rendered")}
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// memorySink 内存结果表,failAfter>=0 时第failAfter次之后的追加失败
type memorySink struct {
	headers   []string
	rows      [][]string
	appends   int
	failAfter int
	clears    int
}

func newMemorySink() *memorySink {
	return &memorySink{failAfter: -1}
}

func (s *memorySink) InitHeaders(columns []string) error {
	s.headers = append([]string(nil), columns...)
	return nil
}

func (s *memorySink) Clear() error {
	s.clears++
	s.rows = nil
	return nil
}

func (s *memorySink) AppendRow(values []string) error {
	if s.failAfter >= 0 && s.appends >= s.failAfter {
		return errors.New("sheet unavailable")
	}
	s.appends++
	s.rows = append(s.rows, append([]string(nil), values...))
	return nil
}

// firstColumn 返回每行第一列,空行为空字符串
func (s *memorySink) firstColumn() []string {
	out := make([]string, 0, len(s.rows))
	for _, r := range s.rows {
		if len(r) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, r[0])
	}
	return out
}

// testConfig 不等待、不启动浏览器的默认配置
func testConfig() *Config {
	crawl := models.DefaultCrawlConfig()
	crawl.PageDelay = 0
	crawl.PropertyDelay = 0
	crawl.UseBrowser = false
	crawl.RenderPages = false
	crawl.SettleWait = 0
	crawl.RenderWait = 0

	return &Config{
		Crawl:     crawl,
		Detection: models.DefaultDetectionConfig(),
		Blocking:  models.DefaultBlockConfig(),
		Classify:  models.DefaultClassifyConfig(),
	}
}

// htmlPage 带结构标记的页面,避免被判定为拦截
func htmlPage(body ...string) string {
	return "<html><body><header>Hotel</header><nav><a href=\"/\">Home</a></nav><main>" +
		strings.Join(body, "\n") + "</main><footer>Contact</footer></body></html>"
}

var _ crawlers.BrowserSession = (*fakeSession)(nil)
