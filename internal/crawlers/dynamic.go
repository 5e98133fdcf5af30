package crawlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrSessionClosed 会话已关闭
var ErrSessionClosed = errors.New("浏览器会话已关闭")

// navigationStatusJS 读取主文档的HTTP状态码
const navigationStatusJS = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	return nav && nav.responseStatus ? nav.responseStatus : 0;
}`

// RodSession 基于go-rod的浏览器会话
// 每次爬取启动一个浏览器进程并复用单个标签页,Close时结束进程
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	tab      *rod.Page

	headerProvider models.HeaderProvider
	guard          *MemoryGuard

	navigations int
	closed      bool
}

// RodOptions 浏览器启动参数
type RodOptions struct {
	Headless       bool
	HeaderProvider models.HeaderProvider
	Guard          *MemoryGuard
}

// NewRodSessionFactory 返回为每次爬取启动新浏览器的工厂
func NewRodSessionFactory(opts RodOptions) SessionFactory {
	return func(ctx context.Context) (BrowserSession, error) {
		return OpenRodSession(ctx, opts)
	}
}

// OpenRodSession 启动浏览器并连接
func OpenRodSession(ctx context.Context, opts RodOptions) (*RodSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := launcher.New().
		Headless(opts.Headless).
		Set("ignore-certificate-errors")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	utils.Debugf("浏览器已启动: %s", controlURL)

	return &RodSession{
		launcher:       l,
		browser:        browser,
		headerProvider: opts.HeaderProvider,
		guard:          opts.Guard,
	}, nil
}

// Render 实现BrowserSession
func (s *RodSession) Render(ctx context.Context, rawURL string, wait time.Duration) (page *models.Page, err error) {
	// 浏览器操作可能panic,转换为抓取错误
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("浏览器操作panic: URL=%s, 错误=%v", rawURL, r)
			page = nil
			err = &models.FetchError{URL: rawURL, Err: fmt.Errorf("浏览器操作panic: %v", r)}
		}
	}()

	if s.closed {
		return nil, &models.FetchError{URL: rawURL, Err: ErrSessionClosed}
	}

	tab, err := s.acquireTab()
	if err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: err}
	}

	start := time.Now()
	p := tab.Context(ctx)

	if err := p.Navigate(rawURL); err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: fmt.Errorf("导航失败: %w", err)}
	}
	if err := p.WaitLoad(); err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: fmt.Errorf("等待页面加载失败: %w", err)}
	}
	s.navigations++

	// 固定等待,让脚本完成渲染或客户端跳转
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, &models.FetchError{URL: rawURL, Err: ctx.Err()}
		}
	}

	html, err := p.HTML()
	if err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: fmt.Errorf("读取DOM失败: %w", err)}
	}

	info, err := p.Info()
	if err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: fmt.Errorf("读取页面地址失败: %w", err)}
	}

	status := 0
	if res, err := p.Eval(navigationStatusJS); err == nil {
		status = res.Value.Int()
	}

	utils.Debugf("渲染完成: %s -> %s (HTTP %d, %d 字节)", rawURL, info.URL, status, len(html))

	return &models.Page{
		URL:        rawURL,
		FinalURL:   info.URL,
		StatusCode: status,
		HTML:       html,
		Mode:       models.FetchRendered,
		Duration:   time.Since(start),
	}, nil
}

// acquireTab 返回复用的标签页,内存不足时先关闭旧标签页再新建
func (s *RodSession) acquireTab() (*rod.Page, error) {
	if s.tab != nil && s.guard.UnderPressure() {
		utils.Warnf("内存压力过高,回收标签页 (已导航 %d 次)", s.navigations)
		if err := s.tab.Close(); err != nil {
			utils.Debugf("关闭标签页失败: %v", err)
		}
		s.tab = nil
	}
	if s.tab != nil {
		return s.tab, nil
	}

	tab, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}
	s.applyHeaders(tab)
	s.tab = tab
	return tab, nil
}

// applyHeaders 将自定义头部应用到标签页
// User-Agent单独覆盖,Accept-Encoding交给浏览器管理
func (s *RodSession) applyHeaders(tab *rod.Page) {
	if s.headerProvider == nil {
		return
	}
	headers, err := s.headerProvider.GetHeaders()
	if err != nil {
		utils.Warnf("获取HTTP头部失败: %v", err)
		return
	}

	if ua := headers.Get("User-Agent"); ua != "" {
		if err := tab.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			utils.Warnf("设置User-Agent失败: %v", err)
		}
	}

	extra := make([]string, 0)
	for name, values := range headers {
		canonical := http.CanonicalHeaderKey(name)
		if canonical == "User-Agent" || canonical == "Accept-Encoding" || len(values) == 0 {
			continue
		}
		extra = append(extra, canonical, values[0])
	}
	if len(extra) > 0 {
		if _, err := tab.SetExtraHeaders(extra); err != nil {
			utils.Warnf("设置额外HTTP头部失败: %v", err)
		}
	}
}

// Close 关闭浏览器并结束进程,可重复调用
func (s *RodSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var closeErr error
	if s.tab != nil {
		_ = s.tab.Close()
		s.tab = nil
	}
	if s.browser != nil {
		closeErr = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}

	utils.Debugf("浏览器已关闭 (共导航 %d 次)", s.navigations)
	return closeErr
}
