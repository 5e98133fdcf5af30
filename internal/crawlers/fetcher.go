package crawlers

import (
	"context"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
)

// PageFetcher 页面抓取能力: 返回渲染后的HTML、最终URL和HTTP状态
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, mode models.FetchMode) (*models.Page, error)
}

// BrowserSession 单次爬取独占的浏览器会话
// 由爬取控制器持有,在所有退出路径上调用Close释放浏览器进程
type BrowserSession interface {
	// Render 导航到URL,加载完成后额外等待wait再读取DOM和当前地址
	Render(ctx context.Context, rawURL string, wait time.Duration) (*models.Page, error)
	Close() error
}

// SessionFactory 为每次爬取创建新的浏览器会话
type SessionFactory func(ctx context.Context) (BrowserSession, error)

// CompositeFetcher 按模式选择HTTP抓取或浏览器渲染
type CompositeFetcher struct {
	static     PageFetcher
	session    BrowserSession
	renderWait time.Duration
	warned     bool
}

// NewCompositeFetcher 创建组合抓取器,session可为nil
func NewCompositeFetcher(static PageFetcher, session BrowserSession, renderWait time.Duration) *CompositeFetcher {
	return &CompositeFetcher{
		static:     static,
		session:    session,
		renderWait: renderWait,
	}
}

// Fetch 实现PageFetcher
// 没有浏览器会话时渲染请求降级为HTTP抓取
func (f *CompositeFetcher) Fetch(ctx context.Context, rawURL string, mode models.FetchMode) (*models.Page, error) {
	if mode == models.FetchRendered {
		if f.session != nil {
			return f.session.Render(ctx, rawURL, f.renderWait)
		}
		if !f.warned {
			utils.Warnf("未启用浏览器会话,渲染抓取降级为HTTP抓取")
			f.warned = true
		}
	}
	return f.static.Fetch(ctx, rawURL, models.FetchStatic)
}
