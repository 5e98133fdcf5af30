package core

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/crawlers"
	"github.com/RecoveryAshes/tourcheck/internal/metrics"
	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
)

// Crawler 单个物业的爬取控制器
// 顺序执行: 出队 → 礼貌延迟 → 抓取 → 拦截检测 → 提取巡览 → 解析分类 → 入队新链接
type Crawler struct {
	config models.CrawlConfig

	// HTTP抓取器,同时用于页面抓取和HTTP重定向解析
	static crawlers.PageFetcher

	// 为每次爬取创建独立浏览器会话,nil表示不使用浏览器
	sessions crawlers.SessionFactory

	extractor  *crawlers.TourExtractor
	detector   *crawlers.BlockDetector
	classifier *crawlers.Classifier

	aggregator *Aggregator
	metrics    *metrics.Metrics
}

// CrawlerDeps 爬取控制器的外部依赖
type CrawlerDeps struct {
	Static     crawlers.PageFetcher
	Sessions   crawlers.SessionFactory
	Aggregator *Aggregator
	Metrics    *metrics.Metrics
}

// NewCrawler 创建爬取控制器
func NewCrawler(cfg *Config, deps CrawlerDeps) (*Crawler, error) {
	if deps.Static == nil || deps.Aggregator == nil {
		return nil, fmt.Errorf("缺少HTTP抓取器或结果汇总器")
	}

	classifier, err := crawlers.NewClassifier(cfg.Classify)
	if err != nil {
		return nil, fmt.Errorf("创建分类器失败: %w", err)
	}

	return &Crawler{
		config:     cfg.Crawl,
		static:     deps.Static,
		sessions:   deps.Sessions,
		extractor:  crawlers.NewTourExtractor(cfg.Detection),
		detector:   crawlers.NewBlockDetector(cfg.Blocking),
		classifier: classifier,
		aggregator: deps.Aggregator,
		metrics:    deps.Metrics,
	}, nil
}

// crawlRun 单次爬取的状态,爬取结束即丢弃
type crawlRun struct {
	property string
	frontier *crawlers.Frontier
	links    *crawlers.LinkExtractor
	fetcher  crawlers.PageFetcher
	resolver *crawlers.RedirectResolver
	mode     models.FetchMode
	stats    models.PropertyStats
}

// Crawl 爬取一个物业入口
// 浏览器会话无法建立时返回 SetupError;单页失败只记录,不中止爬取
func (c *Crawler) Crawl(ctx context.Context, property, startURL string, maxPages int) (models.PropertyStats, error) {
	startTime := time.Now()
	stats := models.PropertyStats{Property: property}

	scope, err := crawlers.NewCrawlScope(startURL)
	if err != nil {
		return stats, fmt.Errorf("入口URL无效: %w", err)
	}

	if maxPages <= 0 {
		utils.Infof("页面上限为 %d, 跳过爬取: %s", maxPages, startURL)
		return stats, nil
	}

	var session crawlers.BrowserSession
	if c.sessions != nil && c.config.UseBrowser {
		s, err := c.sessions(ctx)
		if err != nil {
			return stats, &models.SetupError{Property: property, Err: err}
		}
		session = s
		defer func() {
			if err := session.Close(); err != nil {
				utils.Warnf("关闭浏览器会话失败: %v", err)
			}
		}()
	}

	run := &crawlRun{
		property: property,
		frontier: crawlers.NewFrontier(scope, maxPages),
		links:    crawlers.NewLinkExtractor(scope, c.config.SkipExtensions),
		fetcher:  crawlers.NewCompositeFetcher(c.static, session, c.config.RenderWait),
		resolver: crawlers.NewRedirectResolver(c.static, session, c.extractor.Vocabulary(), c.config.SettleWait, c.config.ResolveTimeout),
		mode:     models.FetchStatic,
		stats:    stats,
	}
	if c.config.RenderPages {
		run.mode = models.FetchRendered
	}

	if err := run.frontier.Push(startURL, 0, ""); err != nil {
		return stats, fmt.Errorf("入口URL入队失败: %w", err)
	}

	utils.Infof("🔍 开始爬取物业 [%s]: %s (范围 %s, 最多 %d 页)", property, startURL, scope, maxPages)

	politeness := crawlers.NewPoliteness(c.config.PageDelay)
	for {
		item, ok := run.frontier.Pop()
		if !ok {
			break
		}
		if run.frontier.IsVisited(item.URL) {
			continue
		}
		if err := politeness.Wait(ctx); err != nil {
			run.stats.Duration = time.Since(startTime).Seconds()
			return run.stats, err
		}

		run.frontier.MarkVisited(item.URL)
		c.visit(ctx, run, item)

		if err := ctx.Err(); err != nil {
			run.stats.Duration = time.Since(startTime).Seconds()
			return run.stats, err
		}
	}

	run.stats.Duration = time.Since(startTime).Seconds()
	utils.Infof("✅ 物业 [%s] 完成: 抓取 %d 页, 失败 %d, 拦截 %d, 巡览候选 %d, 新检查 %d (%.1f秒)",
		property, run.stats.PagesFetched, run.stats.PagesFailed, run.stats.PagesBlocked,
		run.stats.Candidates, run.stats.Resolved, run.stats.Duration)
	return run.stats, nil
}

// visit 处理一个页面
func (c *Crawler) visit(ctx context.Context, run *crawlRun, item models.FrontierItem) {
	utils.Debugf("抓取页面 [深度 %d, 已访问 %d, 待处理 %d]: %s",
		item.Depth, run.frontier.VisitedCount(), run.frontier.PendingCount(), item.URL)

	fetchCtx, cancel := context.WithTimeout(ctx, c.config.FetchTimeout)
	page, err := run.fetcher.Fetch(fetchCtx, item.URL, run.mode)
	cancel()
	if err != nil {
		// 运行被中断时不记录,恢复后重新抓取
		if ctx.Err() != nil {
			utils.Debugf("运行中断, 丢弃未完成的页面抓取: %s", item.URL)
			return
		}
		c.pageFailed(run, item.URL, err)
		return
	}
	c.metrics.ObserveFetch(page.Duration)

	if blocked, reason := c.detector.Detect(page.HTML); blocked {
		run.stats.PagesBlocked++
		c.metrics.IncPage("blocked")
		utils.Warnf("疑似反爬拦截, 加入人工复查: %s (%s)", item.URL, reason)
		c.aggregator.RecordManualReview(run.property, item.URL, reason)
		return
	}

	if page.StatusCode >= 400 {
		c.pageFailed(run, item.URL, &models.FetchError{
			URL:        item.URL,
			StatusCode: page.StatusCode,
			Err:        fmt.Errorf("HTTP %d", page.StatusCode),
		})
		return
	}

	run.stats.PagesFetched++
	c.metrics.IncPage("ok")

	// 页面被重定向时以最终地址解析相对链接
	finalURL := item.URL
	if page.FinalURL != "" && page.FinalURL != item.URL {
		if normalized, err := crawlers.NormalizeURL(page.FinalURL); err == nil {
			finalURL = normalized
			run.frontier.MarkVisited(normalized)
		}
	}
	base, err := url.Parse(finalURL)
	if err != nil {
		c.pageFailed(run, item.URL, &models.FetchError{URL: item.URL, Err: err})
		return
	}

	doc, err := crawlers.ParseDocument(page.HTML)
	if err != nil {
		c.pageFailed(run, item.URL, &models.FetchError{URL: item.URL, Err: err})
		return
	}

	candidates := c.extractor.ExtractFromDocument(doc, base, run.property)
	run.stats.Candidates += len(candidates)
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return
		}
		if c.aggregator.Seen(run.property, candidate.URL) {
			utils.Debugf("巡览链接已检查过: %s", candidate.URL)
			continue
		}
		result, ok := c.check(ctx, run.resolver, candidate)
		if !ok {
			return
		}
		if c.aggregator.Record(result) {
			run.stats.Resolved++
		}
	}

	for _, link := range run.links.ExtractLinks(doc, base) {
		if run.frontier.Full() {
			break
		}
		if err := run.frontier.Push(link, item.Depth+1, item.URL); err != nil {
			utils.Debugf("链接未入队: %v", err)
		}
	}
}

// check 解析并分类一个巡览候选
// 解析期间运行被中断时返回false,结果不记录也不进入已检查集合
func (c *Crawler) check(ctx context.Context, resolver *crawlers.RedirectResolver, candidate models.TourCandidate) (models.RedirectResult, bool) {
	if models.IsEmbeddedURL(candidate.URL) {
		utils.Debugf("嵌入式巡览组件: %s (%s)", candidate.URL, candidate.DiscoveredOn)
		return models.NewRedirectResult(candidate, candidate.URL, models.StatusEmbedded, ""), true
	}

	finalURL, err := resolver.Resolve(ctx, candidate.URL)
	if err != nil {
		if ctx.Err() != nil {
			utils.Debugf("运行中断, 丢弃未完成的解析: %s", candidate.URL)
			return models.RedirectResult{}, false
		}
		utils.Warnf("%v", err)
		c.metrics.IncError(models.ErrorKind(err))
		return models.NewRedirectResult(candidate, finalURL, models.StatusError, err.Error()), true
	}

	status, rule := c.classifier.ClassifyWithRule(finalURL)
	utils.Debugf("分类 %s -> %s: %s (%s)", candidate.URL, finalURL, status, rule)
	return models.NewRedirectResult(candidate, finalURL, status, ""), true
}

// pageFailed 记录页面级失败
func (c *Crawler) pageFailed(run *crawlRun, pageURL string, err error) {
	run.stats.PagesFailed++
	c.metrics.IncPage("failed")
	utils.Warnf("页面抓取失败: %v", err)
	c.aggregator.RecordPageError(run.property, pageURL, err)
}
