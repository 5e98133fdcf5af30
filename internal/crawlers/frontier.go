package crawlers

import (
	"fmt"

	"github.com/RecoveryAshes/tourcheck/internal/models"
)

// Frontier 单个物业的广度优先待抓取队列
// 职责: 入队时去重并限制总页面数,已访问集合只增不减
type Frontier struct {
	// 待处理URL队列(FIFO)
	pending []models.FrontierItem

	// 入队过的URL(含已访问),保证同一URL只入队一次
	enqueued map[string]bool

	// 已抓取URL
	visited map[string]bool

	scope    CrawlScope
	maxPages int
}

// NewFrontier 创建队列实例
func NewFrontier(scope CrawlScope, maxPages int) *Frontier {
	return &Frontier{
		pending:  make([]models.FrontierItem, 0),
		enqueued: make(map[string]bool),
		visited:  make(map[string]bool),
		scope:    scope,
		maxPages: maxPages,
	}
}

// Push 添加URL到队列
// 检查范围、重复入队、页面预算,不满足时返回原因
func (f *Frontier) Push(rawURL string, depth int, source string) error {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return err
	}

	// 入口URL不做范围检查,其余URL必须在范围内
	if source != "" && !f.scope.InScope(normalized) {
		return fmt.Errorf("超出爬取范围: %s (范围: %s)", normalized, f.scope)
	}

	if f.enqueued[normalized] || f.visited[normalized] {
		return fmt.Errorf("URL已入队: %s", normalized)
	}

	if len(f.enqueued) >= f.maxPages {
		return fmt.Errorf("已达页面上限: %d", f.maxPages)
	}

	f.enqueued[normalized] = true
	f.pending = append(f.pending, models.FrontierItem{
		URL:       normalized,
		Depth:     depth,
		SourceURL: source,
	})
	return nil
}

// Pop 取出下一个待抓取URL
func (f *Frontier) Pop() (models.FrontierItem, bool) {
	if len(f.pending) == 0 {
		return models.FrontierItem{}, false
	}
	item := f.pending[0]
	f.pending = f.pending[1:]
	return item, true
}

// MarkVisited 标记URL为已访问
func (f *Frontier) MarkVisited(u string) {
	f.visited[u] = true
}

// IsVisited 检查URL是否已访问
func (f *Frontier) IsVisited(u string) bool {
	return f.visited[u]
}

// VisitedCount 已访问页面数
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

// PendingCount 待处理URL数量
func (f *Frontier) PendingCount() int {
	return len(f.pending)
}

// Full 入队数已达页面预算
func (f *Frontier) Full() bool {
	return len(f.enqueued) >= f.maxPages
}
