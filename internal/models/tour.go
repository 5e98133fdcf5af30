package models

import (
	"time"
)

// DiscoveryMethod 巡览候选的发现方式
type DiscoveryMethod string

const (
	MethodIframeSrc        DiscoveryMethod = "iframe-src"         // iframe的src指向巡览平台
	MethodDataAttribute    DiscoveryMethod = "data-attribute"     // data-*属性或onclick中的平台链接
	MethodAnchorByDomain   DiscoveryMethod = "anchor-by-domain"   // 链接域名匹配巡览平台
	MethodAnchorByText     DiscoveryMethod = "anchor-by-text"     // 链接文本/无障碍名称包含巡览短语
	MethodContainerByClass DiscoveryMethod = "container-by-class" // 位于巡览类名容器内的链接
	MethodButtonEmbedded   DiscoveryMethod = "button-embedded"    // 无href的按钮式嵌入组件
	MethodPageFetch        DiscoveryMethod = "page-fetch"         // 页面抓取失败占位(非巡览结果)
)

// RedirectStatus 重定向检查结论
type RedirectStatus string

const (
	StatusGood        RedirectStatus = "GOOD"
	StatusBadRedirect RedirectStatus = "BAD REDIRECT"
	StatusError       RedirectStatus = "ERROR"
	StatusEmbedded    RedirectStatus = "EMBEDDED"
)

// Actionable 是否需要写入结果表(仅问题结果)
func (s RedirectStatus) Actionable() bool {
	return s == StatusBadRedirect || s == StatusError
}

// TourCandidate 巡览候选引用
type TourCandidate struct {
	URL          string          `json:"url"`           // 绝对URL(已去除fragment)或嵌入伪URL
	Method       DiscoveryMethod `json:"method"`        // 发现方式
	DiscoveredOn string          `json:"discovered_on"` // 来源页面URL
	Property     string          `json:"property"`      // 物业名称
}

// RedirectResult 单个候选的检查结果,创建后不可变
type RedirectResult struct {
	ID          string          `json:"id"`
	Property    string          `json:"property"`
	OriginalURL string          `json:"original_url"`
	FinalURL    string          `json:"final_url"`
	Status      RedirectStatus  `json:"status"`
	Source      DiscoveryMethod `json:"source"`
	PageURL     string          `json:"page_url"`
	Timestamp   time.Time       `json:"timestamp"`
	ErrorDetail string          `json:"error_detail,omitempty"`
}

// NewRedirectResult 由候选创建结果
func NewRedirectResult(c TourCandidate, finalURL string, status RedirectStatus, detail string) RedirectResult {
	return RedirectResult{
		ID:          generateID(),
		Property:    c.Property,
		OriginalURL: c.URL,
		FinalURL:    finalURL,
		Status:      status,
		Source:      c.Method,
		PageURL:     c.DiscoveredOn,
		Timestamp:   time.Now(),
		ErrorDetail: detail,
	}
}

// Row 转换为结果表的一行
func (r RedirectResult) Row() []string {
	return []string{
		r.Property,
		r.OriginalURL,
		r.FinalURL,
		string(r.Status),
		string(r.Source),
		r.PageURL,
		r.Timestamp.Format(time.RFC3339),
		r.ErrorDetail,
	}
}

// ResultColumns 结果表列名
var ResultColumns = []string{
	"Property", "Original URL", "Final URL", "Status", "Source", "Page URL", "Timestamp", "Error",
}

// ManualReviewEntry 疑似被反爬拦截、需要人工复查的页面
type ManualReviewEntry struct {
	Property  string    `json:"property"`
	URL       string    `json:"url"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// RunTotals 整次运行的累计统计
type RunTotals struct {
	PropertiesProcessed int `json:"properties_processed"`
	PropertiesFailed    int `json:"properties_failed"`
	Good                int `json:"good"`
	Bad                 int `json:"bad"`
	Error               int `json:"error"`
	Embedded            int `json:"embedded"`
	Blocked             int `json:"blocked"`
}

// Add 按结果状态累加
func (t *RunTotals) Add(status RedirectStatus) {
	switch status {
	case StatusGood:
		t.Good++
	case StatusBadRedirect:
		t.Bad++
	case StatusError:
		t.Error++
	case StatusEmbedded:
		t.Embedded++
	}
}

// Page 页面抓取结果
type Page struct {
	URL        string        `json:"url"`       // 请求URL
	FinalURL   string        `json:"final_url"` // 重定向后的最终URL
	StatusCode int           `json:"status_code"`
	HTML       string        `json:"-"`
	Mode       FetchMode     `json:"mode"`
	Duration   time.Duration `json:"duration"`
}

// FetchMode 抓取模式
type FetchMode string

const (
	FetchStatic   FetchMode = "static"   // 轻量HTTP抓取
	FetchRendered FetchMode = "rendered" // 浏览器渲染抓取
)

// PropertyRow 批量输入中的一行: 物业名称与一个或多个URL
type PropertyRow struct {
	Name string   `json:"name"`
	URLs []string `json:"urls"`
}

// PropertyStats 单个物业的爬取统计
type PropertyStats struct {
	Property     string  `json:"property"`
	PagesFetched int     `json:"pages_fetched"`
	PagesFailed  int     `json:"pages_failed"`
	PagesBlocked int     `json:"pages_blocked"`
	Candidates   int     `json:"candidates"`
	Resolved     int     `json:"resolved"`
	Duration     float64 `json:"duration"` // 秒
}
