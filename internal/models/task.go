package models

import (
	"fmt"
	"strings"
	"time"
)

// EmbeddedURLPrefix 无href嵌入组件的伪URL前缀
const EmbeddedURLPrefix = "embedded://button/"

// IsEmbeddedURL 判断是否为嵌入组件伪URL
func IsEmbeddedURL(u string) bool {
	return strings.HasPrefix(u, EmbeddedURLPrefix)
}

// CrawlConfig 爬取配置
type CrawlConfig struct {
	MaxPages       int           `json:"max_pages" mapstructure:"max_pages"`             // 每个物业最多抓取页面数 (默认:5)
	PageDelay      time.Duration `json:"page_delay" mapstructure:"page_delay"`           // 页面间礼貌延迟
	PropertyDelay  time.Duration `json:"property_delay" mapstructure:"property_delay"`   // 批量模式物业间暂停
	FetchTimeout   time.Duration `json:"fetch_timeout" mapstructure:"fetch_timeout"`     // 单页抓取超时
	ResolveTimeout time.Duration `json:"resolve_timeout" mapstructure:"resolve_timeout"` // 单个重定向解析超时
	RenderWait     time.Duration `json:"render_wait" mapstructure:"render_wait"`         // 渲染页面加载后的额外等待
	SettleWait     time.Duration `json:"settle_wait" mapstructure:"settle_wait"`         // 客户端跳转稳定等待
	UseBrowser     bool          `json:"use_browser" mapstructure:"use_browser"`         // 是否启动浏览器会话
	RenderPages    bool          `json:"render_pages" mapstructure:"render_pages"`       // 爬取页面是否用浏览器渲染
	Headless       bool          `json:"headless" mapstructure:"headless"`               // 无头模式 (默认:true)
	Resume         bool          `json:"resume" mapstructure:"resume"`                   // 是否从检查点恢复
	SkipExtensions []string      `json:"skip_extensions" mapstructure:"skip_extensions"` // 不跟随的资源扩展名
	MemoryFloorMB  int           `json:"memory_floor_mb" mapstructure:"memory_floor_mb"` // 可用内存低于此值时回收标签页
}

// DefaultCrawlConfig 默认爬取配置
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		MaxPages:       5,
		PageDelay:      2 * time.Second,
		PropertyDelay:  3 * time.Second,
		FetchTimeout:   30 * time.Second,
		ResolveTimeout: 20 * time.Second,
		RenderWait:     3 * time.Second,
		SettleWait:     5 * time.Second,
		UseBrowser:     true,
		RenderPages:    true,
		Headless:       true,
		SkipExtensions: []string{
			".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp",
			".zip", ".mp4", ".mp3", ".ics", ".doc", ".docx",
		},
		MemoryFloorMB: 300,
	}
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.MaxPages < 0 || c.MaxPages > 10000 {
		return fmt.Errorf("页面数必须在0-10000之间")
	}
	if c.PageDelay < 0 || c.PropertyDelay < 0 {
		return fmt.Errorf("延迟不能为负数")
	}
	if c.FetchTimeout <= 0 || c.ResolveTimeout <= 0 {
		return fmt.Errorf("超时时间必须大于0")
	}
	if c.RenderWait < 0 || c.SettleWait < 0 {
		return fmt.Errorf("等待时间不能为负数")
	}
	return nil
}

// DetectionConfig 巡览识别词表
type DetectionConfig struct {
	PlatformDomains       []string `json:"platform_domains" mapstructure:"platform_domains"`               // 已知巡览平台域名
	ClientRedirectDomains []string `json:"client_redirect_domains" mapstructure:"client_redirect_domains"` // 通过脚本跳转的平台域名
	TourPhrases           []string `json:"tour_phrases" mapstructure:"tour_phrases"`                       // 巡览提示短语(小写匹配)
	ContainerTokens       []string `json:"container_tokens" mapstructure:"container_tokens"`               // 容器类名关键字
}

// DefaultDetectionConfig 默认识别词表
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		PlatformDomains:       []string{"visitingmedia.com", "truetour.app", "matterport.com"},
		ClientRedirectDomains: []string{"truetour.app"},
		TourPhrases: []string{
			"take a tour", "truetour", "360 tour", "360° tour", "virtual tour",
			"property tour", "hotel tour", "room tour", "3d tour", "view tour",
		},
		ContainerTokens: []string{"tour", "truetour", "virtual-tour", "vm-embed"},
	}
}

// BlockConfig 反爬拦截检测策略
type BlockConfig struct {
	MaxSize           int      `json:"max_size" mapstructure:"max_size"`                     // 低于此字节数才可能判定拦截
	TinySize          int      `json:"tiny_size" mapstructure:"tiny_size"`                   // 缺少结构标记时的极小页面阈值
	Indicators        []string `json:"indicators" mapstructure:"indicators"`                 // 拦截提示短语
	StructuralMarkers []string `json:"structural_markers" mapstructure:"structural_markers"` // 正常页面结构标记
}

// DefaultBlockConfig 默认拦截检测策略
func DefaultBlockConfig() BlockConfig {
	return BlockConfig{
		MaxSize:  30000,
		TinySize: 2000,
		Indicators: []string{
			"attention required", "cloudflare ray id", "why have i been blocked",
			"access denied", "checking your browser", "verify you are human",
			"are you a robot", "captcha", "request unsuccessful", "incapsula",
			"pardon our interruption", "enable javascript and cookies",
		},
		StructuralMarkers: []string{"nav", "header", "footer", "main", "article"},
	}
}

// ClassifyConfig 落地URL分类规则
type ClassifyConfig struct {
	MediaSegment       string   `json:"media_segment" mapstructure:"media_segment"`               // 媒体资源路径段
	MediaIDMinDigits   int      `json:"media_id_min_digits" mapstructure:"media_id_min_digits"`   // 媒体ID最少位数
	MediaIDMaxDigits   int      `json:"media_id_max_digits" mapstructure:"media_id_max_digits"`   // 媒体ID最多位数
	AllAssetsSegment   string   `json:"all_assets_segment" mapstructure:"all_assets_segment"`     // 通用资源列表路径段
	AssetParam         string   `json:"asset_param" mapstructure:"asset_param"`                   // 指定资源的查询参数
	PreRedirectDomains []string `json:"pre_redirect_domains" mapstructure:"pre_redirect_domains"` // 跳转前的平台域名
}

// DefaultClassifyConfig 默认分类规则
func DefaultClassifyConfig() ClassifyConfig {
	return ClassifyConfig{
		MediaSegment:       "media",
		MediaIDMinDigits:   6,
		MediaIDMaxDigits:   12,
		AllAssetsSegment:   "all-assets-share",
		AssetParam:         "asset",
		PreRedirectDomains: []string{"truetour.app"},
	}
}

// Validate 验证分类规则
func (c *ClassifyConfig) Validate() error {
	if c.MediaSegment == "" || c.AllAssetsSegment == "" {
		return fmt.Errorf("媒体路径段和资源列表路径段不能为空")
	}
	if c.MediaIDMinDigits < 1 || c.MediaIDMaxDigits < c.MediaIDMinDigits {
		return fmt.Errorf("媒体ID位数范围无效: %d-%d", c.MediaIDMinDigits, c.MediaIDMaxDigits)
	}
	return nil
}
