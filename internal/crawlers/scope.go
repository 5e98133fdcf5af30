package crawlers

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// pageExtensions 以页面文档结尾的路径需截断到父目录
var pageExtensions = map[string]bool{
	".html": true, ".htm": true, ".shtml": true, ".php": true,
	".asp": true, ".aspx": true, ".jsp": true, ".cfm": true,
}

// CrawlScope 爬取范围: 同一域名且路径以前缀开头
// 每个物业由入口URL计算一次,之后不可变
type CrawlScope struct {
	Domain     string
	PathPrefix string
}

// NewCrawlScope 由入口URL计算爬取范围
func NewCrawlScope(startURL string) (CrawlScope, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return CrawlScope{}, fmt.Errorf("解析入口URL失败: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return CrawlScope{}, fmt.Errorf("入口URL协议必须是http或https: %s", startURL)
	}
	if u.Host == "" {
		return CrawlScope{}, fmt.Errorf("无法从URL中提取域名: %s", startURL)
	}

	return CrawlScope{
		Domain:     strings.ToLower(u.Host),
		PathPrefix: normalizePrefix(u.Path),
	}, nil
}

// normalizePrefix 路径前缀规范化为以 / 结尾
func normalizePrefix(p string) string {
	if p == "" {
		return "/"
	}
	if pageExtensions[strings.ToLower(path.Ext(p))] {
		p = p[:strings.LastIndex(p, "/")+1]
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// InScope 判断URL是否在爬取范围内
func (s CrawlScope) InScope(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if strings.ToLower(u.Host) != s.Domain {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	return strings.HasPrefix(p, s.PathPrefix)
}

// String 便于日志输出
func (s CrawlScope) String() string {
	return s.Domain + s.PathPrefix
}
