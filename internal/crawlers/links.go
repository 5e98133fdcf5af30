package crawlers

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// nonNavigableSchemes 不可导航的href前缀
var nonNavigableSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// NormalizeURL 校验协议并去除fragment
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("URL格式无效: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("不支持的协议: %s", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL缺少主机名: %s", rawURL)
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// ResolveHref 将href解析为绝对URL
// "#"开头和脚本伪协议的href不可导航,返回false
func ResolveHref(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, scheme := range nonNavigableSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	normalized, err := NormalizeURL(abs.String())
	if err != nil {
		return "", false
	}
	return normalized, true
}

// LinkExtractor 提取页面内可跟随的链接
type LinkExtractor struct {
	scope          CrawlScope
	skipExtensions map[string]bool
}

// NewLinkExtractor 创建链接提取器
func NewLinkExtractor(scope CrawlScope, skipExtensions []string) *LinkExtractor {
	skip := make(map[string]bool, len(skipExtensions))
	for _, ext := range skipExtensions {
		skip[strings.ToLower(ext)] = true
	}
	return &LinkExtractor{scope: scope, skipExtensions: skip}
}

// ExtractLinks 按文档顺序返回范围内的去重链接
func (e *LinkExtractor) ExtractLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs, ok := ResolveHref(base, href)
		if !ok || seen[abs] {
			return
		}
		seen[abs] = true

		if follow, reason := e.ShouldFollowLink(abs); !follow {
			log.Debug().Msgf("跳过链接 %s: %s", abs, reason)
			return
		}
		links = append(links, abs)
	})

	return links
}

// ShouldFollowLink 判断链接是否应该被跟随
func (e *LinkExtractor) ShouldFollowLink(linkURL string) (bool, string) {
	parsed, err := url.Parse(linkURL)
	if err != nil {
		return false, "URL格式无效"
	}

	if e.skipExtensions[strings.ToLower(path.Ext(parsed.Path))] {
		return false, "非页面资源"
	}

	if !e.scope.InScope(linkURL) {
		return false, "超出爬取范围"
	}

	return true, ""
}
