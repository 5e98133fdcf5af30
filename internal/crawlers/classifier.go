package crawlers

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/tourcheck/internal/models"
)

// Classifier 落地URL分类,按顺序匹配规则,先命中者生效
type Classifier struct {
	mediaPattern *regexp.Regexp
	allAssets    string
	assetParam   string
	preRedirect  []string
}

// NewClassifier 由分类配置创建分类器
func NewClassifier(cfg models.ClassifyConfig) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pattern := fmt.Sprintf(`(?i)(?:^|/)%s/\d{%d,%d}(?:/|$)`,
		regexp.QuoteMeta(strings.Trim(cfg.MediaSegment, "/")), cfg.MediaIDMinDigits, cfg.MediaIDMaxDigits)
	return &Classifier{
		mediaPattern: regexp.MustCompile(pattern),
		allAssets:    strings.ToLower(strings.Trim(cfg.AllAssetsSegment, "/")),
		assetParam:   cfg.AssetParam,
		preRedirect:  lowerAll(cfg.PreRedirectDomains),
	}, nil
}

// Classify 返回落地URL的状态
func (c *Classifier) Classify(finalURL string) models.RedirectStatus {
	status, _ := c.ClassifyWithRule(finalURL)
	return status
}

// ClassifyWithRule 返回状态及命中的规则名
func (c *Classifier) ClassifyWithRule(finalURL string) (models.RedirectStatus, string) {
	u, err := url.Parse(finalURL)
	if err != nil || u.Host == "" {
		return models.StatusError, "invalid-url"
	}

	// 1. 媒体资源路径 + 数字ID
	if c.mediaPattern.MatchString(u.Path) {
		return models.StatusGood, "media-id"
	}

	// 2. 通用资源列表页,需携带资源参数
	if c.hasSegment(u.Path, c.allAssets) {
		if c.assetParam != "" && u.Query().Get(c.assetParam) != "" {
			return models.StatusGood, "all-assets-with-param"
		}
		return models.StatusBadRedirect, "all-assets-landing"
	}

	// 3. 仍停留在跳转前的平台域名
	if HostMatches(finalURL, c.preRedirect) {
		return models.StatusBadRedirect, "pre-redirect-domain"
	}

	return models.StatusGood, "default"
}

func (c *Classifier) hasSegment(p string, segment string) bool {
	for _, s := range strings.Split(strings.ToLower(p), "/") {
		if s == segment {
			return true
		}
	}
	return false
}
