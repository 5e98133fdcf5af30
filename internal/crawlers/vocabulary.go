package crawlers

import (
	"net/url"
	"strings"

	"github.com/RecoveryAshes/tourcheck/internal/models"
)

// Vocabulary 巡览平台域名、提示短语与容器关键字
type Vocabulary struct {
	platformDomains       []string
	clientRedirectDomains []string
	phrases               []string
	containerTokens       []string
}

// NewVocabulary 由识别配置创建词表,统一转为小写
func NewVocabulary(cfg models.DetectionConfig) *Vocabulary {
	return &Vocabulary{
		platformDomains:       lowerAll(cfg.PlatformDomains),
		clientRedirectDomains: lowerAll(cfg.ClientRedirectDomains),
		phrases:               lowerAll(cfg.TourPhrases),
		containerTokens:       lowerAll(cfg.ContainerTokens),
	}
}

// IsPlatformURL URL是否指向已知巡览平台
func (v *Vocabulary) IsPlatformURL(rawURL string) bool {
	return HostMatches(rawURL, v.platformDomains) || HostMatches(rawURL, v.clientRedirectDomains)
}

// IsClientRedirectURL URL是否属于通过脚本跳转的平台
func (v *Vocabulary) IsClientRedirectURL(rawURL string) bool {
	return HostMatches(rawURL, v.clientRedirectDomains)
}

// HasTourPhrase 文本是否包含巡览短语(不区分大小写)
func (v *Vocabulary) HasTourPhrase(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range v.phrases {
		if phrase != "" && strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// IsTourContainer class属性是否含巡览容器关键字
// 不含连字符的关键字按单词匹配,避免 "tournament" 之类误判
func (v *Vocabulary) IsTourContainer(class string) bool {
	for _, token := range strings.Fields(strings.ToLower(class)) {
		for _, want := range v.containerTokens {
			if want == "" {
				continue
			}
			if strings.ContainsAny(want, "-_") {
				if strings.Contains(token, want) {
					return true
				}
				continue
			}
			for _, word := range strings.FieldsFunc(token, func(r rune) bool { return r == '-' || r == '_' }) {
				if word == want {
					return true
				}
			}
		}
	}
	return false
}

// HostMatches 主机名是否匹配域名模式
// 含点号的模式按域名后缀匹配,否则按主机名子串匹配
func HostMatches(rawURL string, patterns []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.Contains(p, ".") {
			if host == p || strings.HasSuffix(host, "."+p) {
				return true
			}
		} else if strings.Contains(host, p) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
