package crawlers

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/tourcheck/internal/models"
)

var (
	// inlineURLPattern onclick等脚本属性中的URL
	inlineURLPattern = regexp.MustCompile(`https?://[^\s'"<>()]+`)

	// slugPattern 生成嵌入伪URL时替换的字符
	slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

	// whitespacePattern 折叠空白
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// PageContext 单次提取共享的页面上下文
type PageContext struct {
	Doc   *goquery.Document
	Base  *url.URL
	Vocab *Vocabulary
}

// Strategy 独立的巡览识别策略
// Find 对每个识别到的URL调用emit,同一策略内可重复emit
type Strategy struct {
	Method models.DiscoveryMethod
	Find   func(pc *PageContext, emit func(rawURL string))
}

// DefaultStrategies 默认策略列表,顺序决定同一URL记录的发现方式
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Method: models.MethodIframeSrc, Find: findIframeSources},
		{Method: models.MethodDataAttribute, Find: findDataAttributes},
		{Method: models.MethodAnchorByDomain, Find: findAnchorsByDomain},
		{Method: models.MethodAnchorByText, Find: findAnchorsByText},
		{Method: models.MethodContainerByClass, Find: findContainerLinks},
		{Method: models.MethodButtonEmbedded, Find: findEmbeddedButtons},
	}
}

// TourExtractor 巡览候选提取器
type TourExtractor struct {
	vocab      *Vocabulary
	strategies []Strategy
}

// NewTourExtractor 创建提取器,strategies为空时使用默认策略
func NewTourExtractor(cfg models.DetectionConfig, strategies ...Strategy) *TourExtractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &TourExtractor{
		vocab:      NewVocabulary(cfg),
		strategies: strategies,
	}
}

// Vocabulary 提取器使用的词表
func (e *TourExtractor) Vocabulary() *Vocabulary {
	return e.vocab
}

// ParseDocument 解析HTML
func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	return doc, nil
}

// Extract 从渲染后的HTML提取巡览候选
func (e *TourExtractor) Extract(html string, pageURL string, property string) ([]models.TourCandidate, error) {
	doc, err := ParseDocument(html)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("解析页面URL失败: %w", err)
	}
	return e.ExtractFromDocument(doc, base, property), nil
}

// ExtractFromDocument 对已解析的文档运行全部策略,按URL去重
func (e *TourExtractor) ExtractFromDocument(doc *goquery.Document, base *url.URL, property string) []models.TourCandidate {
	pc := &PageContext{Doc: doc, Base: base, Vocab: e.vocab}
	pageURL := base.String()

	seen := make(map[string]bool)
	candidates := make([]models.TourCandidate, 0)

	for _, strategy := range e.strategies {
		method := strategy.Method
		strategy.Find(pc, func(rawURL string) {
			if seen[rawURL] {
				return
			}
			seen[rawURL] = true
			candidates = append(candidates, models.TourCandidate{
				URL:          rawURL,
				Method:       method,
				DiscoveredOn: pageURL,
				Property:     property,
			})
		})
	}

	return candidates
}

// findIframeSources iframe的src/data-src指向巡览平台
func findIframeSources(pc *PageContext, emit func(string)) {
	pc.Doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "data-src"} {
			if v, ok := s.Attr(attr); ok {
				if abs, ok := ResolveHref(pc.Base, v); ok && pc.Vocab.IsPlatformURL(abs) {
					emit(abs)
				}
			}
		}
	})
}

// findDataAttributes data-*属性值或onclick脚本中的平台链接
func findDataAttributes(pc *PageContext, emit func(string)) {
	pc.Doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		for _, attr := range node.Attr {
			key := strings.ToLower(attr.Key)
			switch {
			case strings.HasPrefix(key, "data-"):
				if abs, ok := ResolveHref(pc.Base, attr.Val); ok && pc.Vocab.IsPlatformURL(abs) {
					emit(abs)
				}
			case key == "onclick":
				for _, raw := range inlineURLPattern.FindAllString(attr.Val, -1) {
					if abs, err := NormalizeURL(raw); err == nil && pc.Vocab.IsPlatformURL(abs) {
						emit(abs)
					}
				}
			}
		}
	})
}

// findAnchorsByDomain 链接解析后的域名属于巡览平台
func findAnchorsByDomain(pc *PageContext, emit func(string)) {
	pc.Doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if abs, ok := ResolveHref(pc.Base, href); ok && pc.Vocab.IsPlatformURL(abs) {
			emit(abs)
		}
	})
}

// findAnchorsByText 非平台域名的链接,文本或无障碍名称包含巡览短语
func findAnchorsByText(pc *PageContext, emit func(string)) {
	pc.Doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs, ok := ResolveHref(pc.Base, href)
		if !ok || pc.Vocab.IsPlatformURL(abs) {
			return
		}
		if pc.Vocab.HasTourPhrase(accessibleText(s)) {
			emit(abs)
		}
	})
}

// findContainerLinks 类名含巡览关键字的容器内的全部链接
func findContainerLinks(pc *PageContext, emit func(string)) {
	pc.Doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		if !pc.Vocab.IsTourContainer(class) {
			return
		}
		s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if abs, ok := ResolveHref(pc.Base, href); ok {
				emit(abs)
			}
		})
	})
}

// findEmbeddedButtons 文本含巡览短语但没有可导航目标的按钮
func findEmbeddedButtons(pc *PageContext, emit func(string)) {
	selector := "button, [role='button'], input[type='button'], input[type='submit']"
	pc.Doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		text := accessibleText(s)
		if v, ok := s.Attr("value"); ok {
			text += " " + v
		}
		if !pc.Vocab.HasTourPhrase(text) || hasNavigableTarget(pc.Base, s) {
			return
		}
		if token := EmbeddedToken(buttonLabel(s)); token != "" {
			emit(token)
		}
	})
}

// hasNavigableTarget 元素是否暴露了真实的跳转目标
func hasNavigableTarget(base *url.URL, s *goquery.Selection) bool {
	for _, attr := range []string{"href", "data-href", "data-link", "data-url", "formaction"} {
		if v, ok := s.Attr(attr); ok {
			if _, ok := ResolveHref(base, v); ok {
				return true
			}
		}
	}
	if onclick, ok := s.Attr("onclick"); ok && inlineURLPattern.MatchString(onclick) {
		return true
	}
	return false
}

// accessibleText 可见文本加 title/aria-label/alt,包含内部图片
func accessibleText(s *goquery.Selection) string {
	parts := []string{s.Text()}
	for _, attr := range []string{"title", "aria-label", "alt"} {
		if v, ok := s.Attr(attr); ok {
			parts = append(parts, v)
		}
	}
	s.Find("img").Each(func(_ int, img *goquery.Selection) {
		for _, attr := range []string{"alt", "title"} {
			if v, ok := img.Attr(attr); ok {
				parts = append(parts, v)
			}
		}
	})
	return collapseSpace(strings.Join(parts, " "))
}

// buttonLabel 用于生成伪URL的按钮名称
func buttonLabel(s *goquery.Selection) string {
	label := collapseSpace(s.Text())
	if label == "" {
		for _, attr := range []string{"aria-label", "title", "value"} {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				label = collapseSpace(v)
				break
			}
		}
	}
	return label
}

// EmbeddedToken 按钮文本编码为嵌入伪URL
func EmbeddedToken(label string) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(label), "-"), "-")
	if slug == "" {
		return ""
	}
	return models.EmbeddedURLPrefix + slug
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
