package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/publicsuffix"
)

// StaticFetcher 轻量HTTP抓取器(使用Colly)
// 透明跟随HTTP重定向,返回最终URL与状态码
type StaticFetcher struct {
	collector      *colly.Collector
	headerProvider models.HeaderProvider
}

// NewStaticFetcher 创建HTTP抓取器
// transport为nil时使用跳过证书验证的默认Transport
func NewStaticFetcher(timeout time.Duration, headerProvider models.HeaderProvider, transport http.RoundTripper) *StaticFetcher {
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // 允许访问自签名或过期证书的站点
			},
		}
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.ParseHTTPErrorResponse = true
	c.WithTransport(transport)
	c.SetRequestTimeout(timeout)

	// 同一物业多个页面共享cookie,部分站点首次访问会下发会话cookie
	if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
		c.SetCookieJar(jar)
	} else {
		utils.Warnf("创建cookie jar失败: %v", err)
	}

	utils.Debugf("HTTP抓取器: 超时 %s", timeout)

	return &StaticFetcher{
		collector:      c,
		headerProvider: headerProvider,
	}
}

// Fetch 实现PageFetcher,mode被忽略
// 服务器返回任何状态码都视为抓取成功,由调用方判断状态码
func (sf *StaticFetcher) Fetch(ctx context.Context, rawURL string, _ models.FetchMode) (*models.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.FetchError{URL: rawURL, Err: err}
	}

	start := time.Now()
	cc := sf.collector.Clone()
	cc.ParseHTTPErrorResponse = true
	cc.Context = ctx

	var (
		page        *models.Page
		callbackErr error
		statusCode  int
	)

	cc.OnRequest(func(r *colly.Request) {
		if sf.headerProvider == nil {
			return
		}
		headers, err := sf.headerProvider.GetHeaders()
		if err != nil {
			utils.Warnf("获取HTTP头部失败: %v", err)
			return
		}
		for name, values := range headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
	})

	cc.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body, err := decodeBody(r.Headers.Get("Content-Encoding"), r.Body)
		if err != nil {
			callbackErr = err
			return
		}
		page = &models.Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			HTML:       string(body),
			Mode:       models.FetchStatic,
		}
	})

	cc.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		callbackErr = err
	})

	visitErr := cc.Visit(rawURL)
	if visitErr == nil {
		visitErr = callbackErr
	}
	if visitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			visitErr = fmt.Errorf("%w: %v", ctxErr, visitErr)
		}
		return nil, &models.FetchError{URL: rawURL, StatusCode: statusCode, Err: visitErr}
	}
	if page == nil {
		return nil, &models.FetchError{URL: rawURL, StatusCode: statusCode, Err: fmt.Errorf("未收到响应")}
	}

	page.Duration = time.Since(start)
	utils.Debugf("HTTP抓取完成: %s -> %s (HTTP %d, %d 字节)", rawURL, page.FinalURL, page.StatusCode, len(page.HTML))
	return page, nil
}

// decodeBody 根据Content-Encoding解压响应体
// Colly已自行解压gzip,因此gzip仅在仍带有魔数时处理
func decodeBody(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()
		return io.ReadAll(reader)

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
