package crawlers

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
)

// RedirectResolver 解析巡览链接的最终落地地址
// HTTP重定向由HTTP抓取透明跟随;脚本跳转平台用浏览器加载并等待地址稳定
type RedirectResolver struct {
	http       PageFetcher
	session    BrowserSession
	vocab      *Vocabulary
	settleWait time.Duration
	timeout    time.Duration
}

// NewRedirectResolver 创建解析器,session可为nil
func NewRedirectResolver(httpFetcher PageFetcher, session BrowserSession, vocab *Vocabulary, settleWait, timeout time.Duration) *RedirectResolver {
	return &RedirectResolver{
		http:       httpFetcher,
		session:    session,
		vocab:      vocab,
		settleWait: settleWait,
		timeout:    timeout,
	}
}

// Resolve 返回最终URL
// 嵌入伪URL不发起网络请求,原样返回
func (r *RedirectResolver) Resolve(ctx context.Context, candidateURL string) (string, error) {
	if models.IsEmbeddedURL(candidateURL) {
		return candidateURL, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		page *models.Page
		err  error
	)
	if r.vocab.IsClientRedirectURL(candidateURL) {
		if r.session != nil {
			utils.Debugf("脚本跳转平台,使用浏览器解析: %s (等待 %s)", candidateURL, r.settleWait)
			page, err = r.session.Render(opCtx, candidateURL, r.settleWait)
		} else {
			utils.Warnf("未启用浏览器会话,脚本跳转可能无法识别: %s", candidateURL)
			page, err = r.http.Fetch(opCtx, candidateURL, models.FetchStatic)
		}
	} else {
		page, err = r.http.Fetch(opCtx, candidateURL, models.FetchStatic)
	}

	if err != nil {
		return "", &models.ResolutionError{URL: candidateURL, Err: err}
	}

	final := page.FinalURL
	if final == "" {
		final = page.URL
	}

	if page.StatusCode >= 400 {
		return final, &models.ResolutionError{
			URL: candidateURL,
			Err: &models.FetchError{URL: final, StatusCode: page.StatusCode, Err: fmt.Errorf("HTTP %d", page.StatusCode)},
		}
	}

	return final, nil
}
