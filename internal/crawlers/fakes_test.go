package crawlers

import (
	"context"
	"errors"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/models"
)

// fakeFetcher 按URL返回预设页面
type fakeFetcher struct {
	pages map[string]*models.Page
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string, mode models.FetchMode) (*models.Page, error) {
	f.calls = append(f.calls, rawURL)
	if err, ok := f.errs[rawURL]; ok {
		return nil, &models.FetchError{URL: rawURL, Err: err}
	}
	if p, ok := f.pages[rawURL]; ok {
		copied := *p
		copied.Mode = mode
		return &copied, nil
	}
	return nil, &models.FetchError{URL: rawURL, Err: errors.New("no such page")}
}

// fakeSession 记录渲染请求的浏览器会话
type fakeSession struct {
	pages  map[string]*models.Page
	calls  []string
	waits  []time.Duration
	closed bool
}

func (s *fakeSession) Render(_ context.Context, rawURL string, wait time.Duration) (*models.Page, error) {
	s.calls = append(s.calls, rawURL)
	s.waits = append(s.waits, wait)
	if p, ok := s.pages[rawURL]; ok {
		copied := *p
		copied.Mode = models.FetchRendered
		return &copied, nil
	}
	return nil, &models.FetchError{URL: rawURL, Err: errors.New("navigation failed")}
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}
