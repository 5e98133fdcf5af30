package crawlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(http *fakeFetcher, session BrowserSession) *RedirectResolver {
	return NewRedirectResolver(http, session, NewVocabulary(models.DefaultDetectionConfig()), 5*time.Second, 10*time.Second)
}

func TestRedirectResolver_HTTPRedirect(t *testing.T) {
	http := &fakeFetcher{pages: map[string]*models.Page{
		"https://www.visitingmedia.com/tt8/?ttid=austin": {
			URL:        "https://www.visitingmedia.com/tt8/?ttid=austin",
			FinalURL:   "https://www.visitingmedia.com/tt8/media/123456",
			StatusCode: 200,
		},
	}}
	session := &fakeSession{}

	final, err := newTestResolver(http, session).Resolve(context.Background(), "https://www.visitingmedia.com/tt8/?ttid=austin")
	require.NoError(t, err)
	assert.Equal(t, "https://www.visitingmedia.com/tt8/media/123456", final)
	assert.Empty(t, session.calls, "HTTP重定向不应使用浏览器")
}

func TestRedirectResolver_ClientRedirectUsesBrowser(t *testing.T) {
	http := &fakeFetcher{}
	session := &fakeSession{pages: map[string]*models.Page{
		"https://truetour.app/p/xyz": {
			URL:        "https://truetour.app/p/xyz",
			FinalURL:   "https://www.visitingmedia.com/all-assets-share?asset=42",
			StatusCode: 200,
		},
	}}

	final, err := newTestResolver(http, session).Resolve(context.Background(), "https://truetour.app/p/xyz")
	require.NoError(t, err)
	assert.Equal(t, "https://www.visitingmedia.com/all-assets-share?asset=42", final)
	assert.Empty(t, http.calls)
	assert.Equal(t, []time.Duration{5 * time.Second}, session.waits, "应等待脚本跳转稳定")
}

func TestRedirectResolver_ClientRedirectWithoutBrowser(t *testing.T) {
	http := &fakeFetcher{pages: map[string]*models.Page{
		"https://truetour.app/p/xyz": {URL: "https://truetour.app/p/xyz", FinalURL: "https://truetour.app/p/xyz", StatusCode: 200},
	}}

	final, err := newTestResolver(http, nil).Resolve(context.Background(), "https://truetour.app/p/xyz")
	require.NoError(t, err)
	assert.Equal(t, "https://truetour.app/p/xyz", final)
	assert.Equal(t, []string{"https://truetour.app/p/xyz"}, http.calls)
}

func TestRedirectResolver_EmbeddedSkipsNetwork(t *testing.T) {
	http := &fakeFetcher{}
	session := &fakeSession{}
	token := models.EmbeddedURLPrefix + "take-a-360-tour"

	final, err := newTestResolver(http, session).Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, token, final)
	assert.Empty(t, http.calls)
	assert.Empty(t, session.calls)
}

func TestRedirectResolver_Errors(t *testing.T) {
	http := &fakeFetcher{
		pages: map[string]*models.Page{
			"https://example.com/austin/old-tour": {
				URL:        "https://example.com/austin/old-tour",
				FinalURL:   "https://example.com/404",
				StatusCode: 404,
			},
		},
		errs: map[string]error{
			"https://my.matterport.com/show/?m=down": context.DeadlineExceeded,
		},
	}
	resolver := newTestResolver(http, nil)

	t.Run("最终状态码为404", func(t *testing.T) {
		final, err := resolver.Resolve(context.Background(), "https://example.com/austin/old-tour")
		require.Error(t, err)
		assert.Equal(t, "https://example.com/404", final)

		var resErr *models.ResolutionError
		require.True(t, errors.As(err, &resErr))
		var fetchErr *models.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, 404, fetchErr.StatusCode)
	})

	t.Run("超时", func(t *testing.T) {
		_, err := resolver.Resolve(context.Background(), "https://my.matterport.com/show/?m=down")
		require.Error(t, err)
		assert.True(t, models.IsTimeout(err))
		assert.Equal(t, "timeout", models.ErrorKind(err))
	})
}
