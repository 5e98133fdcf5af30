package crawlers

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveHref(t *testing.T) {
	base, _ := url.Parse("https://example.com/austin/index.html")

	tests := []struct {
		name   string
		href   string
		want   string
		wantOK bool
	}{
		{"相对路径", "rooms.html", "https://example.com/austin/rooms.html", true},
		{"根相对路径", "/dallas/", "https://example.com/dallas/", true},
		{"绝对URL去除fragment", "https://tours.example/t/1#start", "https://tours.example/t/1", true},
		{"仅fragment", "#", "", false},
		{"页内锚点", "#gallery", "", false},
		{"javascript伪协议", "javascript:void(0)", "", false},
		{"邮件", "mailto:a@example.com", "", false},
		{"电话", "tel:+15125550100", "", false},
		{"空", "  ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveHref(base, tt.href)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLinkExtractor_ExtractLinks(t *testing.T) {
	html := `<html><body>
		<a href="/austin/rooms">Rooms</a>
		<a href="/austin/rooms#king">King room</a>
		<a href="/austin/brochure.pdf">Brochure</a>
		<a href="/dallas/">Dallas</a>
		<a href="https://tours.example/t/1">Tour</a>
		<a href="dining/">Dining</a>
		<a href="javascript:openMenu()">Menu</a>
	</body></html>`

	doc, err := ParseDocument(html)
	require.NoError(t, err)

	scope, err := NewCrawlScope("https://example.com/austin/")
	require.NoError(t, err)
	base, _ := url.Parse("https://example.com/austin/")

	links := NewLinkExtractor(scope, []string{".pdf"}).ExtractLinks(doc, base)

	assert.Equal(t, []string{
		"https://example.com/austin/rooms",
		"https://example.com/austin/dining/",
	}, links)
}
