package crawlers

import (
	"strings"
	"testing"

	"github.com/RecoveryAshes/tourcheck/internal/models"
)

func TestBlockDetector_Detect(t *testing.T) {
	detector := NewBlockDetector(models.DefaultBlockConfig())

	normalPage := "<html><body><header>Hotel</header><nav></nav><main>" +
		strings.Repeat("<p>Rooms and suites</p>", 50) + "</main><footer></footer></body></html>"
	largeChallenge := "<html><body>" + strings.Repeat("<div>content</div>", 2000) +
		"<p>captcha</p></body></html>"

	tests := []struct {
		name string
		html string
		want bool
	}{
		{"Cloudflare拦截页", "<html><title>Attention Required! | Cloudflare</title><body>Cloudflare Ray ID: 123</body></html>", true},
		{"验证码页面", "<html><body><div>Please verify you are human</div></body></html>", true},
		{"极小页面无结构", "<html><body>ok</body></html>", true},
		{"空页面", "", true},
		{"极小页面有结构标记", "<html><body><nav>Menu</nav></body></html>", false},
		{"正常页面", normalPage, false},
		{"大页面即使含提示词也不判定", largeChallenge, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := detector.Detect(tt.html)
			if got != tt.want {
				t.Errorf("Detect() = %v (%s), 期望 %v", got, reason, tt.want)
			}
			if got && reason == "" {
				t.Error("判定拦截时应给出原因")
			}
		})
	}
}
