package utils

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/RecoveryAshes/tourcheck/internal/models"
)

func TestCheckHeader(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		value     string
		wantErr   bool
		wantField string
	}{
		{"合法头部", "User-Agent", "TourBot/1.0", false, ""},
		{"自定义头部", "X-Request-Source", "batch", false, ""},
		{"空名称", "", "x", true, "name"},
		{"禁止的头部", "Host", "example.com", true, "name"},
		{"禁止的头部不区分大小写", "content-length", "10", true, "name"},
		{"名称含非法字符", "X_Custom", "x", true, "name"},
		{"名称含空格", "X Custom", "x", true, "name"},
		{"值过长", "X-Long", strings.Repeat("a", MaxHeaderValueLength+1), true, "value"},
		{"值含控制字符", "X-Bad", "line\nbreak", true, "value"},
		{"值含非ASCII", "X-Bad", "中文", true, "value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckHeader(tt.header, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckHeader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var validationErr *models.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("错误类型应为 ValidationError: %T", err)
			}
			if validationErr.Field != tt.wantField {
				t.Errorf("Field = %s, 期望 %s", validationErr.Field, tt.wantField)
			}
		})
	}
}

func TestCheckHeaders(t *testing.T) {
	valid := http.Header{"Accept": {"*/*"}, "User-Agent": {"TourBot/1.0"}}
	if err := CheckHeaders(valid); err != nil {
		t.Errorf("合法头部不应报错: %v", err)
	}

	invalid := http.Header{"Accept": {"*/*"}, "Connection": {"close"}}
	if err := CheckHeaders(invalid); err == nil {
		t.Error("包含禁止头部时应报错")
	}
}

func TestRedactValue(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{"普通头部不脱敏", "User-Agent", "TourBot/1.0", "TourBot/1.0"},
		{"Bearer令牌", "Authorization", "Bearer abc.def.ghi", "Bearer ***"},
		{"长密钥保留首尾", "X-Api-Key", "sk-1234567890abcd", "sk-1***abcd"},
		{"短密钥完全隐藏", "X-Token", "abc", "***"},
		{"Cookie", "Cookie", "session=0123456789", "sess***6789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactValue(tt.header, tt.value); got != tt.want {
				t.Errorf("RedactValue() = %s, 期望 %s", got, tt.want)
			}
		})
	}
}

func TestRedactHeaders(t *testing.T) {
	headers := http.Header{
		"User-Agent":    {"TourBot/1.0"},
		"Authorization": {"Bearer secret-token"},
	}

	got := strings.Join(RedactHeaders(headers), ", ")
	want := "Authorization: Bearer ***, User-Agent: TourBot/1.0"
	if got != want {
		t.Errorf("RedactHeaders() = %s, 期望 %s", got, want)
	}
}
