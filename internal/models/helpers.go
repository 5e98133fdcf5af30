package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidateURL 物业入口和巡览链接必须是带主机名的http(s)地址
func ValidateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("URL必须是HTTP或HTTPS协议: %q", rawURL)
	case u.Host == "":
		return fmt.Errorf("URL必须包含主机名: %q", rawURL)
	}
	return nil
}

// NewRunID 运行ID,时间前缀便于按目录排序
func NewRunID() string {
	return time.Now().Format("20060102-150405") + "-" + generateID()[:8]
}

func generateID() string {
	return uuid.NewString()
}
