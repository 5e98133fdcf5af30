package models

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FetchError 页面抓取失败(网络、超时、导航失败)
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("抓取失败 [%s] HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("抓取失败 [%s]: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ResolutionError 重定向解析失败
type ResolutionError struct {
	URL string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("解析重定向失败 [%s]: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// SinkError 结果输出目标不可用
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("结果输出失败 (%s): %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// SetupError 无法建立浏览器会话等前置条件,仅中止当前物业
type SetupError struct {
	Property string
	Err      error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("物业 [%s] 初始化失败: %v", e.Property, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// IsTimeout 判断错误是否由超时引起
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ErrorKind 错误类型标签(用于指标)
func ErrorKind(err error) string {
	if err == nil {
		return "none"
	}
	if IsTimeout(err) {
		return "timeout"
	}
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return "resolution"
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		if fetchErr.StatusCode >= 400 {
			return "http_status"
		}
		return "fetch"
	}
	var sinkErr *SinkError
	if errors.As(err, &sinkErr) {
		return "sink"
	}
	var setupErr *SetupError
	if errors.As(err, &setupErr) {
		return "setup"
	}
	return "other"
}
