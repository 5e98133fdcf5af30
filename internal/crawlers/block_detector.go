package crawlers

import (
	"fmt"
	"strings"

	"github.com/RecoveryAshes/tourcheck/internal/models"
)

// BlockDetector 反爬拦截页面检测
// 页面小于 MaxSize 且 (命中拦截提示 或 缺少结构标记且小于 TinySize) 时判定为拦截
type BlockDetector struct {
	maxSize    int
	tinySize   int
	indicators []string
	markers    []string
}

// NewBlockDetector 创建检测器
func NewBlockDetector(cfg models.BlockConfig) *BlockDetector {
	markers := make([]string, 0, len(cfg.StructuralMarkers))
	for _, m := range lowerAll(cfg.StructuralMarkers) {
		if !strings.HasPrefix(m, "<") {
			m = "<" + m
		}
		markers = append(markers, m)
	}
	return &BlockDetector{
		maxSize:    cfg.MaxSize,
		tinySize:   cfg.TinySize,
		indicators: lowerAll(cfg.Indicators),
		markers:    markers,
	}
}

// Detect 返回是否拦截及原因
func (d *BlockDetector) Detect(html string) (bool, string) {
	size := len(html)
	if size >= d.maxSize {
		return false, ""
	}

	lower := strings.ToLower(html)
	for _, indicator := range d.indicators {
		if strings.Contains(lower, indicator) {
			return true, fmt.Sprintf("命中拦截提示 %q (页面 %d 字节)", indicator, size)
		}
	}

	if size < d.tinySize && !d.hasStructure(lower) {
		return true, fmt.Sprintf("页面过小(%d 字节)且缺少结构标记", size)
	}

	return false, ""
}

func (d *BlockDetector) hasStructure(lower string) bool {
	for _, m := range d.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
