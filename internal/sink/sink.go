// Package sink 提供结果表输出与批量物业输入
//
// ResultSink 只需要 "写表头 / 清空 / 追加一行" 三种能力,
// 结果按行追加,已写入的行不会被修改。PropertySource 读取批量输入,
// 每行是一个物业名称和一个或多个入口URL。
package sink

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/tourcheck/internal/models"
)

// ResultSink 只追加的结果表
type ResultSink interface {
	InitHeaders(columns []string) error
	Clear() error
	AppendRow(values []string) error
}

// PropertySource 批量输入
type PropertySource interface {
	ReadRows() ([]models.PropertyRow, error)
}

// NewPropertySource 按扩展名选择输入格式
func NewPropertySource(path string) (PropertySource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return NewXLSXSource(path, ""), nil
	case ".csv", ".txt", "":
		return NewFileSource(path), nil
	default:
		return nil, fmt.Errorf("不支持的输入文件格式: %s", path)
	}
}

// parseRow 将一行单元格解析为物业
// 第一列不是URL时视为物业名称,否则以首个URL的主机名作为名称
func parseRow(cells []string) (models.PropertyRow, bool) {
	var (
		name string
		urls []string
	)
	for i, cell := range cells {
		for _, field := range strings.FieldsFunc(cell, func(r rune) bool {
			return r == '\n' || r == ' ' || r == '\t' || r == ';'
		}) {
			if models.ValidateURL(field) == nil {
				urls = append(urls, field)
			}
		}
		if i == 0 && models.ValidateURL(strings.TrimSpace(cell)) != nil {
			name = strings.TrimSpace(cell)
		}
	}

	if len(urls) == 0 {
		return models.PropertyRow{}, false
	}
	if name == "" {
		name = PropertyNameFromURL(urls[0])
	}
	return models.PropertyRow{Name: name, URLs: urls}, true
}

// PropertyNameFromURL 无名称时的物业标识: 主机名加路径
func PropertyNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host + strings.TrimSuffix(u.Path, "/")
}
