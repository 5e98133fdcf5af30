package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
)

// FileSource CSV或纯文本输入
// 每行 "名称,URL[,URL...]" 或单独的URL,# 开头为注释
type FileSource struct {
	path string
}

// NewFileSource 创建文本输入
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// ReadRows 实现PropertySource
func (s *FileSource) ReadRows() ([]models.PropertyRow, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("打开输入文件失败: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	rows := make([]models.PropertyRow, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取输入文件失败: %w", err)
		}

		row, ok := parseRow(record)
		if !ok {
			line, _ := reader.FieldPos(0)
			utils.Warnf("跳过无有效URL的行 (行 %d): %v", line, record)
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("输入文件中没有有效的URL: %s", s.path)
	}

	utils.Infof("从文件加载了 %d 个物业", len(rows))
	return rows, nil
}
