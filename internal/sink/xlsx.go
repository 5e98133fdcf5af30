package sink

import (
	"fmt"
	"os"

	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet 默认工作表名
const DefaultSheet = "Results"

// XLSXSink 基于Excel工作簿的结果表
// 每次追加后立即保存,进程中断时已写入的行不会丢失
type XLSXSink struct {
	path    string
	sheet   string
	file    *excelize.File
	nextRow int
}

// NewXLSXSink 打开或创建工作簿,sheet为空时使用DefaultSheet
func NewXLSXSink(path, sheet string) (*XLSXSink, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}

	var (
		f   *excelize.File
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, &models.SinkError{Op: "open", Err: err}
		}
	} else {
		f = excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			return nil, &models.SinkError{Op: "open", Err: err}
		}
	}

	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, &models.SinkError{Op: "open", Err: err}
	}
	if index < 0 {
		if index, err = f.NewSheet(sheet); err != nil {
			return nil, &models.SinkError{Op: "open", Err: err}
		}
	}
	f.SetActiveSheet(index)

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &models.SinkError{Op: "open", Err: err}
	}

	utils.Debugf("结果表: %s [%s] 已有 %d 行", path, sheet, len(rows))
	return &XLSXSink{
		path:    path,
		sheet:   sheet,
		file:    f,
		nextRow: len(rows) + 1,
	}, nil
}

// InitHeaders 在第一行写入表头
func (s *XLSXSink) InitHeaders(columns []string) error {
	if err := s.file.SetSheetRow(s.sheet, "A1", &columns); err != nil {
		return &models.SinkError{Op: "init_headers", Err: err}
	}
	if s.nextRow < 2 {
		s.nextRow = 2
	}
	return s.save("init_headers")
}

// Clear 删除工作表中的全部行
func (s *XLSXSink) Clear() error {
	rows, err := s.file.GetRows(s.sheet)
	if err != nil {
		return &models.SinkError{Op: "clear", Err: err}
	}
	for i := len(rows); i >= 1; i-- {
		if err := s.file.RemoveRow(s.sheet, i); err != nil {
			return &models.SinkError{Op: "clear", Err: err}
		}
	}
	s.nextRow = 1
	return s.save("clear")
}

// AppendRow 在末尾追加一行
func (s *XLSXSink) AppendRow(values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, s.nextRow)
	if err != nil {
		return &models.SinkError{Op: "append", Err: err}
	}
	if err := s.file.SetSheetRow(s.sheet, cell, &values); err != nil {
		return &models.SinkError{Op: "append", Err: err}
	}
	if err := s.save("append"); err != nil {
		return err
	}
	s.nextRow++
	return nil
}

// Rows 读取当前全部行
func (s *XLSXSink) Rows() ([][]string, error) {
	return s.file.GetRows(s.sheet)
}

// Close 关闭工作簿
func (s *XLSXSink) Close() error {
	return s.file.Close()
}

func (s *XLSXSink) save(op string) error {
	if err := s.file.SaveAs(s.path); err != nil {
		return &models.SinkError{Op: op, Err: fmt.Errorf("保存 %s 失败: %w", s.path, err)}
	}
	return nil
}

// XLSXSource 从工作簿读取批量物业
type XLSXSource struct {
	path  string
	sheet string
}

// NewXLSXSource 创建Excel输入,sheet为空时读取第一个工作表
func NewXLSXSource(path, sheet string) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheet}
}

// ReadRows 实现PropertySource
func (s *XLSXSource) ReadRows() ([]models.PropertyRow, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("打开输入工作簿失败: %w", err)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("读取工作表 [%s] 失败: %w", sheet, err)
	}

	rows := make([]models.PropertyRow, 0, len(cells))
	for i, record := range cells {
		row, ok := parseRow(record)
		if !ok {
			if i > 0 {
				utils.Debugf("跳过无有效URL的行 (行 %d)", i+1)
			}
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("工作簿中没有有效的URL: %s", s.path)
	}

	utils.Infof("从工作簿加载了 %d 个物业", len(rows))
	return rows, nil
}
