package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/schollz/progressbar/v3"
)

const (
	// ReportFilename 运行报告文件名
	ReportFilename = "tour_report.json"
	// ResultsFilename 全部检查结果文件名
	ResultsFilename = "results.json"
	// MetricsFilename 指标文本文件名
	MetricsFilename = "metrics.prom"
)

// Reporter 运行报告生成器
type Reporter struct {
	outputDir string
	runID     string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string, runID string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
		runID:     runID,
	}
}

// RunDir 本次运行的输出目录
func (r *Reporter) RunDir() string {
	return filepath.Join(r.outputDir, r.runID)
}

// CheckpointPath 检查点文件路径,跨运行复用以支持 --resume
func (r *Reporter) CheckpointPath() string {
	return filepath.Join(r.outputDir, models.CheckpointFilename)
}

// MetricsPath 默认指标文件路径
func (r *Reporter) MetricsPath() string {
	return filepath.Join(r.RunDir(), MetricsFilename)
}

// SaveRunReport 保存运行报告与全部结果,返回报告路径
func (r *Reporter) SaveRunReport(report *models.RunReport) (string, error) {
	dir := r.RunDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	report.OutputDir = dir
	if err := r.saveJSONReport(dir, ReportFilename, report); err != nil {
		return "", err
	}
	if err := r.saveJSONReport(dir, ResultsFilename, report.Results); err != nil {
		return "", err
	}

	reportPath := filepath.Join(dir, ReportFilename)
	Infof("✅ 报告已生成: %s", reportPath)
	return reportPath, nil
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(dir string, filename string, data interface{}) error {
	path := filepath.Join(dir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return nil
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
