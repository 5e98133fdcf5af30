package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/tourcheck/internal/models"
)

func TestReporter_SaveRunReport(t *testing.T) {
	outputDir := t.TempDir()
	reporter := NewReporter(outputDir, "run-42")

	report := &models.RunReport{
		RunID:  "run-42",
		Totals: models.RunTotals{PropertiesProcessed: 1, Bad: 1},
		Results: []models.RedirectResult{
			{Property: "Austin", OriginalURL: "https://truetour.app/p/xyz", Status: models.StatusBadRedirect},
		},
	}

	path, err := reporter.SaveRunReport(report)
	if err != nil {
		t.Fatalf("SaveRunReport() error = %v", err)
	}

	if want := filepath.Join(outputDir, "run-42", ReportFilename); path != want {
		t.Errorf("报告路径 = %s, 期望 %s", path, want)
	}
	if report.OutputDir != reporter.RunDir() {
		t.Errorf("报告输出目录未设置: %s", report.OutputDir)
	}

	data, err := os.ReadFile(filepath.Join(reporter.RunDir(), ResultsFilename))
	if err != nil {
		t.Fatalf("读取结果文件失败: %v", err)
	}
	var results []models.RedirectResult
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatalf("结果文件不是合法JSON: %v", err)
	}
	if len(results) != 1 || results[0].Status != models.StatusBadRedirect {
		t.Errorf("结果文件内容错误: %+v", results)
	}
}

func TestReporter_Paths(t *testing.T) {
	reporter := NewReporter("output", "run-1")

	if got := reporter.CheckpointPath(); got != filepath.Join("output", models.CheckpointFilename) {
		t.Errorf("CheckpointPath() = %s", got)
	}
	if got := reporter.MetricsPath(); got != filepath.Join("output", "run-1", MetricsFilename) {
		t.Errorf("MetricsPath() = %s", got)
	}
}
