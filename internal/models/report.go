package models

import (
	"encoding/json"
	"time"
)

// RunReport 整次运行的持久化报告(与结果表是否可用无关)
type RunReport struct {
	// 运行信息
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 统计信息
	Totals     RunTotals       `json:"totals"`
	Properties []PropertyStats `json:"properties"`

	// 结果日志
	Results      []RedirectResult    `json:"results"`
	PageErrors   []RedirectResult    `json:"page_errors"` // 页面抓取失败占位,不参与巡览去重
	ManualReview []ManualReviewEntry `json:"manual_review"`
	Failed       []FailedProperty    `json:"failed_properties"`

	// 结果表写入情况
	SinkFlushed int    `json:"sink_flushed"`
	SinkErrors  int    `json:"sink_errors"`
	OutputDir   string `json:"output_dir"`

	// 配置快照
	Config CrawlConfig `json:"config"`
}

// FailedProperty 初始化失败而中止的物业
type FailedProperty struct {
	Property string `json:"property"`
	URL      string `json:"url"`
	Error    string `json:"error"`
}

// Summary 运行结束时返回给调用方的摘要
type Summary struct {
	RunID        string              `json:"run_id"`
	Totals       RunTotals           `json:"totals"`
	ManualReview []ManualReviewEntry `json:"manual_review"`
	Failed       []FailedProperty    `json:"failed_properties"`
	ReportPath   string              `json:"report_path"`
	Duration     float64             `json:"duration"`
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *RunReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
