package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 单次运行的Prometheus指标,注册在独立的Registry上
// 所有方法对nil接收者安全
type Metrics struct {
	Registry       *prometheus.Registry
	PagesTotal     *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
	ResultsTotal   *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
	BlockedTotal   prometheus.Counter
	PropertyTotal  *prometheus.CounterVec
	SinkRowsTotal  prometheus.Counter
	SinkErrorTotal prometheus.Counter
}

// NewMetrics 创建并注册全部指标
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourcheck_pages_total",
			Help: "Pages fetched per outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tourcheck_fetch_duration_seconds",
			Help:    "Page fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	results := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourcheck_results_total",
			Help: "Tour redirect results by status.",
		},
		[]string{"status"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourcheck_errors_total",
			Help: "Errors by kind.",
		},
		[]string{"kind"},
	)
	blocked := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tourcheck_blocked_pages_total",
			Help: "Pages judged bot-blocked and queued for manual review.",
		},
	)
	properties := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourcheck_properties_total",
			Help: "Properties processed by outcome.",
		},
		[]string{"outcome"},
	)
	sinkRows := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tourcheck_sink_rows_total",
			Help: "Rows appended to the result sink.",
		},
	)
	sinkErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tourcheck_sink_errors_total",
			Help: "Failed result sink operations.",
		},
	)

	registry.MustRegister(pages, fetchDuration, results, errorsTotal, blocked, properties, sinkRows, sinkErrors)

	return &Metrics{
		Registry:       registry,
		PagesTotal:     pages,
		FetchDuration:  fetchDuration,
		ResultsTotal:   results,
		ErrorsTotal:    errorsTotal,
		BlockedTotal:   blocked,
		PropertyTotal:  properties,
		SinkRowsTotal:  sinkRows,
		SinkErrorTotal: sinkErrors,
	}
}

// IncPage 按结果累加页面数 (ok / failed / blocked)
func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch 记录页面抓取耗时
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncResult 按状态累加巡览结果
func (m *Metrics) IncResult(status string) {
	if m == nil {
		return
	}
	m.ResultsTotal.WithLabelValues(status).Inc()
}

// IncError 按类型累加错误
func (m *Metrics) IncError(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

// IncBlocked 累加拦截页面数
func (m *Metrics) IncBlocked() {
	if m == nil {
		return
	}
	m.BlockedTotal.Inc()
}

// IncProperty 按结果累加物业数 (completed / failed / skipped)
func (m *Metrics) IncProperty(outcome string) {
	if m == nil {
		return
	}
	m.PropertyTotal.WithLabelValues(outcome).Inc()
}

// IncSinkRow 累加写入结果表的行数
func (m *Metrics) IncSinkRow() {
	if m == nil {
		return
	}
	m.SinkRowsTotal.Inc()
}

// IncSinkError 累加结果表写入失败次数
func (m *Metrics) IncSinkError() {
	if m == nil {
		return
	}
	m.SinkErrorTotal.Inc()
}

// WriteTextfile 以文本格式导出指标(供node_exporter textfile采集)
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建指标目录失败: %w", err)
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
