package core

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/metrics"
	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/sink"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
)

// Aggregator 汇总整次运行的结果
// 结果日志只追加;结果表按游标增量写入,写入失败的行在下次flush时重试,不会重复
// 页面抓取失败单独记录,不与巡览结果共用去重集合
type Aggregator struct {
	runID       string
	startTime   time.Time
	outputDir   string
	metricsFile string
	config      models.CrawlConfig

	sink    sink.ResultSink
	metrics *metrics.Metrics

	mu           sync.Mutex
	seen         map[string]bool
	results      []models.RedirectResult
	pageErrors   []models.RedirectResult
	manualReview []models.ManualReviewEntry
	failed       []models.FailedProperty
	properties   []models.PropertyStats
	completed    []string
	totals       models.RunTotals

	flushCursor int
	pageCursor  int
	flushed     int
	sinkErrors  int
}

// AggregatorOptions 汇总器参数
type AggregatorOptions struct {
	RunID       string
	OutputDir   string
	MetricsFile string
	Config      models.CrawlConfig
	Sink        sink.ResultSink // 为nil时只写JSON报告
	Metrics     *metrics.Metrics
}

// NewAggregator 创建汇总器
func NewAggregator(opts AggregatorOptions) *Aggregator {
	runID := opts.RunID
	if runID == "" {
		runID = models.NewRunID()
	}
	return &Aggregator{
		runID:       runID,
		startTime:   time.Now(),
		outputDir:   opts.OutputDir,
		metricsFile: opts.MetricsFile,
		config:      opts.Config,
		sink:        opts.Sink,
		metrics:     opts.Metrics,
		seen:        make(map[string]bool),
	}
}

// RunID 当前运行ID(恢复后为检查点中的ID)
func (a *Aggregator) RunID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runID
}

// CheckpointPath 检查点文件路径
func (a *Aggregator) CheckpointPath() string {
	return utils.NewReporter(a.outputDir, a.runID).CheckpointPath()
}

// Begin 准备结果表: 新运行清空并写表头,恢复运行保留已有内容
func (a *Aggregator) Begin(resumed bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sink == nil {
		return nil
	}
	if resumed {
		utils.Infof("恢复运行 %s, 保留结果表已有内容 (已写入 %d 条)", a.runID, a.flushCursor)
		return nil
	}
	if err := a.sink.Clear(); err != nil {
		return a.sinkFailed("clear", err)
	}
	if err := a.sink.InitHeaders(models.ResultColumns); err != nil {
		return a.sinkFailed("init_headers", err)
	}
	return nil
}

// Seen 该巡览URL本次运行是否已检查过
// 嵌入伪URL按物业区分,其他URL整次运行只检查一次
func (a *Aggregator) Seen(property, tourURL string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seen[dedupKey(property, tourURL)]
}

// dedupKey 已检查集合的键
func dedupKey(property, tourURL string) string {
	if models.IsEmbeddedURL(tourURL) {
		return property + "\x00" + tourURL
	}
	return tourURL
}

// Record 记录一条检查结果,同一巡览URL重复记录时返回false
func (a *Aggregator) Record(result models.RedirectResult) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recordLocked(result)
}

func (a *Aggregator) recordLocked(result models.RedirectResult) bool {
	key := dedupKey(result.Property, result.OriginalURL)
	if a.seen[key] {
		utils.Debugf("巡览链接已检查过,跳过: %s", result.OriginalURL)
		return false
	}
	a.seen[key] = true

	a.results = append(a.results, result)
	a.totals.Add(result.Status)
	a.metrics.IncResult(string(result.Status))

	utils.Debugf("[%s] %s -> %s (%s, %s)", result.Status, result.OriginalURL, result.FinalURL, result.Source, result.Property)
	return true
}

// RecordPageError 记录页面级抓取失败
func (a *Aggregator) RecordPageError(property, pageURL string, err error) {
	candidate := models.TourCandidate{
		URL:          pageURL,
		Method:       models.MethodPageFetch,
		DiscoveredOn: pageURL,
		Property:     property,
	}
	a.metrics.IncError(models.ErrorKind(err))

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pageErrors = append(a.pageErrors, models.NewRedirectResult(candidate, "", models.StatusError, err.Error()))
	a.totals.Add(models.StatusError)
	a.metrics.IncResult(string(models.StatusError))
}

// RecordManualReview 记录疑似被拦截的页面
func (a *Aggregator) RecordManualReview(property, pageURL, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.manualReview = append(a.manualReview, models.ManualReviewEntry{
		Property:  property,
		URL:       pageURL,
		Reason:    reason,
		Timestamp: time.Now(),
	})
	a.totals.Blocked++
	a.metrics.IncBlocked()
}

// CompleteProperty 物业处理完成
func (a *Aggregator) CompleteProperty(stats models.PropertyStats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.properties = append(a.properties, stats)
	a.completed = append(a.completed, stats.Property)
	a.totals.PropertiesProcessed++
	a.metrics.IncProperty("completed")
}

// FailProperty 物业因初始化失败而中止,恢复运行时会重试
func (a *Aggregator) FailProperty(property, startURL string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.failed = append(a.failed, models.FailedProperty{
		Property: property,
		URL:      startURL,
		Error:    err.Error(),
	})
	a.totals.PropertiesFailed++
	a.metrics.IncProperty("failed")
	a.metrics.IncError(models.ErrorKind(err))
}

// IsCompleted 物业是否已完成(恢复运行时跳过)
func (a *Aggregator) IsCompleted(property string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.completed {
		if p == property {
			return true
		}
	}
	return false
}

// FlushIncrement 将游标之后的问题结果追加到结果表
// 失败时游标停在失败行,下次调用从该行继续
func (a *Aggregator) FlushIncrement() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked()
}

func (a *Aggregator) flushLocked() error {
	if a.sink == nil {
		a.flushCursor = len(a.results)
		a.pageCursor = len(a.pageErrors)
		return nil
	}

	appended, err := a.flushLog(a.results, &a.flushCursor)
	if err == nil {
		var n int
		n, err = a.flushLog(a.pageErrors, &a.pageCursor)
		appended += n
	}
	if appended > 0 {
		utils.Infof("结果表已追加 %d 条问题结果 (累计 %d 条)", appended, a.flushed)
	}
	return err
}

// flushLog 从cursor开始写入一个日志中的问题结果,每写入一行游标前进一位
func (a *Aggregator) flushLog(log []models.RedirectResult, cursor *int) (int, error) {
	appended := 0
	for *cursor < len(log) {
		result := log[*cursor]
		if result.Status.Actionable() {
			if err := a.sink.AppendRow(result.Row()); err != nil {
				return appended, a.sinkFailed("append", err)
			}
			a.flushed++
			appended++
			a.metrics.IncSinkRow()
		}
		*cursor++
	}
	return appended, nil
}

// sinkFailed 记录结果表错误,结果表不可用不会中止运行
func (a *Aggregator) sinkFailed(op string, err error) error {
	a.sinkErrors++
	a.metrics.IncSinkError()

	var sinkErr *models.SinkError
	if !errors.As(err, &sinkErr) {
		sinkErr = &models.SinkError{Op: op, Err: err}
	}
	utils.Errorf("%v (结果仍保留在JSON报告中)", sinkErr)
	return sinkErr
}

// Finalize 写入剩余结果、人工复查与汇总块,生成JSON报告
// 结果表不可用时报告照常生成
func (a *Aggregator) Finalize() (*models.Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.flushLocked(); err == nil {
		a.appendSummaryBlocks()
	}

	endTime := time.Now()
	report := &models.RunReport{
		RunID:        a.runID,
		StartTime:    a.startTime,
		EndTime:      endTime,
		Duration:     endTime.Sub(a.startTime).Seconds(),
		Totals:       a.totals,
		Properties:   a.properties,
		Results:      a.results,
		PageErrors:   a.pageErrors,
		ManualReview: a.manualReview,
		Failed:       a.failed,
		SinkFlushed:  a.flushed,
		SinkErrors:   a.sinkErrors,
		Config:       a.config,
	}

	reporter := utils.NewReporter(a.outputDir, a.runID)
	reportPath, err := reporter.SaveRunReport(report)
	if err != nil {
		return nil, fmt.Errorf("保存运行报告失败: %w", err)
	}

	metricsPath := a.metricsFile
	if metricsPath == "" {
		metricsPath = reporter.MetricsPath()
	}
	if err := a.metrics.WriteTextfile(metricsPath); err != nil {
		utils.Warnf("写入指标文件失败: %v", err)
	}

	return &models.Summary{
		RunID:        a.runID,
		Totals:       a.totals,
		ManualReview: a.manualReview,
		Failed:       a.failed,
		ReportPath:   reportPath,
		Duration:     report.Duration,
	}, nil
}

// appendSummaryBlocks 在结果表末尾追加人工复查与汇总块
func (a *Aggregator) appendSummaryBlocks() {
	if a.sink == nil {
		return
	}

	rows := [][]string{{}, {"MANUAL REVIEW"}}
	for _, entry := range a.manualReview {
		rows = append(rows, []string{entry.Property, entry.URL, entry.Reason, entry.Timestamp.Format(time.RFC3339)})
	}
	rows = append(rows,
		[]string{},
		[]string{"TOTALS"},
		[]string{"Properties processed", strconv.Itoa(a.totals.PropertiesProcessed)},
		[]string{"Properties failed", strconv.Itoa(a.totals.PropertiesFailed)},
		[]string{string(models.StatusGood), strconv.Itoa(a.totals.Good)},
		[]string{string(models.StatusBadRedirect), strconv.Itoa(a.totals.Bad)},
		[]string{string(models.StatusError), strconv.Itoa(a.totals.Error)},
		[]string{string(models.StatusEmbedded), strconv.Itoa(a.totals.Embedded)},
		[]string{"Blocked (manual review)", strconv.Itoa(a.totals.Blocked)},
	)

	for _, row := range rows {
		if err := a.sink.AppendRow(row); err != nil {
			a.sinkFailed("append_summary", err)
			return
		}
	}
}

// Snapshot 生成检查点
func (a *Aggregator) Snapshot() *models.Checkpoint {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &models.Checkpoint{
		RunID:               a.runID,
		StartTime:           a.startTime,
		CompletedProperties: append([]string(nil), a.completed...),
		Results:             append([]models.RedirectResult(nil), a.results...),
		PageErrors:          append([]models.RedirectResult(nil), a.pageErrors...),
		ManualReview:        append([]models.ManualReviewEntry(nil), a.manualReview...),
		Failed:              append([]models.FailedProperty(nil), a.failed...),
		Properties:          append([]models.PropertyStats(nil), a.properties...),
		FlushCursor:         a.flushCursor,
		PageFlushCursor:     a.pageCursor,
		Totals:              a.totals,
		UpdatedAt:           time.Now(),
	}
}

// Restore 从检查点恢复
// 初始化失败的物业不计入,恢复后会被重新处理
func (a *Aggregator) Restore(cp *models.Checkpoint) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.runID = cp.RunID
	a.startTime = cp.StartTime
	a.completed = append([]string(nil), cp.CompletedProperties...)
	a.results = append([]models.RedirectResult(nil), cp.Results...)
	a.pageErrors = append([]models.RedirectResult(nil), cp.PageErrors...)
	a.manualReview = append([]models.ManualReviewEntry(nil), cp.ManualReview...)
	a.properties = append([]models.PropertyStats(nil), cp.Properties...)
	a.failed = nil
	a.totals = cp.Totals
	a.totals.PropertiesFailed = 0

	a.flushCursor = cp.FlushCursor
	if a.flushCursor > len(a.results) {
		a.flushCursor = len(a.results)
	}
	a.pageCursor = min(cp.PageFlushCursor, len(a.pageErrors))

	a.seen = make(map[string]bool, len(a.results))
	for _, r := range a.results {
		a.seen[dedupKey(r.Property, r.OriginalURL)] = true
	}

	utils.Infof("已从检查点恢复: 运行 %s, 已完成 %d 个物业, %d 条结果", a.runID, len(a.completed), len(a.results))
}

// Totals 当前累计统计
func (a *Aggregator) Totals() models.RunTotals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals
}

// Results 当前结果日志副本
func (a *Aggregator) Results() []models.RedirectResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.RedirectResult(nil), a.results...)
}

// PageErrors 页面抓取失败记录副本
func (a *Aggregator) PageErrors() []models.RedirectResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.RedirectResult(nil), a.pageErrors...)
}

// ManualReview 人工复查列表副本
func (a *Aggregator) ManualReview() []models.ManualReviewEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.ManualReviewEntry(nil), a.manualReview...)
}
