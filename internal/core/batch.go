package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// BatchCrawler 批量处理物业列表
// 物业之间顺序执行,每个物业完成后增量写入结果表并保存检查点
type BatchCrawler struct {
	crawler       *Crawler
	aggregator    *Aggregator
	maxPages      int
	propertyDelay time.Duration
	resume        bool
	showProgress  bool
}

// BatchOptions 批量参数
type BatchOptions struct {
	MaxPages      int
	PropertyDelay time.Duration
	Resume        bool
	ShowProgress  bool
}

// NewBatchCrawler 创建批量爬取器
func NewBatchCrawler(crawler *Crawler, aggregator *Aggregator, opts BatchOptions) *BatchCrawler {
	return &BatchCrawler{
		crawler:       crawler,
		aggregator:    aggregator,
		maxPages:      opts.MaxPages,
		propertyDelay: opts.PropertyDelay,
		resume:        opts.Resume,
		showProgress:  opts.ShowProgress,
	}
}

// Run 处理全部物业并生成最终报告
// 单个物业失败不会中止批量;ctx取消时保存检查点后返回
func (bc *BatchCrawler) Run(ctx context.Context, rows []models.PropertyRow) (*models.Summary, error) {
	resumed := bc.restoreCheckpoint()
	if err := bc.aggregator.Begin(resumed); err != nil {
		utils.Warnf("结果表初始化失败, 继续运行: %v", err)
	}

	utils.Infof("🚀 开始批量检查: %d 个物业 (运行 %s)", len(rows), bc.aggregator.RunID())

	var bar *progressbar.ProgressBar
	if bc.showProgress {
		bar = utils.NewProgressBar(len(rows), "检查物业")
	}

	var runErr error
	for i, row := range rows {
		if bar != nil {
			_ = bar.Add(1)
		}

		if bc.aggregator.IsCompleted(row.Name) {
			utils.Infof("跳过已完成的物业: %s", row.Name)
			continue
		}

		utils.Infof("==================== [%d/%d] %s ====================", i+1, len(rows), row.Name)

		if err := bc.processProperty(ctx, row); err != nil {
			runErr = err
			break
		}

		if i < len(rows)-1 && bc.propertyDelay > 0 {
			utils.Debugf("等待 %.0f 秒后处理下一个物业...", bc.propertyDelay.Seconds())
			if err := sleepContext(ctx, bc.propertyDelay); err != nil {
				runErr = err
				break
			}
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if runErr != nil {
		utils.Warnf("批量检查被中断: %v (检查点已保存, 可使用 --resume 继续)", runErr)
		bc.saveCheckpoint()
		return nil, runErr
	}

	summary, err := bc.aggregator.Finalize()
	if err != nil {
		bc.saveCheckpoint()
		return nil, err
	}

	if err := os.Remove(bc.aggregator.CheckpointPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		utils.Warnf("删除检查点失败: %v", err)
	}

	bc.printSummary(summary)
	return summary, nil
}

// processProperty 爬取一个物业的全部入口URL
// 只有ctx取消时返回错误
func (bc *BatchCrawler) processProperty(ctx context.Context, row models.PropertyRow) error {
	total := models.PropertyStats{Property: row.Name}

	for _, startURL := range row.URLs {
		stats, err := bc.crawler.Crawl(ctx, row.Name, startURL, bc.maxPages)
		mergeStats(&total, stats)

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var setupErr *models.SetupError
			if errors.As(err, &setupErr) {
				utils.Errorf("❌ %v", err)
				bc.aggregator.FailProperty(row.Name, startURL, err)
				bc.flushAndCheckpoint()
				return nil
			}
			utils.Warnf("入口 %s 处理失败: %v", startURL, err)
			bc.aggregator.RecordPageError(row.Name, startURL, err)
		}
	}

	bc.aggregator.CompleteProperty(total)
	bc.flushAndCheckpoint()
	return nil
}

// flushAndCheckpoint 增量写入结果表并保存检查点
func (bc *BatchCrawler) flushAndCheckpoint() {
	if err := bc.aggregator.FlushIncrement(); err != nil {
		utils.Warnf("增量写入结果表失败, 下次重试: %v", err)
	}
	bc.saveCheckpoint()
}

// restoreCheckpoint 恢复模式下加载检查点
func (bc *BatchCrawler) restoreCheckpoint() bool {
	if !bc.resume {
		return false
	}

	path := bc.aggregator.CheckpointPath()
	cp, err := models.LoadCheckpointFromFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			utils.Info("未找到检查点, 开始新的运行")
		} else {
			utils.Warnf("加载检查点失败, 开始新的运行: %v", err)
		}
		return false
	}

	bc.aggregator.Restore(cp)
	return true
}

// saveCheckpoint 保存检查点
func (bc *BatchCrawler) saveCheckpoint() {
	path := bc.aggregator.CheckpointPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		utils.Warnf("创建检查点目录失败: %v", err)
		return
	}
	if err := bc.aggregator.Snapshot().SaveToFile(path); err != nil {
		utils.Warnf("保存检查点失败: %v", err)
		return
	}
	utils.Debugf("检查点已保存: %s", path)
}

// printSummary 打印运行摘要
func (bc *BatchCrawler) printSummary(summary *models.Summary) {
	t := summary.Totals
	utils.Info("==================================================")
	utils.Info("📊 巡览重定向检查摘要")
	utils.Info("==================================================")
	utils.Infof("运行ID: %s", summary.RunID)
	utils.Infof("物业: 完成 %d, 失败 %d", t.PropertiesProcessed, t.PropertiesFailed)
	utils.Infof("✅ GOOD: %d", t.Good)
	utils.Infof("⚠️  BAD REDIRECT: %d", t.Bad)
	utils.Infof("❌ ERROR: %d", t.Error)
	utils.Infof("🧩 EMBEDDED: %d", t.Embedded)
	utils.Infof("🛑 疑似拦截: %d", t.Blocked)
	utils.Infof("⏱️  总耗时: %.2f秒", summary.Duration)
	utils.Infof("📄 报告: %s", summary.ReportPath)
	utils.Info("==================================================")

	if len(summary.ManualReview) > 0 {
		utils.Warn("需要人工复查的页面:")
		for _, entry := range summary.ManualReview {
			utils.Warnf("  - [%s] %s: %s", entry.Property, entry.URL, entry.Reason)
		}
	}
	if len(summary.Failed) > 0 {
		utils.Warn("初始化失败的物业:")
		for _, f := range summary.Failed {
			utils.Warnf("  - %s (%s): %s", f.Property, f.URL, f.Error)
		}
	}
}

// mergeStats 合并同一物业多个入口的统计
func mergeStats(total *models.PropertyStats, s models.PropertyStats) {
	total.PagesFetched += s.PagesFetched
	total.PagesFailed += s.PagesFailed
	total.PagesBlocked += s.PagesBlocked
	total.Candidates += s.Candidates
	total.Resolved += s.Resolved
	total.Duration += s.Duration
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
