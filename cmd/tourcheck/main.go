package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/core"
	"github.com/RecoveryAshes/tourcheck/internal/crawlers"
	"github.com/RecoveryAshes/tourcheck/internal/metrics"
	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/sink"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	logLevel   string

	// HTTP头部参数
	headers        []string
	headerFile     string
	validateConfig bool

	// 检查参数
	targetURL    string
	propertyName string
	propertyFile string
	maxPages     int
	sinkPath     string
	outputDir    string
	resume       bool
	noBrowser    bool
	render       bool
	pageDelay    time.Duration
)

// appConfig 由PersistentPreRunE加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "tourcheck",
	Short: "物业网站虚拟巡览重定向检查工具",
	Long: `tourcheck - 物业网站虚拟巡览链接重定向检查工具

爬取物业网站,识别嵌入的虚拟巡览(iframe、平台链接、巡览按钮等),
解析其最终落地地址并分类:
  • GOOD          落地到具体巡览资源
  • BAD REDIRECT  落地到通用列表页或停留在跳转前的平台域名
  • ERROR         无法访问或超时
  • EMBEDDED      无跳转目标的嵌入组件

示例:
  # 检查单个物业
  tourcheck -u https://example.com/austin/ -n Austin -p 5

  # 批量检查,问题结果写入结果表
  tourcheck -f properties.xlsx --sink results.xlsx

  # 中断后继续
  tourcheck -f properties.csv --sink results.xlsx --resume

  # 验证配置文件
  tourcheck --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		config.MergeCLIFlags(collectOverrides(cmd))
		appConfig = config

		if err := utils.InitLogger(config.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		headerManager, err := core.NewHeaderManager(appConfig.Output.HeaderFile, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		if validateConfig {
			return runValidateConfig(headerManager)
		}

		if targetURL == "" && propertyFile == "" {
			return cmd.Help()
		}

		if err := ValidateFlags(targetURL, propertyFile, appConfig.Crawl.MaxPages); err != nil {
			return err
		}
		if err := appConfig.Validate(); err != nil {
			return fmt.Errorf("配置无效: %w", err)
		}

		rows, err := loadProperties()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := run(ctx, rows, headerManager)
		if err != nil {
			// 中断或报告写入失败,检查点已保存
			utils.Errorf("运行未完成: %v", err)
			return nil
		}

		utils.Infof("✨ 检查完成: GOOD %d, BAD REDIRECT %d, ERROR %d, 疑似拦截 %d",
			summary.Totals.Good, summary.Totals.Bad, summary.Totals.Error, summary.Totals.Blocked)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tourcheck %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// collectOverrides 只收集显式设置的参数
func collectOverrides(cmd *cobra.Command) core.CLIOverrides {
	o := core.CLIOverrides{Resume: resume, NoBrowser: noBrowser}
	flags := cmd.Flags()
	if flags.Changed("max-pages") {
		o.MaxPages = &maxPages
	}
	if flags.Changed("sink") {
		o.Sink = &sinkPath
	}
	if flags.Changed("output") {
		o.OutputDir = &outputDir
	}
	if flags.Changed("render") {
		o.Render = &render
	}
	if flags.Changed("log-level") {
		o.LogLevel = &logLevel
	}
	if flags.Changed("page-delay") {
		o.PageDelay = &pageDelay
	}
	if flags.Changed("header-file") {
		o.HeaderFile = &headerFile
	}
	return o
}

// loadProperties 单个URL或批量输入文件
func loadProperties() ([]models.PropertyRow, error) {
	if propertyFile == "" {
		name := propertyName
		if name == "" {
			name = sink.PropertyNameFromURL(targetURL)
		}
		return []models.PropertyRow{{Name: name, URLs: []string{targetURL}}}, nil
	}

	source, err := sink.NewPropertySource(propertyFile)
	if err != nil {
		return nil, err
	}
	rows, err := source.ReadRows()
	if err != nil {
		return nil, fmt.Errorf("读取物业列表失败: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("物业列表为空: %s", propertyFile)
	}
	utils.Infof("已读取 %d 个物业: %s", len(rows), propertyFile)
	return rows, nil
}

// run 组装各组件并执行批量检查
func run(ctx context.Context, rows []models.PropertyRow, headerManager *core.HeaderManager) (*models.Summary, error) {
	cfg := appConfig
	m := metrics.NewMetrics()

	var resultSink sink.ResultSink
	if cfg.Output.Sink != "" {
		xlsx, err := sink.NewXLSXSink(cfg.Output.Sink, cfg.Output.SinkSheet)
		if err != nil {
			// 结果表不可用时只生成JSON报告
			utils.Errorf("打开结果表失败, 仅生成JSON报告: %v", err)
		} else {
			defer xlsx.Close()
			resultSink = xlsx
		}
	}

	aggregator := core.NewAggregator(core.AggregatorOptions{
		OutputDir:   cfg.Output.BaseDir,
		MetricsFile: cfg.Output.MetricsFile,
		Config:      cfg.Crawl,
		Sink:        resultSink,
		Metrics:     m,
	})

	var sessions crawlers.SessionFactory
	if cfg.Crawl.UseBrowser {
		guard := crawlers.NewMemoryGuard(cfg.Crawl.MemoryFloorMB)
		status := guard.Status()
		utils.Infof("浏览器模式: 可用内存 %dMB / %dMB (%s)",
			status.AvailableMemory/(1024*1024), status.TotalMemory/(1024*1024), status.MemoryPressure)

		sessions = crawlers.NewRodSessionFactory(crawlers.RodOptions{
			Headless:       cfg.Crawl.Headless,
			HeaderProvider: headerManager,
			Guard:          guard,
		})
	}

	crawler, err := core.NewCrawler(cfg, core.CrawlerDeps{
		Static:     crawlers.NewStaticFetcher(cfg.Crawl.FetchTimeout, headerManager, nil),
		Sessions:   sessions,
		Aggregator: aggregator,
		Metrics:    m,
	})
	if err != nil {
		return nil, err
	}

	batch := core.NewBatchCrawler(crawler, aggregator, core.BatchOptions{
		MaxPages:      cfg.Crawl.MaxPages,
		PropertyDelay: cfg.Crawl.PropertyDelay,
		Resume:        cfg.Crawl.Resume,
		ShowProgress:  len(rows) > 1,
	})
	return batch.Run(ctx, rows)
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().StringVar(&headerFile, "header-file", "", "HTTP头部配置文件 (默认 configs/headers.yaml)")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 检查参数
	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "物业入口URL (除非使用 --file)")
	rootCmd.Flags().StringVarP(&propertyName, "name", "n", "", "物业名称 (默认使用域名和路径)")
	rootCmd.Flags().StringVarP(&propertyFile, "file", "f", "", "批量物业列表 (.xlsx/.csv/.txt)")
	rootCmd.Flags().IntVarP(&maxPages, "max-pages", "p", 5, "每个物业最多抓取页面数")
	rootCmd.Flags().StringVar(&sinkPath, "sink", "", "问题结果输出的工作簿 (.xlsx)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "output", "报告与检查点目录")
	rootCmd.Flags().BoolVar(&resume, "resume", false, "从检查点恢复")
	rootCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "不启动浏览器,仅使用HTTP抓取")
	rootCmd.Flags().BoolVar(&render, "render", true, "爬取页面使用浏览器渲染")
	rootCmd.Flags().DurationVar(&pageDelay, "page-delay", 2*time.Second, "页面间礼貌延迟")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
