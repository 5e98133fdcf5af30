package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// Config 应用程序配置
type Config struct {
	Crawl     models.CrawlConfig     `mapstructure:"crawl"`
	Detection models.DetectionConfig `mapstructure:"detection"`
	Blocking  models.BlockConfig     `mapstructure:"blocking"`
	Classify  models.ClassifyConfig  `mapstructure:"classify"`
	Logging   LoggingConfig          `mapstructure:"logging"`
	Output    OutputConfig           `mapstructure:"output"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir     string `mapstructure:"base_dir"`     // 报告与检查点目录
	Sink        string `mapstructure:"sink"`         // 结果表路径(.xlsx),为空时不写结果表
	SinkSheet   string `mapstructure:"sink_sheet"`   // 结果表工作表名
	MetricsFile string `mapstructure:"metrics_file"` // 指标文本文件,为空时写入运行目录
	HeaderFile  string `mapstructure:"header_file"`  // HTTP头部配置文件
}

// LoadConfig 加载配置文件
// configPath为空时依次搜索 ./configs、当前目录、~/.tourcheck
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tourcheck"))
		}
	}

	// TOURCHECK_CRAWL_MAX_PAGES 等环境变量覆盖配置文件
	v.SetEnvPrefix("tourcheck")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}

// setDefaults 以各模块的默认值作为配置默认值
func setDefaults(v *viper.Viper) {
	crawl := models.DefaultCrawlConfig()
	v.SetDefault("crawl.max_pages", crawl.MaxPages)
	v.SetDefault("crawl.page_delay", crawl.PageDelay)
	v.SetDefault("crawl.property_delay", crawl.PropertyDelay)
	v.SetDefault("crawl.fetch_timeout", crawl.FetchTimeout)
	v.SetDefault("crawl.resolve_timeout", crawl.ResolveTimeout)
	v.SetDefault("crawl.render_wait", crawl.RenderWait)
	v.SetDefault("crawl.settle_wait", crawl.SettleWait)
	v.SetDefault("crawl.use_browser", crawl.UseBrowser)
	v.SetDefault("crawl.render_pages", crawl.RenderPages)
	v.SetDefault("crawl.headless", crawl.Headless)
	v.SetDefault("crawl.resume", crawl.Resume)
	v.SetDefault("crawl.skip_extensions", crawl.SkipExtensions)
	v.SetDefault("crawl.memory_floor_mb", crawl.MemoryFloorMB)

	detection := models.DefaultDetectionConfig()
	v.SetDefault("detection.platform_domains", detection.PlatformDomains)
	v.SetDefault("detection.client_redirect_domains", detection.ClientRedirectDomains)
	v.SetDefault("detection.tour_phrases", detection.TourPhrases)
	v.SetDefault("detection.container_tokens", detection.ContainerTokens)

	blocking := models.DefaultBlockConfig()
	v.SetDefault("blocking.max_size", blocking.MaxSize)
	v.SetDefault("blocking.tiny_size", blocking.TinySize)
	v.SetDefault("blocking.indicators", blocking.Indicators)
	v.SetDefault("blocking.structural_markers", blocking.StructuralMarkers)

	classify := models.DefaultClassifyConfig()
	v.SetDefault("classify.media_segment", classify.MediaSegment)
	v.SetDefault("classify.media_id_min_digits", classify.MediaIDMinDigits)
	v.SetDefault("classify.media_id_max_digits", classify.MediaIDMaxDigits)
	v.SetDefault("classify.all_assets_segment", classify.AllAssetsSegment)
	v.SetDefault("classify.asset_param", classify.AssetParam)
	v.SetDefault("classify.pre_redirect_domains", classify.PreRedirectDomains)

	logging := utils.DefaultLogConfig()
	v.SetDefault("logging.level", logging.Level)
	v.SetDefault("logging.log_dir", logging.LogDir)
	v.SetDefault("logging.rotation.max_size", logging.MaxSize)
	v.SetDefault("logging.rotation.max_backups", logging.MaxBackups)
	v.SetDefault("logging.rotation.max_age", logging.MaxAge)
	v.SetDefault("logging.rotation.compress", logging.Compress)

	v.SetDefault("output.base_dir", "output")
	v.SetDefault("output.sink", "")
	v.SetDefault("output.sink_sheet", "Results")
	v.SetDefault("output.metrics_file", "")
	v.SetDefault("output.header_file", "configs/headers.yaml")
}

// Validate 校验各配置段
func (c *Config) Validate() error {
	if err := c.Crawl.Validate(); err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	if err := c.Classify.Validate(); err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	if len(c.Detection.PlatformDomains) == 0 {
		return fmt.Errorf("detection: 巡览平台域名不能为空")
	}
	if c.Blocking.TinySize > c.Blocking.MaxSize {
		return fmt.Errorf("blocking: tiny_size 不能大于 max_size")
	}
	return nil
}

// LogConfig 转换为日志系统配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// CLIOverrides 命令行参数,仅在显式设置时覆盖配置文件
type CLIOverrides struct {
	MaxPages   *int
	Sink       *string
	OutputDir  *string
	Resume     bool
	NoBrowser  bool
	Render     *bool
	LogLevel   *string
	PageDelay  *time.Duration
	HeaderFile *string
}

// MergeCLIFlags 合并命令行参数到配置
func (c *Config) MergeCLIFlags(o CLIOverrides) {
	if o.MaxPages != nil {
		c.Crawl.MaxPages = *o.MaxPages
	}
	if o.Sink != nil {
		c.Output.Sink = *o.Sink
	}
	if o.OutputDir != nil {
		c.Output.BaseDir = *o.OutputDir
	}
	if o.Resume {
		c.Crawl.Resume = true
	}
	if o.NoBrowser {
		c.Crawl.UseBrowser = false
	}
	if o.Render != nil {
		c.Crawl.RenderPages = *o.Render
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if o.PageDelay != nil {
		c.Crawl.PageDelay = *o.PageDelay
	}
	if o.HeaderFile != nil {
		c.Output.HeaderFile = *o.HeaderFile
	}
}
