package core

import (
	"net/http"

	"github.com/RecoveryAshes/tourcheck/internal/config"
	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
)

// DefaultUserAgent 默认User-Agent,使用常见桌面浏览器标识以降低被拦截概率
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/126.0.0.0 Safari/537.36"

// HeaderManager 合并三层请求头: 默认 < 配置文件 < 命令行
// 创建时完成加载和校验,之后只读,实现 models.HeaderProvider
type HeaderManager struct {
	defaults http.Header
	file     http.Header
	cli      http.Header
	merged   http.Header
}

// DefaultHeaders 内置默认头部
func DefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      {DefaultUserAgent},
		"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": {"en-US,en;q=0.9"},
		"Accept-Encoding": {"gzip, deflate, br"},
	}
}

// NewHeaderManager 加载头部配置文件并解析命令行头部
func NewHeaderManager(headerFile string, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	file, err := config.LoadHeaderFile(headerFile)
	if err != nil {
		utils.Errorf("加载HTTP头部配置失败: %v", err)
		return nil, err
	}

	hm := &HeaderManager{
		defaults: DefaultHeaders(),
		file:     file,
		cli:      cli,
	}
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	hm.merged = hm.merge()

	utils.Debugf("HTTP头部: %v", utils.RedactHeaders(hm.merged))
	return hm, nil
}

// Validate 依次校验配置文件头部和命令行头部
func (hm *HeaderManager) Validate() error {
	if err := utils.CheckHeaders(hm.file); err != nil {
		utils.Errorf("配置文件头部验证失败: %v", err)
		return err
	}
	if err := utils.CheckHeaders(hm.cli); err != nil {
		utils.Errorf("命令行头部验证失败: %v", err)
		return err
	}
	return nil
}

func (hm *HeaderManager) merge() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.file, hm.cli} {
		for name, values := range layer {
			result[http.CanonicalHeaderKey(name)] = values
		}
	}
	return result
}

// GetHeaders 实现 models.HeaderProvider,返回副本
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	return hm.merged.Clone(), nil
}

// SafeHeaders 脱敏后的合并头部 (用于日志和配置检查输出)
func (hm *HeaderManager) SafeHeaders() []string {
	return utils.RedactHeaders(hm.merged)
}
