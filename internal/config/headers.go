package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"syscall"

	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultHeaderFile 默认头部配置文件
	DefaultHeaderFile = "configs/headers.yaml"

	// MaxHeaderFileSize 头部配置文件最大大小 (1MB)
	MaxHeaderFileSize = 1 * 1024 * 1024
)

//go:embed headers_template.yaml
var headerTemplate string

// HeaderTemplate 头部配置模板内容
func HeaderTemplate() string {
	return headerTemplate
}

// WriteHeaderTemplate 在path不存在时写入模板
func WriteHeaderTemplate(path string) error {
	if path == "" {
		path = DefaultHeaderFile
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("无法读取头部配置 [%s]: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("无法创建配置目录: %w", err)
	}
	if err := os.WriteFile(path, []byte(headerTemplate), 0644); err != nil {
		return fmt.Errorf("无法生成头部配置 [%s]: %w", path, err)
	}
	utils.Infof("已生成头部配置模板: %s", path)
	return nil
}

// LoadHeaderFile 读取头部配置文件
// 文件不存在或被其他进程锁定时返回空头部
func LoadHeaderFile(path string) (http.Header, error) {
	if path == "" {
		path = DefaultHeaderFile
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		utils.Debugf("头部配置不存在,仅使用默认头部: %s", path)
		return make(http.Header), nil
	}
	if err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: err}
	}
	if info.Size() > MaxHeaderFileSize {
		return nil, &models.ConfigError{
			FilePath: path,
			Cause:    fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)", info.Size(), MaxHeaderFileSize),
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			utils.Warnf("头部配置被锁定 [%s], 仅使用默认头部", path)
			return make(http.Header), nil
		}
		return nil, &models.ConfigError{FilePath: path, Cause: err}
	}

	var cfg models.HeaderConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: fmt.Errorf("配置绑定失败: %w", err)}
	}

	headers := make(http.Header, len(cfg.Headers))
	for name, value := range cfg.Headers {
		headers.Set(name, value)
	}
	return headers, nil
}
