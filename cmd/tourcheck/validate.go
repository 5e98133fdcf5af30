package main

import (
	"fmt"

	"github.com/RecoveryAshes/tourcheck/internal/config"
	"github.com/RecoveryAshes/tourcheck/internal/core"
	"github.com/RecoveryAshes/tourcheck/internal/models"
	"github.com/RecoveryAshes/tourcheck/internal/utils"
)

// ValidateFlags 验证命令行参数
func ValidateFlags(targetURL, propertyFile string, maxPages int) error {
	if targetURL != "" && propertyFile != "" {
		return fmt.Errorf("--url 与 --file 不能同时使用")
	}

	if targetURL != "" {
		if err := models.ValidateURL(targetURL); err != nil {
			return fmt.Errorf("无效的物业URL: %w", err)
		}
	}

	if maxPages < 0 {
		return fmt.Errorf("页面数不能为负数,当前值: %d", maxPages)
	}

	return nil
}

// runValidateConfig 检查配置文件与HTTP头部并输出生效值
// 头部配置文件不存在时生成模板
func runValidateConfig(headerManager *core.HeaderManager) error {
	utils.Info("🔍 验证配置...")

	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}
	if err := config.WriteHeaderTemplate(appConfig.Output.HeaderFile); err != nil {
		utils.Warnf("生成头部配置模板失败: %v", err)
	}
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("HTTP头部验证失败: %w", err)
	}

	utils.Info("✅ 配置验证通过!")
	utils.Infof("每个物业最多 %d 页, 页面延迟 %s, 浏览器 %v (渲染 %v)",
		appConfig.Crawl.MaxPages, appConfig.Crawl.PageDelay, appConfig.Crawl.UseBrowser, appConfig.Crawl.RenderPages)
	utils.Infof("巡览平台: %v", appConfig.Detection.PlatformDomains)

	safeHeaders := headerManager.SafeHeaders()
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
	for _, line := range safeHeaders {
		utils.Infof("  %s", line)
	}
	return nil
}
