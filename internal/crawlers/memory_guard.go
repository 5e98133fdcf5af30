package crawlers

import (
	"sync"
	"time"

	"github.com/RecoveryAshes/tourcheck/internal/utils"
	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryGuard 系统可用内存检查
// 长时间爬取中浏览器标签页会持续占用内存,可用内存低于下限时提示回收标签页
type MemoryGuard struct {
	floor    uint64 // 可用内存下限(字节),0表示禁用
	interval time.Duration

	mu        sync.Mutex
	lastCheck time.Time
	lastAvail uint64

	// 便于测试替换
	readMemory func() (*mem.VirtualMemoryStat, error)
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	TotalMemory     uint64 // 系统总内存(字节)
	AvailableMemory uint64 // 可用内存(字节)
	Floor           uint64 // 下限(字节)
	MemoryPressure  string // normal / low
}

// NewMemoryGuard 创建内存检查器,floorMB<=0时禁用
func NewMemoryGuard(floorMB int) *MemoryGuard {
	var floor uint64
	if floorMB > 0 {
		floor = uint64(floorMB) * 1024 * 1024
	}
	return &MemoryGuard{
		floor:      floor,
		interval:   5 * time.Second,
		readMemory: mem.VirtualMemory,
	}
}

// UnderPressure 可用内存是否低于下限,结果按interval缓存
func (g *MemoryGuard) UnderPressure() bool {
	if g == nil || g.floor == 0 {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastCheck.IsZero() && time.Since(g.lastCheck) < g.interval {
		return g.lastAvail < g.floor
	}

	vm, err := g.readMemory()
	if err != nil {
		utils.Warnf("获取系统内存失败: %v", err)
		return false
	}
	g.lastCheck = time.Now()
	g.lastAvail = vm.Available

	if vm.Available < g.floor {
		utils.Warnf("可用内存不足(当前%dMB,下限%dMB)", vm.Available/(1024*1024), g.floor/(1024*1024))
		return true
	}
	return false
}

// Status 返回当前内存状态
func (g *MemoryGuard) Status() MemoryStatus {
	status := MemoryStatus{MemoryPressure: "normal"}
	if g == nil {
		return status
	}
	status.Floor = g.floor

	vm, err := g.readMemory()
	if err != nil {
		return status
	}
	status.TotalMemory = vm.Total
	status.AvailableMemory = vm.Available
	if g.floor > 0 && vm.Available < g.floor {
		status.MemoryPressure = "low"
	}
	return status
}
