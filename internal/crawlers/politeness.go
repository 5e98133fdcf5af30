package crawlers

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Politeness 页面抓取之间的固定间隔
// delay<=0 时不等待(测试中使用)
type Politeness struct {
	limiter *rate.Limiter
}

// NewPoliteness 创建礼貌延迟控制
func NewPoliteness(delay time.Duration) *Politeness {
	if delay <= 0 {
		return &Politeness{}
	}
	return &Politeness{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait 阻塞到允许下一次抓取
func (p *Politeness) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
