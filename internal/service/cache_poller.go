package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/guestbook/internal/cache"
	"github.com/d60-Lab/guestbook/internal/repository"
	"github.com/d60-Lab/guestbook/pkg/logger"
)

// CachePoller 定期把数据库中新增的留言同步进缓存（包括其他进程写入的）
type CachePoller struct {
	repo     repository.EntryRepository
	cache    *cache.RecentEntries
	interval time.Duration
	timeout  time.Duration
}

func NewCachePoller(repo repository.EntryRepository, c *cache.RecentEntries, interval time.Duration) *CachePoller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &CachePoller{repo: repo, cache: c, interval: interval, timeout: 5 * time.Second}
}

// Warm 用最新的 N 条覆盖缓存
func (p *CachePoller) Warm(ctx context.Context) error {
	entries, err := p.repo.ListRecent(ctx, p.cache.Size())
	if err != nil {
		return err
	}
	return p.cache.Replace(ctx, entries)
}

// PollOnce 用最新的 N 条校正缓存；返回新进入缓存的条数。
// 并发写入可能让缓存漏掉较小的 id，这里按 id 集合比对后整体替换来补齐
func (p *CachePoller) PollOnce(ctx context.Context) (int, error) {
	cached, err := p.cache.IDs(ctx)
	if err != nil {
		return 0, err
	}
	latest, err := p.repo.ListRecent(ctx, p.cache.Size())
	if err != nil {
		return 0, err
	}

	seen := make(map[uint64]struct{}, len(cached))
	for _, id := range cached {
		seen[id] = struct{}{}
	}
	added := 0
	for _, e := range latest {
		if _, ok := seen[e.ID]; !ok {
			added++
		}
	}
	if added == 0 && len(latest) == len(cached) {
		return 0, nil
	}
	if err := p.cache.Replace(ctx, latest); err != nil {
		return 0, err
	}
	return added, nil
}

// Start 启动轮询；返回停止函数
func (p *CachePoller) Start() func(context.Context) error {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
				n, err := p.PollOnce(ctx)
				cancel()
				if err != nil {
					logger.Warn("cache poll failed", logger.Err(err))
					continue
				}
				if n > 0 {
					logger.Debug("cache poll picked up entries", zap.Int("count", n))
				}
			}
		}
	}()
	return func(ctx context.Context) error {
		close(stop)
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
