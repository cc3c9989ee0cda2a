package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/guestbook/internal/model"
)

func TestCachePoller_PollOnce(t *testing.T) {
	c, _ := setupCache(t, 3)
	repo := setupRepo(t)
	p := NewCachePoller(repo, c, time.Minute)
	ctx := context.Background()

	for _, n := range []string{"a", "b"} {
		_, err := repo.Append(ctx, n, "hi")
		require.NoError(t, err)
	}

	// 冷启动：整体重建
	n, err := p.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	last, err := c.LastID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), last)

	// 其他进程写入
	for _, n := range []string{"c", "d"} {
		_, err := repo.Append(ctx, n, "hi")
		require.NoError(t, err)
	}
	n, err = p.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, ok, err := c.Recent(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 3)
	assert.Equal(t, "d", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
	assert.Equal(t, "b", got[2].Name)

	n, err = p.PollOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCachePoller_RepairsSkippedEntry(t *testing.T) {
	c, _ := setupCache(t, 10)
	repo := setupRepo(t)
	p := NewCachePoller(repo, c, time.Minute)
	ctx := context.Background()

	var entries []*model.Entry
	for _, n := range []string{"a", "b", "c"} {
		e, err := repo.Append(ctx, n, "hi")
		require.NoError(t, err)
		entries = append(entries, e)
	}

	// 并发提交时 id 3 先于 id 2 写入缓存，id 2 被水位跳过
	_, err := c.Push(ctx, entries[0])
	require.NoError(t, err)
	_, err = c.Push(ctx, entries[2])
	require.NoError(t, err)
	_, err = c.Push(ctx, entries[1])
	require.NoError(t, err)
	got, err := c.IDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 1}, got)

	n, err := p.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err = c.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 2, 1}, got)
}

func TestCachePoller_StartStop(t *testing.T) {
	c, _ := setupCache(t, 10)
	repo := setupRepo(t)
	p := NewCachePoller(repo, c, 10*time.Millisecond)
	ctx := context.Background()

	_, err := repo.Append(ctx, "Alice", "Hello!")
	require.NoError(t, err)

	stop := p.Start()
	assert.Eventually(t, func() bool {
		last, err := c.LastID(ctx)
		return err == nil && last == 1
	}, time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, stop(stopCtx))
}
