package player

import (
	"context"
	"time"

	"MuPocket/logger"
	"MuPocket/model"
	"MuPocket/persist"
)

// SetAutoCacheLocal 设置播放时自动缓存开关
func (c *Controller) SetAutoCacheLocal(ctx context.Context, enabled bool) error {
	c.AutoCacheLocal.Set(enabled)
	return c.store.Set(ctx, persist.KeyAutoCacheLocal, enabled)
}

// SetIsCachedIconVisible 设置缓存角标开关
func (c *Controller) SetIsCachedIconVisible(ctx context.Context, visible bool) error {
	c.IsCachedIconVisible.Set(visible)
	return c.store.Set(ctx, persist.KeyIsCachedIconShown, visible)
}

// SetSongsNumsToLoad 设置在线歌单单次加载数量
func (c *Controller) SetSongsNumsToLoad(ctx context.Context, n int) error {
	if n <= 0 {
		n = 100
	}
	c.SongsNumsToLoad.Set(n)
	return c.store.Set(ctx, persist.KeySongsNumsToLoad, n)
}

// scheduleAutoCacheLocked 播放进入稳定状态后调度自动缓存
// 短时间内连续切歌只缓存最终停留的那首
func (c *Controller) scheduleAutoCacheLocked() {
	if c.queue == nil || !c.AutoCacheLocal.Get() {
		return
	}
	current := c.CurrentMusic.Get()
	if current == nil || current.IsLocalFile() || current.InternalKey != "" {
		return
	}
	if _, cached := c.cache.IsCached(current, c.resolver.Quality.Get()); cached {
		return
	}

	if c.autoCacheTimer != nil {
		c.autoCacheTimer.Stop()
	}
	track := *current
	epoch := c.epoch
	c.autoCacheTimer = time.AfterFunc(c.autoCacheWait, func() {
		c.autoCacheTrack(track, epoch)
	})
}

// autoCacheTrack 把当前曲目投递进下载队列
// 走队列统一受并发上限和暂停开关约束，完成后由队列登记导入
func (c *Controller) autoCacheTrack(track model.MusicItem, epoch int64) {
	c.lock()
	stale := c.epoch != epoch
	c.unlock()
	if stale || track.IsLocalFile() || track.InternalKey != "" {
		return
	}

	c.queue.AddToQueue(model.OriginAuto, track)
	logger.Debug("当前曲目加入自动缓存队列", logger.String("title", track.Title))
}

// ClearCache 清空缓存目录并剔除指向缓存的导入条目
func (c *Controller) ClearCache(ctx context.Context) error {
	if err := c.cache.ClearCache(); err != nil {
		return err
	}
	return c.lib.PruneByPathPrefix(ctx, c.cache.CachePrefix())
}
