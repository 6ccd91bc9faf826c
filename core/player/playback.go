package player

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"MuPocket/core/source"
	"MuPocket/engine"
	"MuPocket/logger"
	"MuPocket/model"
	"MuPocket/persist"
)

// ErrLocalFileMissing 本地文件已不存在，需要删除后重新缓存或导入
var ErrLocalFileMissing = errors.New("本地文件不存在")

func containsAny(text string, subs ...string) bool {
	lower := strings.ToLower(text)
	for _, s := range subs {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Play 播放指定歌曲，传nil时播放当前曲目
// 目标已是当前曲目且引擎槽位0持有其音源时直接复用，不重新解析：
// forcePlay 时回到开头重播，否则仅在未播放时恢复。
// 歌曲不在播放列表时先加入列表；解析期间发生切歌则放弃本次结果
func (c *Controller) Play(ctx context.Context, item *model.MusicItem, forcePlay bool) error {
	return c.play(ctx, item, forcePlay, true)
}

func (c *Controller) play(ctx context.Context, item *model.MusicItem, forcePlay, allowReuse bool) error {
	c.lock()
	if item == nil {
		item = c.CurrentMusic.Get()
	}
	if item == nil {
		c.unlock()
		return nil
	}

	if allowReuse {
		if current := c.CurrentMusic.Get(); current != nil && model.SameMediaItem(current, item) {
			if slot0, err := c.eng.TrackAt(0); err == nil && slot0 != nil &&
				slot0.URL != "" && model.SameMediaItem(slot0, item) {
				c.unlock()
				return c.resumeLoadedSource(forcePlay)
			}
		}
	}

	idx := model.IndexOf(c.playList, item)
	if idx < 0 {
		c.appendToPlayListLocked(*item)
		idx = model.IndexOf(c.playList, item)
		if err := c.persistPlayListLocked(ctx); err != nil {
			c.unlock()
			return err
		}
	}
	c.currentIndex = idx
	track := c.playList[idx]
	current := track
	c.CurrentMusic.Set(&current)
	c.epoch++
	myEpoch := c.epoch
	if err := c.store.Set(ctx, persist.KeyMusicItem, &current); err != nil {
		logger.Warn("持久化当前曲目失败", logger.ErrorField(err))
	}
	c.unlock()

	// 解析可能耗时多秒，在锁外进行
	url, err := c.resolvePlayableURL(ctx, &track)
	if err != nil {
		if err == source.ErrNoSourceConfigured || err == ErrLocalFileMissing {
			return err
		}
		// 所有音质档位失败时用占位音频顶替，让队列继续滚动
		logger.Warn("歌曲无可用音源，使用占位音频",
			logger.String("title", track.Title),
			logger.ErrorField(err))
		url = model.FakeAudioURL
	}

	c.lock()
	if c.epoch != myEpoch {
		c.unlock()
		logger.Debug("解析期间已切歌，丢弃过期结果", logger.String("title", track.Title))
		return nil
	}
	track.URL = url
	resolved := track
	c.CurrentMusic.Set(&resolved)
	fake := c.fakeNextTrackLocked()
	playErr := c.withInit(func() error {
		return c.eng.SetQueue([]model.MusicItem{track, fake})
	})
	if playErr == nil {
		playErr = c.withInit(c.eng.Play)
	}
	c.unlock()
	if playErr != nil {
		return playErr
	}

	go c.refreshLyric(&track, myEpoch)
	return nil
}

// resumeLoadedSource 引擎槽位0已持有当前曲目音源时的复用路径
// 不触碰播放队列，也不重新解析
func (c *Controller) resumeLoadedSource(forcePlay bool) error {
	if idx, err := c.eng.ActiveTrackIndex(); err == nil && idx != 0 {
		if err := c.withInit(func() error { return c.eng.Skip(0) }); err != nil {
			return err
		}
	}
	if forcePlay {
		if err := c.withInit(func() error { return c.eng.SeekTo(0) }); err != nil {
			return err
		}
	}
	if s, err := c.eng.PlaybackState(); err == nil && s == engine.StatePlaying {
		return nil
	}
	return c.withInit(c.eng.Play)
}

// resolvePlayableURL 确定歌曲的播放地址
// 优先级：本地文件 > 本地缓存 > 导入记录 > 在线解析
func (c *Controller) resolvePlayableURL(ctx context.Context, track *model.MusicItem) (string, error) {
	if track.IsLocalFile() {
		if _, err := os.Stat(strings.TrimPrefix(track.URL, "file://")); err != nil {
			logger.Error("本地文件不存在", logger.String("url", track.URL))
			return "", ErrLocalFileMissing
		}
		return track.URL, nil
	}

	quality := c.resolver.Quality.Get()
	if path, ok := c.cache.IsCached(track, quality); ok {
		logger.Debug("命中本地缓存", logger.String("title", track.Title), logger.String("path", path))
		return "file://" + path, nil
	}

	if imported := c.lib.FindImportedByID(track.ID); imported != nil && imported.IsLocalFile() {
		return imported.URL, nil
	}

	url, _, err := c.resolver.Resolve(ctx, track)
	if err != nil {
		return "", err
	}
	return url, nil
}

// fakeNextTrackLocked 构造槽位1的占位曲目
// 占位曲目的元数据取下一首，让系统媒体中心展示正确的"下一首"信息
func (c *Controller) fakeNextTrackLocked() model.MusicItem {
	fake := model.MusicItem{
		ID:          model.InternalFakeSoundKey,
		Platform:    "internal",
		URL:         model.FakeAudioURL,
		InternalKey: model.InternalFakeSoundKey,
	}
	if next := c.nextMusicLocked(); next != nil {
		fake.Title = next.Title
		fake.Artist = next.Artist
		fake.Album = next.Album
		fake.Artwork = next.Artwork
	}
	return fake
}

// refreshFakeNextLocked 播放列表或模式变化后刷新槽位1的元数据
func (c *Controller) refreshFakeNextLocked() {
	if c.CurrentMusic.Get() == nil {
		return
	}
	fake := c.fakeNextTrackLocked()
	if err := c.withInit(func() error {
		return c.eng.UpdateMetadataForTrack(1, fake)
	}); err != nil {
		logger.Warn("刷新占位曲目元数据失败", logger.ErrorField(err))
	}
}

// refreshLyric 拉取歌词，切歌后丢弃过期结果
func (c *Controller) refreshLyric(track *model.MusicItem, epoch int64) {
	ctx, cancel := context.WithTimeout(context.Background(), lyricTimeout)
	defer cancel()
	lyric, err := c.resolver.GetLyric(ctx, track)
	if err != nil {
		logger.Debug("歌词获取失败", logger.String("title", track.Title), logger.ErrorField(err))
		return
	}

	c.lock()
	defer c.unlock()
	if c.epoch != epoch {
		return
	}
	c.Lyric.Set(lyric)
}

// Pause 暂停播放
func (c *Controller) Pause() error {
	return c.withInit(c.eng.Pause)
}

// Resume 恢复播放，不重新解析
func (c *Controller) Resume() error {
	return c.withInit(c.eng.Play)
}

// SeekTo 跳转进度并持久化
func (c *Controller) SeekTo(ctx context.Context, position float64) error {
	if err := c.withInit(func() error { return c.eng.SeekTo(position) }); err != nil {
		return err
	}
	return c.store.Set(ctx, persist.KeyProgress, position)
}

// SkipToNext 切到下一首，列表为空时清空当前曲目
func (c *Controller) SkipToNext(ctx context.Context) error {
	c.lock()
	if len(c.playList) == 0 {
		c.clearCurrentLocked(ctx)
		c.unlock()
		return nil
	}
	next := c.nextMusicLocked()
	c.unlock()
	if next == nil {
		return nil
	}
	return c.Play(ctx, next, true)
}

// SkipToPrevious 切到上一首，列表为空时清空当前曲目
func (c *Controller) SkipToPrevious(ctx context.Context) error {
	c.lock()
	if len(c.playList) == 0 {
		c.clearCurrentLocked(ctx)
		c.unlock()
		return nil
	}
	prev := c.previousMusicLocked()
	c.unlock()
	if prev == nil {
		return nil
	}
	return c.Play(ctx, prev, true)
}

// clearCurrentLocked 清空当前曲目并作废在途的解析
func (c *Controller) clearCurrentLocked(ctx context.Context) {
	c.CurrentMusic.Set(nil)
	c.currentIndex = -1
	c.epoch++
	if err := c.store.Delete(ctx, persist.KeyMusicItem); err != nil {
		logger.Warn("清除当前曲目持久化失败", logger.ErrorField(err))
	}
}

// ChangeQuality 切换音质
// 在线播放中的歌曲按新音质重新解析并重新入队
func (c *Controller) ChangeQuality(ctx context.Context, quality model.Quality) error {
	if err := c.resolver.SetQuality(ctx, quality); err != nil {
		return err
	}
	logger.Info("音质已切换", logger.String("quality", string(quality)))

	c.lock()
	current := c.CurrentMusic.Get()
	c.unlock()
	if current == nil || current.IsLocalFile() {
		return nil
	}
	// 清掉旧地址强制重新解析，不走槽位复用
	replay := *current
	replay.URL = ""
	return c.play(ctx, &replay, true, false)
}

// PlayWithReplacePlayList 整体替换播放列表并播放指定歌曲
func (c *Controller) PlayWithReplacePlayList(ctx context.Context, item model.MusicItem, list []model.MusicItem) error {
	c.lock()
	now := time.Now().UnixMilli()
	stamped := make([]model.MusicItem, len(list))
	for i, it := range list {
		it.TimeStamp = now
		it.SortIndex = i
		stamped[i] = it
	}
	if c.RepeatMode.Get() == model.RepeatShuffle {
		shuffleInPlace(stamped)
	}
	c.setPlayListLocked(stamped)
	c.currentIndex = model.IndexOf(c.playList, c.CurrentMusic.Get())
	if err := c.persistPlayListLocked(ctx); err != nil {
		c.unlock()
		return err
	}
	c.unlock()
	return c.Play(ctx, &item, true)
}
