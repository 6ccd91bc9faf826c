package player

import (
	"context"
	"math/rand"
	"time"

	"MuPocket/engine"
	"MuPocket/logger"
	"MuPocket/model"
	"MuPocket/persist"
)

// setPlayListLocked 更新逻辑播放列表并发布快照
func (c *Controller) setPlayListLocked(list []model.MusicItem) {
	c.playList = list
	snapshot := make([]model.MusicItem, len(list))
	copy(snapshot, list)
	c.PlayListSnapshot.Set(snapshot)
}

func (c *Controller) persistPlayListLocked(ctx context.Context) error {
	return c.store.Set(ctx, persist.KeyPlayList, c.playList)
}

// appendToPlayListLocked 将歌曲追加到列表末尾并打上排序标记
func (c *Controller) appendToPlayListLocked(item model.MusicItem) {
	item.TimeStamp = time.Now().UnixMilli()
	item.SortIndex = 0
	c.setPlayListLocked(append(c.playList, item))
}

// AddAll 将歌曲批量追加到播放列表末尾，已在列表中的歌曲跳过
func (c *Controller) AddAll(ctx context.Context, items []model.MusicItem) error {
	return c.AddAllAt(ctx, items, -1, false)
}

// AddAllAt 将歌曲批量加入播放列表
// beforeIndex 为负时追加到末尾并过滤已有歌曲；
// 否则插入到该下标处，旧位置上的重复歌曲先被移除；
// shouldShuffle 为真时打乱合并后的列表
func (c *Controller) AddAllAt(ctx context.Context, items []model.MusicItem, beforeIndex int, shouldShuffle bool) error {
	c.lock()
	defer c.unlock()

	now := time.Now().UnixMilli()
	batch := make([]model.MusicItem, 0, len(items))
	for i, item := range items {
		item.TimeStamp = now
		item.SortIndex = i
		if model.IndexOf(batch, &item) >= 0 {
			continue
		}
		batch = append(batch, item)
	}

	var list []model.MusicItem
	if beforeIndex < 0 {
		list = make([]model.MusicItem, 0, len(c.playList)+len(batch))
		list = append(list, c.playList...)
		for i := range batch {
			if model.IndexOf(c.playList, &batch[i]) < 0 {
				list = append(list, batch[i])
			}
		}
	} else {
		if beforeIndex > len(c.playList) {
			beforeIndex = len(c.playList)
		}
		list = make([]model.MusicItem, 0, len(c.playList)+len(batch))
		for i, existing := range c.playList {
			if i == beforeIndex {
				list = append(list, batch...)
			}
			if model.IndexOf(batch, &existing) >= 0 {
				continue
			}
			list = append(list, existing)
		}
		if beforeIndex >= len(c.playList) {
			list = append(list, batch...)
		}
	}

	if shouldShuffle {
		shuffleInPlace(list)
	}
	c.setPlayListLocked(list)
	c.currentIndex = model.IndexOf(c.playList, c.CurrentMusic.Get())
	if err := c.persistPlayListLocked(ctx); err != nil {
		return err
	}
	c.refreshFakeNextLocked()
	return nil
}

// Add 追加单曲到列表末尾，已存在时跳过
func (c *Controller) Add(ctx context.Context, item model.MusicItem) error {
	c.lock()
	defer c.unlock()

	if model.IndexOf(c.playList, &item) >= 0 {
		return nil
	}
	c.appendToPlayListLocked(item)
	if err := c.persistPlayListLocked(ctx); err != nil {
		return err
	}
	c.refreshFakeNextLocked()
	return nil
}

// AddAsNextTrack 将歌曲插入到当前曲目之后
// 歌曲已在列表时先移除原有位置；列表原本为空时直接开始播放
func (c *Controller) AddAsNextTrack(ctx context.Context, item model.MusicItem) error {
	c.lock()
	wasEmpty := len(c.playList) == 0
	insertAt := c.currentIndex + 1
	c.unlock()

	if err := c.AddAllAt(ctx, []model.MusicItem{item}, insertAt, false); err != nil {
		return err
	}
	if wasEmpty {
		return c.Play(ctx, &item, false)
	}
	return nil
}

// Remove 从播放列表移除歌曲
// 移除的是当前曲目时，新当前曲目取原下标对新长度取模的位置；
// 正在播放时自动播放新当前曲目，否则只更新状态
func (c *Controller) Remove(ctx context.Context, item *model.MusicItem) error {
	c.lock()

	idx := model.IndexOf(c.playList, item)
	if idx < 0 {
		c.unlock()
		return nil
	}

	list := make([]model.MusicItem, 0, len(c.playList)-1)
	list = append(list, c.playList[:idx]...)
	list = append(list, c.playList[idx+1:]...)

	if len(list) == 0 {
		c.unlock()
		return c.Clear(ctx)
	}

	current := c.CurrentMusic.Get()
	removedCurrent := model.SameMediaItem(current, item)
	c.setPlayListLocked(list)
	if err := c.persistPlayListLocked(ctx); err != nil {
		c.unlock()
		return err
	}

	if !removedCurrent {
		c.currentIndex = model.IndexOf(c.playList, current)
		c.refreshFakeNextLocked()
		c.unlock()
		return nil
	}

	newIndex := idx % len(list)
	next := list[newIndex]
	c.currentIndex = newIndex
	wasPlaying := false
	if s, err := c.eng.PlaybackState(); err == nil {
		wasPlaying = s == engine.StatePlaying
	}
	c.unlock()

	if wasPlaying {
		return c.Play(ctx, &next, true)
	}

	c.lock()
	cur := next
	c.CurrentMusic.Set(&cur)
	c.epoch++
	if err := c.store.Set(ctx, persist.KeyMusicItem, &cur); err != nil {
		logger.Warn("持久化当前曲目失败", logger.ErrorField(err))
	}
	// 未在播放时只更新状态，但要把被移除曲目的音频从引擎里撤下来
	if err := c.withInit(c.eng.Reset); err != nil {
		logger.Warn("引擎复位失败", logger.ErrorField(err))
	}
	c.unlock()
	return nil
}

// Clear 停止播放并清空所有播放状态
func (c *Controller) Clear(ctx context.Context) error {
	c.lock()
	defer c.unlock()

	if err := c.withInit(c.eng.Reset); err != nil {
		logger.Warn("引擎复位失败", logger.ErrorField(err))
	}
	c.setPlayListLocked(nil)
	c.currentIndex = -1
	c.epoch++
	c.CurrentMusic.Set(nil)
	c.Lyric.Set("")

	for _, key := range []string{persist.KeyPlayList, persist.KeyMusicItem, persist.KeyProgress} {
		if err := c.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	logger.Info("播放列表已清空")
	return nil
}

// ClearToBePlayed 清空待播歌曲，只保留当前曲目
func (c *Controller) ClearToBePlayed(ctx context.Context) error {
	c.lock()
	defer c.unlock()

	current := c.CurrentMusic.Get()
	if current == nil {
		c.setPlayListLocked(nil)
		c.currentIndex = -1
	} else {
		c.setPlayListLocked([]model.MusicItem{*current})
		c.currentIndex = 0
	}
	if err := c.persistPlayListLocked(ctx); err != nil {
		return err
	}
	c.refreshFakeNextLocked()
	return nil
}

// SetRepeatMode 设置播放模式
// 只在跨越随机播放边界时重排：进入时打乱列表，
// 退出时按时间戳和批次下标恢复原始顺序；其余切换保持现有顺序
func (c *Controller) SetRepeatMode(ctx context.Context, mode model.RepeatMode) error {
	c.lock()
	defer c.unlock()

	prev := c.RepeatMode.Get()
	c.RepeatMode.Set(mode)
	if err := c.store.Set(ctx, persist.KeyRepeatMode, mode); err != nil {
		return err
	}

	switch {
	case mode == model.RepeatShuffle && prev != model.RepeatShuffle:
		shuffled := make([]model.MusicItem, len(c.playList))
		copy(shuffled, c.playList)
		shuffleInPlace(shuffled)
		c.setPlayListLocked(shuffled)
	case prev == model.RepeatShuffle && mode != model.RepeatShuffle:
		c.setPlayListLocked(model.SortByTimestampAndIndex(c.playList))
	}
	c.currentIndex = model.IndexOf(c.playList, c.CurrentMusic.Get())
	if err := c.persistPlayListLocked(ctx); err != nil {
		return err
	}
	c.refreshFakeNextLocked()

	logger.Info("播放模式已切换", logger.String("mode", string(mode)))
	return nil
}

// ToggleRepeatMode 循环切换播放模式
func (c *Controller) ToggleRepeatMode(ctx context.Context) (model.RepeatMode, error) {
	next := model.NextRepeatMode(c.RepeatMode.Get())
	return next, c.SetRepeatMode(ctx, next)
}

// nextMusicLocked 计算下一首，单曲循环返回当前曲目
func (c *Controller) nextMusicLocked() *model.MusicItem {
	current := c.CurrentMusic.Get()
	if len(c.playList) == 0 || current == nil {
		return current
	}
	if c.RepeatMode.Get() == model.RepeatSingle {
		return current
	}
	idx := model.IndexOf(c.playList, current)
	if idx < 0 {
		idx = c.currentIndex
	}
	if idx < 0 {
		idx = 0
	}
	next := c.playList[(idx+1)%len(c.playList)]
	return &next
}

// previousMusicLocked 计算上一首，单曲循环返回当前曲目
func (c *Controller) previousMusicLocked() *model.MusicItem {
	current := c.CurrentMusic.Get()
	if len(c.playList) == 0 || current == nil {
		return current
	}
	if c.RepeatMode.Get() == model.RepeatSingle {
		return current
	}
	idx := model.IndexOf(c.playList, current)
	if idx < 0 {
		idx = c.currentIndex
	}
	if idx < 0 {
		idx = 0
	}
	prev := c.playList[(idx-1+len(c.playList))%len(c.playList)]
	return &prev
}

// GetNextMusic 返回下一首的快照
func (c *Controller) GetNextMusic() *model.MusicItem {
	c.lock()
	defer c.unlock()
	return c.nextMusicLocked()
}

// GetPreviousMusic 返回上一首的快照
func (c *Controller) GetPreviousMusic() *model.MusicItem {
	c.lock()
	defer c.unlock()
	return c.previousMusicLocked()
}

// PlayList 返回播放列表快照
func (c *Controller) PlayList() []model.MusicItem {
	return c.PlayListSnapshot.Get()
}

func shuffleInPlace(list []model.MusicItem) {
	rand.Shuffle(len(list), func(i, j int) {
		list[i], list[j] = list[j], list[i]
	})
}
