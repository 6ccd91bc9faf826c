package player

import (
	"context"
	"time"

	"MuPocket/core/cachemgr"
	"MuPocket/core/library"
	"MuPocket/core/source"
	"MuPocket/engine"
	"MuPocket/logger"
	"MuPocket/model"
	"MuPocket/persist"
	"MuPocket/state"
)

// bufferingWatchdogTimeout 缓冲状态的最长容忍时间，超过即视为播放失败
const bufferingWatchdogTimeout = 15 * time.Second

// failSkipDelay 播放失败后切歌前的间隔
const failSkipDelay = 500 * time.Millisecond

// autoCacheDelay 开始播放后触发自动缓存的防抖时间
const autoCacheDelay = 5 * time.Second

// lyricTimeout 歌词拉取超时
const lyricTimeout = 10 * time.Second

// CacheQueue 自动缓存任务的投递口，由下载队列实现
type CacheQueue interface {
	AddToQueue(origin model.DownloadOrigin, tracks ...model.MusicItem)
}

// Controller 播放核心
// 持有逻辑播放列表和当前曲目，向引擎只下发2槽位队列：
// 槽位0为当前曲目，槽位1为占位假音频，引擎切到槽位1即视为自然播完
type Controller struct {
	mu  chan struct{} // 信号量互斥锁，允许在等待解析时让出
	eng engine.Engine

	store    persist.Store
	resolver *source.Resolver
	cache    *cachemgr.Manager
	lib      *library.Library
	queue    CacheQueue // 自动缓存走下载队列，未接入时为nil

	playList     []model.MusicItem
	currentIndex int
	epoch        int64 // 当前曲目变更代数，跨解析的身份校验用

	// CurrentMusic 当前曲目，无曲目时为nil
	CurrentMusic *state.Cell[*model.MusicItem]
	// PlayListSnapshot 逻辑播放列表快照
	PlayListSnapshot *state.Cell[[]model.MusicItem]
	// RepeatMode 播放模式
	RepeatMode *state.Cell[model.RepeatMode]
	// Lyric 当前曲目歌词
	Lyric *state.Cell[string]
	// AutoCacheLocal 播放时自动缓存开关
	AutoCacheLocal *state.Cell[bool]
	// IsCachedIconVisible 界面是否展示缓存角标
	IsCachedIconVisible *state.Cell[bool]
	// SongsNumsToLoad 在线歌单单次加载数量
	SongsNumsToLoad *state.Cell[int]

	watchdog       *time.Timer
	autoCacheTimer *time.Timer
	autoCacheWait  time.Duration
	done           chan struct{}
}

// NewController 创建播放核心
// queue 为自动缓存使用的下载队列，传nil时自动缓存不生效
func NewController(eng engine.Engine, store persist.Store, resolver *source.Resolver, cache *cachemgr.Manager, lib *library.Library, queue CacheQueue) *Controller {
	c := &Controller{
		mu:                  make(chan struct{}, 1),
		eng:                 eng,
		store:               store,
		resolver:            resolver,
		cache:               cache,
		lib:                 lib,
		queue:               queue,
		autoCacheWait:       autoCacheDelay,
		currentIndex:        -1,
		CurrentMusic:        state.NewCell[*model.MusicItem](nil),
		PlayListSnapshot:    state.NewCell[[]model.MusicItem](nil),
		RepeatMode:          state.NewCell(model.RepeatQueue),
		Lyric:               state.NewCell(""),
		AutoCacheLocal:      state.NewCell(false),
		IsCachedIconVisible: state.NewCell(true),
		SongsNumsToLoad:     state.NewCell(100),
		done:                make(chan struct{}),
	}
	c.mu <- struct{}{}
	return c
}

func (c *Controller) lock()   { <-c.mu }
func (c *Controller) unlock() { c.mu <- struct{}{} }

// withInit 执行引擎操作，引擎未初始化时初始化后重试一次
func (c *Controller) withInit(f func() error) error {
	err := f()
	if err == engine.ErrNotInitialized {
		if setupErr := c.eng.Setup(); setupErr != nil {
			return setupErr
		}
		return f()
	}
	return err
}

// Setup 初始化引擎、恢复持久化状态并启动事件循环
func (c *Controller) Setup(ctx context.Context) error {
	if err := c.eng.Setup(); err != nil {
		return err
	}

	c.lock()
	defer c.unlock()

	var list []model.MusicItem
	if _, err := c.store.Get(ctx, persist.KeyPlayList, &list); err != nil {
		return err
	}
	c.setPlayListLocked(list)

	var current *model.MusicItem
	if _, err := c.store.Get(ctx, persist.KeyMusicItem, &current); err != nil {
		return err
	}
	if current != nil {
		c.currentIndex = model.IndexOf(c.playList, current)
		c.CurrentMusic.Set(current)
	}

	var mode model.RepeatMode
	if ok, err := c.store.Get(ctx, persist.KeyRepeatMode, &mode); err != nil {
		return err
	} else if ok {
		c.RepeatMode.Set(mode)
	}

	var autoCache bool
	if ok, err := c.store.Get(ctx, persist.KeyAutoCacheLocal, &autoCache); err != nil {
		return err
	} else if ok {
		c.AutoCacheLocal.Set(autoCache)
	}

	var iconVisible bool
	if ok, err := c.store.Get(ctx, persist.KeyIsCachedIconShown, &iconVisible); err != nil {
		return err
	} else if ok {
		c.IsCachedIconVisible.Set(iconVisible)
	}

	var numsToLoad int
	if ok, err := c.store.Get(ctx, persist.KeySongsNumsToLoad, &numsToLoad); err != nil {
		return err
	} else if ok && numsToLoad > 0 {
		c.SongsNumsToLoad.Set(numsToLoad)
	}

	go c.eventLoop()

	logger.Info("播放核心初始化完成",
		logger.Int("playListSize", len(c.playList)),
		logger.Bool("hasCurrent", current != nil))
	return nil
}

// Close 停止事件循环和所有定时器
func (c *Controller) Close() {
	c.lock()
	defer c.unlock()
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	c.stopWatchdogLocked()
	if c.autoCacheTimer != nil {
		c.autoCacheTimer.Stop()
		c.autoCacheTimer = nil
	}
}

// eventLoop 消费引擎事件流
func (c *Controller) eventLoop() {
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.eng.Events():
			if !ok {
				return
			}
			c.handleEvent(ev)
		}
	}
}

func (c *Controller) handleEvent(ev engine.Event) {
	switch e := ev.(type) {
	case engine.ActiveTrackChangedEvent:
		// 槽位0切到槽位1表示当前曲目自然播完
		if e.Index == 1 && e.LastIndex == 0 {
			c.onPlaybackEnded()
		}
	case engine.StateChangedEvent:
		c.onStateChanged(e.State)
	case engine.PlaybackErrorEvent:
		logger.Error("引擎播放错误",
			logger.String("code", e.Code),
			logger.String("message", e.Message))
		c.failToPlay(classifyPlaybackError(e.Code, e.Message))
	}
}

// onPlaybackEnded 自然播完：单曲循环重播当前曲目，否则切下一首
func (c *Controller) onPlaybackEnded() {
	c.lock()
	mode := c.RepeatMode.Get()
	current := c.CurrentMusic.Get()
	c.unlock()

	if current == nil {
		return
	}
	if mode == model.RepeatSingle {
		if err := c.Play(context.Background(), current, true); err != nil {
			logger.Error("单曲循环重播失败", logger.ErrorField(err))
		}
		return
	}
	if err := c.SkipToNext(context.Background()); err != nil {
		logger.Error("自然播完切歌失败", logger.ErrorField(err))
	}
}

func (c *Controller) onStateChanged(s engine.State) {
	c.lock()
	defer c.unlock()

	switch s {
	case engine.StateBuffering, engine.StateLoading:
		c.startWatchdogLocked()
	case engine.StatePlaying:
		c.stopWatchdogLocked()
		c.scheduleAutoCacheLocked()
	case engine.StateReady, engine.StatePaused, engine.StateStopped:
		c.stopWatchdogLocked()
	}
}

// startWatchdogLocked 启动缓冲看门狗，超时视为播放失败
func (c *Controller) startWatchdogLocked() {
	if c.watchdog != nil {
		return
	}
	c.watchdog = time.AfterFunc(bufferingWatchdogTimeout, func() {
		c.lock()
		c.watchdog = nil
		c.unlock()
		logger.Warn("缓冲超时，放弃当前曲目")
		c.failToPlay("网络加载超时")
	})
}

func (c *Controller) stopWatchdogLocked() {
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
}

// failToPlay 播放失败的统一出口：提示、复位、短暂停顿后切下一首
func (c *Controller) failToPlay(reason string) {
	logger.Warn("播放失败", logger.String("reason", reason))

	if err := c.withInit(c.eng.Reset); err != nil {
		logger.Error("引擎复位失败", logger.ErrorField(err))
	}

	select {
	case <-time.After(failSkipDelay):
	case <-c.done:
		return
	}

	if err := c.SkipToNext(context.Background()); err != nil {
		logger.Error("失败后切歌失败", logger.ErrorField(err))
	}
}

// classifyPlaybackError 将引擎错误归类为用户可读的提示
func classifyPlaybackError(code, message string) string {
	text := code + " " + message
	switch {
	case containsAny(text, "timeout", "timed out"):
		return "网络加载超时"
	case containsAny(text, "network", "connection", "failed to connect"):
		return "网络连接异常"
	case containsAny(text, "source error", "403", "404", "response code"):
		return "当前音源不可用"
	default:
		return "暂时无法播放"
	}
}
