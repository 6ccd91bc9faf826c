package engine

import (
	"errors"

	"MuPocket/model"
)

// ErrNotInitialized 引擎未初始化
// 调用方捕获后应执行 Setup 并重试一次
var ErrNotInitialized = errors.New("the player is not initialized, call Setup first")

// State 引擎播放状态
type State string

const (
	StateNone      State = "none"
	StateReady     State = "ready"
	StateLoading   State = "loading"
	StateBuffering State = "buffering"
	StatePlaying   State = "playing"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
	StateError     State = "error"
)

// Event 引擎事件流中的一条事件
type Event interface{ isEngineEvent() }

// StateChangedEvent 播放状态变化
type StateChangedEvent struct {
	State State
}

// ActiveTrackChangedEvent 活动曲目槽位变化
// 从槽位0切到槽位1表示槽位0自然播完
type ActiveTrackChangedEvent struct {
	Index     int
	LastIndex int
	Track     *model.MusicItem
}

// PlaybackErrorEvent 引擎上报的播放错误
type PlaybackErrorEvent struct {
	Code    string
	Message string
}

func (StateChangedEvent) isEngineEvent()       {}
func (ActiveTrackChangedEvent) isEngineEvent() {}
func (PlaybackErrorEvent) isEngineEvent()      {}

// Engine 外部播放引擎契约
// 引擎维护一个2槽位物理队列：槽位0为当前曲目，槽位1为前瞻占位曲目
// 实际的音频解码与输出由引擎实现负责，核心只做编排
type Engine interface {
	// Setup 初始化引擎，可重复调用
	Setup() error
	// SetQueue 整体替换引擎队列并将活动槽位重置为0
	SetQueue(tracks []model.MusicItem) error
	// UpdateMetadataForTrack 更新指定槽位的曲目元数据，不打断播放
	UpdateMetadataForTrack(index int, track model.MusicItem) error

	Play() error
	Pause() error
	SeekTo(position float64) error
	Reset() error
	// Skip 将活动槽位切换到指定下标
	Skip(index int) error

	PlaybackState() (State, error)
	ActiveTrack() (*model.MusicItem, error)
	ActiveTrackIndex() (int, error)
	// TrackAt 返回指定槽位的曲目，越界返回nil
	TrackAt(index int) (*model.MusicItem, error)

	// Events 引擎事件流，进程生命周期内只应订阅一次
	Events() <-chan Event
}
