package engine

import (
	"sync"

	"MuPocket/model"
)

// MemoryEngine 无声的内存引擎实现
// 音频解码与输出不在核心职责内，该实现只维护队列、状态与事件流，
// 供无头运行与测试使用；测试通过 FinishCurrent/FailCurrent 模拟引擎侧转移
type MemoryEngine struct {
	mu          sync.Mutex
	initialized bool
	queue       []model.MusicItem
	activeIndex int
	state       State
	position    float64
	events      chan Event
}

// NewMemoryEngine 创建内存引擎，未初始化状态
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		activeIndex: -1,
		state:       StateNone,
		events:      make(chan Event, 64),
	}
}

func (e *MemoryEngine) emit(ev Event) {
	// 事件流满时丢弃最旧事件，避免生产方阻塞
	for {
		select {
		case e.events <- ev:
			return
		default:
			select {
			case <-e.events:
			default:
			}
		}
	}
}

// Setup 初始化引擎
func (e *MemoryEngine) Setup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initialized = true
	return nil
}

func (e *MemoryEngine) setState(s State) {
	e.state = s
	e.emit(StateChangedEvent{State: s})
}

// SetQueue 整体替换队列
func (e *MemoryEngine) SetQueue(tracks []model.MusicItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	last := e.activeIndex
	e.queue = make([]model.MusicItem, len(tracks))
	copy(e.queue, tracks)
	e.position = 0
	if len(e.queue) > 0 {
		e.activeIndex = 0
		track := e.queue[0]
		e.emit(ActiveTrackChangedEvent{Index: 0, LastIndex: last, Track: &track})
		e.setState(StateReady)
	} else {
		e.activeIndex = -1
		e.setState(StateNone)
	}
	return nil
}

// UpdateMetadataForTrack 更新槽位元数据
func (e *MemoryEngine) UpdateMetadataForTrack(index int, track model.MusicItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	if index < 0 || index >= len(e.queue) {
		return nil
	}
	e.queue[index] = track
	return nil
}

// Play 开始或恢复播放
func (e *MemoryEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	if e.activeIndex < 0 {
		return nil
	}
	e.setState(StatePlaying)
	return nil
}

// Pause 暂停播放
func (e *MemoryEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	e.setState(StatePaused)
	return nil
}

// SeekTo 跳转到指定进度
func (e *MemoryEngine) SeekTo(position float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	e.position = position
	return nil
}

// Reset 停止播放并清空队列
func (e *MemoryEngine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	e.queue = nil
	e.activeIndex = -1
	e.position = 0
	e.setState(StateStopped)
	return nil
}

// Skip 切换活动槽位
func (e *MemoryEngine) Skip(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	if index < 0 || index >= len(e.queue) {
		return nil
	}
	last := e.activeIndex
	e.activeIndex = index
	track := e.queue[index]
	e.emit(ActiveTrackChangedEvent{Index: index, LastIndex: last, Track: &track})
	return nil
}

// PlaybackState 查询当前状态
func (e *MemoryEngine) PlaybackState() (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return StateNone, ErrNotInitialized
	}
	return e.state, nil
}

// ActiveTrack 查询活动曲目
func (e *MemoryEngine) ActiveTrack() (*model.MusicItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if e.activeIndex < 0 || e.activeIndex >= len(e.queue) {
		return nil, nil
	}
	track := e.queue[e.activeIndex]
	return &track, nil
}

// ActiveTrackIndex 查询活动槽位下标
func (e *MemoryEngine) ActiveTrackIndex() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return -1, ErrNotInitialized
	}
	return e.activeIndex, nil
}

// Events 引擎事件流
func (e *MemoryEngine) Events() <-chan Event {
	return e.events
}

// TrackAt 返回指定槽位的曲目，越界返回nil
func (e *MemoryEngine) TrackAt(index int) (*model.MusicItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if index < 0 || index >= len(e.queue) {
		return nil, nil
	}
	track := e.queue[index]
	return &track, nil
}

// QueueLen 返回队列长度
func (e *MemoryEngine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// FinishCurrent 模拟槽位0自然播完：活动槽位切到1
func (e *MemoryEngine) FinishCurrent() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) < 2 {
		return
	}
	last := e.activeIndex
	e.activeIndex = 1
	track := e.queue[1]
	e.emit(ActiveTrackChangedEvent{Index: 1, LastIndex: last, Track: &track})
}

// FailCurrent 模拟引擎上报播放错误
func (e *MemoryEngine) FailCurrent(code, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setState(StateError)
	e.emit(PlaybackErrorEvent{Code: code, Message: message})
}

// EnterBuffering 模拟进入缓冲状态
func (e *MemoryEngine) EnterBuffering() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setState(StateBuffering)
}
