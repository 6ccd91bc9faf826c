package state

import "sync"

// Cell 可观察的状态单元
// Get/Set 对观察者原子可见：订阅者收到的永远是一次完整的快照
type Cell[T any] struct {
	mu    sync.RWMutex
	value T
	subs  map[int]func(T)
	nextID int
}

// NewCell 创建状态单元并设置初始值
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial, subs: make(map[int]func(T))}
}

// Get 读取当前值
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set 写入新值并通知所有订阅者
func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	c.value = value
	subs := make([]func(T), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
}

// Subscribe 注册观察者，返回取消订阅函数
// 回调在 Set 的调用协程上同步执行，回调内不可再调用 Set
func (c *Cell[T]) Subscribe(fn func(T)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}
