package persist

import "context"

// Store 持久化KV存储
// 值以JSON序列化，键为点分路径（见 keys.go）
// 核心在启动时读取这些键恢复状态，每次状态变更时写回
type Store interface {
	// Get 读取键值并反序列化到 dest，键不存在时返回 false
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set 序列化并写入键值
	Set(ctx context.Context, key string, value interface{}) error
	// Delete 删除键
	Delete(ctx context.Context, key string) error
}
