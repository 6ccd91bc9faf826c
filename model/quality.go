package model

// Quality 音质档位
type Quality string

const (
	QualityFlac Quality = "flac"
	Quality320k Quality = "320k"
	Quality128k Quality = "128k"
)

// QualityOrder 音质降级顺序，从高到低
var QualityOrder = []Quality{QualityFlac, Quality320k, Quality128k}

// QualityIndex 返回音质在降级顺序中的位置，未知音质返回 -1
func QualityIndex(q Quality) int {
	for i, v := range QualityOrder {
		if v == q {
			return i
		}
	}
	return -1
}

// Valid 判断是否为已知音质
func (q Quality) Valid() bool {
	return QualityIndex(q) >= 0
}

// CacheExt 缓存文件后缀
// 注意：后缀由全局音质设置决定而非实际解析出的格式，
// 修改音质设置后可能与先前缓存的文件格式不一致（沿用上游行为）
func (q Quality) CacheExt() string {
	if q == QualityFlac {
		return "flac"
	}
	return "mp3"
}

// RepeatMode 播放模式
type RepeatMode string

const (
	// RepeatShuffle 随机播放
	RepeatShuffle RepeatMode = "SHUFFLE"
	// RepeatQueue 列表循环
	RepeatQueue RepeatMode = "QUEUE"
	// RepeatSingle 单曲循环
	RepeatSingle RepeatMode = "SINGLE"
)

// NextRepeatMode 循环切换播放模式：列表循环 → 随机 → 单曲 → 列表循环
func NextRepeatMode(m RepeatMode) RepeatMode {
	switch m {
	case RepeatShuffle:
		return RepeatSingle
	case RepeatSingle:
		return RepeatQueue
	default:
		return RepeatShuffle
	}
}
