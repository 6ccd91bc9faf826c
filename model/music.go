package model

import (
	"sort"
	"strings"
)

// InternalFakeSoundKey 播放器队列中占位假音频的内部标记
// 引擎队列第二槽位使用它来探测"自然播完"事件
const InternalFakeSoundKey = "internal-fake-sound"

// FakeAudioURL 静音占位音频地址，获取音源失败时兜底使用
const FakeAudioURL = "asset://fake_audio.mp3"

// UnknownURL 表示歌曲尚未解析出可播放地址
const UnknownURL = "Unknown"

// MusicItem 表示一首歌曲
// ID 在平台+音源组合内唯一；本地导入的歌曲 ID 为原始文件 URI
type MusicItem struct {
	ID       string  `json:"id"`
	Platform string  `json:"platform"`
	Artist   string  `json:"artist"`
	Title    string  `json:"title"`
	Album    string  `json:"album,omitempty"`
	Artwork  string  `json:"artwork,omitempty"`
	Duration float64 `json:"duration,omitempty"` // 时长（秒）
	URL      string  `json:"url,omitempty"`

	// Source 各音质对应的音源信息
	Source map[Quality]MediaSource `json:"source,omitempty"`

	// 内部排序字段，加入播放列表时写入，用于随机播放后恢复原始顺序
	TimeStamp int64 `json:"timeStamp,omitempty"`
	SortIndex int   `json:"sortIndex,omitempty"`

	// 内部标记，仅占位假音频使用
	InternalKey string `json:"$,omitempty"`
}

// MediaSource 单个音质的音源信息
type MediaSource struct {
	URL     string            `json:"url,omitempty"`
	Quality Quality           `json:"quality,omitempty"`
	Size    int64             `json:"size,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// SameMediaItem 判断两首歌是否为同一媒体项
// 只比较 (id, platform)，url、封面等可变字段不参与
func SameMediaItem(a, b *MusicItem) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID == b.ID && a.Platform == b.Platform
}

// IsLocalFile 判断歌曲地址是否为本地文件
func (m *MusicItem) IsLocalFile() bool {
	return strings.HasPrefix(m.URL, "file://")
}

// HasUsableURL 判断歌曲是否已有可直接播放的地址
// 哨兵值和假音频地址都视为无效
func (m *MusicItem) HasUsableURL() bool {
	if m.URL == "" || m.URL == UnknownURL {
		return false
	}
	return !strings.Contains(m.URL, "fake")
}

// IndexOf 返回歌曲在列表中的下标，找不到返回 -1
func IndexOf(list []MusicItem, item *MusicItem) int {
	if item == nil {
		return -1
	}
	for i := range list {
		if SameMediaItem(&list[i], item) {
			return i
		}
	}
	return -1
}

// SortByTimestampAndIndex 按加入时间戳、加入批次内下标排序
// 用于退出随机播放时恢复原始顺序
func SortByTimestampAndIndex(list []MusicItem) []MusicItem {
	sorted := make([]MusicItem, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TimeStamp != sorted[j].TimeStamp {
			return sorted[i].TimeStamp < sorted[j].TimeStamp
		}
		return sorted[i].SortIndex < sorted[j].SortIndex
	})
	return sorted
}
