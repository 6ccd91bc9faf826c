package model

// FavoritesPlaylistID 收藏歌单的固定ID，不允许删除
const FavoritesPlaylistID = "favorites"

// PlayList 用户歌单（音乐库实体，区别于当前播放队列）
// 本地歌单以 id 唯一；关联在线歌单以 (onlineId, source) 唯一
type PlayList struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Title       string      `json:"title,omitempty"`
	Platform    string      `json:"platform,omitempty"`
	Artist      string      `json:"artist,omitempty"`
	Artwork     string      `json:"artwork,omitempty"`
	Description string      `json:"description,omitempty"`
	OnlineID    string      `json:"onlineId,omitempty"`
	Source      string      `json:"source,omitempty"`
	Songs       []MusicItem `json:"songs"`
}

// SamePlaylist 判断两个歌单是否为同一个
// 在线歌单按 (onlineId, source) 匹配，本地歌单按 id 匹配
func SamePlaylist(a, b *PlayList) bool {
	if a == nil || b == nil {
		return false
	}
	if a.OnlineID != "" && a.Source != "" {
		return a.OnlineID == b.OnlineID && a.Source == b.Source
	}
	return a.ID == b.ID
}
