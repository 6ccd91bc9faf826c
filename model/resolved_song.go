package model

import "time"

// ResolvedSong 音源解析成功后的落库记录
// 作为元数据缓存，同一首歌重复解析时覆盖更新
type ResolvedSong struct {
	SongID     string    `json:"songId" gorm:"primaryKey;size:191"`
	Platform   string    `json:"platform" gorm:"primaryKey;size:64"`
	Title      string    `json:"title" gorm:"size:255"`
	Artist     string    `json:"artist" gorm:"size:255"`
	Album      string    `json:"album" gorm:"size:255"`
	URL        string    `json:"url" gorm:"size:1024"`
	Quality    Quality   `json:"quality" gorm:"size:8"`
	ApiID      string    `json:"apiId" gorm:"size:64;index"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// TableName 指定表名
func (ResolvedSong) TableName() string {
	return "resolved_songs"
}
