package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"MuPocket/model"
)

// ResolvedSongRepository 解析记录的元数据缓存
// 同一首歌重复解析时按 (songId, platform) 覆盖更新
type ResolvedSongRepository struct {
	db *gorm.DB
}

// NewResolvedSongRepository 创建解析记录仓库
func NewResolvedSongRepository(db *gorm.DB) *ResolvedSongRepository {
	return &ResolvedSongRepository{db: db}
}

// RecordResolved 写入或覆盖解析记录
func (r *ResolvedSongRepository) RecordResolved(ctx context.Context, song *model.ResolvedSong) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "song_id"}, {Name: "platform"}},
		UpdateAll: true,
	}).Create(song).Error
}

// FindBySong 查询指定歌曲的最近一次解析记录
func (r *ResolvedSongRepository) FindBySong(ctx context.Context, songID, platform string) (*model.ResolvedSong, error) {
	var song model.ResolvedSong
	err := r.db.WithContext(ctx).
		Where("song_id = ? AND platform = ?", songID, platform).
		First(&song).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &song, nil
}

// RecentResolved 按解析时间倒序返回最近的解析记录
func (r *ResolvedSongRepository) RecentResolved(ctx context.Context, limit int) ([]model.ResolvedSong, error) {
	if limit <= 0 {
		limit = 50
	}
	var songs []model.ResolvedSong
	err := r.db.WithContext(ctx).
		Order("resolved_at DESC").
		Limit(limit).
		Find(&songs).Error
	return songs, err
}
