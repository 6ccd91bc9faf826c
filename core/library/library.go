package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"MuPocket/logger"
	"MuPocket/model"
	"MuPocket/persist"
	"MuPocket/state"
)

// ErrFavoritesProtected 收藏歌单不允许删除
var ErrFavoritesProtected = errors.New("favorites playlist can not be deleted")

// ErrPlaylistExists 同一歌单重复导入
var ErrPlaylistExists = errors.New("playlist already exists")

// Library 音乐库
// 管理用户歌单与导入的本地歌曲，所有变更落盘
type Library struct {
	store persist.Store

	// PlayLists 用户歌单列表，首位始终为收藏歌单
	PlayLists *state.Cell[[]model.PlayList]
	// ImportedLocalMusic 已导入的本地歌曲
	ImportedLocalMusic *state.Cell[[]model.MusicItem]
}

// NewLibrary 创建音乐库
func NewLibrary(store persist.Store) *Library {
	return &Library{
		store:              store,
		PlayLists:          state.NewCell[[]model.PlayList](nil),
		ImportedLocalMusic: state.NewCell[[]model.MusicItem](nil),
	}
}

// Load 启动时恢复歌单和导入歌曲，收藏歌单缺失时补建
func (l *Library) Load(ctx context.Context) error {
	var lists []model.PlayList
	if _, err := l.store.Get(ctx, persist.KeyPlayLists, &lists); err != nil {
		return err
	}
	hasFavorites := false
	for i := range lists {
		if lists[i].ID == model.FavoritesPlaylistID {
			hasFavorites = true
			break
		}
	}
	if !hasFavorites {
		lists = append([]model.PlayList{{
			ID:    model.FavoritesPlaylistID,
			Name:  "我喜欢的音乐",
			Songs: []model.MusicItem{},
		}}, lists...)
	}
	l.PlayLists.Set(lists)

	var imported []model.MusicItem
	if _, err := l.store.Get(ctx, persist.KeyImportedLocalMusic, &imported); err != nil {
		return err
	}
	l.ImportedLocalMusic.Set(imported)
	return nil
}

func (l *Library) saveLists(ctx context.Context, lists []model.PlayList) error {
	l.PlayLists.Set(lists)
	return l.store.Set(ctx, persist.KeyPlayLists, lists)
}

// CreatePlaylist 新建歌单
func (l *Library) CreatePlaylist(ctx context.Context, name string) (*model.PlayList, error) {
	list := model.PlayList{
		ID:    uuid.NewString(),
		Name:  name,
		Songs: []model.MusicItem{},
	}
	lists := append(clonePlaylists(l.PlayLists.Get()), list)
	if err := l.saveLists(ctx, lists); err != nil {
		return nil, err
	}
	logger.Info("歌单创建成功", logger.String("playlistId", list.ID), logger.String("name", name))
	return &list, nil
}

// ImportPlaylist 导入在线歌单，重复导入返回 ErrPlaylistExists
func (l *Library) ImportPlaylist(ctx context.Context, list model.PlayList) (*model.PlayList, error) {
	existing := l.PlayLists.Get()
	for i := range existing {
		if model.SamePlaylist(&existing[i], &list) {
			return nil, ErrPlaylistExists
		}
	}
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	if list.Songs == nil {
		list.Songs = []model.MusicItem{}
	}
	lists := append(clonePlaylists(existing), list)
	if err := l.saveLists(ctx, lists); err != nil {
		return nil, err
	}
	logger.Info("歌单导入成功",
		logger.String("playlistId", list.ID),
		logger.String("name", list.Name),
		logger.Int("songs", len(list.Songs)))
	return &list, nil
}

// DeletePlaylist 删除歌单，收藏歌单受保护
func (l *Library) DeletePlaylist(ctx context.Context, id string) error {
	if id == model.FavoritesPlaylistID {
		return ErrFavoritesProtected
	}
	existing := l.PlayLists.Get()
	filtered := make([]model.PlayList, 0, len(existing))
	for _, list := range existing {
		if list.ID != id {
			filtered = append(filtered, list)
		}
	}
	if len(filtered) == len(existing) {
		return fmt.Errorf("playlist %s not found", id)
	}
	return l.saveLists(ctx, filtered)
}

// AddSongToPlaylist 向歌单添加歌曲，同一首歌不重复添加
func (l *Library) AddSongToPlaylist(ctx context.Context, playlistID string, song model.MusicItem) error {
	lists := clonePlaylists(l.PlayLists.Get())
	for i := range lists {
		if lists[i].ID != playlistID {
			continue
		}
		if model.IndexOf(lists[i].Songs, &song) >= 0 {
			return nil
		}
		lists[i].Songs = append(lists[i].Songs, song)
		return l.saveLists(ctx, lists)
	}
	return fmt.Errorf("playlist %s not found", playlistID)
}

// RemoveSongFromPlaylist 从歌单移除歌曲
func (l *Library) RemoveSongFromPlaylist(ctx context.Context, playlistID string, song *model.MusicItem) error {
	lists := clonePlaylists(l.PlayLists.Get())
	for i := range lists {
		if lists[i].ID != playlistID {
			continue
		}
		idx := model.IndexOf(lists[i].Songs, song)
		if idx < 0 {
			return nil
		}
		lists[i].Songs = append(lists[i].Songs[:idx], lists[i].Songs[idx+1:]...)
		return l.saveLists(ctx, lists)
	}
	return fmt.Errorf("playlist %s not found", playlistID)
}

// FindPlaylist 按ID查找歌单
func (l *Library) FindPlaylist(id string) *model.PlayList {
	lists := l.PlayLists.Get()
	for i := range lists {
		if lists[i].ID == id {
			list := lists[i]
			return &list
		}
	}
	return nil
}

func clonePlaylists(lists []model.PlayList) []model.PlayList {
	cloned := make([]model.PlayList, len(lists))
	copy(cloned, lists)
	for i := range cloned {
		songs := make([]model.MusicItem, len(cloned[i].Songs))
		copy(songs, cloned[i].Songs)
		cloned[i].Songs = songs
	}
	return cloned
}
