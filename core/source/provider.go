package source

import (
	"context"
	"errors"

	"MuPocket/model"
)

// ErrNoSourceConfigured 未选择任何音源
var ErrNoSourceConfigured = errors.New("no music api selected")

// ErrNoPlayableSource 所有音质档位均无可用链接
var ErrNoPlayableSource = errors.New("no playable source for any quality")

// Provider 音源插件契约
// 实现者给定歌曲信息和音质返回可播放地址；空字符串视为该音质无可用链接
type Provider interface {
	GetMusicURL(ctx context.Context, title, artist, id string, quality model.Quality) (string, error)
	GetLyric(ctx context.Context, item *model.MusicItem) (string, error)
}

// Recorder 解析成功后的落库回调
type Recorder interface {
	RecordResolved(ctx context.Context, song *model.ResolvedSong) error
}

// ProviderFactory 根据音源描述构建Provider实例
type ProviderFactory func(api model.MusicApi) Provider
