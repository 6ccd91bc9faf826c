package source

import (
	"context"
	"time"

	"MuPocket/logger"
	"MuPocket/model"
	"MuPocket/persist"
	"MuPocket/state"
)

// tierTimeout 单个音质档位的解析超时
const tierTimeout = 5 * time.Second

// Resolver 播放地址解析器
// 从当前音质档位开始向低音质逐级回退，直到拿到可用链接
type Resolver struct {
	registry *Registry
	store    persist.Store
	recorder Recorder

	// Quality 当前全局音质
	Quality *state.Cell[model.Quality]
	// ApiState 音源健康状态，解析成功为"正常"，失败为"异常"
	ApiState *state.Cell[string]

	// OnQualitySwitch 降级成功后的通知回调，参数为切换后的音质
	OnQualitySwitch func(quality model.Quality)
}

// NewResolver 创建解析器
func NewResolver(registry *Registry, store persist.Store, recorder Recorder, quality model.Quality) *Resolver {
	if !quality.Valid() {
		quality = model.Quality128k
	}
	return &Resolver{
		registry: registry,
		store:    store,
		recorder: recorder,
		Quality:  state.NewCell(quality),
		ApiState: state.NewCell(model.ApiStateOK),
	}
}

// Load 启动时恢复持久化的音质设置
func (r *Resolver) Load(ctx context.Context) error {
	var q model.Quality
	ok, err := r.store.Get(ctx, persist.KeyQuality, &q)
	if err != nil {
		return err
	}
	if ok && q.Valid() {
		r.Quality.Set(q)
	}
	return nil
}

// SetQuality 设置全局音质并落盘
func (r *Resolver) SetQuality(ctx context.Context, q model.Quality) error {
	if !q.Valid() {
		q = model.Quality128k
	}
	r.Quality.Set(q)
	return r.store.Set(ctx, persist.KeyQuality, q)
}

// Resolve 解析歌曲的播放地址
// 从当前音质开始逐级降级尝试，每档5秒超时；成功降级时持久化新音质并通知；
// 未选择音源返回 ErrNoSourceConfigured，全部档位失败返回 ErrNoPlayableSource
func (r *Resolver) Resolve(ctx context.Context, item *model.MusicItem) (string, model.Quality, error) {
	provider := r.registry.Provider()
	if provider == nil {
		return "", "", ErrNoSourceConfigured
	}

	current := r.Quality.Get()
	start := model.QualityIndex(current)
	if start < 0 {
		start = 0
	}
	tiers := model.QualityOrder[start:]

	for _, tier := range tiers {
		url, err := r.resolveTier(ctx, provider, item, tier)
		if err != nil {
			logger.Warn("音质档位解析失败",
				logger.String("title", item.Title),
				logger.String("quality", string(tier)),
				logger.ErrorField(err))
			if ctx.Err() != nil {
				r.ApiState.Set(model.ApiStateError)
				return "", "", ctx.Err()
			}
			continue
		}
		if url == "" {
			logger.Debug("音质档位无可用链接",
				logger.String("title", item.Title),
				logger.String("quality", string(tier)))
			continue
		}

		r.ApiState.Set(model.ApiStateOK)
		if tier != current {
			// 降级成功，切换全局音质并通知
			if err := r.SetQuality(ctx, tier); err != nil {
				logger.Error("持久化降级音质失败", logger.ErrorField(err))
			}
			if r.OnQualitySwitch != nil {
				r.OnQualitySwitch(tier)
			}
			logger.Info("音质已降级",
				logger.String("title", item.Title),
				logger.String("from", string(current)),
				logger.String("to", string(tier)))
		}
		r.recordResolved(ctx, item, url, tier)
		return url, tier, nil
	}

	r.ApiState.Set(model.ApiStateError)
	return "", "", ErrNoPlayableSource
}

func (r *Resolver) resolveTier(ctx context.Context, provider Provider, item *model.MusicItem, tier model.Quality) (string, error) {
	tierCtx, cancel := context.WithTimeout(ctx, tierTimeout)
	defer cancel()
	return provider.GetMusicURL(tierCtx, item.Title, item.Artist, item.ID, tier)
}

// GetLyric 获取歌词，未选择音源时返回空串
func (r *Resolver) GetLyric(ctx context.Context, item *model.MusicItem) (string, error) {
	provider := r.registry.Provider()
	if provider == nil {
		return "", nil
	}
	return provider.GetLyric(ctx, item)
}

// recordResolved 解析成功后落库，失败只记日志不影响播放
func (r *Resolver) recordResolved(ctx context.Context, item *model.MusicItem, url string, quality model.Quality) {
	if r.recorder == nil {
		return
	}
	apiID := ""
	if sel := r.registry.Selected.Get(); sel != nil {
		apiID = sel.ID
	}
	song := &model.ResolvedSong{
		SongID:     item.ID,
		Platform:   item.Platform,
		Title:      item.Title,
		Artist:     item.Artist,
		Album:      item.Album,
		URL:        url,
		Quality:    quality,
		ApiID:      apiID,
		ResolvedAt: time.Now(),
	}
	if err := r.recorder.RecordResolved(ctx, song); err != nil {
		logger.Warn("解析结果落库失败",
			logger.String("songId", item.ID),
			logger.ErrorField(err))
	}
}
