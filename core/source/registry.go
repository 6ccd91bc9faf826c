package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"MuPocket/logger"
	"MuPocket/model"
	"MuPocket/persist"
	"MuPocket/state"
)

// Registry 音源注册表
// 维护已导入的音源列表与当前选中的音源，变更全部落盘
// 音源描述的"重载"通过重新拉取 srcUrl 的描述文件实现，
// 使不受信任的音源实现隔离在HTTP边界之外，无法破坏核心状态
type Registry struct {
	mu       sync.Mutex
	store    persist.Store
	factory  ProviderFactory
	provider Provider // 当前选中音源对应的Provider实例

	// Apis 已导入的音源列表
	Apis *state.Cell[[]model.MusicApi]
	// Selected 当前选中的音源描述，未选中时为nil
	Selected *state.Cell[*model.MusicApi]
}

// NewRegistry 创建音源注册表
func NewRegistry(store persist.Store, factory ProviderFactory) *Registry {
	if factory == nil {
		factory = NewRemoteProvider
	}
	return &Registry{
		store:    store,
		factory:  factory,
		Apis:     state.NewCell[[]model.MusicApi](nil),
		Selected: state.NewCell[*model.MusicApi](nil),
	}
}

// Load 启动时从持久化存储恢复音源状态
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var apis []model.MusicApi
	if _, err := r.store.Get(ctx, persist.KeyMusicApi, &apis); err != nil {
		return err
	}
	r.Apis.Set(apis)

	var selected *model.MusicApi
	if _, err := r.store.Get(ctx, persist.KeySelectedMusicApi, &selected); err != nil {
		return err
	}
	if selected != nil {
		r.Selected.Set(selected)
		r.provider = r.factory(*selected)
	}
	return nil
}

// Provider 返回当前选中音源的Provider，未选中返回nil
func (r *Registry) Provider() Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.provider
}

// Add 导入或覆盖音源
// 已存在同ID音源时覆盖描述但保留选中状态；列表为空时自动选中
func (r *Registry) Add(ctx context.Context, api model.MusicApi) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	apis := r.Apis.Get()
	existing := -1
	for i := range apis {
		if apis[i].ID == api.ID {
			existing = i
			break
		}
	}

	updated := make([]model.MusicApi, len(apis))
	copy(updated, apis)
	if existing >= 0 {
		api.Selected = updated[existing].Selected
		updated[existing] = api
		logger.Info("音源已覆盖更新", logger.String("apiId", api.ID), logger.String("name", api.Name))
	} else {
		api.Selected = false
		updated = append(updated, api)
		logger.Info("音源导入成功", logger.String("apiId", api.ID), logger.String("name", api.Name))
	}

	r.Apis.Set(updated)
	if err := r.store.Set(ctx, persist.KeyMusicApi, updated); err != nil {
		return err
	}

	// 首个音源自动选中；覆盖已选中音源时刷新Provider
	if existing < 0 && len(apis) == 0 {
		return r.selectLocked(ctx, api.ID)
	}
	if existing >= 0 && api.Selected {
		return r.selectLocked(ctx, api.ID)
	}
	return nil
}

// SelectByID 选中指定音源并构建Provider
func (r *Registry) SelectByID(ctx context.Context, apiID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectLocked(ctx, apiID)
}

func (r *Registry) selectLocked(ctx context.Context, apiID string) error {
	apis := r.Apis.Get()
	target := -1
	for i := range apis {
		if apis[i].ID == apiID {
			target = i
			break
		}
	}
	if target < 0 {
		return fmt.Errorf("music api %s not found", apiID)
	}

	updated := make([]model.MusicApi, len(apis))
	copy(updated, apis)
	for i := range updated {
		updated[i].Selected = updated[i].ID == apiID
	}
	selected := updated[target]
	selected.Selected = true

	r.Apis.Set(updated)
	r.Selected.Set(&selected)
	r.provider = r.factory(selected)

	if err := r.store.Set(ctx, persist.KeyMusicApi, updated); err != nil {
		return err
	}
	if err := r.store.Set(ctx, persist.KeySelectedMusicApi, &selected); err != nil {
		return err
	}

	logger.Info("音源已选中", logger.String("apiId", apiID), logger.String("name", selected.Name))
	return nil
}

// Delete 删除音源，若为当前选中音源则同时取消选中
func (r *Registry) Delete(ctx context.Context, apiID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sel := r.Selected.Get(); sel != nil && sel.ID == apiID {
		r.Selected.Set(nil)
		r.provider = nil
		if err := r.store.Delete(ctx, persist.KeySelectedMusicApi); err != nil {
			return err
		}
	}

	apis := r.Apis.Get()
	filtered := make([]model.MusicApi, 0, len(apis))
	for _, api := range apis {
		if api.ID != apiID {
			filtered = append(filtered, api)
		}
	}
	r.Apis.Set(filtered)
	if err := r.store.Set(ctx, persist.KeyMusicApi, filtered); err != nil {
		return err
	}

	logger.Info("音源删除成功", logger.String("apiId", apiID))
	return nil
}

// ReloadSelected 重载当前选中的音源
// 从 srcUrl 重新拉取音源描述文件并替换本地描述，相当于上游的脚本重执行
func (r *Registry) ReloadSelected(ctx context.Context) (*model.MusicApi, error) {
	r.mu.Lock()
	selected := r.Selected.Get()
	r.mu.Unlock()

	if selected == nil {
		logger.Info("当前没有选中的音源，跳过重载")
		return nil, nil
	}
	if selected.SrcURL == "" {
		// 没有更新地址的音源只重建Provider
		r.mu.Lock()
		r.provider = r.factory(*selected)
		r.mu.Unlock()
		return selected, nil
	}

	reloaded, err := fetchApiDescriptor(ctx, selected.SrcURL)
	if err != nil {
		logger.Error("重载音源失败", logger.String("apiId", selected.ID), logger.ErrorField(err))
		// 重载失败时保留原描述
		return selected, nil
	}
	reloaded.ID = selected.ID
	reloaded.Selected = true

	r.mu.Lock()
	defer r.mu.Unlock()

	apis := r.Apis.Get()
	updated := make([]model.MusicApi, len(apis))
	copy(updated, apis)
	for i := range updated {
		if updated[i].ID == reloaded.ID {
			updated[i] = *reloaded
		}
	}
	r.Apis.Set(updated)
	r.Selected.Set(reloaded)
	r.provider = r.factory(*reloaded)

	if err := r.store.Set(ctx, persist.KeyMusicApi, updated); err != nil {
		return nil, err
	}
	if err := r.store.Set(ctx, persist.KeySelectedMusicApi, reloaded); err != nil {
		return nil, err
	}

	logger.Info("音源重载成功",
		logger.String("apiId", reloaded.ID),
		logger.String("name", reloaded.Name),
		logger.String("version", reloaded.Version))
	return reloaded, nil
}

// fetchApiDescriptor 拉取音源描述文件
func fetchApiDescriptor(ctx context.Context, srcURL string) (*model.MusicApi, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("拉取音源描述失败，状态码: %d", resp.StatusCode)
	}

	var api model.MusicApi
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("解析音源描述失败: %w", err)
	}
	if api.BaseURL == "" {
		return nil, fmt.Errorf("音源描述缺少baseUrl")
	}
	return &api, nil
}
