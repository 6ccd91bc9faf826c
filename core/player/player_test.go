package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"MuPocket/core/cachemgr"
	"MuPocket/core/library"
	"MuPocket/core/source"
	"MuPocket/engine"
	"MuPocket/model"
	"MuPocket/persist"
)

type fakeProvider struct {
	mu    sync.Mutex
	urls  map[model.Quality]string
	calls int
}

func (p *fakeProvider) GetMusicURL(_ context.Context, _, _, _ string, q model.Quality) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.urls[q], nil
}

func (p *fakeProvider) GetLyric(_ context.Context, _ *model.MusicItem) (string, error) {
	return "", nil
}

func (p *fakeProvider) urlCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeCacheQueue struct {
	mu     sync.Mutex
	origin model.DownloadOrigin
	tracks []model.MusicItem
}

func (q *fakeCacheQueue) AddToQueue(origin model.DownloadOrigin, tracks ...model.MusicItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.origin = origin
	q.tracks = append(q.tracks, tracks...)
}

func (q *fakeCacheQueue) queued() (model.DownloadOrigin, []model.MusicItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.MusicItem, len(q.tracks))
	copy(out, q.tracks)
	return q.origin, out
}

func newTestController(t *testing.T, p source.Provider) (*Controller, *engine.MemoryEngine, persist.Store) {
	t.Helper()
	ctx := context.Background()
	store := persist.NewMemoryStore()

	registry := source.NewRegistry(store, func(model.MusicApi) source.Provider { return p })
	if p != nil {
		if err := registry.Add(ctx, model.MusicApi{ID: "api", BaseURL: "http://example.com"}); err != nil {
			t.Fatalf("add api: %v", err)
		}
	}
	resolver := source.NewResolver(registry, store, nil, model.Quality128k)

	cache := cachemgr.NewManager(t.TempDir(), nil)
	lib := library.NewLibrary(store)
	if err := lib.Load(ctx); err != nil {
		t.Fatalf("load library: %v", err)
	}

	eng := engine.NewMemoryEngine()
	ctrl := NewController(eng, store, resolver, cache, lib, nil)
	if err := ctrl.Setup(ctx); err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(ctrl.Close)
	return ctrl, eng, store
}

func onlineProvider() *fakeProvider {
	return &fakeProvider{urls: map[model.Quality]string{
		model.Quality128k: "http://cdn/128.mp3",
	}}
}

func testTracks() []model.MusicItem {
	return []model.MusicItem{
		{ID: "a", Platform: "netease", Title: "Alpha", Artist: "One"},
		{ID: "b", Platform: "netease", Title: "Beta", Artist: "Two"},
		{ID: "c", Platform: "netease", Title: "Gamma", Artist: "Three"},
	}
}

func playListIDs(ctrl *Controller) []string {
	list := ctrl.PlayList()
	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	return ids
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPlayBuildsTwoSlotQueue(t *testing.T) {
	ctrl, eng, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	if err := ctrl.AddAll(ctx, tracks); err != nil {
		t.Fatalf("addAll: %v", err)
	}
	if err := ctrl.Play(ctx, &tracks[0], false); err != nil {
		t.Fatalf("play: %v", err)
	}

	if eng.QueueLen() != 2 {
		t.Fatalf("engine queue len = %d, want 2", eng.QueueLen())
	}
	slot0, _ := eng.TrackAt(0)
	if slot0.URL != "http://cdn/128.mp3" {
		t.Errorf("slot 0 url = %s, want resolved url", slot0.URL)
	}
	slot1, _ := eng.TrackAt(1)
	if slot1.InternalKey != model.InternalFakeSoundKey || slot1.URL != model.FakeAudioURL {
		t.Errorf("slot 1 = %+v, want fake placeholder", slot1)
	}
	if slot1.Title != "Beta" {
		t.Errorf("slot 1 title = %s, want metadata of next track", slot1.Title)
	}
}

func TestAddAllAppendsAndKeepsCurrent(t *testing.T) {
	ctrl, _, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	if err := ctrl.AddAll(ctx, tracks[:1]); err != nil {
		t.Fatalf("addAll: %v", err)
	}
	if err := ctrl.Play(ctx, &tracks[0], false); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := ctrl.AddAll(ctx, tracks[1:]); err != nil {
		t.Fatalf("second addAll: %v", err)
	}

	ids := playListIDs(ctrl)
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("playlist = %v, want [a b c]", ids)
	}
	cur := ctrl.CurrentMusic.Get()
	if cur == nil || cur.ID != "a" {
		t.Fatalf("current = %+v, want a", cur)
	}
	if model.IndexOf(ctrl.PlayList(), cur) != 0 {
		t.Error("current track should still be in the play list at its slot")
	}
}

func TestAddAllSkipsDuplicates(t *testing.T) {
	ctrl, _, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, []model.MusicItem{tracks[0], tracks[1]})
	ctrl.AddAll(ctx, []model.MusicItem{tracks[0], tracks[2]})
	// 同一批次内的重复也只保留一份
	ctrl.AddAll(ctx, []model.MusicItem{tracks[1], tracks[1]})

	ids := playListIDs(ctrl)
	if len(ids) != 3 {
		t.Fatalf("playlist = %v, want 3 unique entries", ids)
	}
	seen := map[string]int{}
	for _, id := range ids {
		seen[id]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("track %s appears %d times, want 1", id, n)
		}
	}
}

func TestAddAllAtSplicesBeforeIndex(t *testing.T) {
	ctrl, _, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	inserted := model.MusicItem{ID: "d", Platform: "netease", Title: "Delta"}
	if err := ctrl.AddAllAt(ctx, []model.MusicItem{inserted}, 1, false); err != nil {
		t.Fatalf("addAllAt: %v", err)
	}
	if ids := playListIDs(ctrl); len(ids) != 4 || ids[1] != "d" {
		t.Fatalf("playlist = %v, want d spliced at index 1", ids)
	}

	// 已在列表中的歌曲会从旧位置挪到新位置
	if err := ctrl.AddAllAt(ctx, []model.MusicItem{tracks[2]}, 1, false); err != nil {
		t.Fatalf("move existing: %v", err)
	}
	ids := playListIDs(ctrl)
	if len(ids) != 4 || ids[1] != "c" {
		t.Fatalf("playlist = %v, want c moved to index 1", ids)
	}
}

func TestPlayCurrentTrackReusesLoadedSource(t *testing.T) {
	p := onlineProvider()
	ctrl, eng, _ := newTestController(t, p)
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.Play(ctx, &tracks[0], false); err != nil {
		t.Fatalf("play: %v", err)
	}
	if p.urlCalls() != 1 {
		t.Fatalf("url calls = %d, want 1", p.urlCalls())
	}

	if err := ctrl.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	// 对已装载的当前曲目再次播放：复用槽位0的音源，恢复播放即可
	if err := ctrl.Play(ctx, &tracks[0], false); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if p.urlCalls() != 1 {
		t.Errorf("url calls = %d, replay should not resolve again", p.urlCalls())
	}
	if s, _ := eng.PlaybackState(); s != engine.StatePlaying {
		t.Errorf("state = %s, want playing after resume", s)
	}
}

func TestNaturalEndAdvancesToNext(t *testing.T) {
	ctrl, eng, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.Play(ctx, &tracks[0], false); err != nil {
		t.Fatalf("play: %v", err)
	}

	eng.FinishCurrent()

	waitFor(t, func() bool {
		cur := ctrl.CurrentMusic.Get()
		return cur != nil && cur.ID == "b"
	})
}

func TestSingleRepeatReplaysCurrent(t *testing.T) {
	ctrl, eng, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.SetRepeatMode(ctx, model.RepeatSingle); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if err := ctrl.Play(ctx, &tracks[0], false); err != nil {
		t.Fatalf("play: %v", err)
	}

	// 单曲循环下占位曲目展示当前曲目的元数据
	if slot1, _ := eng.TrackAt(1); slot1.Title != "Alpha" {
		t.Errorf("slot 1 title = %s, want current track", slot1.Title)
	}

	eng.FinishCurrent()

	// 重播回到槽位0，当前曲目不变
	waitFor(t, func() bool {
		idx, err := eng.ActiveTrackIndex()
		cur := ctrl.CurrentMusic.Get()
		return err == nil && idx == 0 && cur != nil && cur.ID == "a"
	})
}

func TestPlaybackErrorSkipsToNext(t *testing.T) {
	ctrl, eng, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.Play(ctx, &tracks[0], false); err != nil {
		t.Fatalf("play: %v", err)
	}

	eng.FailCurrent("android-io-error", "failed to connect to host")

	waitFor(t, func() bool {
		cur := ctrl.CurrentMusic.Get()
		return cur != nil && cur.ID == "b"
	})
}

func TestPlayWithoutSourceFails(t *testing.T) {
	ctrl, _, _ := newTestController(t, nil)
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.Play(ctx, &tracks[0], false); err != source.ErrNoSourceConfigured {
		t.Errorf("err = %v, want ErrNoSourceConfigured", err)
	}
}

func TestPlayMissingLocalFileFails(t *testing.T) {
	ctrl, eng, _ := newTestController(t, onlineProvider())
	ctx := context.Background()

	gone := model.MusicItem{
		ID:       "file:///music/gone.mp3",
		Platform: "local",
		Title:    "Gone",
		URL:      "file:///music/gone.mp3",
	}
	if err := ctrl.Play(ctx, &gone, false); err != ErrLocalFileMissing {
		t.Fatalf("err = %v, want ErrLocalFileMissing", err)
	}
	// 失败直接上抛，不把失效地址交给引擎，也不自动切歌
	if eng.QueueLen() != 0 {
		t.Error("engine queue should stay empty for a missing local file")
	}
}

func TestPlayFallsBackToFakeAudio(t *testing.T) {
	// 音源存在但所有档位都解析不出地址
	ctrl, eng, _ := newTestController(t, &fakeProvider{})
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.Play(ctx, &tracks[0], false); err != nil {
		t.Fatalf("play should succeed with fake substitute: %v", err)
	}
	if slot0, _ := eng.TrackAt(0); slot0.URL != model.FakeAudioURL {
		t.Errorf("slot 0 url = %s, want fake audio url", slot0.URL)
	}
}

func TestRemoveCurrentPicksIndexModLength(t *testing.T) {
	ctrl, _, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.Play(ctx, &tracks[2], false); err != nil {
		t.Fatalf("play: %v", err)
	}

	// 移除下标2的当前曲目，新列表长度2，新当前曲目下标 2 % 2 = 0
	if err := ctrl.Remove(ctx, &tracks[2]); err != nil {
		t.Fatalf("remove: %v", err)
	}

	waitFor(t, func() bool {
		cur := ctrl.CurrentMusic.Get()
		return cur != nil && cur.ID == "a"
	})
	if len(ctrl.PlayList()) != 2 {
		t.Errorf("playlist len = %d, want 2", len(ctrl.PlayList()))
	}
}

func TestRemoveCurrentWhilePausedResetsEngine(t *testing.T) {
	ctrl, eng, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.Play(ctx, &tracks[1], false); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := ctrl.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if err := ctrl.Remove(ctx, &tracks[1]); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// 未在播放时新当前曲目只装载状态，被移除曲目的音频要撤出引擎
	cur := ctrl.CurrentMusic.Get()
	if cur == nil || cur.ID != "c" {
		t.Fatalf("current = %+v, want c", cur)
	}
	if eng.QueueLen() != 0 {
		t.Error("engine should be reset, removed track's audio must not stay loaded")
	}
	if s, _ := eng.PlaybackState(); s == engine.StatePlaying {
		t.Error("removal of a paused track should not start playback")
	}
}

func TestRemoveLastTrackClearsEverything(t *testing.T) {
	ctrl, _, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	only := model.MusicItem{ID: "solo", Platform: "netease", Title: "Solo"}

	ctrl.AddAll(ctx, []model.MusicItem{only})
	if err := ctrl.Play(ctx, &only, false); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := ctrl.Remove(ctx, &only); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if ctrl.CurrentMusic.Get() != nil {
		t.Error("current should be nil after removing the last track")
	}
	if len(ctrl.PlayList()) != 0 {
		t.Error("playlist should be empty")
	}
}

func TestSkipToNextOnEmptyListClearsCurrent(t *testing.T) {
	ctrl, _, _ := newTestController(t, onlineProvider())
	ctx := context.Background()

	orphan := testTracks()[0]
	ctrl.lock()
	ctrl.setPlayListLocked(nil)
	ctrl.CurrentMusic.Set(&orphan)
	ctrl.currentIndex = -1
	ctrl.unlock()

	if err := ctrl.SkipToNext(ctx); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if ctrl.CurrentMusic.Get() != nil {
		t.Error("skip on an empty play list should clear the current track")
	}
}

func TestShuffleRoundTripRestoresOrder(t *testing.T) {
	ctrl, _, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.SetRepeatMode(ctx, model.RepeatShuffle); err != nil {
		t.Fatalf("shuffle: %v", err)
	}
	if err := ctrl.SetRepeatMode(ctx, model.RepeatQueue); err != nil {
		t.Fatalf("back to queue: %v", err)
	}

	list := ctrl.PlayList()
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, list[i].ID, id)
		}
	}
}

func TestNonShuffleModeSwitchKeepsOrder(t *testing.T) {
	ctrl, _, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.Play(ctx, &tracks[0], false); err != nil {
		t.Fatalf("play: %v", err)
	}
	inserted := model.MusicItem{ID: "d", Platform: "netease", Title: "Delta"}
	if err := ctrl.AddAsNextTrack(ctx, inserted); err != nil {
		t.Fatalf("addAsNext: %v", err)
	}

	// 未跨越随机播放边界的模式切换不重排列表
	if err := ctrl.SetRepeatMode(ctx, model.RepeatSingle); err != nil {
		t.Fatalf("set single: %v", err)
	}
	ids := playListIDs(ctrl)
	if len(ids) != 4 || ids[1] != "d" {
		t.Errorf("playlist = %v, inserted track should stay at index 1", ids)
	}
}

func TestAddAsNextTrackInsertsAfterCurrent(t *testing.T) {
	ctrl, _, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.Play(ctx, &tracks[0], false); err != nil {
		t.Fatalf("play: %v", err)
	}

	next := model.MusicItem{ID: "d", Platform: "netease", Title: "Delta"}
	if err := ctrl.AddAsNextTrack(ctx, next); err != nil {
		t.Fatalf("addAsNext: %v", err)
	}

	list := ctrl.PlayList()
	if list[1].ID != "d" {
		t.Errorf("position 1 = %s, want d", list[1].ID)
	}
	if got := ctrl.GetNextMusic(); got == nil || got.ID != "d" {
		t.Error("next music should be the inserted track")
	}
}

func TestClearToBePlayedKeepsCurrent(t *testing.T) {
	ctrl, _, _ := newTestController(t, onlineProvider())
	ctx := context.Background()
	tracks := testTracks()

	ctrl.AddAll(ctx, tracks)
	if err := ctrl.Play(ctx, &tracks[1], false); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := ctrl.ClearToBePlayed(ctx); err != nil {
		t.Fatalf("clearToBePlayed: %v", err)
	}

	list := ctrl.PlayList()
	if len(list) != 1 || list[0].ID != "b" {
		t.Errorf("playlist = %+v, want only current track", list)
	}
}

func TestAutoCacheGoesThroughDownloadQueue(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemoryStore()
	p := onlineProvider()

	registry := source.NewRegistry(store, func(model.MusicApi) source.Provider { return p })
	registry.Add(ctx, model.MusicApi{ID: "api", BaseURL: "http://example.com"})
	resolver := source.NewResolver(registry, store, nil, model.Quality128k)
	cache := cachemgr.NewManager(t.TempDir(), nil)
	lib := library.NewLibrary(store)
	lib.Load(ctx)

	queue := &fakeCacheQueue{}
	eng := engine.NewMemoryEngine()
	ctrl := NewController(eng, store, resolver, cache, lib, queue)
	ctrl.autoCacheWait = 20 * time.Millisecond
	if err := ctrl.Setup(ctx); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer ctrl.Close()

	if err := ctrl.SetAutoCacheLocal(ctx, true); err != nil {
		t.Fatalf("enable auto cache: %v", err)
	}
	tracks := testTracks()
	ctrl.AddAll(ctx, tracks)
	if err := ctrl.Play(ctx, &tracks[0], false); err != nil {
		t.Fatalf("play: %v", err)
	}

	waitFor(t, func() bool {
		_, queued := queue.queued()
		return len(queued) == 1
	})
	origin, queued := queue.queued()
	if origin != model.OriginAuto {
		t.Errorf("origin = %s, want auto", origin)
	}
	if queued[0].ID != "a" {
		t.Errorf("queued track = %s, want a", queued[0].ID)
	}
}

func TestSetupRestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemoryStore()
	p := onlineProvider()

	registry := source.NewRegistry(store, func(model.MusicApi) source.Provider { return p })
	registry.Add(ctx, model.MusicApi{ID: "api", BaseURL: "http://example.com"})
	resolver := source.NewResolver(registry, store, nil, model.Quality128k)
	cache := cachemgr.NewManager(t.TempDir(), nil)
	lib := library.NewLibrary(store)
	lib.Load(ctx)

	first := NewController(engine.NewMemoryEngine(), store, resolver, cache, lib, nil)
	if err := first.Setup(ctx); err != nil {
		t.Fatalf("setup: %v", err)
	}
	tracks := testTracks()
	first.AddAll(ctx, tracks)
	first.Play(ctx, &tracks[1], false)
	first.SetRepeatMode(ctx, model.RepeatSingle)
	first.Close()

	second := NewController(engine.NewMemoryEngine(), store, resolver, cache, lib, nil)
	if err := second.Setup(ctx); err != nil {
		t.Fatalf("second setup: %v", err)
	}
	defer second.Close()

	if cur := second.CurrentMusic.Get(); cur == nil || cur.ID != "b" {
		t.Error("current track should survive a restart")
	}
	if len(second.PlayList()) != 3 {
		t.Error("playlist should survive a restart")
	}
	if second.RepeatMode.Get() != model.RepeatSingle {
		t.Error("repeat mode should survive a restart")
	}
}

func TestToggleRepeatModeCycles(t *testing.T) {
	ctrl, _, _ := newTestController(t, onlineProvider())
	ctx := context.Background()

	// 默认 QUEUE，循环一整圈
	modes := []model.RepeatMode{model.RepeatShuffle, model.RepeatSingle, model.RepeatQueue}
	for _, want := range modes {
		got, err := ctrl.ToggleRepeatMode(ctx)
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if got != want {
			t.Errorf("toggle = %s, want %s", got, want)
		}
	}
}
