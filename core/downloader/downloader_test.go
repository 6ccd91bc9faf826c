package downloader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"MuPocket/core/cachemgr"
	"MuPocket/model"
)

type fakeTransfer struct {
	mu      sync.Mutex
	started []string
	urls    map[string]string // trackID -> rawURL seen
	release chan struct{}     // 非nil时下载阻塞到该通道关闭
	fail    map[string]error
}

func (f *fakeTransfer) DownloadToCache(ctx context.Context, rawURL string, _ map[string]string, item *model.MusicItem, _ model.Quality, _ cachemgr.ProgressFunc) (string, error) {
	f.mu.Lock()
	f.started = append(f.started, item.ID)
	if f.urls == nil {
		f.urls = make(map[string]string)
	}
	f.urls[item.ID] = rawURL
	release := f.release
	err := f.fail[item.ID]
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return "/cache/" + item.ID + ".mp3", nil
}

func (f *fakeTransfer) startedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.started))
	copy(out, f.started)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func fixedQuality() model.Quality { return model.Quality128k }

func track(id string) model.MusicItem {
	return model.MusicItem{ID: id, Platform: "netease", Title: id, URL: "http://cdn/" + id + ".mp3"}
}

func taskStatus(m *Manager, id string) model.DownloadStatus {
	t, ok := m.Task(id)
	if !ok {
		return ""
	}
	return t.Status
}

func TestDownloadsRunFIFOWithConcurrencyOne(t *testing.T) {
	transfer := &fakeTransfer{release: make(chan struct{})}
	m := NewManager(transfer, nil, nil, fixedQuality, 1)

	m.AddToQueue(model.OriginUser, track("a"), track("b"))

	waitFor(t, func() bool { return len(transfer.startedIDs()) == 1 })
	if transfer.startedIDs()[0] != "a" {
		t.Errorf("first started = %s, want a", transfer.startedIDs()[0])
	}
	if taskStatus(m, "b") != model.DownloadWaiting {
		t.Errorf("task b status = %s, want waiting", taskStatus(m, "b"))
	}

	close(transfer.release)

	waitFor(t, func() bool {
		return taskStatus(m, "a") == model.DownloadCompleted &&
			taskStatus(m, "b") == model.DownloadCompleted
	})

	ids := transfer.startedIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("start order = %v, want [a b]", ids)
	}
}

func TestDownloadResolvesMissingURL(t *testing.T) {
	transfer := &fakeTransfer{}
	resolved := "http://cdn/resolved.mp3"
	resolve := func(_ context.Context, _ *model.MusicItem) (string, model.Quality, error) {
		return resolved, model.Quality128k, nil
	}
	m := NewManager(transfer, resolve, nil, fixedQuality, 1)

	noURL := model.MusicItem{ID: "x", Platform: "netease", Title: "x"}
	m.AddToQueue(model.OriginUser, noURL)

	waitFor(t, func() bool { return taskStatus(m, "x") == model.DownloadCompleted })

	transfer.mu.Lock()
	defer transfer.mu.Unlock()
	if transfer.urls["x"] != resolved {
		t.Errorf("transfer url = %s, want resolved fallback", transfer.urls["x"])
	}
}

func TestDownloadFailsWhenResolveFails(t *testing.T) {
	transfer := &fakeTransfer{}
	resolve := func(_ context.Context, _ *model.MusicItem) (string, model.Quality, error) {
		return "", "", errors.New("no playable source")
	}
	m := NewManager(transfer, resolve, nil, fixedQuality, 1)

	noURL := model.MusicItem{ID: "x", Platform: "netease"}
	m.AddToQueue(model.OriginUser, noURL)

	waitFor(t, func() bool { return taskStatus(m, "x") == model.DownloadFailed })
	if len(transfer.startedIDs()) != 0 {
		t.Error("transfer should not start when resolve fails")
	}
}

func TestPauseAndResume(t *testing.T) {
	transfer := &fakeTransfer{release: make(chan struct{})}
	m := NewManager(transfer, nil, nil, fixedQuality, 1)

	m.AddToQueue(model.OriginUser, track("a"), track("b"))
	waitFor(t, func() bool { return len(transfer.startedIDs()) == 1 })

	m.Pause()
	waitFor(t, func() bool {
		return taskStatus(m, "a") == model.DownloadPaused &&
			taskStatus(m, "b") == model.DownloadPaused
	})
	if !m.Paused() {
		t.Error("queue should report paused")
	}

	close(transfer.release)
	m.Resume()

	waitFor(t, func() bool {
		return taskStatus(m, "a") == model.DownloadCompleted &&
			taskStatus(m, "b") == model.DownloadCompleted
	})
}

func TestCompletedTaskImported(t *testing.T) {
	transfer := &fakeTransfer{}
	var mu sync.Mutex
	var imported []model.MusicItem
	importFn := func(_ context.Context, item model.MusicItem) error {
		mu.Lock()
		imported = append(imported, item)
		mu.Unlock()
		return nil
	}
	m := NewManager(transfer, nil, importFn, fixedQuality, 1)

	m.AddToQueue(model.OriginUser, track("a"))
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(imported) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if imported[0].URL != "file:///cache/a.mp3" {
		t.Errorf("imported url = %s, want cached file uri", imported[0].URL)
	}
}

func TestRemoveTaskCancelsDownload(t *testing.T) {
	transfer := &fakeTransfer{release: make(chan struct{})}
	m := NewManager(transfer, nil, nil, fixedQuality, 1)

	m.AddToQueue(model.OriginUser, track("a"))
	waitFor(t, func() bool { return len(transfer.startedIDs()) == 1 })

	m.RemoveTask("a")
	if _, ok := m.Task("a"); ok {
		t.Error("task should be gone after removal")
	}
}

func TestAddToQueueSkipsCompleted(t *testing.T) {
	transfer := &fakeTransfer{}
	m := NewManager(transfer, nil, nil, fixedQuality, 1)

	m.AddToQueue(model.OriginUser, track("a"))
	waitFor(t, func() bool { return taskStatus(m, "a") == model.DownloadCompleted })

	m.AddToQueue(model.OriginUser, track("a"))
	if taskStatus(m, "a") != model.DownloadCompleted {
		t.Error("re-adding a completed track should not reset it")
	}
	if len(transfer.startedIDs()) != 1 {
		t.Error("completed track should not download again")
	}
}
