package downloader

import (
	"context"
	"sort"
	"sync"

	"MuPocket/core/cachemgr"
	"MuPocket/logger"
	"MuPocket/model"
	"MuPocket/state"
)

// Transfer 实际搬运字节的下载通道
type Transfer interface {
	DownloadToCache(ctx context.Context, rawURL string, headers map[string]string, item *model.MusicItem, quality model.Quality, progress cachemgr.ProgressFunc) (string, error)
}

// ResolveFunc 歌曲缺少可用地址时的解析回退
type ResolveFunc func(ctx context.Context, item *model.MusicItem) (string, model.Quality, error)

// ImportFunc 下载完成后的登记回调
type ImportFunc func(ctx context.Context, item model.MusicItem) error

// Manager 下载队列管理
// 任务按歌曲ID唯一，先进先出，自排空：每个任务结束后自动拉起下一个等待任务
type Manager struct {
	mu          sync.Mutex
	transfer    Transfer
	resolve     ResolveFunc
	importDone  ImportFunc
	quality     func() model.Quality
	concurrency int
	paused      bool
	nextJobID   int
	nextSeq     int64

	tasks   map[string]*model.DownloadTask
	cancels map[string]context.CancelFunc

	// Tasks 队列快照，按加入顺序排列
	Tasks *state.Cell[[]model.DownloadTask]
}

// NewManager 创建下载队列
// quality 返回下载使用的全局音质，concurrency 小于1时取1
func NewManager(transfer Transfer, resolve ResolveFunc, importDone ImportFunc, quality func() model.Quality, concurrency int) *Manager {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Manager{
		transfer:    transfer,
		resolve:     resolve,
		importDone:  importDone,
		quality:     quality,
		concurrency: concurrency,
		tasks:       make(map[string]*model.DownloadTask),
		cancels:     make(map[string]context.CancelFunc),
		Tasks:       state.NewCell[[]model.DownloadTask](nil),
	}
}

// snapshotLocked 发布队列快照，调用方需持锁
func (m *Manager) snapshotLocked() {
	tasks := make([]model.DownloadTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Seq < tasks[j].Seq })
	m.Tasks.Set(tasks)
}

// AddToQueue 将歌曲加入下载队列
// 已在下载中或已完成的歌曲跳过；失败或暂停的任务重置为等待
func (m *Manager) AddToQueue(origin model.DownloadOrigin, tracks ...model.MusicItem) {
	m.mu.Lock()
	added := 0
	for i := range tracks {
		track := tracks[i]
		if existing, ok := m.tasks[track.ID]; ok {
			switch existing.Status {
			case model.DownloadDownloading, model.DownloadCompleted, model.DownloadWaiting:
				continue
			default:
				existing.Status = model.DownloadWaiting
				existing.Progress = 0
				added++
				continue
			}
		}
		m.nextSeq++
		m.tasks[track.ID] = &model.DownloadTask{
			Track:  track,
			Status: model.DownloadWaiting,
			Origin: origin,
			Seq:    m.nextSeq,
		}
		added++
	}
	m.snapshotLocked()
	m.mu.Unlock()

	if added > 0 {
		logger.Info("歌曲加入下载队列", logger.Int("count", added))
		m.processNext()
	}
}

// processNext 拉起等待中的任务直到达到并发上限
func (m *Manager) processNext() {
	m.mu.Lock()
	if m.paused {
		m.mu.Unlock()
		return
	}

	downloading := 0
	for _, t := range m.tasks {
		if t.Status == model.DownloadDownloading {
			downloading++
		}
	}

	var starting []*model.DownloadTask
	for downloading < m.concurrency {
		next := m.nextWaitingLocked()
		if next == nil {
			break
		}
		next.Status = model.DownloadDownloading
		m.nextJobID++
		next.JobID = m.nextJobID
		starting = append(starting, next)
		downloading++
	}
	if len(starting) > 0 {
		m.snapshotLocked()
	}
	m.mu.Unlock()

	for _, task := range starting {
		go m.startDownload(task.Track, task.JobID)
	}
}

// nextWaitingLocked 按加入顺序返回下一个等待任务
func (m *Manager) nextWaitingLocked() *model.DownloadTask {
	var next *model.DownloadTask
	for _, t := range m.tasks {
		if t.Status != model.DownloadWaiting {
			continue
		}
		if next == nil || t.Seq < next.Seq {
			next = t
		}
	}
	return next
}

// startDownload 执行单个下载任务，结束后自动排空队列
func (m *Manager) startDownload(track model.MusicItem, jobID int) {
	defer m.processNext()

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	task, ok := m.tasks[track.ID]
	if !ok || task.JobID != jobID || task.Status != model.DownloadDownloading {
		m.mu.Unlock()
		cancel()
		return
	}
	m.cancels[track.ID] = cancel
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		delete(m.cancels, track.ID)
		m.mu.Unlock()
	}()

	quality := m.quality()
	url := track.URL
	if !track.HasUsableURL() {
		resolved, _, err := m.resolve(ctx, &track)
		if err != nil {
			logger.Warn("下载前解析失败",
				logger.String("title", track.Title),
				logger.ErrorField(err))
			m.finish(track.ID, jobID, model.DownloadFailed, "")
			return
		}
		url = resolved
	}

	path, err := m.transfer.DownloadToCache(ctx, url, nil, &track, quality, func(received, total int64) {
		if total > 0 {
			m.setProgress(track.ID, jobID, float64(received)/float64(total))
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			// 暂停或移除导致的取消，状态由发起方设置
			return
		}
		logger.Error("歌曲下载失败",
			logger.String("title", track.Title),
			logger.ErrorField(err))
		m.finish(track.ID, jobID, model.DownloadFailed, "")
		return
	}

	if !m.finish(track.ID, jobID, model.DownloadCompleted, path) {
		return
	}

	if m.importDone != nil {
		imported := track
		imported.URL = "file://" + path
		if err := m.importDone(context.Background(), imported); err != nil {
			logger.Warn("下载完成后登记失败",
				logger.String("title", track.Title),
				logger.ErrorField(err))
		}
	}
}

// setProgress 更新任务进度
func (m *Manager) setProgress(trackID string, jobID int, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[trackID]
	if !ok || task.JobID != jobID || task.Status != model.DownloadDownloading {
		return
	}
	task.Progress = progress
	m.snapshotLocked()
}

// finish 结束任务并发布快照
// 任务已被暂停或移除时丢弃迟到的结果
func (m *Manager) finish(trackID string, jobID int, status model.DownloadStatus, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[trackID]
	if !ok || task.JobID != jobID || task.Status != model.DownloadDownloading {
		return false
	}
	task.Status = status
	if status == model.DownloadCompleted {
		task.Progress = 1
		task.Track.URL = "file://" + path
	}
	m.snapshotLocked()
	return true
}

// Pause 暂停整个队列
// 下载中的任务取消传输并回到暂停状态
func (m *Manager) Pause() {
	m.mu.Lock()
	m.paused = true
	for id, t := range m.tasks {
		if t.Status == model.DownloadDownloading || t.Status == model.DownloadWaiting {
			t.Status = model.DownloadPaused
			if cancel, ok := m.cancels[id]; ok {
				cancel()
			}
		}
	}
	m.snapshotLocked()
	m.mu.Unlock()
	logger.Info("下载队列已暂停")
}

// Resume 恢复队列，暂停的任务回到等待状态
func (m *Manager) Resume() {
	m.mu.Lock()
	m.paused = false
	for _, t := range m.tasks {
		if t.Status == model.DownloadPaused {
			t.Status = model.DownloadWaiting
			t.Progress = 0
		}
	}
	m.snapshotLocked()
	m.mu.Unlock()
	logger.Info("下载队列已恢复")
	m.processNext()
}

// Paused 返回队列是否处于暂停状态
func (m *Manager) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// RemoveTask 从队列移除任务，下载中的任务先取消传输
func (m *Manager) RemoveTask(trackID string) {
	m.mu.Lock()
	if cancel, ok := m.cancels[trackID]; ok {
		cancel()
	}
	delete(m.tasks, trackID)
	m.snapshotLocked()
	m.mu.Unlock()
	m.processNext()
}

// ClearFinished 清理已完成和失败的任务
func (m *Manager) ClearFinished() {
	m.mu.Lock()
	for id, t := range m.tasks {
		if t.Status == model.DownloadCompleted || t.Status == model.DownloadFailed {
			delete(m.tasks, id)
		}
	}
	m.snapshotLocked()
	m.mu.Unlock()
}

// Task 返回指定歌曲的任务快照
func (m *Manager) Task(trackID string) (model.DownloadTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[trackID]
	if !ok {
		return model.DownloadTask{}, false
	}
	return *t, true
}
