package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"MuPocket/model"
)

// GetDownloadsHandler 返回下载队列快照
func (h *APIHandler) GetDownloadsHandler(w http.ResponseWriter, r *http.Request) {
	tasks := h.dl.Tasks.Get()
	if tasks == nil {
		tasks = []model.DownloadTask{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":  tasks,
		"paused": h.dl.Paused(),
	})
}

// AddDownloadsHandler 将歌曲加入下载队列
func (h *APIHandler) AddDownloadsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tracks []model.MusicItem `json:"tracks"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Tracks) == 0 {
		writeError(w, http.StatusBadRequest, "tracks is required")
		return
	}
	h.dl.AddToQueue(model.OriginUser, req.Tracks...)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"tasks": h.dl.Tasks.Get()})
}

// PauseDownloadsHandler 暂停整个下载队列
func (h *APIHandler) PauseDownloadsHandler(w http.ResponseWriter, r *http.Request) {
	h.dl.Pause()
	w.WriteHeader(http.StatusNoContent)
}

// ResumeDownloadsHandler 恢复下载队列
func (h *APIHandler) ResumeDownloadsHandler(w http.ResponseWriter, r *http.Request) {
	h.dl.Resume()
	w.WriteHeader(http.StatusNoContent)
}

// RemoveDownloadHandler 移除单个下载任务
func (h *APIHandler) RemoveDownloadHandler(w http.ResponseWriter, r *http.Request) {
	trackID := mux.Vars(r)["id"]
	if trackID == "" {
		writeError(w, http.StatusBadRequest, "track id is required")
		return
	}
	h.dl.RemoveTask(trackID)
	w.WriteHeader(http.StatusNoContent)
}

// ClearFinishedDownloadsHandler 清理已结束的下载任务
func (h *APIHandler) ClearFinishedDownloadsHandler(w http.ResponseWriter, r *http.Request) {
	h.dl.ClearFinished()
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": h.dl.Tasks.Get()})
}
