package server

import (
	"net/http"

	"MuPocket/core/player"
	"MuPocket/core/source"
	"MuPocket/logger"
	"MuPocket/model"
)

// GetCurrentHandler 返回当前播放状态
func (h *APIHandler) GetCurrentHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"current":    h.ctrl.CurrentMusic.Get(),
		"repeatMode": h.ctrl.RepeatMode.Get(),
		"quality":    h.resolver.Quality.Get(),
		"apiState":   h.resolver.ApiState.Get(),
		"lyric":      h.ctrl.Lyric.Get(),
	})
}

// GetPlayListHandler 返回播放列表快照
func (h *APIHandler) GetPlayListHandler(w http.ResponseWriter, r *http.Request) {
	list := h.ctrl.PlayList()
	if list == nil {
		list = []model.MusicItem{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"playList": list,
		"next":     h.ctrl.GetNextMusic(),
		"previous": h.ctrl.GetPreviousMusic(),
	})
}

// PlayHandler 播放指定歌曲，未携带歌曲时恢复当前曲目
func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Track     *model.MusicItem `json:"track"`
		ForcePlay bool             `json:"forcePlay"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	if err := h.ctrl.Play(r.Context(), req.Track, req.ForcePlay); err != nil {
		if err == source.ErrNoSourceConfigured {
			writeError(w, http.StatusConflict, "no music api selected")
			return
		}
		if err == player.ErrLocalFileMissing {
			writeError(w, http.StatusNotFound, "local file is missing")
			return
		}
		logger.Error("播放请求失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"current": h.ctrl.CurrentMusic.Get()})
}

// PauseHandler 暂停播放
func (h *APIHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Pause(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResumeHandler 恢复播放
func (h *APIHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Resume(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SkipToNextHandler 切到下一首
func (h *APIHandler) SkipToNextHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.SkipToNext(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"current": h.ctrl.CurrentMusic.Get()})
}

// SkipToPreviousHandler 切到上一首
func (h *APIHandler) SkipToPreviousHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.SkipToPrevious(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"current": h.ctrl.CurrentMusic.Get()})
}

// SeekHandler 跳转播放进度
func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position float64 `json:"position"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.ctrl.SeekTo(r.Context(), req.Position); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReplacePlayListHandler 整体替换播放列表，可同时指定立即播放的歌曲
func (h *APIHandler) ReplacePlayListHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tracks []model.MusicItem `json:"tracks"`
		Play   *model.MusicItem  `json:"play"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var err error
	if req.Play != nil {
		err = h.ctrl.PlayWithReplacePlayList(r.Context(), *req.Play, req.Tracks)
	} else {
		err = h.ctrl.AddAll(r.Context(), req.Tracks)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playList": h.ctrl.PlayList()})
}

// AddTrackHandler 追加单曲，next=true时插入到当前曲目之后
func (h *APIHandler) AddTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Track model.MusicItem `json:"track"`
		Next  bool            `json:"next"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var err error
	if req.Next {
		err = h.ctrl.AddAsNextTrack(r.Context(), req.Track)
	} else {
		err = h.ctrl.Add(r.Context(), req.Track)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playList": h.ctrl.PlayList()})
}

// RemoveTrackHandler 从播放列表移除歌曲
func (h *APIHandler) RemoveTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Track model.MusicItem `json:"track"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.ctrl.Remove(r.Context(), &req.Track); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"playList": h.ctrl.PlayList(),
		"current":  h.ctrl.CurrentMusic.Get(),
	})
}

// ClearHandler 清空播放状态
func (h *APIHandler) ClearHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearUpcomingHandler 清空待播歌曲，保留当前曲目
func (h *APIHandler) ClearUpcomingHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.ClearToBePlayed(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playList": h.ctrl.PlayList()})
}

// SetRepeatModeHandler 设置播放模式
func (h *APIHandler) SetRepeatModeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode model.RepeatMode `json:"mode"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	switch req.Mode {
	case model.RepeatShuffle, model.RepeatQueue, model.RepeatSingle:
	default:
		writeError(w, http.StatusBadRequest, "invalid repeat mode")
		return
	}
	if err := h.ctrl.SetRepeatMode(r.Context(), req.Mode); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"repeatMode": req.Mode})
}

// ToggleRepeatModeHandler 循环切换播放模式
func (h *APIHandler) ToggleRepeatModeHandler(w http.ResponseWriter, r *http.Request) {
	mode, err := h.ctrl.ToggleRepeatMode(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"repeatMode": mode})
}

// SetQualityHandler 切换全局音质
func (h *APIHandler) SetQualityHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quality model.Quality `json:"quality"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Quality.Valid() {
		writeError(w, http.StatusBadRequest, "invalid quality")
		return
	}
	if err := h.ctrl.ChangeQuality(r.Context(), req.Quality); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"quality": req.Quality})
}
