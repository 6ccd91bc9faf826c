package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"MuPocket/core/library"
	"MuPocket/model"
)

// GetPlaylistsHandler 返回音乐库中的全部歌单
func (h *APIHandler) GetPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	lists := h.lib.PlayLists.Get()
	if lists == nil {
		lists = []model.PlayList{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"playlists": lists})
}

// CreatePlaylistHandler 新建歌单或导入在线歌单
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string          `json:"name"`
		Playlist *model.PlayList `json:"playlist"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var created *model.PlayList
	var err error
	if req.Playlist != nil {
		created, err = h.lib.ImportPlaylist(r.Context(), *req.Playlist)
	} else if req.Name != "" {
		created, err = h.lib.CreatePlaylist(r.Context(), req.Name)
	} else {
		writeError(w, http.StatusBadRequest, "name or playlist is required")
		return
	}
	if err != nil {
		if err == library.ErrPlaylistExists {
			writeError(w, http.StatusConflict, "playlist already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// DeletePlaylistHandler 删除歌单
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.lib.DeletePlaylist(r.Context(), id); err != nil {
		if err == library.ErrFavoritesProtected {
			writeError(w, http.StatusForbidden, "favorites playlist can not be deleted")
			return
		}
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSongToPlaylistHandler 向歌单添加歌曲
func (h *APIHandler) AddSongToPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		Song model.MusicItem `json:"song"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.lib.AddSongToPlaylist(r.Context(), id, req.Song); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.lib.FindPlaylist(id))
}

// RemoveSongFromPlaylistHandler 从歌单移除歌曲
func (h *APIHandler) RemoveSongFromPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		Song model.MusicItem `json:"song"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.lib.RemoveSongFromPlaylist(r.Context(), id, &req.Song); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.lib.FindPlaylist(id))
}

// GetImportedHandler 返回导入的本地歌曲
func (h *APIHandler) GetImportedHandler(w http.ResponseWriter, r *http.Request) {
	imported := h.lib.ImportedLocalMusic.Get()
	if imported == nil {
		imported = []model.MusicItem{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"imported": imported})
}

// ImportLocalHandler 将服务器上的音频文件移入导入目录并登记
func (h *APIHandler) ImportLocalHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path  string          `json:"path"`
		Track model.MusicItem `json:"track"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" || req.Track.ID == "" {
		writeError(w, http.StatusBadRequest, "path and track.id are required")
		return
	}
	if err := h.lib.ImportLocalFile(r.Context(), req.Path, req.Track, h.cfg.ImportDir); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, h.lib.FindImportedByID(req.Track.ID))
}

// DeleteImportedHandler 删除导入的本地歌曲及其文件
func (h *APIHandler) DeleteImportedHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Track model.MusicItem `json:"track"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.lib.DeleteImported(r.Context(), &req.Track); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCacheHandler 清空缓存目录并剔除失效的导入条目
func (h *APIHandler) ClearCacheHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.ClearCache(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettingsHandler 返回播放器设置
func (h *APIHandler) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"autoCacheLocal":      h.ctrl.AutoCacheLocal.Get(),
		"isCachedIconVisible": h.ctrl.IsCachedIconVisible.Get(),
		"songsNumsToLoad":     h.ctrl.SongsNumsToLoad.Get(),
		"quality":             h.resolver.Quality.Get(),
	})
}

// UpdateSettingsHandler 更新播放器设置，未携带的字段保持不变
func (h *APIHandler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AutoCacheLocal      *bool `json:"autoCacheLocal"`
		IsCachedIconVisible *bool `json:"isCachedIconVisible"`
		SongsNumsToLoad     *int  `json:"songsNumsToLoad"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if req.AutoCacheLocal != nil {
		if err := h.ctrl.SetAutoCacheLocal(r.Context(), *req.AutoCacheLocal); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if req.IsCachedIconVisible != nil {
		if err := h.ctrl.SetIsCachedIconVisible(r.Context(), *req.IsCachedIconVisible); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if req.SongsNumsToLoad != nil {
		if err := h.ctrl.SetSongsNumsToLoad(r.Context(), *req.SongsNumsToLoad); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	h.GetSettingsHandler(w, r)
}
