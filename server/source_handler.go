package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"MuPocket/model"
)

// GetApisHandler 返回已导入的音源列表
func (h *APIHandler) GetApisHandler(w http.ResponseWriter, r *http.Request) {
	apis := h.registry.Apis.Get()
	if apis == nil {
		apis = []model.MusicApi{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"apis":     apis,
		"selected": h.registry.Selected.Get(),
		"state":    h.resolver.ApiState.Get(),
	})
}

// AddApiHandler 导入音源描述
func (h *APIHandler) AddApiHandler(w http.ResponseWriter, r *http.Request) {
	var api model.MusicApi
	if !decodeBody(w, r, &api) {
		return
	}
	if api.ID == "" || api.BaseURL == "" {
		writeError(w, http.StatusBadRequest, "id and baseUrl are required")
		return
	}
	if err := h.registry.Add(r.Context(), api); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"apis": h.registry.Apis.Get()})
}

// DeleteApiHandler 删除音源
func (h *APIHandler) DeleteApiHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.registry.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectApiHandler 选中音源
func (h *APIHandler) SelectApiHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.registry.SelectByID(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"selected": h.registry.Selected.Get()})
}

// ReloadApiHandler 重载当前选中的音源
func (h *APIHandler) ReloadApiHandler(w http.ResponseWriter, r *http.Request) {
	reloaded, err := h.registry.ReloadSelected(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"selected": reloaded})
}

// GetResolvedHandler 返回最近的解析记录
func (h *APIHandler) GetResolvedHandler(w http.ResponseWriter, r *http.Request) {
	if h.songRepo == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"songs": []model.ResolvedSong{}})
		return
	}
	songs, err := h.songRepo.RecentResolved(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"songs": songs})
}
