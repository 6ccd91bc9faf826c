package server

import (
	"encoding/json"
	"net/http"

	"MuPocket/config"
	"MuPocket/core/downloader"
	"MuPocket/core/library"
	"MuPocket/core/player"
	"MuPocket/core/source"
	"MuPocket/persist"
	"MuPocket/repository"
)

// APIHandler 聚合所有HTTP处理器的依赖
type APIHandler struct {
	cfg      *config.Config
	ctrl     *player.Controller
	dl       *downloader.Manager
	lib      *library.Library
	registry *source.Registry
	resolver *source.Resolver
	store    persist.Store
	songRepo *repository.ResolvedSongRepository // 数据库未配置时为nil
	hub      *Hub
}

// NewAPIHandler 创建HTTP处理器
func NewAPIHandler(cfg *config.Config, ctrl *player.Controller, dl *downloader.Manager, lib *library.Library, registry *source.Registry, resolver *source.Resolver, store persist.Store, songRepo *repository.ResolvedSongRepository, hub *Hub) *APIHandler {
	return &APIHandler{
		cfg:      cfg,
		ctrl:     ctrl,
		dl:       dl,
		lib:      lib,
		registry: registry,
		resolver: resolver,
		store:    store,
		songRepo: songRepo,
		hub:      hub,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
