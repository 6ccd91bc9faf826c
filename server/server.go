package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"MuPocket/config"
	"MuPocket/core/cachemgr"
	"MuPocket/core/downloader"
	"MuPocket/core/library"
	"MuPocket/core/player"
	"MuPocket/core/source"
	"MuPocket/engine"
	"MuPocket/logger"
	"MuPocket/model"
	"MuPocket/persist"
	"MuPocket/repository"
	"MuPocket/storage"
)

// Start 装配全部组件并启动HTTP服务
func Start() {
	cfg := config.Load()
	ctx := context.Background()

	// Redis是状态持久化的底座，连不上直接退出
	store, err := persist.NewRedisStore(cfg)
	if err != nil {
		logger.Fatal("连接Redis失败", logger.ErrorField(err))
	}
	defer store.Close()

	// MySQL只承载解析记录缓存，不可用时降级运行
	var songRepo *repository.ResolvedSongRepository
	var recorder source.Recorder
	if db, err := repository.ConnectGormDB(cfg); err != nil {
		logger.Warn("数据库不可用，解析记录缓存关闭", logger.ErrorField(err))
	} else {
		defer repository.CloseGormDB(db)
		songRepo = repository.NewResolvedSongRepository(db)
		recorder = songRepo
	}

	// MinIO镜像按需开启
	var mirror cachemgr.Mirror
	if cfg.MinioEnabled {
		if m, err := storage.NewMinioStorage(cfg); err != nil {
			logger.Warn("MinIO不可用，缓存镜像关闭", logger.ErrorField(err))
		} else {
			mirror = m
		}
	}

	cache := cachemgr.NewManager(cfg.CacheDir, mirror)
	if err := cache.EnsureDir(); err != nil {
		logger.Fatal("创建缓存目录失败", logger.ErrorField(err))
	}

	lib := library.NewLibrary(store)
	if err := lib.Load(ctx); err != nil {
		logger.Fatal("加载音乐库失败", logger.ErrorField(err))
	}

	registry := source.NewRegistry(store, nil)
	if err := registry.Load(ctx); err != nil {
		logger.Fatal("加载音源注册表失败", logger.ErrorField(err))
	}

	resolver := source.NewResolver(registry, store, recorder, model.Quality(cfg.DefaultQuality))
	if err := resolver.Load(ctx); err != nil {
		logger.Fatal("加载音质设置失败", logger.ErrorField(err))
	}

	dl := downloader.NewManager(
		cache,
		resolver.Resolve,
		lib.AddImported,
		func() model.Quality { return resolver.Quality.Get() },
		cfg.DownloadConcurrency,
	)

	eng := engine.NewMemoryEngine()
	ctrl := player.NewController(eng, store, resolver, cache, lib, dl)
	if err := ctrl.Setup(ctx); err != nil {
		logger.Fatal("播放核心初始化失败", logger.ErrorField(err))
	}
	defer ctrl.Close()

	hub := NewHub()
	go hub.Run()
	bindEvents(hub, ctrl, dl, registry, resolver)

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	if err := cache.Watch(watchCtx, func() {
		hub.Broadcast("cacheChanged", nil)
	}); err != nil {
		logger.Warn("缓存目录监听启动失败", logger.ErrorField(err))
	}

	if err := EnsureAccessKey(ctx, store, cfg.AccessKey); err != nil {
		logger.Fatal("初始化访问密钥失败", logger.ErrorField(err))
	}

	apiHandler := NewAPIHandler(cfg, ctrl, dl, lib, registry, resolver, store, songRepo, hub)
	router := newRouter(apiHandler)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP服务启动", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP服务异常退出", logger.ErrorField(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("收到退出信号，开始优雅关闭")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("优雅关闭失败", logger.ErrorField(err))
	}
}

// bindEvents 将状态单元的变更桥接到websocket广播
func bindEvents(hub *Hub, ctrl *player.Controller, dl *downloader.Manager, registry *source.Registry, resolver *source.Resolver) {
	ctrl.CurrentMusic.Subscribe(func(m *model.MusicItem) {
		hub.Broadcast("currentMusic", m)
	})
	ctrl.PlayListSnapshot.Subscribe(func(list []model.MusicItem) {
		hub.Broadcast("playList", list)
	})
	ctrl.RepeatMode.Subscribe(func(mode model.RepeatMode) {
		hub.Broadcast("repeatMode", mode)
	})
	ctrl.Lyric.Subscribe(func(lyric string) {
		hub.Broadcast("lyric", lyric)
	})
	dl.Tasks.Subscribe(func(tasks []model.DownloadTask) {
		hub.Broadcast("downloadTasks", tasks)
	})
	registry.Apis.Subscribe(func(apis []model.MusicApi) {
		hub.Broadcast("musicApis", apis)
	})
	resolver.ApiState.Subscribe(func(state string) {
		hub.Broadcast("apiState", state)
	})
	resolver.Quality.Subscribe(func(q model.Quality) {
		hub.Broadcast("quality", q)
	})
	resolver.OnQualitySwitch = func(q model.Quality) {
		hub.Broadcast("qualitySwitched", q)
	}
}

// newRouter 注册全部路由和中间件
func newRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()

	// CORS中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/api/auth/login", h.LoginHandler).Methods(http.MethodPost)

	// 播放控制
	router.HandleFunc("/api/player/current", h.AuthMiddleware(h.GetCurrentHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/player/playlist", h.AuthMiddleware(h.GetPlayListHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/player/playlist", h.AuthMiddleware(h.ReplacePlayListHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/player/play", h.AuthMiddleware(h.PlayHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/pause", h.AuthMiddleware(h.PauseHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/resume", h.AuthMiddleware(h.ResumeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/next", h.AuthMiddleware(h.SkipToNextHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/previous", h.AuthMiddleware(h.SkipToPreviousHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/seek", h.AuthMiddleware(h.SeekHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/tracks", h.AuthMiddleware(h.AddTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/tracks", h.AuthMiddleware(h.RemoveTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/player/clear", h.AuthMiddleware(h.ClearHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/clear-upcoming", h.AuthMiddleware(h.ClearUpcomingHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/repeat-mode", h.AuthMiddleware(h.SetRepeatModeHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/player/repeat-mode/toggle", h.AuthMiddleware(h.ToggleRepeatModeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/quality", h.AuthMiddleware(h.SetQualityHandler)).Methods(http.MethodPut)

	// 下载队列
	router.HandleFunc("/api/downloads", h.AuthMiddleware(h.GetDownloadsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/downloads", h.AuthMiddleware(h.AddDownloadsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/downloads/pause", h.AuthMiddleware(h.PauseDownloadsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/downloads/resume", h.AuthMiddleware(h.ResumeDownloadsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/downloads/clear-finished", h.AuthMiddleware(h.ClearFinishedDownloadsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/downloads/{id}", h.AuthMiddleware(h.RemoveDownloadHandler)).Methods(http.MethodDelete)

	// 音乐库
	router.HandleFunc("/api/playlists", h.AuthMiddleware(h.GetPlaylistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", h.AuthMiddleware(h.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}", h.AuthMiddleware(h.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/songs", h.AuthMiddleware(h.AddSongToPlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/songs", h.AuthMiddleware(h.RemoveSongFromPlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/local", h.AuthMiddleware(h.GetImportedHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/local", h.AuthMiddleware(h.ImportLocalHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/local", h.AuthMiddleware(h.DeleteImportedHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/cache/clear", h.AuthMiddleware(h.ClearCacheHandler)).Methods(http.MethodPost)

	// 设置
	router.HandleFunc("/api/settings", h.AuthMiddleware(h.GetSettingsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/settings", h.AuthMiddleware(h.UpdateSettingsHandler)).Methods(http.MethodPut)

	// 音源
	router.HandleFunc("/api/apis", h.AuthMiddleware(h.GetApisHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/apis", h.AuthMiddleware(h.AddApiHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/apis/reload", h.AuthMiddleware(h.ReloadApiHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/apis/{id}", h.AuthMiddleware(h.DeleteApiHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/apis/{id}/select", h.AuthMiddleware(h.SelectApiHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/resolved", h.AuthMiddleware(h.GetResolvedHandler)).Methods(http.MethodGet)

	// 状态推送
	router.HandleFunc("/ws/events", h.AuthMiddleware(h.ServeWS)).Methods(http.MethodGet)

	return router
}
