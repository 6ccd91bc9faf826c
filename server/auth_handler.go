package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"MuPocket/core/auth"
	"MuPocket/logger"
	"MuPocket/persist"
)

type contextKey string

const clientIDKey contextKey = "clientID"

// EnsureAccessKey 首次启动时将配置的访问密钥写入存储
// 已有哈希时不覆盖，避免重启后密钥被环境变量重置
func EnsureAccessKey(ctx context.Context, store persist.Store, accessKey string) error {
	var existing string
	ok, err := store.Get(ctx, persist.KeyAccessKeyHash, &existing)
	if err != nil {
		return err
	}
	if ok && existing != "" {
		return nil
	}
	if accessKey == "" {
		logger.Warn("未配置访问密钥，API将拒绝所有登录请求")
		return nil
	}
	hash, err := auth.HashPassword(accessKey)
	if err != nil {
		return err
	}
	logger.Info("访问密钥已初始化")
	return store.Set(ctx, persist.KeyAccessKeyHash, hash)
}

// LoginHandler 用访问密钥换取JWT令牌
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessKey string `json:"accessKey"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AccessKey == "" {
		writeError(w, http.StatusBadRequest, "accessKey is required")
		return
	}

	var hash string
	ok, err := h.store.Get(r.Context(), persist.KeyAccessKeyHash, &hash)
	if err != nil {
		logger.Error("[Login] 读取访问密钥失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !ok || hash == "" {
		writeError(w, http.StatusUnauthorized, "access key not configured")
		return
	}

	if !auth.CheckPasswordHash(req.AccessKey, hash) {
		logger.Warn("[Login] 访问密钥校验失败")
		writeError(w, http.StatusUnauthorized, "invalid access key")
		return
	}

	clientID := uuid.NewString()
	token, err := auth.GenerateToken(clientID, h.cfg.JWTSecret)
	if err != nil {
		logger.Error("[Login] 生成令牌失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Info("[Login] 客户端登录成功", logger.String("clientId", clientID))
	writeJSON(w, http.StatusOK, map[string]string{
		"token":    token,
		"clientId": clientID,
	})
}

// AuthMiddleware 校验请求携带的JWT令牌
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			// websocket客户端无法设置请求头，允许用查询参数携带令牌
			if token := r.URL.Query().Get("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := auth.ParseToken(parts[1], h.cfg.JWTSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), clientIDKey, claims.ClientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
