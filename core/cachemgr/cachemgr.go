package cachemgr

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"MuPocket/logger"
	"MuPocket/model"
)

// Mirror 缓存文件的远端镜像
// 上传失败只记日志，不影响本地缓存
type Mirror interface {
	UploadFile(ctx context.Context, localPath, objectName string) error
}

// Manager 本地音频缓存管理
// 缓存文件名由歌曲标题和歌手拼接而成，与歌曲ID无关，
// 同名歌曲会互相覆盖（沿用上游行为）
type Manager struct {
	dir    string
	mirror Mirror
}

// NewManager 创建缓存管理器，mirror 可为 nil
func NewManager(dir string, mirror Mirror) *Manager {
	return &Manager{dir: dir, mirror: mirror}
}

// Dir 返回缓存目录
func (m *Manager) Dir() string {
	return m.dir
}

// CachePrefix 返回判断歌曲地址是否指向缓存目录的前缀
func (m *Manager) CachePrefix() string {
	return m.dir
}

// SanitizeName 清理文件名中的非法字符并去除首尾空白
func SanitizeName(s string) string {
	const illegal = `/\?%*:|"<>.`
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(illegal, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Path 计算歌曲在指定音质下的缓存路径
// 后缀由音质决定：flac 为 .flac，其余为 .mp3
func (m *Manager) Path(item *model.MusicItem, quality model.Quality) string {
	name := SanitizeName(item.Title) + "-" + SanitizeName(item.Artist) + "." + quality.CacheExt()
	return filepath.Join(m.dir, name)
}

// IsCached 判断歌曲是否已缓存，返回缓存路径
func (m *Manager) IsCached(item *model.MusicItem, quality model.Quality) (string, bool) {
	path := m.Path(item, quality)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path, false
	}
	return path, true
}

// EnsureDir 确保缓存目录存在
func (m *Manager) EnsureDir() error {
	return os.MkdirAll(m.dir, 0o755)
}

// IsCachePath 判断地址是否指向缓存目录内的文件
func (m *Manager) IsCachePath(path string) bool {
	trimmed := strings.TrimPrefix(path, "file://")
	return strings.HasPrefix(trimmed, m.dir)
}

// ClearCache 删除整个缓存目录并重建
// 调用方需自行从导入列表中剔除指向缓存目录的条目
func (m *Manager) ClearCache() error {
	if err := os.RemoveAll(m.dir); err != nil {
		return err
	}
	logger.Info("缓存目录已清空", logger.String("dir", m.dir))
	return m.EnsureDir()
}
