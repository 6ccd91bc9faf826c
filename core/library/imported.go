package library

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"MuPocket/core/cachemgr"
	"MuPocket/logger"
	"MuPocket/model"
	"MuPocket/persist"
)

func (l *Library) saveImported(ctx context.Context, items []model.MusicItem) error {
	l.ImportedLocalMusic.Set(items)
	return l.store.Set(ctx, persist.KeyImportedLocalMusic, items)
}

// AddImported 将本地歌曲加入导入列表，按ID去重
// 已存在同ID条目时覆盖更新（缓存完成后刷新地址用）
func (l *Library) AddImported(ctx context.Context, item model.MusicItem) error {
	imported := l.ImportedLocalMusic.Get()
	updated := make([]model.MusicItem, len(imported))
	copy(updated, imported)

	replaced := false
	for i := range updated {
		if updated[i].ID == item.ID {
			updated[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		updated = append(updated, item)
	}
	if err := l.saveImported(ctx, updated); err != nil {
		return err
	}
	logger.Info("本地歌曲已导入",
		logger.String("id", item.ID),
		logger.String("title", item.Title),
		logger.Bool("replaced", replaced))
	return nil
}

// ImportLocalFile 将文件移入导入目录并登记
// 目标文件名由标题和歌手清理后拼接，保留原始扩展名
func (l *Library) ImportLocalFile(ctx context.Context, srcPath string, item model.MusicItem, importDir string) error {
	if err := os.MkdirAll(importDir, 0o755); err != nil {
		return err
	}
	ext := filepath.Ext(srcPath)
	name := cachemgr.SanitizeName(item.Title) + "-" + cachemgr.SanitizeName(item.Artist) + ext
	dest := filepath.Join(importDir, name)
	if err := os.Rename(srcPath, dest); err != nil {
		return err
	}
	item.URL = "file://" + dest
	return l.AddImported(ctx, item)
}

// DeleteImported 从导入列表移除歌曲并删除其本地文件
func (l *Library) DeleteImported(ctx context.Context, item *model.MusicItem) error {
	imported := l.ImportedLocalMusic.Get()
	filtered := make([]model.MusicItem, 0, len(imported))
	for _, m := range imported {
		if m.ID == item.ID {
			path := strings.TrimPrefix(m.URL, "file://")
			if path != "" {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					logger.Warn("删除本地文件失败",
						logger.String("path", path),
						logger.ErrorField(err))
				}
			}
			continue
		}
		filtered = append(filtered, m)
	}
	return l.saveImported(ctx, filtered)
}

// PruneByPathPrefix 剔除地址指向指定目录的导入条目
// 清空缓存后调用，使导入列表不再引用已删除的缓存文件
func (l *Library) PruneByPathPrefix(ctx context.Context, prefix string) error {
	imported := l.ImportedLocalMusic.Get()
	filtered := make([]model.MusicItem, 0, len(imported))
	for _, m := range imported {
		path := strings.TrimPrefix(m.URL, "file://")
		if strings.HasPrefix(path, prefix) {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) == len(imported) {
		return nil
	}
	logger.Info("已剔除失效的导入条目", logger.Int("count", len(imported)-len(filtered)))
	return l.saveImported(ctx, filtered)
}

// FindImportedByID 按ID查找导入歌曲
func (l *Library) FindImportedByID(id string) *model.MusicItem {
	imported := l.ImportedLocalMusic.Get()
	for i := range imported {
		if imported[i].ID == id {
			item := imported[i]
			return &item
		}
	}
	return nil
}
