package cachemgr

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"MuPocket/logger"
)

// Watch 监听缓存目录的文件变化
// 外部工具直接增删缓存文件时通过 onChange 通知上层刷新缓存标记；
// ctx 取消后监听退出
func (m *Manager) Watch(ctx context.Context, onChange func()) error {
	if err := m.EnsureDir(); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(m.dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// 忽略下载过程中的临时文件
				if strings.HasPrefix(filepath.Base(event.Name), ".download-") {
					continue
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					logger.Debug("缓存目录变化",
						logger.String("op", event.Op.String()),
						logger.String("file", event.Name))
					if onChange != nil {
						onChange()
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("缓存目录监听错误", logger.ErrorField(err))
			}
		}
	}()
	return nil
}
