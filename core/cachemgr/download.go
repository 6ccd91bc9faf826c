package cachemgr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"MuPocket/logger"
	"MuPocket/model"
)

// ProgressFunc 下载进度回调，total 未知时为 -1
type ProgressFunc func(received, total int64)

var downloadClient = &http.Client{Timeout: 10 * time.Minute}

// DownloadToCache 将远程音频下载到缓存目录
// 先写入临时文件，完成后改名为最终路径，避免出现半截缓存文件；
// 下载成功后异步上传远端镜像
func (m *Manager) DownloadToCache(ctx context.Context, rawURL string, headers map[string]string, item *model.MusicItem, quality model.Quality, progress ProgressFunc) (string, error) {
	if err := m.EnsureDir(); err != nil {
		return "", fmt.Errorf("创建缓存目录失败: %w", err)
	}
	dest := m.Path(item, quality)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := downloadClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("下载失败，状态码: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(m.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	total := resp.ContentLength
	var received int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return "", err
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := tmp.Write(buf[:n]); writeErr != nil {
				tmp.Close()
				return "", fmt.Errorf("写入缓存文件失败: %w", writeErr)
			}
			received += int64(n)
			if progress != nil {
				progress(received, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			tmp.Close()
			return "", fmt.Errorf("读取响应失败: %w", readErr)
		}
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("移动缓存文件失败: %w", err)
	}

	logger.Info("歌曲缓存完成",
		logger.String("title", item.Title),
		logger.String("path", dest),
		logger.Int64("bytes", received))

	m.mirrorUpload(dest)
	return dest, nil
}

// mirrorUpload 异步上传远端镜像
func (m *Manager) mirrorUpload(localPath string) {
	if m.mirror == nil {
		return
	}
	objectName := filepath.Base(localPath)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := m.mirror.UploadFile(ctx, localPath, objectName); err != nil {
			logger.Warn("缓存镜像上传失败",
				logger.String("object", objectName),
				logger.ErrorField(err))
		}
	}()
}
