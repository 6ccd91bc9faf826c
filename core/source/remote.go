package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"MuPocket/logger"
	"MuPocket/model"
)

// RemoteProvider 远程HTTP音源
// 音源服务暴露 /url 和 /lyric 两个端点，返回统一的 {code, data} 结构
type RemoteProvider struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewRemoteProvider 根据音源描述创建远程音源客户端
func NewRemoteProvider(api model.MusicApi) Provider {
	return &RemoteProvider{
		BaseURL:    api.BaseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *RemoteProvider) createRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", "MuPocket/1.0")
	return req, nil
}

// GetMusicURL 获取指定音质的播放地址
func (p *RemoteProvider) GetMusicURL(ctx context.Context, title, artist, id string, quality model.Quality) (string, error) {
	params := url.Values{}
	params.Set("title", title)
	params.Set("artist", artist)
	params.Set("id", id)
	params.Set("quality", string(quality))

	reqURL := fmt.Sprintf("%s/url?%s", p.BaseURL, params.Encode())
	req, err := p.createRequest(ctx, reqURL)
	if err != nil {
		return "", err
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API返回错误状态码: %d", resp.StatusCode)
	}

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg,omitempty"`
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if result.Code != 200 {
		return "", fmt.Errorf("API返回错误: %s (code: %d)", result.Msg, result.Code)
	}

	logger.Debug("音源返回播放地址",
		logger.String("id", id),
		logger.String("quality", string(quality)),
		logger.Bool("empty", result.Data.URL == ""))

	return result.Data.URL, nil
}

// GetLyric 获取歌词
func (p *RemoteProvider) GetLyric(ctx context.Context, item *model.MusicItem) (string, error) {
	params := url.Values{}
	params.Set("title", item.Title)
	params.Set("artist", item.Artist)
	params.Set("id", item.ID)

	reqURL := fmt.Sprintf("%s/lyric?%s", p.BaseURL, params.Encode())
	req, err := p.createRequest(ctx, reqURL)
	if err != nil {
		return "", err
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Code int `json:"code"`
		Data struct {
			Lyric string `json:"lyric"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if result.Code != 200 {
		return "", fmt.Errorf("API返回错误 (code: %d)", result.Code)
	}
	return result.Data.Lyric, nil
}
