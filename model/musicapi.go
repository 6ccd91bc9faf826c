package model

// MusicApi 音源描述
// 音源是一个远程解析服务：给定歌曲信息和音质，返回可播放地址
// 通过 srcUrl 可重新拉取描述文件完成"重载"（替代上游的脚本重执行机制）
type MusicApi struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Author   string `json:"author,omitempty"`
	Version  string `json:"version,omitempty"`
	SrcURL   string `json:"srcUrl,omitempty"`
	BaseURL  string `json:"baseUrl"`
	Selected bool   `json:"isSelected"`
}

// ApiStateOK / ApiStateError 音源健康状态
const (
	ApiStateOK    = "正常"
	ApiStateError = "异常"
)
