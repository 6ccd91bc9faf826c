package model

// DownloadStatus 下载任务状态
type DownloadStatus string

const (
	DownloadWaiting     DownloadStatus = "waiting"
	DownloadDownloading DownloadStatus = "downloading"
	DownloadPaused      DownloadStatus = "paused"
	DownloadCompleted   DownloadStatus = "completed"
	DownloadFailed      DownloadStatus = "failed"
)

// DownloadOrigin 下载来源
type DownloadOrigin string

const (
	// OriginUser 用户手动下载
	OriginUser DownloadOrigin = "user"
	// OriginAuto 播放触发的自动缓存
	OriginAuto DownloadOrigin = "auto"
)

// DownloadTask 下载队列中的一项，按歌曲ID索引
type DownloadTask struct {
	Track    MusicItem      `json:"track"`
	Progress float64        `json:"progress"` // 0~1
	Status   DownloadStatus `json:"status"`
	JobID    int            `json:"jobId,omitempty"`
	Origin   DownloadOrigin `json:"origin"`
	Seq      int64          `json:"-"` // 入队顺序，空闲槽位按此顺序补位
}
