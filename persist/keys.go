package persist

// 持久化键名，按点分路径命名空间组织
const (
	KeyPlayList           = "music.playList"
	KeyPlayLists          = "music.playLists"
	KeyQuality            = "music.quality"
	KeyRepeatMode         = "music.repeatMode"
	KeyMusicItem          = "music.musicItem"
	KeyProgress           = "music.progress"
	KeyImportedLocalMusic = "music.importedLocalMusic"
	KeyMusicApi           = "music.musicApi"
	KeySelectedMusicApi   = "music.selectedMusicApi"
	KeyAutoCacheLocal     = "music.autoCacheLocal"
	KeyIsCachedIconShown  = "music.isCachedIconVisible"
	KeySongsNumsToLoad    = "music.songsNumsToLoad"

	KeyAccessKeyHash = "auth.accessKeyHash"
)
