package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"MuPocket/config"
	"MuPocket/core/cachemgr"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "缓存目录管理",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "清空本地音频缓存",
	Long:  `删除缓存目录下的全部音频文件并重建空目录。导入列表中指向缓存的条目需要在服务运行时通过API清理。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		mgr := cachemgr.NewManager(cfg.CacheDir, nil)
		if err := mgr.ClearCache(); err != nil {
			log.Fatalf("清空缓存失败: %v", err)
		}
		fmt.Printf("缓存目录已清空: %s\n", cfg.CacheDir)
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
