package cmd

import (
	"github.com/spf13/cobra"

	"MuPocket/config"
	"MuPocket/logger"
	"MuPocket/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动MuPocket服务器",
	Long:  `启动MuPocket播放核心的HTTP服务器，提供播放控制API和状态推送`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogPath,
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
			Compress:   true,
		})
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
