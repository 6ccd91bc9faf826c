package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"MuPocket/config"
	"MuPocket/logger"
	"MuPocket/server"
)

var rootCmd = &cobra.Command{
	Use:   "mupocket",
	Short: "MuPocket is a self-hosted music player core.",
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

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
