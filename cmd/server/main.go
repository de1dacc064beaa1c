// 智能替班引擎服务
// 主程序入口

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiban/replacement/internal/config"
	"github.com/paiban/replacement/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var app *App

	rootCmd := &cobra.Command{
		Use:           "replacement",
		Short:         "智能替班引擎",
		Long:          "安保排班的替班候选人排序、合规检测与工作量快照维护。",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "help":
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger.Init(logger.Config{
				Level:  cfg.App.LogLevel,
				Format: cfg.App.LogFormat,
			})

			app, err = NewApp(cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
			}
		},
	}

	appRef := func() *App { return app }

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(serveCmd(appRef))
	rootCmd.AddCommand(migrateCmd(appRef))
	rootCmd.AddCommand(recomputeCmd(appRef))
	rootCmd.AddCommand(rankCmd(appRef))
	rootCmd.AddCommand(checkCmd(appRef))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "打印版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "replacement v%s\nBuild: %s (%s)\n", Version, BuildTime, GitCommit)
		},
	}
}
