package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dep2p/go-eventhub/pkg/lib/log"
)

var logger = log.Logger("eventhub/cmd")

// 输出着色
var (
	titleColor   = color.New(color.FgCyan, color.Bold).SprintFunc()
	okColor      = color.New(color.FgGreen).SprintFunc()
	warnColor    = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	dimColor     = color.New(color.Faint).SprintFunc()
	categoryTint = color.New(color.FgMagenta).SprintFunc()
)

// 全局参数
var (
	logLevel string
	noColor  bool
)

var rootCmd = &cobra.Command{
	Use:   "eventhub",
	Short: "类型化事件分发中心",
	Long: `eventhub 在进程内按优先级分发类型化事件，并可通过 WebSocket 接收远端宿主推送的事件。

示例：
  eventhub serve --preset gateway                     启动网关
  eventhub serve --config eventhub.yaml               使用配置文件启动
  eventhub publish --category message --payload '{"topic":"news","body":"hi"}'
  eventhub version                                    显示版本`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (debug/info/warn/error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "禁用彩色输出")

	rootCmd.AddCommand(serveCmd, publishCmd, versionCmd)
}
