// Package main 提供 eventhub 命令行入口
//
// 子命令：
//   - serve   启动事件中心，接收 WebSocket 推送并打印事件
//   - publish 向运行中的事件中心推送一条信封
//   - version 显示版本信息
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorColor("错误:"), err)
		os.Exit(1)
	}
}
