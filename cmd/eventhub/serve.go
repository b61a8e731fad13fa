package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	eventhub "github.com/dep2p/go-eventhub"
	"github.com/dep2p/go-eventhub/config"
	"github.com/dep2p/go-eventhub/internal/telemetry"
)

// serve 参数
var (
	serveConfigFile string
	servePreset     string
	serveListen     string
	serveHostName   string
	serveIntrospect string
	serveOTLP       string
	serveStopWait   time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动事件中心并打印收到的事件",
	Long: `启动事件中心，开启 WebSocket 桥接接收远端宿主推送的信封，
并以打印监听者订阅内置事件类型（message、alert、heartbeat）。

配置优先级（从高到低）：
  1. 命令行参数
  2. 环境变量（EVENTHUB_* 前缀）
  3. 预设
  4. 配置文件（JSON 或 YAML）`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveConfigFile, "config", "c", "", "配置文件路径 (.json/.yaml)")
	f.StringVar(&servePreset, "preset", "", "预设配置 (default/throughput/gateway/minimal)")
	f.StringVar(&serveListen, "listen", "", "WebSocket 监听地址，如 127.0.0.1:7654")
	f.StringVar(&serveHostName, "host", "", "宿主名称")
	f.StringVar(&serveIntrospect, "introspect", "", "自省服务监听地址，为空时不启用")
	f.StringVar(&serveOTLP, "otlp-endpoint", "", "OTLP/HTTP 链路采集端 (host:port)，为空时不导出")
	f.DurationVar(&serveStopWait, "stop-timeout", 10*time.Second, "关闭等待时间")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd, os.Getenv)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	tp, shutdownTracing, err := telemetry.Init(cmd.Context(), telemetry.Config{
		Endpoint:       serveOTLP,
		ServiceName:    cfg.EventBus.HostName,
		ServiceVersion: eventhub.Version,
		Insecure:       true,
	})
	if err != nil {
		return fmt.Errorf("初始化链路导出失败: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	opts := append([]eventhub.Option{
		eventhub.WithConfig(cfg),
		eventhub.WithLogging(logLevel),
	}, eventOptions()...)
	if serveOTLP != "" {
		opts = append(opts, eventhub.WithTracerProvider(tp))
	}

	hub, err := eventhub.New(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = hub.Close() }()

	out := cmd.OutOrStdout()
	p := &printer{out: func(format string, args ...any) { fmt.Fprintf(out, format, args...) }}
	if _, err := hub.Subscribe(p); err != nil {
		return fmt.Errorf("订阅失败: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("启动事件中心", "version", eventhub.Version, "commit", eventhub.GitCommit)
	if err := hub.Start(ctx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	printServeInfo(cmd, hub)

	<-ctx.Done()
	fmt.Fprintln(out, "\n正在关闭事件中心...")

	stopCtx, cancel := context.WithTimeout(context.Background(), serveStopWait)
	defer cancel()
	return hub.Stop(stopCtx)
}

// buildServeConfig 按优先级合并配置
func buildServeConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	cfg := config.NewConfig()
	if serveConfigFile != "" {
		loaded, err := config.LoadFile(serveConfigFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = loaded
	}

	presetName := envPresetName(getenv)
	if cmd.Flags().Changed("preset") {
		presetName = servePreset
	}
	if presetName != "" {
		if err := config.ApplyPreset(cfg, presetName); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg, getenv)

	if cmd.Flags().Changed("listen") {
		cfg.Bridge.ListenAddr = serveListen
	}
	if cmd.Flags().Changed("host") {
		cfg.EventBus.HostName = serveHostName
	}
	if serveIntrospect != "" {
		cfg.Diagnostics.EnableIntrospect = true
		cfg.Diagnostics.IntrospectAddr = serveIntrospect
	}
	// serve 总是开启桥接
	cfg.Bridge.Enable = true

	return cfg, cfg.Validate()
}

// printServeInfo 打印启动信息
func printServeInfo(cmd *cobra.Command, hub *eventhub.Hub) {
	out := cmd.OutOrStdout()
	cfg := hub.Config()

	fmt.Fprintf(out, "%s %s\n", titleColor("▶"), eventhub.VersionInfo())
	fmt.Fprintf(out, "  宿主:   %s\n", hub.Host().Name())
	fmt.Fprintf(out, "  桥接:   %s\n", okColor("ws://"+hub.Bridge().Addr()+cfg.Bridge.Path))
	fmt.Fprintf(out, "  类别:   %s\n", strings.Join(hub.Codec().Names(), ", "))
	fmt.Fprintf(out, "  工作池: %d workers, queue %d\n", cfg.Source.Workers, cfg.Source.QueueSize)
	if addr := hub.IntrospectAddr(); addr != "" {
		fmt.Fprintf(out, "  自省:   %s\n", okColor("http://"+addr+"/debug/introspect"))
	}
	fmt.Fprintln(out, dimColor("事件中心已启动，按 Ctrl+C 退出"))
}
