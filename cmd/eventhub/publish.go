package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dep2p/go-eventhub/internal/core/source/wsbridge"
)

// publish 参数
var (
	publishURL      string
	publishCategory string
	publishPayload  string
	publishCount    int
	publishTimeout  time.Duration
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "向运行中的事件中心推送信封",
	Long: `连接 serve 启动的 WebSocket 桥接，发送 {"category","payload"} 信封并等待确认。

示例：
  eventhub publish --category alert --payload '{"level":"error","text":"disk full"}'
  eventhub publish --category heartbeat --payload '{"host":"edge-1","seq":1}' --count 10`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	f := publishCmd.Flags()
	f.StringVar(&publishURL, "url", "ws://127.0.0.1:7654/events", "桥接地址")
	f.StringVar(&publishCategory, "category", "", "事件类别名")
	f.StringVar(&publishPayload, "payload", "{}", "JSON 负载")
	f.IntVar(&publishCount, "count", 1, "发送次数")
	f.DurationVar(&publishTimeout, "timeout", 5*time.Second, "单条信封超时")
	_ = publishCmd.MarkFlagRequired("category")
}

func runPublish(cmd *cobra.Command, _ []string) error {
	if publishCount <= 0 {
		return fmt.Errorf("count must be > 0, got %d", publishCount)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), publishTimeout)
	client, err := wsbridge.Dial(ctx, publishURL, nil)
	cancel()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	out := cmd.OutOrStdout()
	for i := 0; i < publishCount; i++ {
		env, err := buildEnvelope(publishCategory, publishPayload)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), publishTimeout)
		ack, err := client.Send(ctx, env)
		cancel()
		if err != nil {
			if errors.Is(err, wsbridge.ErrRejected) {
				fmt.Fprintf(out, "%s %s %s\n", errorColor("✗"), dimColor(ack.ID), ack.Error)
			}
			return err
		}
		fmt.Fprintf(out, "%s %s %s\n", okColor("✓"), dimColor(ack.ID), categoryTint(env.Category))
	}
	return nil
}

// buildEnvelope 用类别名和 JSON 负载构造信封
func buildEnvelope(category, payload string) (wsbridge.Envelope, error) {
	if category == "" {
		return wsbridge.Envelope{}, wsbridge.ErrEmptyName
	}
	raw := json.RawMessage(payload)
	if !json.Valid(raw) {
		return wsbridge.Envelope{}, fmt.Errorf("invalid JSON payload: %q", payload)
	}
	return wsbridge.Envelope{
		ID:       uuid.NewString(),
		Category: category,
		Payload:  raw,
	}, nil
}
