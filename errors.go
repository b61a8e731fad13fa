package eventhub

import "errors"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// Hub 生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted Hub 未启动
	ErrNotStarted = errors.New("hub not started")

	// ErrAlreadyStarted Hub 已启动
	ErrAlreadyStarted = errors.New("hub already started")

	// ErrHubClosed Hub 已关闭
	ErrHubClosed = errors.New("hub closed")
)
