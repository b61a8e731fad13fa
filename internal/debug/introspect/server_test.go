package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-eventhub/internal/core/eventbus"
	pkgif "github.com/dep2p/go-eventhub/pkg/interfaces"
	"github.com/dep2p/go-eventhub/pkg/types"
	"github.com/dep2p/go-eventhub/tests/testutil"
)

type stubSource struct{}

func (stubSource) Stats() (uint64, uint64) { return 7, 2 }
func (stubSource) Pending() int           { return 3 }

type stubBridge struct{}

func (stubBridge) Stats() (uint64, uint64) { return 5, 1 }
func (stubBridge) Addr() string            { return "127.0.0.1:7654" }

func newRegistry(t *testing.T) *eventbus.Registry {
	t.Helper()
	r := eventbus.NewRegistry()
	r.Bind(&pkgif.StaticHost{HostName: "arena"})

	_, err := eventbus.Listen[*testutil.PlayerJoin](r).
		Name("greeter").
		Priority(types.PriorityHigh).
		Handler(func(*testutil.PlayerJoin) error { return nil }).
		Bind(nil)
	require.NoError(t, err)
	_, err = eventbus.Listen[*testutil.PlayerJoin](r).
		Name("guard").
		Priority(types.PriorityLow).
		Handler(func(*testutil.PlayerJoin) error { return errors.New("denied") }).
		Bind(nil)
	require.NoError(t, err)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNew(t *testing.T) {
	server := New(Config{})
	assert.NotNil(t, server)
	assert.Equal(t, DefaultAddr, server.config.Addr)
	assert.Equal(t, prometheus.DefaultGatherer, server.config.Gatherer)

	server = New(Config{Addr: "127.0.0.1:8080"})
	assert.Equal(t, "127.0.0.1:8080", server.config.Addr)
}

func TestServer_StartStop(t *testing.T) {
	server := New(Config{Addr: "127.0.0.1:0"}) // 使用随机端口

	ctx := context.Background()
	require.NoError(t, server.Start(ctx))
	assert.True(t, server.running)

	addr := server.Addr()
	assert.NotEqual(t, "127.0.0.1:0", addr)
	assert.Contains(t, addr, "127.0.0.1:")

	// 重复启动应该无效
	require.NoError(t, server.Start(ctx))

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, server.Stop())
	assert.False(t, server.running)

	// 重复停止应该无效
	require.NoError(t, server.Stop())
}

func TestServer_Health(t *testing.T) {
	var health HealthResponse

	rec := get(t, New(Config{}).Handler(), "/health")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "degraded", health.Status) // 没有注册表

	rec = get(t, New(Config{Registry: newRegistry(t)}).Handler(), "/health")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
}

func TestServer_Introspect(t *testing.T) {
	server := New(Config{
		Registry: newRegistry(t),
		Source:   stubSource{},
		Bridge:   stubBridge{},
	})

	rec := get(t, server.Handler(), "/debug/introspect")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp IntrospectResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, "arena", resp.Host)
	require.Len(t, resp.Categories, 1)
	assert.Equal(t, &SourceInfo{Fired: 7, Dropped: 2, Pending: 3}, resp.Source)
	assert.Equal(t, &BridgeInfo{Addr: "127.0.0.1:7654", Received: 5, Rejected: 1}, resp.Bridge)
	assert.NotNil(t, resp.Runtime)
}

func TestServer_Categories(t *testing.T) {
	rec := get(t, New(Config{Registry: newRegistry(t)}).Handler(), "/debug/introspect/categories")
	require.Equal(t, http.StatusOK, rec.Code)

	var cats []CategoryInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cats))
	require.Len(t, cats, 1)
	assert.Equal(t, types.CategoryFor[*testutil.PlayerJoin]().String(), cats[0].Category)
	assert.False(t, cats[0].Injected)

	// 按分发顺序
	require.Len(t, cats[0].Subscribers, 2)
	assert.Equal(t, "guard", cats[0].Subscribers[0].Name)
	assert.Equal(t, "greeter", cats[0].Subscribers[1].Name)
	assert.Equal(t, int(types.PriorityHigh), cats[0].Subscribers[1].Priority)
}

func TestServer_Failures(t *testing.T) {
	reg := newRegistry(t)
	require.Error(t, reg.Notify(&testutil.PlayerJoin{Name: "mallory"}))

	rec := get(t, New(Config{Registry: reg}).Handler(), "/debug/introspect/failures")
	require.Equal(t, http.StatusOK, rec.Code)

	var failures []FailureInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&failures))
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Subscription, "guard")
	assert.Contains(t, failures[0].Error, "denied")
}

func TestServer_NoRegistry(t *testing.T) {
	h := New(Config{}).Handler()
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/debug/introspect/categories").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/debug/introspect/failures").Code)

	var resp IntrospectResponse
	require.NoError(t, json.NewDecoder(get(t, h, "/debug/introspect").Body).Decode(&resp))
	assert.Empty(t, resp.Categories)
	assert.Nil(t, resp.Source)
	assert.Nil(t, resp.Bridge)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := eventbus.NewMetrics(reg)
	require.NoError(t, err)

	r := eventbus.NewRegistry(eventbus.WithMetrics(m))
	require.NoError(t, r.Notify(testutil.ChatMessage{Text: "hi"}))

	rec := get(t, New(Config{Registry: r, Gatherer: reg}).Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eventhub_eventbus_dispatches_total")
}

func TestServer_Runtime(t *testing.T) {
	rec := get(t, New(Config{}).Handler(), "/debug/introspect/runtime")
	require.Equal(t, http.StatusOK, rec.Code)

	var info RuntimeInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.NotEmpty(t, info.GoVersion)
	assert.Greater(t, info.NumGoroutine, 0)
	assert.Greater(t, info.NumCPU, 0)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	h := New(Config{}).Handler()
	for _, path := range []string{"/health", "/debug/introspect", "/debug/introspect/runtime"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}")))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestServer_CustomHandlers(t *testing.T) {
	server := New(Config{
		CustomHandlers: map[string]http.HandlerFunc{
			"/custom": func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("custom response"))
			},
		},
	})

	rec := get(t, server.Handler(), "/custom")
	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "custom response", string(body))
}

func TestServer_Pprof(t *testing.T) {
	assert.Equal(t, http.StatusOK, get(t, New(Config{}).Handler(), "/debug/pprof/").Code)
}
