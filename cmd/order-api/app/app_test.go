package app

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aq2208/gorder-oms/configs"
	grpcadapter "github.com/aq2208/gorder-oms/internal/adapter/grpc"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) configs.Config {
	t.Helper()
	cfg, err := configs.Load("../../../configs", "memory")
	require.NoError(t, err)
	return cfg
}

func TestDialTarget(t *testing.T) {
	assert.Equal(t, "localhost:9090", dialTarget(":9090"))
	assert.Equal(t, "health.internal:9090", dialTarget("health.internal:9090"))
}

func TestInitWithMemoryStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	a, cleanup, err := InitWithConfig(ctx, memoryConfig(t))
	require.NoError(t, err)
	defer cleanup()

	names := make([]string, len(a.workers))
	for i, w := range a.workers {
		names[i] = w.name
	}
	assert.Equal(t, []string{"outbox-relay"}, names)

	rep, err := usecase.Seed(ctx, a.Store, a.Auth, a.Catalog, a.Directory)
	require.NoError(t, err)
	assert.True(t, rep.AdminCreated)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"admin@example.com","password":"admin123"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"token_type":"Bearer"`)
}

func TestMigrateNeedsMySQL(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"migrate", "--config-dir", "../../../configs", "--env", "memory"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver=mysql")
}

func TestHealthcheckCommand(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	hs := grpcadapter.NewHealthServer(nil)
	go func() { _ = hs.Serve(lis) }()
	defer hs.Stop()

	run := func() (string, error) {
		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"healthcheck", "--target", lis.Addr().String(), "--timeout", "2s"})
		err := cmd.ExecuteContext(context.Background())
		return strings.TrimSpace(out.String()), err
	}

	out, err := run()
	assert.Error(t, err)
	assert.Equal(t, "NOT_SERVING", out)

	hs.SetServing(true)
	out, err = run()
	require.NoError(t, err)
	assert.Equal(t, "SERVING", out)
}

func TestServeStopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := memoryConfig(t)
	cfg.App.HTTPAddr = "127.0.0.1:0"
	cfg.App.GRPCAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
