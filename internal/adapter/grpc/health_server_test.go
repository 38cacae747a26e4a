package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func startHealth(t *testing.T) (*HealthServer, *GrpcClient) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hs := NewHealthServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = hs.Serve(lis) }()
	t.Cleanup(hs.Stop)

	return hs, NewGrpcClient(ClientConfig{Target: lis.Addr().String(), Timeout: 2 * time.Second})
}

func TestHealthServerReportsStatus(t *testing.T) {
	hs, client := startHealth(t)
	ctx := context.Background()

	st, err := client.Check(ctx, ServiceName)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)

	hs.SetServing(true)
	for _, svc := range []string{"", ServiceName} {
		st, err = client.Check(ctx, svc)
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st, svc)
	}

	_, err = client.Check(ctx, "unknown.Service")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHealthWatchFollowsProbe(t *testing.T) {
	hs, client := startHealth(t)
	ctx, cancel := context.WithCancel(context.Background())

	healthy := make(chan bool, 1)
	healthy <- true
	current := true
	probe := func(context.Context) error {
		select {
		case current = <-healthy:
		default:
		}
		if !current {
			return errors.New("store unreachable")
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		hs.Watch(ctx, 20*time.Millisecond, probe)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		st, err := client.Check(context.Background(), ServiceName)
		return err == nil && st == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	healthy <- false
	assert.Eventually(t, func() bool {
		st, err := client.Check(context.Background(), ServiceName)
		return err == nil && st == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestDialRejectsBadCACert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a cert"), 0o600))

	_, err := NewGrpcClient(ClientConfig{Target: "localhost:1", UseTLS: true, CACertPath: path}).Dial()
	assert.ErrorIs(t, err, ErrBadCACert)
}
