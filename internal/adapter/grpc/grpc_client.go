package grpc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type ClientConfig struct {
	Target     string
	Timeout    time.Duration
	UseTLS     bool
	CACertPath string
	ServerName string
}

type GrpcClient struct {
	cfg ClientConfig
}

func NewGrpcClient(cfg ClientConfig) *GrpcClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &GrpcClient{cfg: cfg}
}

func (c *GrpcClient) Dial() (*grpc.ClientConn, error) {
	// Base options
	opts := []grpc.DialOption{
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff: backoff.Config{
				BaseDelay:  200 * time.Millisecond,
				Multiplier: 1.6,
				Jitter:     0.2,
				MaxDelay:   5 * time.Second,
			},
			MinConnectTimeout: c.cfg.Timeout,
		}),
	}

	// Credentials
	if c.cfg.UseTLS {
		var creds credentials.TransportCredentials
		if c.cfg.CACertPath != "" {
			pem, err := os.ReadFile(c.cfg.CACertPath)
			if err != nil {
				return nil, err
			}
			pool := x509.NewCertPool()
			if ok := pool.AppendCertsFromPEM(pem); !ok {
				return nil, ErrBadCACert
			}
			tlsCfg := &tls.Config{RootCAs: pool}
			if c.cfg.ServerName != "" {
				tlsCfg.ServerName = c.cfg.ServerName
			}
			creds = credentials.NewTLS(tlsCfg)
		} else {
			// System CA
			creds = credentials.NewClientTLSFromCert(nil, c.cfg.ServerName)
		}
		opts = append(opts, grpc.WithTransportCredentials(creds))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	return grpc.NewClient(c.cfg.Target, opts...)
}

// Check asks the target's health service about service ("" for the server
// as a whole) and returns the reported status.
func (c *GrpcClient) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := c.Dial()
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	defer conn.Close()

	// Deadline for the whole probe
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

var ErrBadCACert = &badCACert{"unable to parse CA cert"}

type badCACert struct{ msg string }

func (e *badCACert) Error() string { return e.msg }
