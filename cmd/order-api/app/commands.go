package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aq2208/gorder-oms/configs"
	grpcadapter "github.com/aq2208/gorder-oms/internal/adapter/grpc"
	"github.com/aq2208/gorder-oms/internal/adapter/repo"
	"github.com/aq2208/gorder-oms/internal/logging"
	"github.com/aq2208/gorder-oms/internal/security"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type rootOpts struct {
	configDir string
	env       string
}

func (o *rootOpts) load() (configs.Config, error) {
	cfg, err := configs.Load(o.configDir, o.env)
	if err != nil {
		return configs.Config{}, err
	}
	logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)
	return cfg, nil
}

// NewRootCmd builds the order-api command tree. Running it without a
// subcommand serves the API.
func NewRootCmd() *cobra.Command {
	opts := &rootOpts{}

	serve := newServeCmd(opts)
	root := &cobra.Command{
		Use:           "order-api",
		Short:         "Order management API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "configs", "directory holding base.yaml and <env>.yaml")
	root.PersistentFlags().StringVar(&opts.env, "env", env, "config overlay to load on top of base.yaml")

	root.AddCommand(serve, newMigrateCmd(opts), newSeedCmd(opts), newHealthcheckCmd(opts))
	return root
}

func newServeCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC health endpoint and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return Serve(cmd.Context(), cfg)
		},
	}
}

func newMigrateCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the MySQL schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Store.Driver != configs.DriverMySQL {
				return fmt.Errorf("migrate needs store.driver=mysql, got %q", cfg.Store.Driver)
			}
			db, err := OpenMySQL(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repo.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logger().Info("schema applied", "statements", len(repo.Statements()))
			return nil
		},
	}
}

func newSeedCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the admin user and sample catalog/directory when empty",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Store.Driver != configs.DriverMySQL {
				return fmt.Errorf("seed needs store.driver=mysql; the memory store seeds itself on serve")
			}
			db, err := OpenMySQL(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			store := repo.NewMySQLStore(db)
			tokens := security.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.Issuer, cfg.Security.Audience, cfg.Security.TTL)
			rep, err := usecase.Seed(cmd.Context(), store,
				usecase.NewAuth(store, tokens, nil),
				usecase.NewCatalog(store),
				usecase.NewDirectory(store))
			if err != nil {
				return err
			}
			logger().Info("seed done",
				"admin_created", rep.AdminCreated,
				"products", rep.Products,
				"customers", rep.Customers)
			return nil
		},
	}
}

func newHealthcheckCmd(opts *rootOpts) *cobra.Command {
	var (
		target  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Query the gRPC health endpoint; exits non-zero unless SERVING",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if target == "" {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				target = dialTarget(cfg.App.GRPCAddr)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			c := grpcadapter.NewGrpcClient(grpcadapter.ClientConfig{Target: target, Timeout: timeout})
			st, err := c.Check(ctx, grpcadapter.ServiceName)
			if err != nil {
				return fmt.Errorf("health check %s: %w", target, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.String())
			if st != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("%s is %s", target, st)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "host:port of the gRPC health endpoint (default: app.grpc_addr)")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "probe timeout")
	return cmd
}

// dialTarget turns a listen address like ":9090" into something dialable.
func dialTarget(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
