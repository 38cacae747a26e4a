package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aq2208/gorder-oms/configs"
	"github.com/aq2208/gorder-oms/internal/adapter/cache"
	grpcadapter "github.com/aq2208/gorder-oms/internal/adapter/grpc"
	httpadapter "github.com/aq2208/gorder-oms/internal/adapter/http"
	"github.com/aq2208/gorder-oms/internal/adapter/http/middleware"
	"github.com/aq2208/gorder-oms/internal/adapter/kafka"
	"github.com/aq2208/gorder-oms/internal/adapter/observ"
	"github.com/aq2208/gorder-oms/internal/adapter/queue"
	"github.com/aq2208/gorder-oms/internal/adapter/repo"
	"github.com/aq2208/gorder-oms/internal/logging"
	"github.com/aq2208/gorder-oms/internal/security"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// worker is a background loop that runs until ctx is cancelled.
type worker struct {
	name string
	run  func(ctx context.Context) error
}

type App struct {
	Router    *gin.Engine
	Store     usecase.Store
	Auth      *usecase.Auth
	Catalog   *usecase.Catalog
	Directory *usecase.Directory
	Health    *grpcadapter.HealthServer

	probe   func(ctx context.Context) error
	workers []worker
}

// InitWithConfig wires every adapter the config enables. Redis, RabbitMQ and
// Kafka are optional; the returned cleanup releases whatever was opened.
func InitWithConfig(ctx context.Context, cfg configs.Config) (*App, func(), error) {
	log := logging.New("bootstrap")

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	a := &App{probe: func(context.Context) error { return nil }}

	// store
	switch cfg.Store.Driver {
	case configs.DriverMemory:
		a.Store = repo.NewMemoryStore()
		log.Warn("using in-memory store; data is lost on restart")
	default:
		db, err := OpenMySQL(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = db.Close() })
		if cfg.MySQL.AutoMigrate {
			if err := repo.Migrate(ctx, db); err != nil {
				return fail(fmt.Errorf("migrate: %w", err))
			}
		}
		a.Store = repo.NewMySQLStore(db)
		a.probe = db.PingContext
	}

	// redis
	var (
		idem     usecase.IdempotencyStore
		sessions usecase.SessionStore
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("redis ping: %w", err))
		}
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
		sessions = cache.NewRedisSessionStore(rdb)
	} else {
		log.Warn("redis disabled: idempotency keys and logout revocation are off")
	}

	// use cases
	tokens := security.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.Issuer, cfg.Security.Audience, cfg.Security.TTL)
	a.Auth = usecase.NewAuth(a.Store, tokens, sessions)
	a.Catalog = usecase.NewCatalog(a.Store)
	a.Directory = usecase.NewDirectory(a.Store)
	placeUC := usecase.NewPlaceOrder(a.Store, idem, observ.Recorder{}, cfg.Inventory.LowStockThreshold)
	statusUC := usecase.NewUpdateOrderStatus(a.Store)
	deleteUC := usecase.NewDeleteOrder(a.Store)
	queryUC := usecase.NewOrderQuery(a.Store)
	statsUC := usecase.NewStats(a.Store)
	feed := usecase.NewNotifications(a.Store)

	// events: outbox -> rabbitmq (or in-process) -> notification feed
	var pub usecase.Publisher
	if cfg.Rabbit.URL != "" {
		p, consume, closeRabbit, err := setupRabbit(cfg, feed)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, closeRabbit)
		pub = p
		a.workers = append(a.workers, worker{name: "rabbit-consumer", run: consume})
	} else {
		pub = queue.NewLocalDispatcher(queue.NewEventHandler(feed))
	}
	relay := usecase.NewOutboxRelay(a.Store, observ.CountingPublisher{Next: pub}, usecase.RelayConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
	}, logging.New("outbox"))
	a.workers = append(a.workers, worker{name: "outbox-relay", run: relay.Run})

	// kafka: fulfillment status feed
	if len(cfg.Kafka.Brokers) > 0 {
		grp, err := kafka.NewGroup(kafka.GroupConfig{
			Brokers:       cfg.Kafka.Brokers,
			GroupID:       cfg.Kafka.GroupID,
			ClientID:      cfg.App.Name,
			InitialOffset: cfg.Kafka.InitialOffset,
		})
		if err != nil {
			return fail(fmt.Errorf("kafka group: %w", err))
		}
		closers = append(closers, func() { _ = grp.Close() })
		h := kafka.NewOrderStatusChangedHandler(statusUC)
		consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.StatusTopic}, h.Handle, logging.New("kafka"))
		a.workers = append(a.workers, worker{name: "kafka-consumer", run: consumer.Start})
	}

	// http
	a.Router = httpadapter.NewRouter(httpadapter.Handlers{
		Orders:    httpadapter.NewOrderHandler(placeUC, statusUC, deleteUC, queryUC),
		Products:  httpadapter.NewProductHandler(a.Catalog),
		Customers: httpadapter.NewCustomerHandler(a.Directory),
		Stats:     httpadapter.NewStatsHandler(statsUC, feed),
		Auth:      httpadapter.NewAuthHandler(a.Auth),
	}, middleware.NewAuthz(a.Auth), logging.New("http"))

	a.Health = grpcadapter.NewHealthServer(logging.New("grpc"))

	return a, cleanup, nil
}

func OpenMySQL(ctx context.Context, cfg configs.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MySQL.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	}
	if cfg.MySQL.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	}
	if cfg.MySQL.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	}

	pctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

// setupRabbit opens one channel for confirmed publishing and one for the
// notification consumer.
func setupRabbit(cfg configs.Config, feed *usecase.Notifications) (usecase.Publisher, func(ctx context.Context) error, func(), error) {
	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	closeConn := func() { _ = conn.Close() }

	pubCh, err := conn.Channel()
	if err != nil {
		closeConn()
		return nil, nil, nil, err
	}
	producer, err := queue.NewRabbitProducer(pubCh, queue.Topology{
		Exchange:           cfg.Rabbit.Exchange,
		NotificationsQueue: cfg.Rabbit.NotificationsQueue,
	})
	if err != nil {
		closeConn()
		return nil, nil, nil, err
	}

	subCh, err := conn.Channel()
	if err != nil {
		closeConn()
		return nil, nil, nil, err
	}
	router := queue.NewRouter(subCh, queue.WithPrefetch(cfg.Rabbit.Prefetch), queue.WithLogger(logging.New("rabbitmq")))
	router.Register(cfg.Rabbit.NotificationsQueue, queue.NewEventHandler(feed))

	consume := func(ctx context.Context) error {
		if err := router.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	}
	return producer, consume, closeConn, nil
}

// Serve runs the HTTP API, the gRPC health endpoint and the background
// workers until ctx is cancelled, then shuts them down.
func Serve(ctx context.Context, cfg configs.Config) error {
	log := logging.New("server")

	a, cleanup, err := InitWithConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Store.Driver == configs.DriverMemory {
		rep, err := usecase.Seed(ctx, a.Store, a.Auth, a.Catalog, a.Directory)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		log.Info("seeded in-memory store", "products", rep.Products, "customers", rep.Customers)
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup
	errc := make(chan error, len(a.workers)+2)
	for _, w := range a.workers {
		wg.Add(1)
		go func(w worker) {
			defer wg.Done()
			if err := w.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("worker stopped", "worker", w.name, "err", err)
				errc <- fmt.Errorf("%s: %w", w.name, err)
			}
		}(w)
	}

	if cfg.App.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.App.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		go func() {
			if err := a.Health.Serve(lis); err != nil {
				errc <- fmt.Errorf("grpc: %w", err)
			}
		}()
		go a.Health.Watch(ctx, 5*time.Second, a.probe)
		defer a.Health.Stop()
		log.Info("grpc health listening", "addr", cfg.App.GRPCAddr)
	}

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      a.Router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()
	log.Info("order-api listening", "addr", cfg.App.HTTPAddr, "store", cfg.Store.Driver)

	select {
	case <-ctx.Done():
		err = nil
	case err = <-errc:
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Error("http shutdown", "err", serr)
	}
	stop()
	wg.Wait()
	return err
}

// logger is the bootstrap logger for commands that run before Serve.
func logger() *slog.Logger { return logging.New("cli") }
