package main

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/warehouse/internal/adapter/handler"
	"github.com/rl1809/warehouse/internal/adapter/messaging"
	"github.com/rl1809/warehouse/internal/adapter/storage"
	"github.com/rl1809/warehouse/internal/config"
	"github.com/rl1809/warehouse/internal/core/catalog"
	"github.com/rl1809/warehouse/internal/core/ledger"
	"github.com/rl1809/warehouse/internal/core/service"
	"github.com/rl1809/warehouse/internal/logging"
	"github.com/rl1809/warehouse/internal/port"
)

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	products, operations, err := repo.LoadAll(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load snapshot")
	}
	logger.WithFields(logrus.Fields{
		"storage":    cfg.Storage,
		"products":   len(products),
		"operations": len(operations),
	}).Info("snapshot loaded")

	opts := []service.Option{service.WithLogger(logger)}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		opts = append(opts, service.WithPublisher(publisher))
		logger.WithField("topic", cfg.KafkaTopic).Info("publishing operations to kafka")
	}

	inventory := service.NewInventoryService(
		catalog.New(repo, products),
		ledger.New(repo, operations),
		opts...,
	)

	guard, closeGuard, err := openGuard(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeGuard()

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.NewHTTPHandler(inventory, guard, logger).Router(),
	}
	grpcServer := grpc.NewServer(grpc.ForceServerCodec(handler.JSONCodec{}))
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(inventory, guard, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", cfg.GRPCAddr)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", cfg.GRPCAddr).Info("gRPC server listening")
		return errors.Wrap(grpcServer.Serve(lis), "grpc server")
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return shutdown(cfg.ShutdownTimeout, httpServer, grpcServer)
	})

	return g.Wait()
}

func shutdown(timeout time.Duration, httpServer *http.Server, grpcServer *grpc.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := httpServer.Shutdown(ctx)

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		grpcServer.Stop()
	}
	return errors.Wrap(err, "http shutdown")
}

func openRepository(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (port.SnapshotRepository, func(), error) {
	switch cfg.Storage {
	case config.StorageMySQL:
		db, err := openMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		// closing the migrate instance would close db too
		if _, err := storage.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("connected to mysql")
		return storage.NewMySQLAdapter(db), func() { db.Close() }, nil
	case config.StorageMemory:
		logger.Warn("memory storage selected, state is lost on exit")
		return storage.NewMemoryAdapter(), func() {}, nil
	default:
		repo, err := storage.NewFileAdapter(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}

func openMySQL(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mysql")
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping mysql")
	}
	return db, nil
}

func openGuard(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (port.RequestGuard, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("request ids are tracked in memory")
		return storage.NewMemoryGuard(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, errors.Wrap(err, "failed to connect redis")
	}
	logger.Info("connected to redis")
	return storage.NewRedisAdapter(rdb), func() { rdb.Close() }, nil
}
