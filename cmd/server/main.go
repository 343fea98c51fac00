package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/dispatch-backend-go/internal/api"
	"github.com/jengzang/dispatch-backend-go/internal/config"
	"github.com/jengzang/dispatch-backend-go/internal/database"
	"github.com/jengzang/dispatch-backend-go/internal/handler"
	"github.com/jengzang/dispatch-backend-go/internal/identity"
	"github.com/jengzang/dispatch-backend-go/internal/logger"
	"github.com/jengzang/dispatch-backend-go/internal/middleware"
	"github.com/jengzang/dispatch-backend-go/internal/realtime"
	"github.com/jengzang/dispatch-backend-go/internal/repository"
	"github.com/jengzang/dispatch-backend-go/internal/scheduler"
	"github.com/jengzang/dispatch-backend-go/internal/service"
	"github.com/jengzang/dispatch-backend-go/internal/validation"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, level, err := logger.Build(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	logger.WatchLevel(cfg.Viper(), level, log)

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(ctx, database.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.NewMigrationManager(db, log).RunMigrations(ctx); err != nil {
		return err
	}

	codec, err := identity.NewCodec(cfg.Identity.Secret)
	if err != nil {
		return err
	}
	validator, err := validation.New()
	if err != nil {
		return err
	}

	publisher, err := realtime.New(cfg.Realtime, log)
	if err != nil {
		return err
	}
	if c, ok := publisher.(io.Closer); ok {
		defer c.Close()
	}
	dispatcher := realtime.NewDispatcher(publisher,
		realtime.ExponentialRetry(cfg.Realtime.Retries, cfg.Realtime.BaseDelay),
		cfg.Realtime.Timeout, log)

	repos := repository.NewRepositories(db)
	archiveService := service.NewArchiveService(db, repos, log)
	locationService := service.NewLocationService(db, repos, codec, validator, archiveService, dispatcher, log,
		service.WithWriteTimeout(cfg.Ingestion.WriteTimeout))

	sweeper := scheduler.NewSweeper(repos.Tasks, archiveService, cfg.Archive.SweepBatch, log)
	if err := sweeper.Start(cfg.Archive.SweepSchedule); err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer limiter.Close()

	// 初始化路由
	router := api.SetupRouter(api.Handlers{
		Location: handler.NewLocationHandler(locationService, log),
		Archive:  handler.NewArchiveHandler(archiveService, codec, log),
	}, limiter, log)

	srv := &http.Server{
		Addr:              listenAddr(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.String("db_driver", string(db.Dialect)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
	}

	sweeper.Stop()
	dispatcher.Close()
	log.Info("Server stopped")
	return nil
}

// listenAddr accepts both "8080" and ":8080"
func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
