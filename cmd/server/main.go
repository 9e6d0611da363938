package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jengzang/world-cell-towers/internal/api"
	"github.com/jengzang/world-cell-towers/internal/cluster"
	"github.com/jengzang/world-cell-towers/internal/config"
	"github.com/jengzang/world-cell-towers/internal/dashboard"
	"github.com/jengzang/world-cell-towers/internal/dataset"
	"github.com/jengzang/world-cell-towers/internal/handler"
	"github.com/jengzang/world-cell-towers/internal/middleware"
	"github.com/jengzang/world-cell-towers/internal/repository"
	"github.com/jengzang/world-cell-towers/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
	})

	// 加载配置
	cfg := config.Load()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.WithError(err).Warn("invalid LOG_LEVEL, using info")
	}
	log := logrus.WithField("service", "world-cell-towers")

	// 地图令牌必须在启动时可用
	token, err := cfg.ResolveMapboxToken()
	if err != nil {
		log.WithError(err).Fatal("Failed to resolve mapbox token")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 连接集群存储
	client, err := cluster.Connect(ctx, cluster.Config{
		Driver: cfg.ClusterDriver,
		Addr:   cfg.ClusterAddr,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to cluster")
	}
	defer client.Close()

	towers := repository.NewTowerRepository(client)
	datasets := repository.NewDatasetRepository(client)
	accessor := dataset.NewAccessor(datasets, client.Notifier(), cfg.DatasetTimeout, log)
	crossfilter := service.NewCrossfilterService(accessor, towers, service.CrossfilterConfig{
		MapboxToken: token,
		MarkerLimit: cfg.MarkerLimit,
	}, log)

	// 初始化路由
	router := api.SetupRouter(cfg, api.Handlers{
		Dashboard: handler.NewDashboardHandler(dashboard.NewDispatcher(crossfilter, log)),
		Datasets:  handler.NewDatasetHandler(datasets),
		Limiter:   middleware.NewRateLimiter(cfg.RateLimit, time.Minute),
	}, log)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		log.WithField("addr", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
