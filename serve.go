package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-fetch/internal/cache"
	"github.com/any-hub/any-fetch/internal/config"
	"github.com/any-hub/any-fetch/internal/era"
	"github.com/any-hub/any-fetch/internal/fetch"
	"github.com/any-hub/any-fetch/internal/server"
	"github.com/any-hub/any-fetch/internal/server/routes"
)

// startHTTPServer 阻塞运行 Fiber 服务，直到 ctx 被取消（SIGINT/SIGTERM）或监听失败。
func startHTTPServer(ctx context.Context, cfg *config.Config, store *cache.Store, clock *era.Clock, fetcher *fetch.Fetcher, logger *logrus.Logger) error {
	behavior, err := fetch.ParseBehavior(cfg.Global.Behavior)
	if err != nil {
		return err
	}

	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Fetcher:    fetcher,
		Clock:      clock,
		Behavior:   behavior,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterCacheRoutes(app, routes.CacheRoutes{
		Store:     store,
		Clock:     clock,
		Logger:    logger,
		CacheFile: cfg.Global.CacheFile,
	})

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.WithField("action", "shutdown").Info("收到退出信号，停止服务")
		return app.Shutdown()
	}
}
