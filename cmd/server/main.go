package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neosixty/internal/pkg/config"
	"neosixty/internal/pkg/middleware"
	"neosixty/internal/pkg/registry"
	"neosixty/internal/pkg/worker"
	"neosixty/pkg/database"
	"neosixty/pkg/logger"
	"neosixty/pkg/metrics"

	_ "neosixty/internal/domain/ads"
	_ "neosixty/internal/domain/feed"
	_ "neosixty/internal/domain/social"
	_ "neosixty/internal/domain/story"
	_ "neosixty/internal/domain/user"
	_ "neosixty/internal/domain/wallet"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	config.LoadConfig()

	// 2. 初始化日志
	logger.Init(config.GlobalConfig.App.Debug)
	defer logger.Sync()

	// 3. 初始化数据库和 Redis
	db := database.InitDatabase()
	rdb := database.InitRedis()

	poolMonitor := database.NewPoolMonitor(db, 30*time.Second)
	poolMonitor.Start()
	defer poolMonitor.Stop()

	// 4. 启动作者快照级联池，模块初始化时各自注册 updater
	cascade := worker.NewCascadePool(4, 1024)

	// 5. 路由和全局中间件
	if !config.GlobalConfig.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(metrics.Default.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 6. 按优先级初始化业务模块
	ctx := &registry.ModuleContext{
		DB:     db,
		Redis:  rdb,
		Router: router,
		Services: map[string]interface{}{
			"cascade.pool": cascade,
		},
	}
	if err := registry.InitModules(ctx); err != nil {
		logger.Log.Fatal("Failed to init modules", zap.Error(err))
	}
	cascade.Start()

	// 7. 启动服务，优雅退出
	srv := &http.Server{
		Addr:    ":" + config.GlobalConfig.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("port", config.GlobalConfig.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Forced shutdown", zap.Error(err))
	}
}
