package story

import (
	"fmt"
	"time"

	"neosixty/internal/domain/story/handler"
	"neosixty/internal/domain/story/repository"
	"neosixty/internal/domain/story/service"
	"neosixty/internal/pkg/middleware"
	"neosixty/internal/pkg/registry"
	"neosixty/internal/pkg/worker"
	"neosixty/pkg/cache"
	"neosixty/pkg/logger"

	"go.uber.org/zap"
)

// Module 故事模块
type Module struct{}

func (m *Module) Name() string { return "story" }

func (m *Module) Priority() int { return 3 }

func (m *Module) Init(ctx *registry.ModuleContext) error {
	users, ok := ctx.Services["user.service"].(service.UserDirectory)
	if !ok {
		return fmt.Errorf("story module requires user.service")
	}

	repo := repository.NewStoryRepository(ctx.DB)
	svc := service.NewStoryService(repo, users, cache.NewRedisCache(ctx.Redis))
	h := handler.NewStoryHandler(svc)

	if pool, ok := ctx.Services["cascade.pool"].(*worker.CascadePool); ok {
		pool.RegisterUpdater(repo)
	}

	// 每小时清理一次过期故事
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := svc.PurgeExpired(); err != nil {
				logger.Log.Warn("Story purge failed", zap.Error(err))
			}
		}
	}()

	ctx.Services["story.service"] = svc

	api := ctx.Router.Group("/api/v1")
	{
		api.GET("/stories", h.ListActive)
		api.GET("/users/:id/stories", h.ListByAuthor)

		authed := api.Group("", middleware.AuthMiddleware())
		{
			authed.POST("/stories", h.CreateStory)
			authed.POST("/stories/:id/view", h.ViewStory)
			authed.DELETE("/stories/:id", h.DeleteStory)
		}
	}

	return nil
}

func init() {
	registry.Register(&Module{})
}
