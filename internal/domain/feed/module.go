package feed

import (
	"fmt"

	"neosixty/internal/domain/feed/handler"
	"neosixty/internal/domain/feed/repository"
	"neosixty/internal/domain/feed/service"
	"neosixty/internal/pkg/middleware"
	"neosixty/internal/pkg/registry"
	"neosixty/internal/pkg/worker"
)

// Module 信息流模块
type Module struct{}

func (m *Module) Name() string { return "feed" }

func (m *Module) Priority() int { return 2 }

func (m *Module) Init(ctx *registry.ModuleContext) error {
	users, ok := ctx.Services["user.service"].(service.UserDirectory)
	if !ok {
		return fmt.Errorf("feed module requires user.service")
	}

	repo := repository.NewFeedRepository(ctx.DB)
	svc := service.NewFeedService(repo, users)
	h := handler.NewFeedHandler(svc)

	// 作者改名/换头像时由级联池刷新帖子和评论里的快照
	if pool, ok := ctx.Services["cascade.pool"].(*worker.CascadePool); ok {
		pool.RegisterUpdater(repo)
	}

	ctx.Services["feed.service"] = svc

	api := ctx.Router.Group("/api/v1")
	{
		api.GET("/posts", h.GetFeed)
		api.GET("/posts/:id", h.GetPost)
		api.GET("/posts/:id/comments", h.GetComments)
		api.GET("/users/:id/posts", h.GetUserPosts)

		authed := api.Group("", middleware.AuthMiddleware())
		{
			authed.POST("/posts", h.CreatePost)
			authed.DELETE("/posts/:id", h.DeletePost)
			authed.POST("/posts/:id/reactions", h.React)
			authed.POST("/posts/:id/share", h.SharePost)
			authed.POST("/posts/:id/comments", h.AddComment)
			authed.DELETE("/comments/:id", h.DeleteComment)
			authed.POST("/comments/:id/like", h.ToggleCommentLike)
		}
	}

	return nil
}

func init() {
	registry.Register(&Module{})
}
