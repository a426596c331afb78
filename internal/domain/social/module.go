package social

import (
	"fmt"

	"neosixty/internal/domain/social/handler"
	"neosixty/internal/domain/social/repository"
	"neosixty/internal/domain/social/service"
	"neosixty/internal/pkg/middleware"
	"neosixty/internal/pkg/registry"
)

// Module 社交关系模块
type Module struct{}

func (m *Module) Name() string { return "social" }

func (m *Module) Priority() int { return 4 }

func (m *Module) Init(ctx *registry.ModuleContext) error {
	users, ok := ctx.Services["user.service"].(service.UserCounters)
	if !ok {
		return fmt.Errorf("social module requires user.service")
	}

	repo := repository.NewSocialRepository(ctx.DB)
	svc := service.NewSocialService(repo, users)
	h := handler.NewSocialHandler(svc)

	ctx.Services["social.service"] = svc

	api := ctx.Router.Group("/api/v1")
	{
		api.GET("/users/:id/followers", h.GetFollowers)
		api.GET("/users/:id/following", h.GetFollowing)

		authed := api.Group("", middleware.AuthMiddleware())
		{
			authed.POST("/users/:id/follow", h.Follow)
			authed.DELETE("/users/:id/follow", h.Unfollow)

			authed.POST("/friend-requests", h.SendFriendRequest)
			authed.POST("/friend-requests/:id/accept", h.AcceptFriendRequest)
			authed.POST("/friend-requests/:id/reject", h.RejectFriendRequest)
			authed.DELETE("/friend-requests/:id", h.CancelFriendRequest)

			authed.GET("/me/friend-requests/incoming", h.ListIncomingRequests)
			authed.GET("/me/friend-requests/outgoing", h.ListOutgoingRequests)
		}
	}

	return nil
}

func init() {
	registry.Register(&Module{})
}
