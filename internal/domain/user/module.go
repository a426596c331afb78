package user

import (
	"neosixty/internal/domain/user/handler"
	"neosixty/internal/domain/user/repository"
	"neosixty/internal/domain/user/service"
	"neosixty/internal/pkg/middleware"
	"neosixty/internal/pkg/registry"
	"neosixty/internal/pkg/worker"
	"neosixty/pkg/cache"
)

// Module 用户模块
type Module struct{}

func (m *Module) Name() string { return "user" }

// Priority 用户模块最先初始化，其他模块依赖 user.service
func (m *Module) Priority() int { return 1 }

func (m *Module) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewUserRepository(ctx.DB)

	cascade, _ := ctx.Services["cascade.pool"].(*worker.CascadePool)

	svc := service.NewUserService(repo, cascade)
	if ctx.Redis != nil {
		svc = service.NewCachedUserService(svc, cache.NewRedisCache(ctx.Redis))
	}
	h := handler.NewUserHandler(svc)

	// 暴露给 social / wallet / ads 模块
	ctx.Services["user.service"] = svc

	api := ctx.Router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
		}

		users := api.Group("/users")
		{
			users.GET("/:id", h.GetUser)
			users.GET("/:id/profile", h.GetProfile)
		}

		me := api.Group("/me", middleware.AuthMiddleware())
		{
			me.GET("", h.Me)
			me.PUT("", h.UpdateIdentity)
			me.PUT("/profile", h.UpdateProfile)
			me.POST("/professional", h.EnableProfessionalMode)
		}

		admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.AdminMiddleware())
		{
			admin.GET("/users", h.ListUsers)
			admin.POST("/users", h.AdminCreateUser)
			admin.PUT("/users/:id/role", h.AdminSetRole)
			admin.PUT("/users/:id/verify", h.AdminSetVerified)
			admin.PUT("/users/:id/status", h.AdminToggleStatus)
			admin.DELETE("/users/:id", h.AdminDeleteUser)
			admin.GET("/settings", h.GetSettings)
			admin.PUT("/settings", h.UpdateSettings)
		}
	}

	return nil
}

func init() {
	registry.Register(&Module{})
}
