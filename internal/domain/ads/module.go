package ads

import (
	"fmt"

	"neosixty/internal/domain/ads/handler"
	"neosixty/internal/domain/ads/repository"
	"neosixty/internal/domain/ads/service"
	walletservice "neosixty/internal/domain/wallet/service"
	"neosixty/internal/pkg/middleware"
	"neosixty/internal/pkg/registry"
)

// Module 广告模块
type Module struct{}

func (m *Module) Name() string { return "ads" }

// Priority 最后初始化，拿到 wallet 后把自己注册成激活回调
func (m *Module) Priority() int { return 6 }

func (m *Module) Init(ctx *registry.ModuleContext) error {
	users, ok := ctx.Services["user.service"].(service.UserGate)
	if !ok {
		return fmt.Errorf("ads module requires user.service")
	}
	wallet, ok := ctx.Services["wallet.service"].(walletservice.WalletService)
	if !ok {
		return fmt.Errorf("ads module requires wallet.service")
	}

	repo := repository.NewAdsRepository(ctx.DB)
	svc := service.NewAdsService(repo, users, wallet)
	h := handler.NewAdsHandler(svc)

	// 支付完成后 wallet 通过该回调激活投放
	wallet.SetCampaignActivator(svc)

	ctx.Services["ads.service"] = svc

	api := ctx.Router.Group("/api/v1")
	{
		api.GET("/ads/serve", h.ServeAds)
		api.POST("/ads/campaigns/:id/impression", h.RecordImpression)
		api.POST("/ads/campaigns/:id/click", h.RecordClick)

		authed := api.Group("/ads", middleware.AuthMiddleware())
		{
			authed.POST("/campaigns", h.CreateCampaign)
			authed.GET("/campaigns", h.ListMyCampaigns)
			authed.GET("/campaigns/:id", h.GetCampaign)
			authed.POST("/campaigns/:id/pause", h.PauseCampaign)
			authed.POST("/campaigns/:id/resume", h.ResumeCampaign)
		}

		admin := api.Group("/admin/ads", middleware.AuthMiddleware(), middleware.AdminMiddleware())
		{
			admin.GET("/campaigns", h.ListPendingReview)
			admin.POST("/campaigns/:id/reject", h.RejectCampaign)
		}
	}

	return nil
}

func init() {
	registry.Register(&Module{})
}
