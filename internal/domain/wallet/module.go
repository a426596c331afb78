package wallet

import (
	"fmt"

	"neosixty/internal/domain/wallet/handler"
	"neosixty/internal/domain/wallet/repository"
	"neosixty/internal/domain/wallet/service"
	"neosixty/internal/pkg/config"
	"neosixty/internal/pkg/middleware"
	"neosixty/internal/pkg/registry"
	"neosixty/pkg/cache"
)

// Module 钱包模块
type Module struct{}

func (m *Module) Name() string { return "wallet" }

// Priority 先于 ads 初始化，ads 启动时注入激活回调
func (m *Module) Priority() int { return 5 }

func (m *Module) Init(ctx *registry.ModuleContext) error {
	users, ok := ctx.Services["user.service"].(service.UserGate)
	if !ok {
		return fmt.Errorf("wallet module requires user.service")
	}

	repo := repository.NewWalletRepository(ctx.DB)
	svc := service.NewWalletService(repo, users, cache.NewRedisCache(ctx.Redis),
		service.NewBkashStrategy(config.GlobalConfig.Payment.Bkash),
		service.NewNagadStrategy(config.GlobalConfig.Payment.Nagad),
	)
	h := handler.NewWalletHandler(svc)

	ctx.Services["wallet.service"] = svc

	api := ctx.Router.Group("/api/v1")
	{
		// 回调不走鉴权，安全性由签名保证
		api.POST("/payments/callback/:method", h.GatewayCallback)

		authed := api.Group("", middleware.AuthMiddleware())
		{
			authed.POST("/payments/ad", h.CreateAdPayment)
			authed.POST("/wallet/withdrawals", h.RequestWithdrawal)
			authed.GET("/wallet/earnings", h.GetEarnings)
			authed.GET("/wallet/transactions", h.ListTransactions)
			authed.GET("/wallet/transactions/:txnNo", h.GetTransaction)
		}

		admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.AdminMiddleware())
		{
			admin.GET("/transactions", h.ListPendingTransactions)
		}
	}

	return nil
}

func init() {
	registry.Register(&Module{})
}
