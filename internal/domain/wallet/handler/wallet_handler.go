package handler

import (
	"net/http"

	"neosixty/internal/domain/wallet/service"
	"neosixty/pkg/response"
	"neosixty/pkg/utils"

	"github.com/gin-gonic/gin"
)

// WalletHandler 支付/收益 HTTP 入口
type WalletHandler struct {
	svc service.WalletService
}

func NewWalletHandler(svc service.WalletService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

type adPaymentRequest struct {
	CampaignID  string  `json:"campaignId" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Method      string  `json:"method" binding:"required"`
	SenderPhone string  `json:"senderPhone"`
}

// CreateAdPayment 创建广告支付
// @Summary 创建广告支付
// @Tags wallet
// @Security Bearer
// @Param Idempotency-Key header string false "幂等键"
// @Router /api/v1/payments/ad [post]
func (h *WalletHandler) CreateAdPayment(c *gin.Context) {
	var req adPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	txn, instruction, err := h.svc.CreateAdPayment(
		c.GetString("userID"), req.CampaignID, req.Amount,
		req.Method, req.SenderPhone, c.GetHeader("Idempotency-Key"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"transaction": txn, "instruction": instruction})
}

// GatewayCallback 网关回调（无鉴权，靠签名验证）
// @Summary 支付网关回调
// @Tags wallet
// @Router /api/v1/payments/callback/{method} [post]
func (h *WalletHandler) GatewayCallback(c *gin.Context) {
	var payload service.CallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.svc.HandleGatewayCallback(c.Param("method"), payload); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

type withdrawalRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Method string  `json:"method" binding:"required"`
	Phone  string  `json:"phone" binding:"required"`
}

// RequestWithdrawal 申请提现
// @Summary 申请提现
// @Tags wallet
// @Security Bearer
// @Param Idempotency-Key header string false "幂等键"
// @Router /api/v1/wallet/withdrawals [post]
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	txn, err := h.svc.RequestWithdrawal(c.GetString("userID"), req.Amount, req.Method, req.Phone,
		c.GetHeader("Idempotency-Key"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, txn)
}

// GetEarnings 收益账户
// @Summary 收益账户
// @Tags wallet
// @Security Bearer
// @Router /api/v1/wallet/earnings [get]
func (h *WalletHandler) GetEarnings(c *gin.Context) {
	earnings, err := h.svc.GetEarnings(c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, earnings)
}

// ListTransactions 交易列表
// @Summary 我的交易
// @Tags wallet
// @Security Bearer
// @Router /api/v1/wallet/transactions [get]
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	txns, total, err := h.svc.ListTransactions(c.GetString("userID"), page.Page, page.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: txns, Total: total, Page: page.Page, Limit: page.Limit})
}

// GetTransaction 交易详情
// @Summary 交易详情
// @Tags wallet
// @Security Bearer
// @Router /api/v1/wallet/transactions/{txnNo} [get]
func (h *WalletHandler) GetTransaction(c *gin.Context) {
	txn, err := h.svc.GetTransaction(c.GetString("userID"), c.Param("txnNo"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, txn)
}

// ListPendingTransactions 管理员查看待处理交易
// @Summary 待处理交易
// @Tags admin
// @Security Bearer
// @Router /api/v1/admin/transactions [get]
func (h *WalletHandler) ListPendingTransactions(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	txns, total, err := h.svc.ListPendingTransactions(page.Page, page.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: txns, Total: total, Page: page.Page, Limit: page.Limit})
}
