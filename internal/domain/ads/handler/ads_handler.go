package handler

import (
	"net/http"
	"strconv"

	"neosixty/internal/domain/ads/service"
	"neosixty/pkg/response"
	"neosixty/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AdsHandler 广告投放 HTTP 入口
type AdsHandler struct {
	svc service.AdsService
}

func NewAdsHandler(svc service.AdsService) *AdsHandler {
	return &AdsHandler{svc: svc}
}

// CreateCampaign 建投放
// @Summary 建投放
// @Tags ads
// @Security Bearer
// @Router /api/v1/ads/campaigns [post]
func (h *AdsHandler) CreateCampaign(c *gin.Context) {
	var input service.CreateCampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	campaign, err := h.svc.CreateCampaign(c.GetString("userID"), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, campaign)
}

// GetCampaign 投放详情
// @Summary 投放详情
// @Tags ads
// @Security Bearer
// @Router /api/v1/ads/campaigns/{id} [get]
func (h *AdsHandler) GetCampaign(c *gin.Context) {
	campaign, err := h.svc.GetCampaign(c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, campaign)
}

// ListMyCampaigns 我的投放
// @Summary 我的投放
// @Tags ads
// @Security Bearer
// @Router /api/v1/ads/campaigns [get]
func (h *AdsHandler) ListMyCampaigns(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	campaigns, total, err := h.svc.ListMyCampaigns(c.GetString("userID"), page.Page, page.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: campaigns, Total: total, Page: page.Page, Limit: page.Limit})
}

// PauseCampaign 暂停投放
// @Summary 暂停投放
// @Tags ads
// @Security Bearer
// @Router /api/v1/ads/campaigns/{id}/pause [post]
func (h *AdsHandler) PauseCampaign(c *gin.Context) {
	if err := h.svc.PauseCampaign(c.GetString("userID"), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// ResumeCampaign 恢复投放
// @Summary 恢复投放
// @Tags ads
// @Security Bearer
// @Router /api/v1/ads/campaigns/{id}/resume [post]
func (h *AdsHandler) ResumeCampaign(c *gin.Context) {
	if err := h.svc.ResumeCampaign(c.GetString("userID"), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// ServeAds 取可投放广告
// @Summary 投放广告
// @Tags ads
// @Router /api/v1/ads/serve [get]
func (h *AdsHandler) ServeAds(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	campaigns, err := h.svc.ServeAds(limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, campaigns)
}

// RecordImpression 曝光上报
// @Summary 曝光上报
// @Tags ads
// @Router /api/v1/ads/campaigns/{id}/impression [post]
func (h *AdsHandler) RecordImpression(c *gin.Context) {
	if err := h.svc.RecordImpression(c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

type clickRequest struct {
	// HostUserID 广告展示在哪个创作者的版面上
	HostUserID string `json:"hostUserId"`
}

// RecordClick 点击上报（计费）
// @Summary 点击上报
// @Tags ads
// @Router /api/v1/ads/campaigns/{id}/click [post]
func (h *AdsHandler) RecordClick(c *gin.Context) {
	var req clickRequest
	_ = c.ShouldBindJSON(&req)

	campaign, err := h.svc.RecordClick(c.Param("id"), req.HostUserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"targetUrl": campaign.TargetURL})
}

// ListPendingReview 管理员查看待审核投放
// @Summary 待审核投放
// @Tags admin
// @Security Bearer
// @Router /api/v1/admin/ads/campaigns [get]
func (h *AdsHandler) ListPendingReview(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	campaigns, total, err := h.svc.ListPendingReview(page.Page, page.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: campaigns, Total: total, Page: page.Page, Limit: page.Limit})
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectCampaign 管理员驳回投放
// @Summary 驳回投放
// @Tags admin
// @Security Bearer
// @Router /api/v1/admin/ads/campaigns/{id}/reject [post]
func (h *AdsHandler) RejectCampaign(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.svc.RejectCampaign(c.Param("id"), req.Reason); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}
