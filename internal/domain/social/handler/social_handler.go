package handler

import (
	"net/http"

	"neosixty/internal/domain/social/service"
	"neosixty/pkg/response"
	"neosixty/pkg/utils"

	"github.com/gin-gonic/gin"
)

// SocialHandler 关注/好友请求 HTTP 入口
type SocialHandler struct {
	svc service.SocialService
}

func NewSocialHandler(svc service.SocialService) *SocialHandler {
	return &SocialHandler{svc: svc}
}

// Follow 关注
// @Summary 关注
// @Tags social
// @Security Bearer
// @Router /api/v1/users/{id}/follow [post]
func (h *SocialHandler) Follow(c *gin.Context) {
	followee, err := h.svc.Follow(c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, followee)
}

// Unfollow 取关
// @Summary 取关
// @Tags social
// @Security Bearer
// @Router /api/v1/users/{id}/follow [delete]
func (h *SocialHandler) Unfollow(c *gin.Context) {
	if err := h.svc.Unfollow(c.GetString("userID"), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetFollowers 粉丝列表
// @Summary 粉丝列表
// @Tags social
// @Router /api/v1/users/{id}/followers [get]
func (h *SocialHandler) GetFollowers(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	users, total, err := h.svc.GetFollowers(c.Param("id"), page.Page, page.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: users, Total: total, Page: page.Page, Limit: page.Limit})
}

// GetFollowing 关注列表
// @Summary 关注列表
// @Tags social
// @Router /api/v1/users/{id}/following [get]
func (h *SocialHandler) GetFollowing(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	users, total, err := h.svc.GetFollowing(c.Param("id"), page.Page, page.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: users, Total: total, Page: page.Page, Limit: page.Limit})
}

type friendRequestBody struct {
	ReceiverID string `json:"receiverId" binding:"required"`
}

// SendFriendRequest 发送好友请求
// @Summary 发送好友请求
// @Tags social
// @Security Bearer
// @Router /api/v1/friend-requests [post]
func (h *SocialHandler) SendFriendRequest(c *gin.Context) {
	var req friendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	fr, err := h.svc.SendFriendRequest(c.GetString("userID"), req.ReceiverID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, fr)
}

// AcceptFriendRequest 接受好友请求
// @Summary 接受好友请求
// @Tags social
// @Security Bearer
// @Router /api/v1/friend-requests/{id}/accept [post]
func (h *SocialHandler) AcceptFriendRequest(c *gin.Context) {
	if err := h.svc.AcceptFriendRequest(c.GetString("userID"), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// RejectFriendRequest 拒绝好友请求
// @Summary 拒绝好友请求
// @Tags social
// @Security Bearer
// @Router /api/v1/friend-requests/{id}/reject [post]
func (h *SocialHandler) RejectFriendRequest(c *gin.Context) {
	if err := h.svc.RejectFriendRequest(c.GetString("userID"), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// CancelFriendRequest 撤回好友请求
// @Summary 撤回好友请求
// @Tags social
// @Security Bearer
// @Router /api/v1/friend-requests/{id} [delete]
func (h *SocialHandler) CancelFriendRequest(c *gin.Context) {
	if err := h.svc.CancelFriendRequest(c.GetString("userID"), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListIncomingRequests 收到的好友请求
// @Summary 收到的好友请求
// @Tags social
// @Security Bearer
// @Router /api/v1/me/friend-requests/incoming [get]
func (h *SocialHandler) ListIncomingRequests(c *gin.Context) {
	reqs, err := h.svc.ListIncomingRequests(c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, reqs)
}

// ListOutgoingRequests 发出的好友请求
// @Summary 发出的好友请求
// @Tags social
// @Security Bearer
// @Router /api/v1/me/friend-requests/outgoing [get]
func (h *SocialHandler) ListOutgoingRequests(c *gin.Context) {
	reqs, err := h.svc.ListOutgoingRequests(c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, reqs)
}
