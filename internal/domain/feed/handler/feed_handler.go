package handler

import (
	"net/http"

	"neosixty/internal/domain/feed/service"
	"neosixty/pkg/response"
	"neosixty/pkg/utils"

	"github.com/gin-gonic/gin"
)

// FeedHandler 帖子/评论 HTTP 入口
type FeedHandler struct {
	svc service.FeedService
}

func NewFeedHandler(svc service.FeedService) *FeedHandler {
	return &FeedHandler{svc: svc}
}

// CreatePost 发帖
// @Summary 发帖
// @Tags feed
// @Security Bearer
// @Router /api/v1/posts [post]
func (h *FeedHandler) CreatePost(c *gin.Context) {
	var input service.CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	post, err := h.svc.CreatePost(c.GetString("userID"), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, post)
}

// GetFeed 时间线
// @Summary 时间线
// @Tags feed
// @Router /api/v1/posts [get]
func (h *FeedHandler) GetFeed(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	posts, total, err := h.svc.GetFeed(page.Page, page.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: posts, Total: total, Page: page.Page, Limit: page.Limit})
}

// GetPost 帖子详情
// @Summary 帖子详情
// @Tags feed
// @Router /api/v1/posts/{id} [get]
func (h *FeedHandler) GetPost(c *gin.Context) {
	post, err := h.svc.GetPost(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, post)
}

// GetUserPosts 某用户的帖子
// @Summary 用户帖子列表
// @Tags feed
// @Router /api/v1/users/{id}/posts [get]
func (h *FeedHandler) GetUserPosts(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	posts, total, err := h.svc.GetUserPosts(c.Param("id"), page.Page, page.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: posts, Total: total, Page: page.Page, Limit: page.Limit})
}

// DeletePost 删帖（幂等）
// @Summary 删帖
// @Tags feed
// @Security Bearer
// @Router /api/v1/posts/{id} [delete]
func (h *FeedHandler) DeletePost(c *gin.Context) {
	if err := h.svc.DeletePost(c.GetString("userID"), c.GetString("role"), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

type reactRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// React 帖子反应
// @Summary 帖子反应
// @Tags feed
// @Security Bearer
// @Router /api/v1/posts/{id}/reactions [post]
func (h *FeedHandler) React(c *gin.Context) {
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	post, err := h.svc.React(c.Param("id"), c.GetString("userID"), req.Kind)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, post)
}

// SharePost 分享计数
// @Summary 分享
// @Tags feed
// @Security Bearer
// @Router /api/v1/posts/{id}/share [post]
func (h *FeedHandler) SharePost(c *gin.Context) {
	if err := h.svc.SharePost(c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// AddComment 评论
// @Summary 评论
// @Tags feed
// @Security Bearer
// @Router /api/v1/posts/{id}/comments [post]
func (h *FeedHandler) AddComment(c *gin.Context) {
	var input service.AddCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	comment, err := h.svc.AddComment(c.Param("id"), c.GetString("userID"), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, comment)
}

// GetComments 评论列表
// @Summary 评论列表
// @Tags feed
// @Router /api/v1/posts/{id}/comments [get]
func (h *FeedHandler) GetComments(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	comments, total, err := h.svc.GetComments(c.Param("id"), page.Page, page.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: comments, Total: total, Page: page.Page, Limit: page.Limit})
}

// DeleteComment 删评论（幂等）
// @Summary 删评论
// @Tags feed
// @Security Bearer
// @Router /api/v1/comments/{id} [delete]
func (h *FeedHandler) DeleteComment(c *gin.Context) {
	if err := h.svc.DeleteComment(c.GetString("userID"), c.GetString("role"), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// ToggleCommentLike 评论点赞/取消
// @Summary 评论点赞
// @Tags feed
// @Security Bearer
// @Router /api/v1/comments/{id}/like [post]
func (h *FeedHandler) ToggleCommentLike(c *gin.Context) {
	liked, err := h.svc.ToggleCommentLike(c.Param("id"), c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"liked": liked})
}
