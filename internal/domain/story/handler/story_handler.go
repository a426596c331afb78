package handler

import (
	"net/http"

	"neosixty/internal/domain/story/service"
	"neosixty/pkg/response"

	"github.com/gin-gonic/gin"
)

// StoryHandler 故事 HTTP 入口
type StoryHandler struct {
	svc service.StoryService
}

func NewStoryHandler(svc service.StoryService) *StoryHandler {
	return &StoryHandler{svc: svc}
}

// CreateStory 发故事
// @Summary 发故事
// @Tags stories
// @Security Bearer
// @Router /api/v1/stories [post]
func (h *StoryHandler) CreateStory(c *gin.Context) {
	var input service.CreateStoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	story, err := h.svc.CreateStory(c.GetString("userID"), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, story)
}

// ListActive 活跃故事（按作者聚合）
// @Summary 活跃故事
// @Tags stories
// @Router /api/v1/stories [get]
func (h *StoryHandler) ListActive(c *gin.Context) {
	groups, err := h.svc.ListActive()
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, groups)
}

// ListByAuthor 某作者的活跃故事
// @Summary 作者故事
// @Tags stories
// @Router /api/v1/users/{id}/stories [get]
func (h *StoryHandler) ListByAuthor(c *gin.Context) {
	stories, err := h.svc.ListByAuthor(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, stories)
}

// ViewStory 观看故事（去重计数）
// @Summary 观看故事
// @Tags stories
// @Security Bearer
// @Router /api/v1/stories/{id}/view [post]
func (h *StoryHandler) ViewStory(c *gin.Context) {
	story, err := h.svc.ViewStory(c.Param("id"), c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, story)
}

// DeleteStory 删故事
// @Summary 删故事
// @Tags stories
// @Security Bearer
// @Router /api/v1/stories/{id} [delete]
func (h *StoryHandler) DeleteStory(c *gin.Context) {
	if err := h.svc.DeleteStory(c.GetString("userID"), c.GetString("role"), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}
