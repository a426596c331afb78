package handler

import (
	"net/http"

	"neosixty/internal/domain/user/service"
	"neosixty/pkg/response"
	"neosixty/pkg/utils"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户 HTTP 入口
type UserHandler struct {
	svc service.UserService
}

func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type registerRequest struct {
	Name         string `json:"name" binding:"required"`
	PhoneOrEmail string `json:"phoneOrEmail" binding:"required"`
	Password     string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	PhoneOrEmail string `json:"phoneOrEmail" binding:"required"`
	Password     string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// Register 用户注册
// @Summary 注册
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "注册信息"
// @Success 200 {object} response.Response
// @Router /api/v1/auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	token, user, err := h.svc.Register(req.Name, req.PhoneOrEmail, req.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, authResponse{Token: token, User: user})
}

// Login 用户登录
// @Summary 登录
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	token, user, err := h.svc.Login(req.PhoneOrEmail, req.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, authResponse{Token: token, User: user})
}

// Me 当前登录用户
// @Summary 当前用户
// @Tags users
// @Security Bearer
// @Router /api/v1/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.svc.GetUser(c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// GetUser 获取用户详情
// @Summary 用户详情
// @Tags users
// @Param id path string true "用户ID"
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.svc.GetUser(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// ListUsers 用户列表（分页）
// @Summary 用户列表
// @Tags users
// @Router /api/v1/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	users, total, err := h.svc.GetUsers(page.Page, page.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, utils.PageResult{List: users, Total: total, Page: page.Page, Limit: page.Limit})
}

type updateIdentityRequest struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

// UpdateIdentity 更新名字/头像
// @Summary 更新展示身份
// @Tags users
// @Security Bearer
// @Router /api/v1/me [put]
func (h *UserHandler) UpdateIdentity(c *gin.Context) {
	var req updateIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	user, err := h.svc.UpdateIdentity(c.GetString("userID"), req.Name, req.AvatarURL)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// GetProfile 获取资料
// @Summary 用户资料
// @Tags users
// @Router /api/v1/users/{id}/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.svc.GetProfile(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, profile)
}

type updateProfileRequest struct {
	service.ProfilePatch
	Version int64 `json:"version"`
}

// UpdateProfile 部分更新资料，带乐观版本号
// @Summary 更新资料
// @Tags users
// @Security Bearer
// @Router /api/v1/me/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	profile, err := h.svc.UpdateProfile(c.GetString("userID"), req.ProfilePatch, req.Version)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, profile)
}

// EnableProfessionalMode 开通专业模式
// @Summary 开通专业模式
// @Tags users
// @Security Bearer
// @Router /api/v1/me/professional [post]
func (h *UserHandler) EnableProfessionalMode(c *gin.Context) {
	user, err := h.svc.EnableProfessionalMode(c.GetString("userID"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

type adminCreateUserRequest struct {
	Name         string `json:"name" binding:"required"`
	PhoneOrEmail string `json:"phoneOrEmail" binding:"required"`
	Password     string `json:"password" binding:"required,min=6"`
	Role         string `json:"role" binding:"required"`
}

// AdminCreateUser 管理员创建用户
// @Summary 创建用户
// @Tags admin
// @Security Bearer
// @Router /api/v1/admin/users [post]
func (h *UserHandler) AdminCreateUser(c *gin.Context) {
	var req adminCreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	user, err := h.svc.CreateUser(req.Name, req.PhoneOrEmail, req.Password, req.Role)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// AdminSetRole 管理员调整角色
// @Summary 调整角色
// @Tags admin
// @Security Bearer
// @Router /api/v1/admin/users/{id}/role [put]
func (h *UserHandler) AdminSetRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.svc.SetUserRole(c.GetString("userID"), c.Param("id"), req.Role); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

type setVerifiedRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// AdminSetVerified 管理员加 V / 取消 V
// @Summary 设置认证状态
// @Tags admin
// @Security Bearer
// @Router /api/v1/admin/users/{id}/verify [put]
func (h *UserHandler) AdminSetVerified(c *gin.Context) {
	var req setVerifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.svc.SetVerified(c.Param("id"), *req.Verified); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// AdminToggleStatus 启用/停用账号
// @Summary 切换账号状态
// @Tags admin
// @Security Bearer
// @Router /api/v1/admin/users/{id}/status [put]
func (h *UserHandler) AdminToggleStatus(c *gin.Context) {
	user, err := h.svc.ToggleUserStatus(c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// AdminDeleteUser 删除用户
// @Summary 删除用户
// @Tags admin
// @Security Bearer
// @Router /api/v1/admin/users/{id} [delete]
func (h *UserHandler) AdminDeleteUser(c *gin.Context) {
	if err := h.svc.DeleteUser(c.GetString("userID"), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetSettings 获取全局设置
// @Summary 全局设置
// @Tags admin
// @Security Bearer
// @Router /api/v1/admin/settings [get]
func (h *UserHandler) GetSettings(c *gin.Context) {
	settings, err := h.svc.GetSettings()
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, settings)
}

// UpdateSettings 更新全局设置
// @Summary 更新全局设置
// @Tags admin
// @Security Bearer
// @Router /api/v1/admin/settings [put]
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	var patch service.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	settings, err := h.svc.UpdateSettings(patch)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, settings)
}
