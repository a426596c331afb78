package response

import (
	"errors"
	"net/http"

	"neosixty/pkg/errs"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`    // 业务码
	Message string      `json:"message"` // 提示信息
	Data    interface{} `json:"data"`    // 数据
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, msg string) {
	c.JSON(httpCode, Response{
		Code:    errCode,
		Message: msg,
		Data:    nil,
	})
}

// Fail 业务失败响应 (HTTP 200, 业务码非 0)
func Fail(c *gin.Context, errCode int, msg string) {
	c.JSON(http.StatusOK, Response{
		Code:    errCode,
		Message: msg,
		Data:    nil,
	})
}

// FromError 根据 service 层错误分类映射 HTTP 状态码和业务码
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		Error(c, http.StatusBadRequest, ErrInvalidParam, err.Error())
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		Error(c, http.StatusNotFound, ErrResourceNotFound, err.Error())
	case errors.Is(err, errs.ErrConflict):
		Error(c, http.StatusConflict, ErrConflict, err.Error())
	case errors.Is(err, errs.ErrForbidden):
		Error(c, http.StatusForbidden, ErrNoPermission, err.Error())
	case errors.Is(err, errs.ErrGateway):
		// 网关错误对客户端表现为可重试的 pending，不是立即失败
		Error(c, http.StatusBadGateway, ErrGatewayUnavailable, err.Error())
	default:
		Error(c, http.StatusInternalServerError, ErrServerInternal, err.Error())
	}
}
