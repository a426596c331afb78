package errs

import (
	"errors"
	"fmt"
)

// 业务错误分类。service 层返回这些哨兵错误（可用 %w 包装补充上下文），
// handler 层统一映射为 HTTP 状态码和业务码。
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrGateway    = errors.New("external gateway error")
)

// Validationf 构造带描述的参数校验错误
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// NotFoundf 构造带描述的未找到错误
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

// Conflictf 构造带描述的冲突错误（乐观并发失败、重复操作等）
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConflict}, args...)...)
}

// Forbiddenf 构造带描述的权限错误
func Forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrForbidden}, args...)...)
}

// Gatewayf 构造带描述的外部依赖错误（支付网关超时/拒绝等，可重试）
func Gatewayf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrGateway}, args...)...)
}
