package handler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"placement-portal/backend/internal/api/middleware"
	"placement-portal/backend/internal/service"
	pkgerrors "placement-portal/backend/pkg/errors"
	"placement-portal/backend/pkg/jwt"
	"placement-portal/backend/pkg/response"
	"placement-portal/backend/pkg/validate"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetAuthContext 从 JWT 声明构造 service.AuthContext
func MustGetAuthContext(c *gin.Context) (service.AuthContext, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.AuthContext{}, false
	}
	role := c.GetString(middleware.CtxRole)
	if role == "" {
		response.Unauthorized(c, 10002, "未认证")
		return service.AuthContext{}, false
	}
	return service.AuthContext{
		UserID:  userID,
		Role:    role,
		VenueID: c.GetString(middleware.CtxVenueID),
	}, true
}

// MustGetClaims 提取完整的 JWT 声明（登出时需要 jti 与过期时间）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(middleware.CtxClaims)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

// bindFailed 参数绑定失败：返回 400，details 列出字段与未通过的规则
func bindFailed(c *gin.Context, err error) {
	fields := validate.FieldErrors(err)
	if len(fields) == 0 {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}
	parts := make([]string, 0, len(fields))
	for f, tag := range fields {
		parts = append(parts, fmt.Sprintf("%s:%s", f, tag))
	}
	sort.Strings(parts)
	response.ValidationFailed(c, "参数校验失败", strings.Join(parts, ", "))
}

// handleCommonError 处理跨模块错误，已写入响应时返回 true
func handleCommonError(c *gin.Context, err error) bool {
	if ve, ok := pkgerrors.AsValidation(err); ok {
		response.ValidationFailed(c, "参数校验失败", ve.Error())
		return true
	}
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权限访问")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, "数据已被其他操作修改，请刷新后重试")
	default:
		return false
	}
	return true
}
