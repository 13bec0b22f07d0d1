package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"team-matching/pkg/response"
)

// MustGetTeacherID 从 Gin 上下文中安全提取 teacher_id。
// 如果 TeacherAuth 中间件未注入 teacher_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetTeacherID(c *gin.Context) (string, bool) {
	v, exists := c.Get("teacher_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// GetTokenMeta 提取当前 Token 的 jti 与过期时间，缺失时返回零值
func GetTokenMeta(c *gin.Context) (string, time.Time) {
	jti := c.GetString("token_jti")
	exp, _ := c.Get("token_exp")
	t, _ := exp.(time.Time)
	return jti, t
}
