package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"team-matching/internal/service"
	"team-matching/pkg/jwt"
	"team-matching/pkg/response"
)

// BlacklistChecker Token 黑名单查询（由 Redis 实现）
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth 会话 Token 校验中间件
// 从 Authorization: Bearer <token> 中提取并验证 Token，再检查黑名单。
// blacklist 为 nil 或查询出错时降级放行。
func JWTAuth(jwtMgr *jwt.Manager, blacklist BlacklistChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if blacklist != nil && claims.ID != "" {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Warn("查询 Token 黑名单失败，降级放行", zap.String("jti", claims.ID), zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, 10002, "Token 已注销")
				c.Abort()
				return
			}
		}

		c.Set("firebase_uid", claims.FirebaseUID)
		c.Set("token_name", claims.Name)
		c.Set("token_jti", claims.ID)
		var exp time.Time
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}
		c.Set("token_exp", exp)

		c.Next()
	}
}

// TeacherAuth 将外部身份解析为教师记录，注入 teacher_id
// 首次访问的身份自动建档；必须挂在 JWTAuth 之后
func TeacherAuth(ownership service.OwnershipService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("firebase_uid")
		if uid == "" {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		teacher, err := ownership.ResolveTeacher(c.Request.Context(), uid, c.GetString("token_name"))
		if err != nil {
			logger.Error("解析教师身份失败", zap.String("firebase_uid", uid), zap.Error(err))
			response.InternalError(c)
			c.Abort()
			return
		}

		c.Set("teacher_id", teacher.TeacherID)
		c.Next()
	}
}
