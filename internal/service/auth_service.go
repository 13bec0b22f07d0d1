package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TokenBlacklist 会话 Token 黑名单存储
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 会话业务接口
// Token 由外部身份服务签发，本服务只负责注销（加入黑名单）
type AuthService interface {
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
}

type authService struct {
	blacklist TokenBlacklist
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService 创建 AuthService 实例；blacklist 为 nil 时注销不生效
func NewAuthService(blacklist TokenBlacklist, logger *zap.Logger) AuthService {
	return &authService{blacklist: blacklist, logger: logger, now: time.Now}
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	if s.blacklist == nil {
		s.logger.Warn("Redis 未启用，Token 注销未生效", zap.String("jti", jti))
		return nil
	}

	ttl := expiresAt.Sub(s.now())
	if err := s.blacklist.BlacklistToken(ctx, jti, ttl); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.String("jti", jti), zap.Error(err))
		return err
	}
	return nil
}
