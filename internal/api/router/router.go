package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"team-matching/config"
	"team-matching/internal/api/handler"
	"team-matching/internal/api/middleware"
	"team-matching/internal/service"
	"team-matching/pkg/jwt"
	"team-matching/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单与限流降级关闭
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	ownership service.OwnershipService,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	var (
		blacklist middleware.BlacklistChecker
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins, cfg.Server.CORS.MaxAge))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	matchLimit := middleware.RateLimit(limiter, cfg.Server.MatchRateLimit, defaultWindow(cfg.Server.MatchRateWindow))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
	{
		v1.POST("/auth/logout", h.Auth.Logout)

		authorized := v1.Group("")
		authorized.Use(middleware.TeacherAuth(ownership, logger))

		// 班级 / 学生 / 问卷
		classes := authorized.Group("/classes")
		{
			classes.GET("", h.Class.ListClasses)
			classes.POST("", h.Class.CreateClass)
			classes.GET("/:id/students", h.Class.ListStudents)
			classes.POST("/:id/students", h.Class.CreateStudents)
			classes.GET("/:id/surveys", h.Class.ListSurveys)
			classes.POST("/:id/surveys", h.Class.CreateSurvey)
		}
		authorized.DELETE("/students/:id", h.Class.DeleteStudent)

		// 偏好
		authorized.POST("/preferences/batch", h.Preference.UpsertBatch)

		surveys := authorized.Group("/surveys")
		{
			surveys.PUT("/:id/status", h.Class.UpdateSurveyStatus)
			surveys.GET("/:id/preferences", h.Preference.ListBySurvey)

			// 匹配
			surveys.POST("/:id/match/preview", h.Match.Preview)
			surveys.POST("/:id/match", matchLimit, h.Match.Run)
			surveys.POST("/:id/teams", h.Match.WriteTeams)

			// 匹配结果
			surveys.GET("/:id/matching-results", h.MatchingResult.List)
			surveys.GET("/:id/matching-results/latest", h.MatchingResult.GetLatest)
		}

		results := authorized.Group("/matching-results")
		{
			results.GET("/:id", h.MatchingResult.Get)
			results.DELETE("/:id", h.MatchingResult.Delete)
			results.GET("/:id/export", h.MatchingResult.Export)
		}
	}

	return r, nil
}

func defaultWindow(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Minute
	}
	return d
}
