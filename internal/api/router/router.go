package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaiowei11/classmatch-web/config"
	"github.com/xaiowei11/classmatch-web/internal/api/handler"
	"github.com/xaiowei11/classmatch-web/internal/api/middleware"
	"github.com/xaiowei11/classmatch-web/pkg/jwt"
	"github.com/xaiowei11/classmatch-web/pkg/metrics"
	"github.com/xaiowei11/classmatch-web/pkg/redis"
)

const (
	jsonBodyLimit = 1 << 20
	// multipart 边界与表单字段的额外开销
	multipartSlack = 1 << 20
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 & 指标 ──
	r.GET("/health", func(c *gin.Context) {
		// Redis 可选，不可用时仍返回 200，仅标记降级
		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "ok"
			if err := rdb.Ping(c.Request.Context()); err != nil {
				redisStatus = "unavailable"
			}
		}
		c.JSON(200, gin.H{"status": "ok", "redis": redisStatus})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	uploadLimit := middleware.BodyLimit(cfg.Import.MaxUploadMB<<20 + multipartSlack)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login",
				middleware.BodyLimit(jsonBodyLimit),
				middleware.RateLimit(rdb, 10, time.Minute),
				h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 导入模块：提交与预览仅 admin
			imports := authorized.Group("/imports")
			{
				admin := middleware.RoleAuth("admin")
				imports.POST("/courses", admin, uploadLimit, h.Import.ImportCourses)
				imports.POST("/courses/preview", admin, uploadLimit, h.Import.PreviewCourses)
				imports.POST("/accounts", admin, uploadLimit, h.Import.ImportAccounts)
				imports.POST("/accounts/preview", admin, uploadLimit, h.Import.PreviewAccounts)

				readers := middleware.RoleAuth("admin", "viewer")
				imports.GET("", readers, h.Import.ListRuns)
				imports.GET("/:id", readers, h.Import.GetRun)
				imports.GET("/:id/errors.xlsx", readers, h.Export.ErrorsXLSX)
				imports.GET("/:id/errors.csv", readers, h.Export.ErrorsCSV)
				imports.GET("/:id/calendar.ics", readers, h.Export.Calendar)
			}

			// 选课系统教师目录
			authorized.GET("/teachers", middleware.RoleAuth("admin", "viewer"), h.Teacher.List)
		}
	}

	return r
}
