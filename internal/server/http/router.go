package http

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/zacharykka/campaign-console/internal/config"
	"github.com/zacharykka/campaign-console/internal/infra/cache"
	"github.com/zacharykka/campaign-console/internal/infra/database"
	"github.com/zacharykka/campaign-console/internal/middleware"
	"github.com/zacharykka/campaign-console/internal/service/access"
	"go.uber.org/zap"
)

// HealthDependencies 汇总健康检查所需的依赖。
type HealthDependencies struct {
	DB    *sql.DB
	Redis *redis.Client
}

// RouterOptions 用于自定义路由行为，例如注入中间件与各入口处理器。
type RouterOptions struct {
	Middlewares     []gin.HandlerFunc
	HealthHandler   gin.HandlerFunc
	HealthDeps      *HealthDependencies
	Authenticator   gin.HandlerFunc
	RateLimiter     gin.HandlerFunc
	FunctionHandler *FunctionHandler
	AuthHandler     *AuthHandler
	SettingsHandler *SettingsHandler
}

// NewEngine 根据环境配置初始化 Gin 引擎，并注册基础路由。
func NewEngine(cfg *config.Config, logger *zap.Logger, opts RouterOptions) *gin.Engine {
	ginMode := gin.DebugMode
	switch cfg.App.Env {
	case "production":
		ginMode = gin.ReleaseMode
	case "test":
		ginMode = gin.TestMode
	}
	gin.SetMode(ginMode)

	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(cors.New(buildCORSConfig(cfg.Server)))
	engine.Use(middleware.SecurityHeaders(cfg.Server.SecurityHeaders))
	engine.Use(middleware.LimitRequestBody(cfg.Server.MaxRequestBody))

	for _, mw := range opts.Middlewares {
		if mw != nil {
			engine.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler(cfg, opts.HealthDeps)
	}

	engine.GET("/healthz", healthHandler)

	functions := engine.Group("/functions/v1")
	useIfSet(functions, opts.Authenticator, opts.RateLimiter)
	if opts.FunctionHandler != nil {
		opts.FunctionHandler.RegisterRoutes(functions)
	}
	if opts.AuthHandler != nil {
		opts.AuthHandler.RegisterRoutes(functions)
	}

	api := engine.Group("/api/v1")
	useIfSet(api, opts.Authenticator)
	if opts.SettingsHandler != nil {
		settingsGroup := api.Group("/settings")
		settingsGroup.Use(middleware.RequireAccess(access.ManagerOrAbove))
		opts.SettingsHandler.RegisterRoutes(settingsGroup)
	}

	logger.Info("http router ready", zap.String("env", cfg.App.Env))

	return engine
}

func useIfSet(group *gin.RouterGroup, handlers ...gin.HandlerFunc) {
	for _, handler := range handlers {
		if handler != nil {
			group.Use(handler)
		}
	}
}

// buildCORSConfig 将配置转换为 cors 中间件参数；包含 * 的条目按通配模式匹配。
func buildCORSConfig(cfg config.ServerConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     cfg.CORS.AllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowHeaders) == 0 {
		corsCfg.AllowHeaders = []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey", "X-Request-ID"}
	}

	var exact, patterns []string
	for _, origin := range cfg.CORS.AllowOrigins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "":
			continue
		case origin == "*":
			corsCfg.AllowAllOrigins = true
			return corsCfg
		case strings.Contains(origin, "*"):
			patterns = append(patterns, origin)
		default:
			exact = append(exact, origin)
		}
	}

	if len(exact) == 0 && len(patterns) == 0 {
		corsCfg.AllowAllOrigins = true
		return corsCfg
	}

	corsCfg.AllowOrigins = exact
	if len(patterns) > 0 {
		corsCfg.AllowOriginFunc = func(origin string) bool {
			for _, allowed := range exact {
				if origin == allowed {
					return true
				}
			}
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, origin) {
					return true
				}
			}
			return false
		}
	}
	return corsCfg
}

func matchOriginPattern(pattern, origin string) bool {
	prefix, suffix, _ := strings.Cut(pattern, "*")
	if len(origin) <= len(prefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix)
}

func defaultHealthHandler(cfg *config.Config, deps *HealthDependencies) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		httpStatus := http.StatusOK
		result := gin.H{
			"status":  "ok",
			"service": cfg.App.Name,
			"env":     cfg.App.Env,
		}

		if deps != nil {
			dependencies := gin.H{}
			if deps.DB != nil {
				if err := database.Health(ctx.Request.Context(), deps.DB); err != nil {
					httpStatus = http.StatusServiceUnavailable
					result["status"] = "degraded"
					dependencies["database"] = gin.H{
						"status": "error",
						"error":  err.Error(),
					}
				} else {
					dependencies["database"] = gin.H{"status": "ok"}
				}
			} else {
				dependencies["database"] = gin.H{"status": "missing"}
			}

			// Redis 为可选依赖，未配置时不影响整体状态。
			if deps.Redis != nil {
				if err := cache.Health(ctx.Request.Context(), deps.Redis); err != nil {
					httpStatus = http.StatusServiceUnavailable
					result["status"] = "degraded"
					dependencies["redis"] = gin.H{
						"status": "error",
						"error":  err.Error(),
					}
				} else {
					dependencies["redis"] = gin.H{"status": "ok"}
				}
			} else {
				dependencies["redis"] = gin.H{"status": "disabled"}
			}

			result["dependencies"] = dependencies
		}

		ctx.JSON(httpStatus, result)
	}
}
