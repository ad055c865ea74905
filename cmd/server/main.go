package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/zacharykka/campaign-console/internal/app"
	"github.com/zacharykka/campaign-console/internal/config"
	"github.com/zacharykka/campaign-console/internal/infra"
	"github.com/zacharykka/campaign-console/internal/middleware"
	"github.com/zacharykka/campaign-console/internal/provider"
	httpserver "github.com/zacharykka/campaign-console/internal/server/http"
	"github.com/zacharykka/campaign-console/internal/service/dispatch"
	"github.com/zacharykka/campaign-console/internal/service/identity"
	"github.com/zacharykka/campaign-console/internal/service/settings"
	"github.com/zacharykka/campaign-console/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigDir, opts.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := infra.Initialize(ctx, cfg, log)
	if err != nil {
		log.Fatal("初始化依赖失败", zap.Error(err))
	}

	identitySvc := identity.NewService(container.Repos, cfg.Auth)
	if err := identitySvc.EnsureSeedAdmin(ctx, cfg.Seed.Admin, log); err != nil {
		_ = cleanup(context.Background())
		log.Fatal("初始化管理员失败", zap.Error(err))
	}

	settingsSvc := settings.NewService(container.Repos.Settings)
	voice := provider.NewSimulated(cfg.Provider, settingsSvc, provider.NewRandomOutcomes(cfg.Provider, nil), log.Named("provider"))
	dispatcher := dispatch.NewDispatcher(container.Repos, voice, settingsSvc, identitySvc, cfg.Admin, log.Named("dispatch"))

	var rateLimiter gin.HandlerFunc
	if container.Limiter != nil {
		rateLimiter = middleware.RateLimit(container.Limiter, middleware.KeyByPrincipalOrIP(), log)
	}

	engine := httpserver.NewEngine(cfg, log, httpserver.RouterOptions{
		Middlewares: []gin.HandlerFunc{
			middleware.RequestLogger(log),
		},
		HealthDeps: &httpserver.HealthDependencies{
			DB:    container.DB,
			Redis: container.Redis,
		},
		Authenticator:   middleware.Authenticate(identitySvc, identity.ErrUnauthenticated, log),
		RateLimiter:     rateLimiter,
		FunctionHandler: httpserver.NewFunctionHandler(dispatcher),
		AuthHandler:     httpserver.NewAuthHandler(identitySvc),
		SettingsHandler: httpserver.NewSettingsHandler(settingsSvc),
	})

	application := app.New(cfg, log, engine, cleanup)

	if err := application.Run(ctx); err != nil {
		log.Fatal("服务运行异常", zap.Error(err))
	}
}

// options 控制命令行参数。
type options struct {
	ConfigDir string
	Env       string
}

func parseFlags() options {
	var opts options
	pflag.StringVar(&opts.ConfigDir, "config-dir", "./config", "配置文件目录")
	pflag.StringVar(&opts.Env, "env", "", "强制指定运行环境，覆盖 CAMPAIGN_CONSOLE_ENV")
	pflag.Parse()
	return opts
}
