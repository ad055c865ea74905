package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/zacharykka/campaign-console/internal/config"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Closer 在 HTTP 服务停止后释放资源。
type Closer func(context.Context) error

// Application 负责组织 HTTP Server 与底层资源的生命周期。
type Application struct {
	cfg     *config.Config
	logger  *zap.Logger
	server  *http.Server
	closers []Closer
}

// New 构建应用实例；closers 按注册的逆序在停机时执行。
func New(cfg *config.Config, logger *zap.Logger, handler http.Handler, closers ...Closer) *Application {
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:     cfg,
		logger:  logger,
		server:  httpServer,
		closers: closers,
	}
}

// Run 启动 HTTP 服务并监听上下文取消，实现优雅退出。
func (a *Application) Run(ctx context.Context) error {
	a.logger.Info("starting http server", zap.String("addr", a.server.Addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		closeCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return multierr.Append(err, a.close(closeCtx))
	}
}

// shutdown 先停止接收请求，再释放资源。
func (a *Application) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down http server")
	var errs error
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("graceful shutdown failed", zap.Error(err))
		errs = multierr.Append(errs, err)
	}
	errs = multierr.Append(errs, a.close(ctx))
	if errs == nil {
		a.logger.Info("shutdown complete")
	}
	return errs
}

func (a *Application) close(ctx context.Context) error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if a.closers[i] == nil {
			continue
		}
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error("release resource failed", zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
