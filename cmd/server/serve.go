package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paiban/replacement/internal/middleware"
	"github.com/paiban/replacement/pkg/compliance"
	"github.com/paiban/replacement/pkg/logger"
)

func serveCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动运维接口、周期任务与合规检查队列",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(commandContext(cmd), app())
		},
	}
}

func serve(parent context.Context, app *App) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := app.Cfg

	// 合规检查队列与新分配轮询
	worker := compliance.NewWorker(app.Detector, cfg.Compliance.Workers, cfg.Compliance.QueueSize)
	worker.Start(context.Background())
	if cfg.Compliance.PollInterval > 0 {
		watcher := compliance.NewWatcher(app.Store, worker, cfg.Compliance.PollInterval, cfg.Compliance.Lookback)
		go watcher.Run(ctx)
	}

	if cfg.Scheduler.Enabled {
		app.Scheduler.Start(ctx)
	} else {
		logger.Info().Msg("周期任务调度器已禁用")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      middleware.Chain(opsMux(app), middleware.RequestID, middleware.Logging(app.Recorder), middleware.Recovery),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			stop()
			return fmt.Errorf("服务器启动失败: %w", err)
		}
	}

	logger.Info().Msg("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	if err := worker.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("合规检查队列未能及时停止")
	}
	app.Scheduler.Wait()

	logger.Info().Msg("服务器已关闭")
	return nil
}

// opsMux 运维端点：健康检查、版本、指标
func opsMux(app *App) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := app.DB.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unavailable","database":%q}`, err.Error())
			return
		}
		app.Recorder.SetDBStats(app.DB.Stats())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"replacement"}`))
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	if app.Cfg.Metrics.Enabled {
		mux.Handle(app.Cfg.Metrics.Path, app.Recorder.Registry().Handler())
	}

	return mux
}
