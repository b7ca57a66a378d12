package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	v1 "jobboard/cmd/api/router/v1"
	"jobboard/internal/infrastructure/config"
	"jobboard/internal/infrastructure/observability"
	pubsubAdapter "jobboard/internal/infrastructure/pubsub/adapter"
	qadapter "jobboard/internal/infrastructure/queue/adapter"
	"jobboard/internal/infrastructure/realtime"
	"jobboard/internal/pkg/chat/application/task"
	"jobboard/internal/pkg/chat/application/usecase"
	"jobboard/internal/pkg/chat/notification"
	"jobboard/internal/pkg/chat/presentation/controller"
	httpHandler "jobboard/internal/pkg/chat/presentation/http"
	identityUsecase "jobboard/internal/pkg/identity/application/usecase"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not found or could not be loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger(os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Connect to the store on startup
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	st, err := openStores(connectCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer st.close()

	metrics := observability.NewChatMetrics(prometheus.DefaultRegisterer)
	registry := realtime.NewRegistry()

	fanoutOpts := []notification.Option{notification.WithMetrics(metrics)}
	var (
		queue  *qadapter.AsynqClient
		worker *qadapter.AsynqServer
	)
	if cfg.RedisURL != "" {
		bus, err := pubsubAdapter.NewRedisBus(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer bus.Close()
		fanoutOpts = append(fanoutOpts, notification.WithRelay(bus))

		if queue, err = qadapter.NewAsynqClient(cfg.RedisURL); err != nil {
			return err
		}
		defer queue.Close()

		worker, err = qadapter.NewAsynqServer(qadapter.ServerConfig{
			RedisURL:    cfg.RedisURL,
			Concurrency: cfg.AsynqConcurrency,
			Queues:      cfg.AsynqQueues,
		})
		if err != nil {
			return err
		}
	} else {
		slog.Info("REDIS_URL not set; relay and task queue disabled")
	}

	fanout := notification.NewFanout(registry, cfg.NodeID, fanoutOpts...)
	directory := identityUsecase.NewResolveRoleUseCase(st.companies)
	startChat := usecase.NewStartChatUseCase(directory, st.chats, fanout)
	appendMessage := usecase.NewAppendMessageUseCase(st.chats, fanout)

	deps := httpHandler.Dependencies{
		Registry:      registry,
		StartChat:     startChat,
		AppendMessage: appendMessage,
		History:       usecase.NewGetChatHistoryUseCase(st.chats),
		Socket: controller.SocketOptions{
			HandlerTimeout: cfg.HandlerTimeout,
			EventRate:      cfg.EventRate,
			EventBurst:     cfg.EventBurst,
			Metrics:        metrics,
		},
	}
	if queue != nil {
		deps.Queue = queue
	}
	if worker != nil {
		task.RegisterAppendMessageTask(worker, appendMessage)
	}

	r := gin.Default()
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, controller.CallerHeader)
	r.Use(cors.New(corsCfg))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})
	r.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := st.ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	v1.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", srv.Addr, "node", cfg.NodeID, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Hijacked websocket connections are not tracked by Shutdown.
		registry.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return fanout.Run(gctx)
	})
	if worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}
	return g.Wait()
}
