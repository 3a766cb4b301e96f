// Package main runs the debate livestream admin HTTP server with WebSocket fan-out and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-debate/backend/config"
	"github.com/aura-debate/backend/internal/auth"
	"github.com/aura-debate/backend/internal/dashboard"
	"github.com/aura-debate/backend/internal/debates"
	"github.com/aura-debate/backend/internal/judges"
	"github.com/aura-debate/backend/internal/live"
	"github.com/aura-debate/backend/internal/metrics"
	"github.com/aura-debate/backend/internal/middleware"
	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/internal/participants"
	"github.com/aura-debate/backend/internal/realtime"
	"github.com/aura-debate/backend/internal/statistics"
	"github.com/aura-debate/backend/internal/streams"
	"github.com/aura-debate/backend/internal/votes"
	"github.com/aura-debate/backend/internal/worker"
	"github.com/aura-debate/backend/pkg/database"
	"github.com/aura-debate/backend/pkg/queue"
	"github.com/aura-debate/backend/pkg/redis"
	"github.com/aura-debate/backend/pkg/response"
	"github.com/aura-debate/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), "debate-server", logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var avatars judges.AvatarStore
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AvatarBucket:         cfg.AWS.AvatarBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			avatars = s3Client
		}
	}

	metrics.Register(pool)

	// Real-time fan-out, mirrored over Redis so the worker's events reach dashboards.
	mirror := realtime.NewRedisPubSub(rdb.Client, cfg.Live.EventChannel, logger)
	hub := realtime.NewHub(logger, mirror, cfg.Live.Heartbeat())
	stopMirror, err := mirror.Subscribe(hub.HandleRemote)
	if err != nil {
		logger.Fatal("subscribe event channel", zap.Error(err))
	}
	defer stopMirror()

	// Repositories
	authRepo := auth.NewRepository(pool)
	streamRepo := streams.NewRepository(pool)
	sessionRepo := streams.NewSessionRepository(pool)
	scheduleRepo := streams.NewScheduleRepository(pool)
	debateRepo := debates.NewRepository(pool)
	judgeRepo := judges.NewRepository(pool)
	participantRepo := participants.NewRepository(pool)
	statsRepo := statistics.NewRepository(pool)
	voteRepo := votes.NewRepository(pool)

	if err := auth.EnsureAdmin(ctx, authRepo, cfg.Admin, logger); err != nil {
		logger.Fatal("bootstrap admin", zap.Error(err))
	}

	// Persistence side effects go through the sink queue; cmd/worker applies them.
	sink := worker.NewQueueSink(queue.NewQueue(rdb.Client, logger))

	coord := live.NewCoordinator(live.ConfigFrom(cfg.Live), live.Deps{
		Streams:      streamRepo,
		Participants: participantRepo,
		Judges:       judgeRepo,
		Presence:     hub,
		Daily:        sink,
		Global:       sink,
		History:      sink,
		Tallies:      sink,
		Audit:        sessionRepo,
		Schedules:    scheduleRepo,
		Publisher:    hub,
		Logger:       logger,
	})
	tallies, err := voteRepo.LoadTallies(ctx)
	if err != nil {
		logger.Fatal("load tallies", zap.Error(err))
	}
	coord.Restore(tallies)
	if err := coord.RestoreSchedules(ctx); err != nil {
		logger.Fatal("restore live schedules", zap.Error(err))
	}

	hub.SetSnapshotFunc(func(ctx context.Context) live.Event { return coord.Snapshot(ctx) })
	hub.SetOnlineChangeHandler(func(streamID uuid.UUID, count int) {
		liveID, ok := coord.ActiveLiveID(streamID)
		if !ok {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sessionRepo.UpdatePeakViewers(ctx, liveID, count); err != nil {
				logger.Warn("update peak viewers", zap.String("live_id", liveID.String()), zap.Error(err))
			}
		}()
	})

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Handlers
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)
	liveHandler := live.NewHandler(coord, logger)
	voteHandler := votes.NewHandler(coord, logger)
	streamHandler := streams.NewHandler(streamRepo, sessionRepo, coord, logger)
	judgeHandler := judges.NewHandler(judgeRepo, participantRepo, avatars, hub, logger)
	participantHandler := participants.NewHandler(participantRepo, logger)
	statsHandler := statistics.NewHandler(statsRepo, coord, logger)
	debateHandler := debates.NewHandler(debateRepo, streamRepo, hub, logger)
	dashboardHandler := dashboard.NewHandler(coord, streamRepo, judgeRepo, debateRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins()...))
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware())

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok", "liveStreams": coord.LiveCount()}) })
	router.GET("/metrics", metrics.Handler())
	router.GET("/ws", realtime.ServeWs(hub, logger, cfg.Server.AllowedOrigins()))

	router.POST("/auth/login", authHandler.Login)

	// Participant-facing API (no JWT)
	api := router.Group("/api/v1")
	{
		api.POST("/user-vote", voteHandler.UserVote)
		api.POST("/participants", participantHandler.Register)
		api.GET("/display/vote-ratio", voteHandler.VoteRatio)
		api.GET("/live/status", liveHandler.Status)
		api.GET("/debate-topic", debateHandler.Topic)
	}

	// Admin dashboard API (JWT required)
	admin := api.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole(models.RoleAdmin, models.RoleOperator))
	{
		admin.GET("/me", authHandler.Me)
		admin.GET("/dashboard", dashboardHandler.Get)
		admin.GET("/accounts", middleware.RequireRole(models.RoleAdmin), authHandler.List)
		admin.POST("/accounts", middleware.RequireRole(models.RoleAdmin), authHandler.Create)

		// Live lifecycle and vote overrides
		admin.POST("/live/start", liveHandler.Start)
		admin.POST("/live/stop", liveHandler.Stop)
		admin.GET("/live/status", liveHandler.Status)
		admin.POST("/live/cap-votes", liveHandler.CapVotes)
		admin.POST("/live/update-votes", voteHandler.UpdateVotes)
		admin.POST("/live/reset-votes", voteHandler.ResetVotes)
		admin.GET("/votes", voteHandler.AdminVotes)
		admin.POST("/live/schedule", liveHandler.Schedule)
		admin.GET("/live/schedule", liveHandler.Schedules)
		admin.POST("/live/schedule/cancel", liveHandler.CancelSchedule)

		// AI commentary
		admin.POST("/ai/start", liveHandler.StartAI)
		admin.POST("/ai/stop", liveHandler.StopAI)
		admin.POST("/ai/toggle", liveHandler.ToggleAI)
		admin.GET("/ai/status", liveHandler.AIStatus)

		// Streams
		admin.GET("/streams", streamHandler.List)
		admin.POST("/streams", streamHandler.Create)
		admin.GET("/streams/:id", streamHandler.Get)
		admin.PUT("/streams/:id", streamHandler.Update)
		admin.POST("/streams/:id/toggle", streamHandler.Toggle)
		admin.DELETE("/streams/:id", middleware.RequireRole(models.RoleAdmin), streamHandler.Delete)
		admin.GET("/streams/:id/sessions", streamHandler.Sessions)
		admin.GET("/streams/:id/debate", debateHandler.StreamDebate)
		admin.PUT("/streams/:id/debate", debateHandler.SetStreamDebate)
		admin.DELETE("/streams/:id/debate", debateHandler.ClearStreamDebate)

		// Debate topics and flow
		admin.GET("/debates", debateHandler.List)
		admin.POST("/debates", debateHandler.Create)
		admin.GET("/debates/:id", debateHandler.Get)
		admin.PUT("/debates/:id", debateHandler.Update)
		admin.DELETE("/debates/:id", middleware.RequireRole(models.RoleAdmin), debateHandler.Delete)
		admin.GET("/debate-flow", debateHandler.Flow)
		admin.POST("/debate-flow", debateHandler.SaveFlow)
		admin.POST("/debate-flow/control", debateHandler.ControlFlow)

		// Judges
		admin.GET("/judges", judgeHandler.Get)
		admin.POST("/judges", judgeHandler.Update)
		admin.POST("/upload/avatar", judgeHandler.UploadAvatar)
		admin.GET("/upload/avatar/presign", judgeHandler.PresignAvatar)

		// Participants
		admin.GET("/participants", participantHandler.List)
		admin.POST("/participants/status", participantHandler.SetStatus)
		admin.POST("/participants/:id/toggle-ban", participantHandler.ToggleBan)
		admin.GET("/participants/:id/votes", participantHandler.Votes)
		admin.GET("/voters", participantHandler.Voters)

		// Statistics
		admin.GET("/statistics/summary", statsHandler.Summary)
		admin.GET("/statistics/daily", statsHandler.Daily)
		admin.GET("/statistics/daily/:date", statsHandler.Day)
		admin.GET("/statistics/range", statsHandler.Range)
		admin.GET("/statistics/active-users", statsHandler.ActiveUsers)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	coord.Shutdown()
	hubCancel()
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
