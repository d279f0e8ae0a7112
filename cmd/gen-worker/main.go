// Package main 生成流水线执行器入口（gen-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storyforge-api/internal/application/pipeline"
	"storyforge-api/internal/config"
	"storyforge-api/internal/infrastructure/llm"
	"storyforge-api/internal/infrastructure/messaging"
	"storyforge-api/internal/infrastructure/persistence/postgres"
	"storyforge-api/internal/infrastructure/persistence/redis"
	"storyforge-api/internal/infrastructure/render"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/tracer"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "gen-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal(ctx, "failed to init postgres", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", err)
	}
	defer func() { _ = redisClient.Close() }()

	projectRepo := postgres.NewProjectRepository(pgClient)
	chapterRepo := postgres.NewChapterRepository(pgClient)
	stageRepo := postgres.NewStageProgressRepository(pgClient)
	txManager := postgres.NewTxManager(pgClient)
	cache := redis.NewCache(redisClient)

	factory := llm.NewEinoFactory(cfg)
	completer := llm.NewCompleter(factory, cfg)
	renderer := render.NewPDFRenderer(cfg.Render.OutputDir)

	progressTracker := pipeline.NewTracker(projectRepo, stageRepo, chapterRepo, cache)
	accumulator := pipeline.NewAccumulator(cfg.Pipeline.Context)

	worldStage := pipeline.NewWorldStage(completer, progressTracker, cfg.Pipeline)
	characterStage := pipeline.NewCharacterStage(completer, progressTracker, cfg.Pipeline)
	plotStage := pipeline.NewPlotStage(completer, progressTracker, cfg.Pipeline)
	proseStage := pipeline.NewProseStage(completer, progressTracker, accumulator, cfg.Pipeline)
	checkerStage := pipeline.NewCheckerStage(completer, progressTracker, accumulator, cfg.Pipeline)
	chapterLoop := pipeline.NewChapterLoop(proseStage, checkerStage, chapterRepo, projectRepo, txManager, progressTracker)

	orchestrator := pipeline.NewOrchestrator(
		worldStage, characterStage, plotStage, chapterLoop,
		renderer, progressTracker, projectRepo, chapterRepo,
	)

	consumer := messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamStoryRun,
		Group:         messaging.ConsumerGroupGenWorker,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	consumer.RegisterHandler(messaging.MsgTypeStoryRun, func(msgCtx context.Context, msg *messaging.Message) error {
		var payload messaging.StoryRunMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}

		runCtx := msgCtx
		if payload.RequestID != "" {
			runCtx = logger.WithContext(runCtx, logger.RequestIDKey, payload.RequestID)
		}

		// 运行失败由编排器落到项目状态，重启需调用方显式触发；
		// 这里确认消息，避免队列侧按瞬时错误语义重试整次运行
		if err := orchestrator.Run(runCtx, payload.ProjectID); err != nil {
			logger.Error(runCtx, "generation run failed", err, "project_id", payload.ProjectID)
		}
		return nil
	})

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	go consumer.MonitorDLQ(ctx, 100)

	log := logger.FromContext(ctx)
	log.Info("gen-worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("gen-worker shutting down")
	consumer.Stop()
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
