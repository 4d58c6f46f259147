package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-support-bot/internal/application"
	"telegram-support-bot/internal/config"
	"telegram-support-bot/internal/domain/ports/adapter"
	tele "telegram-support-bot/internal/infra/adapters/telegram"
	"telegram-support-bot/internal/infra/api"
	"telegram-support-bot/internal/infra/api/apiv1"
	pg "telegram-support-bot/internal/infra/db/postgres"
	"telegram-support-bot/internal/infra/i18n"
	"telegram-support-bot/internal/infra/logging"
	"telegram-support-bot/internal/infra/metrics"
	red "telegram-support-bot/internal/infra/redis"
	"telegram-support-bot/internal/infra/scheduler"
	"telegram-support-bot/internal/infra/worker"
	"telegram-support-bot/internal/usecase"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "log to console and replace Telegram with a no-op gateway")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().Str("version", version).Str("commit", commit).Bool("dev", cfg.Runtime.Dev).Msg("starting")

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 30*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer func() { _ = redisClient.Close() }()

	locker := red.NewLocker(redisClient)
	limiter := red.NewRateLimiter(redisClient)
	topicCache := red.NewTopicCache(redisClient, cfg.Redis.TTL)
	noticeLedger := red.NewNoticeLedger(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(pool)
	broadcastRepo := pg.NewPostgresBroadcastRepo(pool)
	deliveryRepo := pg.NewPostgresDeliveryLogRepo(pool)

	// ---- i18n ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "uk")
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	// ---- Telegram gateway ----
	var gateway adapter.MessagingGateway
	var realGateway *tele.Gateway
	if cfg.Runtime.Dev {
		gateway = tele.NewNoopGateway(logger)
	} else {
		realGateway, err = tele.NewGateway(&cfg.Bot)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		gateway = realGateway
		logger.Info().Str("token", logging.Redact(cfg.Bot.Token, cfg.Runtime.Dev)).Msg("telegram gateway ready")
	}

	// ---- Use cases ----
	subUC := usecase.NewSubscriptionUseCase(userRepo, logger)
	routeUC := usecase.NewRoutingUseCase(userRepo, gateway, &cfg.Categories, topicCache, locker, tr, logger)
	castUC := usecase.NewBroadcastUseCase(userRepo, broadcastRepo, deliveryRepo, gateway, cfg.Broadcast.RatePerSec, tr, logger)
	noticeUC := usecase.NewNoticeUseCase(userRepo, noticeLedger, gateway, cfg.Broadcast.RatePerSec, tr, logger)

	// ---- Background work ----
	jobs := worker.NewPool(8, logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	sched := scheduler.NewService(castUC, noticeUC, broadcastRepo, jobs, cfg.Broadcast.SweepInterval, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("scheduler")
	}
	defer sched.Stop()

	// ---- Facade + bot frontend ----
	facade := application.NewBotFacade(subUC, routeUC, castUC, noticeUC, sched, tr, cfg.Categories.CommunityChat, gateway)

	if realGateway != nil {
		bot := tele.NewBot(realGateway, cfg, facade, routeUC, limiter, tr, logger)
		go bot.Start(ctx)
	} else {
		logger.Warn().Msg("dev mode, telegram polling disabled")
	}

	// ---- Admin HTTP ----
	v1 := apiv1.NewServer(castUC, noticeUC, broadcastRepo, logger)
	admin := api.NewServer(&cfg.Admin, v1, logger)
	go func() {
		if err := admin.Start(); err != nil {
			logger.Error().Err(err).Msg("admin server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin shutdown")
	}
}
