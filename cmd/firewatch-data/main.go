package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"firewatch-data/internal/config"
	"firewatch-data/internal/database"
	httpapi "firewatch-data/internal/http"
	"firewatch-data/internal/logger"
	"firewatch-data/internal/mqtt"
	"firewatch-data/internal/repository"
	"firewatch-data/internal/service"
	"firewatch-data/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "firewatch-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var kv store.KV
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("redis not reachable, caching disabled", zap.Error(err))
	} else {
		kv = store.NewRedisKV(redisClient)
	}

	panelsRepo := repository.NewPostgresPanelsRepository(db)
	zonesRepo := repository.NewPostgresZonesRepository(db)
	falcBoardsRepo := repository.NewPostgresFalcBoardsRepository(db)
	nacBoardsRepo := repository.NewPostgresNacBoardsRepository(db)
	detectorsRepo := repository.NewPostgresDetectorsRepository(db)
	circuitsRepo := repository.NewPostgresNacCircuitsRepository(db)
	eventLogsRepo := repository.NewPostgresEventLogsRepository(db)

	var notifiers []service.Notifier
	var mqttPublisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		if p, err := mqtt.NewPublisher(&cfg.MQTT, log); err == nil {
			mqttPublisher = p
			notifiers = append(notifiers, p)
		} else {
			log.Warn("mqtt publisher unavailable", zap.Error(err))
		}
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		notifiers = append(notifiers, service.NewWebhookNotifier(&cfg.Webhook, log))
	}

	eventLogService := service.NewEventLogService(eventLogsRepo, detectorsRepo, notifiers, log)
	panelService := service.NewPanelService(panelsRepo, falcBoardsRepo, nacBoardsRepo, eventLogService, kv, log)
	zoneService := service.NewZoneService(zonesRepo, detectorsRepo, circuitsRepo, log)
	boardService := service.NewBoardService(panelsRepo, falcBoardsRepo, nacBoardsRepo, detectorsRepo, circuitsRepo, eventLogService, log)
	detectorService := service.NewDetectorService(falcBoardsRepo, zonesRepo, detectorsRepo, eventLogService, log)
	circuitService := service.NewCircuitService(nacBoardsRepo, zonesRepo, circuitsRepo, eventLogService, log)
	statusEngine := service.NewStatusEngine(detectorsRepo, circuitsRepo, eventLogService, log)
	dashboardService := service.NewDashboardService(panelsRepo, detectorsRepo, eventLogsRepo, kv, log)

	router := httpapi.NewRouter(log)
	router.RegisterRoutes(
		httpapi.NewPanelHandler(panelService, boardService, log),
		httpapi.NewZoneHandler(zoneService, log),
		httpapi.NewBoardHandler(boardService, log),
		httpapi.NewDetectorHandler(detectorService, statusEngine, log),
		httpapi.NewCircuitHandler(circuitService, statusEngine, log),
		httpapi.NewEventLogHandler(eventLogService, log),
		httpapi.NewDashboardHandler(dashboardService, log),
	)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("http server exited", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttPublisher != nil {
		mqttPublisher.Close()
	}
	_ = redisClient.Close()
	database.Close(db)
}
