package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-amenity-reservation/internal/api"
	"github.com/sanosuguru/go-amenity-reservation/internal/api/handler"
	"github.com/sanosuguru/go-amenity-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-amenity-reservation/internal/application"
	"github.com/sanosuguru/go-amenity-reservation/internal/config"
	"github.com/sanosuguru/go-amenity-reservation/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-amenity-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-amenity-reservation/internal/worker"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		logger.Fatal(".envの読み込みに失敗しました", zap.Error(err))
	}
	cfg := config.Load()

	logger.Set(logger.NewLogger(cfg.App.Env))
	defer logger.Sync()

	loc, err := cfg.Booking.Location()
	if err != nil {
		logger.Fatal("タイムゾーンが不正です", zap.String("timezone", cfg.Booking.TimeZone), zap.Error(err))
	}

	// DB接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("DB接続に失敗しました", zap.Error(err))
	}
	defer db.Close()

	if cfg.App.AutoMigrate {
		if err := postgres.RunMigrations(db.DB, cfg.App.MigrationsPath); err != nil {
			logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
		}
	}

	// Redis接続（無効時は DB のロックのみで動作する）
	var (
		redisClient *redis.Client
		lockManager redisinfra.LockManagerInterface
		slotCache   redisinfra.SlotCacheInterface
		broadcaster worker.Broadcaster = worker.LogBroadcaster{}
	)
	if cfg.Redis.Enabled {
		redisClient, err = redisinfra.NewClient(&redisinfra.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal("Redis接続に失敗しました", zap.Error(err))
		}
		defer redisClient.Close()

		lockManager = redisinfra.NewLockManager(redisClient)
		slotCache = redisinfra.NewSlotCache(redisClient)
		broadcaster = redisinfra.NewEventChannel(redisClient, cfg.Worker.EventsChannel)
	} else {
		logger.Warn("Redisが無効です。分散ロックと空き枠キャッシュを使わずに起動します")
	}

	m := metrics.Init()

	// リポジトリ
	spaceRepo := postgres.NewSpaceRepository(db)
	reservationRepo := postgres.NewReservationRepository(db).WithLockTimeout(cfg.Database.LockTimeout)
	directoryRepo := postgres.NewDirectoryRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	txManager := postgres.NewTxManager(db)

	// サービス
	settings := application.BookingSettings{
		Location:            loc,
		DefaultSlotDuration: cfg.Booking.DefaultSlotDuration,
		LockTTL:             cfg.Booking.LockTTL,
		LockRetries:         cfg.Booking.LockRetries,
		LockRetryDelay:      cfg.Booking.LockRetryDelay,
		SlotCacheTTL:        cfg.Booking.SlotCacheTTL,
	}
	validator := application.NewBookingValidator(spaceRepo, reservationRepo, directoryRepo, directoryRepo, directoryRepo, loc)

	spaceService := application.NewSpaceService(spaceRepo, slotCache)
	slotService := application.NewSlotService(spaceRepo, reservationRepo, slotCache, settings).WithMetrics(m)
	reservationService := application.NewReservationService(
		txManager, validator, spaceRepo, reservationRepo, eventRepo, lockManager, slotCache, settings,
	).WithEventHistory(eventRepo).WithMetrics(m)

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e)
	e.Use(middleware.PrometheusMiddleware(m))

	metricsHandler := echo.WrapHandler(promhttp.Handler())
	if cfg.Metrics.IsEnabled() {
		e.GET("/metrics", metricsHandler, middleware.MetricsBasicAuth(cfg.Metrics))
	} else {
		e.GET("/metrics", metricsHandler)
	}

	checks := []handler.HealthCheck{
		{Name: "postgres", Check: func(ctx context.Context) error { return postgres.Ping(ctx, db) }},
	}
	if redisClient != nil {
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisinfra.Ping(ctx, redisClient) },
		})
	}

	handler.RegisterRoutes(e, handler.Handlers{
		Health:      handler.NewHealthHandler(checks...),
		Space:       handler.NewSpaceHandler(spaceService),
		Slot:        handler.NewSlotHandler(slotService),
		Reservation: handler.NewReservationHandler(reservationService),
	})

	// アウトボックス配信
	var relay *worker.OutboxRelay
	if cfg.Worker.OutboxEnabled {
		relay = worker.NewOutboxRelay(txManager, eventRepo, broadcaster, cfg.Worker.OutboxInterval, cfg.Worker.OutboxBatchSize).
			WithMetrics(m)
		go relay.Start(context.Background())
	}

	go func() {
		logger.Info("サーバーを起動します", zap.String("addr", cfg.Server.Addr()), zap.String("timezone", loc.String()))
		if err := e.Start(cfg.Server.Addr()); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if relay != nil {
		relay.Stop()
	}
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
		return
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
