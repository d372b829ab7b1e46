package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"orion-brain/internal/api"
	"orion-brain/internal/candles"
	"orion-brain/internal/config"
	"orion-brain/internal/engine"
	"orion-brain/internal/marketdata"
	"orion-brain/internal/models"
	"orion-brain/internal/repository"
	"orion-brain/internal/service"
	"orion-brain/internal/websocket"
	"orion-brain/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer logger.Sync()

	logger.Info("starting orion-brain",
		utils.String("dsn", cfg.Database.DSNWithoutPassword()),
		utils.Int("pairs", len(cfg.Engine.Pairs)))

	// База данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("database connection failed", utils.Err(err))
	}
	defer db.Close()

	if err := repository.InitSchema(db); err != nil {
		logger.Fatal("schema init failed", utils.Err(err))
	}
	logger.Info("database ready")

	// Репозитории
	candleRepo := repository.NewCandleRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Поставщик данных и синхронизатор кэша
	polygon := marketdata.NewPolygonClient(cfg.Polygon, logger)
	synchronizer := candles.NewSynchronizer(candleRepo, polygon, cfg.Engine, logger)

	// WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Уведомления: журнал + WebSocket + Telegram
	notifier := service.NewNotifier(notificationRepo, cfg.Telegram, logger)
	notifier.SetWebSocketHub(hub)

	// Стратегический сервис
	strategy := service.NewStrategyClient(cfg.Strategy, logger)

	// Движок
	eng := engine.NewEngine(
		synchronizer,
		candleRepo,
		positionRepo,
		signalRepo,
		strategy,
		notifier,
		cfg.Engine,
		logger,
	)

	// Фоновые контуры живут до сигнала завершения
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notifier.Run(ctx)

	// Необязательный real-time guard между свечами
	if cfg.Engine.GuardEnabled {
		guard := engine.NewGuard(positionRepo, polygon, notifier, cfg.Engine.GuardInterval, logger)
		go guard.Run(ctx)
	}

	// Планировщик прогонов: движок сам пропускает моменты вне границы
	// 15m свечи, тикаем чаще чтобы не проскочить границу
	go runScheduler(ctx, eng, hub, logger)

	// HTTP поверхность
	deps := &api.Dependencies{
		Engine:        eng,
		Positions:     positionRepo,
		Notifications: notificationRepo,
		Hub:           hub,
		DB:            db,
	}
	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // ручной прогон по вселенной небыстрый
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", utils.String("addr", server.Addr))
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", utils.Err(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", utils.Err(err))
	}

	logger.Info("server exited")
}

// runScheduler запускает прогон движка раз в минуту. Привязка к границе
// 15m свечи делается внутри RunOnce: вне границы прогон дешево
// пропускается.
func runScheduler(ctx context.Context, eng *engine.Engine, hub *websocket.Hub, logger *utils.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := eng.RunOnce(ctx, nil, false)
			if report.Status == models.RunSkipped {
				continue
			}
			hub.BroadcastRunReport(report)
			logger.Info("scheduled run finished", utils.String("status", report.Status))
		}
	}
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// пул под последовательный движок + API чтения
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
