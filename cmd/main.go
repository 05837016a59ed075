package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Leganyst/consultation-calendar/internal/config"
	"github.com/Leganyst/consultation-calendar/internal/db"
	"github.com/Leganyst/consultation-calendar/internal/logger"
	"github.com/Leganyst/consultation-calendar/internal/model"
	"github.com/Leganyst/consultation-calendar/internal/repository"
	"github.com/Leganyst/consultation-calendar/internal/server"
	"github.com/Leganyst/consultation-calendar/internal/service"
)

func main() {
	// 1. .env, если лежит рядом; в контейнере переменные приходят извне.
	_ = godotenv.Load()

	// 2. Конфиг из env.
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	// 3. Подключаемся к БД через GORM (по умолчанию sqlite в памяти).
	gormDB, err := db.NewGormDB(cfg)
	if err != nil {
		zlog.Fatal("init db", zap.Error(err))
	}

	// 4. Миграции моделей.
	if err := model.AutoMigrate(gormDB); err != nil {
		zlog.Fatal("auto migrate", zap.Error(err))
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		zlog.Fatal("sql DB", zap.Error(err))
	}
	defer sqlDB.Close()

	// 5. Репозитории (реализации на GORM).
	apptRepo := repository.NewGormAppointmentRepository(gormDB)
	availRepo := repository.NewGormAvailabilityRepository(gormDB)
	absRepo := repository.NewGormAbsenceRepository(gormDB)
	eventRepo := repository.NewGormEventRepository(gormDB)

	// 6. Однократная начальная загрузка записей из статического JSON.
	seeded, err := service.LoadSeed(context.Background(), cfg.Seed.Path, apptRepo, zlog)
	if err != nil {
		zlog.Fatal("load seed", zap.Error(err))
	}
	if seeded > 0 {
		zlog.Info("calendar seeded", zap.Int("appointments", seeded))
	}

	// 7. Сервисы ядра.
	schedulingSvc, err := service.NewSchedulingService(
		apptRepo, availRepo, absRepo, eventRepo,
		service.SchedulingOptions{
			RequireAvailabilityCoverage: cfg.Booking.RequireAvailabilityCoverage,
			SlotStep:                    time.Duration(cfg.Booking.SlotStepMinutes) * time.Minute,
			CacheSize:                   cacheSize(cfg),
		},
		zlog,
	)
	if err != nil {
		zlog.Fatal("init scheduling service", zap.Error(err))
	}
	cartSvc := service.NewCartService(apptRepo, eventRepo, zlog)

	// 8. HTTP-сервер.
	ctrl := server.NewCalendarController(schedulingSvc, cartSvc)
	router := server.NewRouter(cfg, ctrl, zlog)

	addr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		zlog.Info("consultation calendar listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http serve", zap.Error(err))
		}
	}()

	// 9. Грейсфул-шатдаун по сигналу.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zlog.Info("shutting down http server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("shutdown", zap.Error(err))
	}
}

func cacheSize(cfg *config.Config) int {
	if !cfg.Cache.Enabled {
		return 0
	}
	return cfg.Cache.Size
}
