package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habit-tracker/internal/config"
	"habit-tracker/internal/httpapi"
	"habit-tracker/internal/recurrence"
	"habit-tracker/internal/repository"
	"habit-tracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	generatorSvc := service.NewGeneratorService(db, templateRepo, taskRepo, logger)
	templateSvc := service.NewTemplateService(db, templateRepo, taskRepo, generatorSvc, cfg.AheadDays)
	taskSvc := service.NewTaskService(db, taskRepo, templateRepo, generatorSvc)

	scheduler := service.NewSchedulerService(time.UTC)
	if cfg.SweepInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.SweepInterval, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			through := recurrence.DateOf(time.Now().UTC()).AddDays(cfg.AheadDays)
			if err := generatorSvc.EnsureAll(jobCtx, through); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("generation sweep", "error", err)
			}
		}); err != nil {
			log.Fatalf("schedule sweep: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	api := httpapi.NewServer(userRepo, templateSvc, taskSvc, logger, cfg.AheadDays)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Handler(cfg.CORSOrigins),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("server started", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped with error: %v", err)
	}
	logger.Info("shutdown complete")
}
