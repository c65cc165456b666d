package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/borgframework/borg/internal/actions"
	"github.com/borgframework/borg/internal/api"
	"github.com/borgframework/borg/internal/borg"
	"github.com/borgframework/borg/internal/config"
	"github.com/borgframework/borg/internal/data"
	"github.com/borgframework/borg/internal/db"
	"github.com/borgframework/borg/internal/engine"
	"github.com/borgframework/borg/internal/notify"
	"github.com/borgframework/borg/internal/provider"
	"github.com/borgframework/borg/internal/repository"
	"github.com/borgframework/borg/internal/services"
	"github.com/borgframework/borg/internal/storage"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		serve()
		return
	}
	fmt.Println("borg v0.1.0")
	fmt.Println("Usage: borg serve")
}

func serve() {
	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database is optional; without it everything runs in memory.
	var database *db.DB
	if cfg.Database.URL != "" {
		database, err = db.New(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			slog.Error("database migration failed", "err", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no database configured, using in-memory repositories")
	}

	// Repositories: memory fast path, write-through to the DB when present.
	workflowMem := repository.NewMemoryWorkflowRepository()
	runMem := repository.NewMemoryRunRepository()
	scheduleMem := repository.NewMemoryScheduleRepository()
	triggerMem := repository.NewMemoryTriggerRepository()

	var (
		workflows repository.WorkflowRepository = workflowMem
		runs      repository.RunRepository      = runMem
		schedules repository.ScheduleRepository = scheduleMem
		triggers  repository.TriggerRepository  = triggerMem
	)
	if database != nil {
		workflows = repository.NewPersistentWorkflowRepository(workflowMem, database)
		runs = repository.NewPersistentRunRepository(runMem, database)
		schedules = repository.NewPersistentScheduleRepository(scheduleMem, database)
		triggers = repository.NewPersistentTriggerRepository(triggerMem, database)
	}

	// LLM providers.
	registry := provider.NewRegistry()
	for name, pc := range cfg.Providers {
		switch pc.Type {
		case "openai", "":
			registry.Register(provider.NewOpenAIProvider(name, pc.URL, pc.APIKey))
		default:
			slog.Warn("unknown provider type, skipping", "provider", name, "type", pc.Type)
		}
	}

	// Action handlers.
	mailer := notify.NewMailer(notify.SMTPSettings{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	dispatcher := actions.NewDispatcher()
	dispatcher.Register(actions.NewEmailAction(mailer))
	dispatcher.Register(actions.NewWebhookAction())
	dispatcher.Register(actions.NewDriveAction(cfg.Integrations.DriveToken))
	dispatcher.Register(actions.NewTwitterAction(cfg.Integrations.TwitterToken))
	if database != nil {
		dispatcher.Register(actions.NewDatabaseAction(database.Pool))
	}

	// Data sources.
	reader := data.NewReader()
	reader.Register(data.NewSheetsSource(cfg.Storage.Dir))
	reader.Register(data.NewCSVSource(cfg.Storage.Dir))
	reader.Register(data.NewAirtableSource(cfg.Integrations.AirtableToken))
	reader.Register(data.NewRSSSource())
	if database != nil {
		reader.Register(data.NewSupabaseSource(database.Pool))
	}

	// Engine with live progress wired to the run manager.
	runManager := services.NewRunManager(10 * time.Minute)
	defer runManager.Stop()
	eng := engine.New(engine.Adapters{
		Agent:   provider.NewCaller(registry),
		Actions: dispatcher,
		Data:    reader,
	}, engine.WithObserver(runManager))

	limiter := services.NewConcurrencyLimiter(borg.ConcurrencyLimits{
		GlobalMax:   cfg.Concurrency.GlobalMax,
		PerWorkflow: cfg.Concurrency.PerWorkflow,
	})
	runSvc := services.NewRunService(workflows, runs, eng, limiter, runManager)
	runSvc.CleanupOrphans(ctx)

	retryExecutor := services.NewRetryExecutor(eng, runs)
	scheduler := services.NewSchedulerService(schedules, workflows, retryExecutor, limiter)
	if err := scheduler.Start(ctx); err != nil {
		slog.Error("scheduler failed to start", "err", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	store, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		slog.Error("storage init failed", "err", err)
		os.Exit(1)
	}

	srv := api.NewServer(workflows, runSvc, runManager)
	srv.SetSchedulerService(scheduler)
	srv.SetConcurrencyLimiter(limiter)
	srv.SetTriggerRepository(triggers)
	srv.SetRetryExecutor(retryExecutor)
	srv.SetTrendingService(services.NewTrendingService(10 * time.Minute))
	srv.SetMailer(mailer)
	srv.SetStorage(store)
	srv.SetProviderRegistry(registry, cfg.Providers)
	srv.SetDatabase(database)
	srv.SetAuthSecret(cfg.Auth.Secret)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Handler(),
	}

	go func() {
		slog.Info("starting borg server", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
}
