package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/config"
	"github.com/perkwise/backoffice/internal/directory"
	"github.com/perkwise/backoffice/internal/expenses"
	httpserver "github.com/perkwise/backoffice/internal/interfaces/http"
	"github.com/perkwise/backoffice/internal/objectstore"
	"github.com/perkwise/backoffice/internal/repository"
	"github.com/perkwise/backoffice/internal/timeoffs"
	"github.com/perkwise/backoffice/pkg/database"
	"github.com/perkwise/backoffice/pkg/logger"
)

func main() {
	// Local overrides; absent file is fine in deployed environments.
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting backoffice ledger service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, log)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Storage.BaseDir, 0o755); err != nil {
		log.Fatal("Failed to create attachment directory", zap.Error(err))
	}

	invoiceRepo := repository.NewInvoiceRepository(db, log)
	categoryRepo := repository.NewCategoryRepository(db, log)
	teamRepo := repository.NewTeamRepository(db, log)
	leaveRepo := repository.NewLeaveRequestRepository(db, log)
	settingsRepo := repository.NewSettingsRepository(db, log)

	directoryClient := directory.NewHTTPClient(cfg.Directory.BaseURL, cfg.Directory.Timeout, log)
	store := objectstore.NewLocal(
		cfg.Storage.BaseDir,
		cfg.Storage.PublicURL,
		cfg.Storage.SigningKey,
		cfg.Storage.URLExpiry,
		log,
	)

	expenseService := expenses.NewService(db, invoiceRepo, categoryRepo, directoryClient, store, log)
	timeoffService := timeoffs.NewService(db, teamRepo, leaveRepo, settingsRepo, directoryClient, log)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, expenseService, timeoffService, store, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}

	log.Info("Server exited successfully")
}
