package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/config"
	"github.com/gigledger/taxexport/internal/export"
	httpserver "github.com/gigledger/taxexport/internal/interfaces/http"
	"github.com/gigledger/taxexport/internal/render"
	"github.com/gigledger/taxexport/internal/repository"
	"github.com/gigledger/taxexport/internal/taxexport"
	"github.com/gigledger/taxexport/pkg/database"
	"github.com/gigledger/taxexport/pkg/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting GigLedger tax export service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	coreCfg, err := coreExportConfig(cfg.Export)
	if err != nil {
		logger.Fatal("Invalid export configuration", zap.Error(err))
	}

	sources := export.Sources{
		Gigs:     repository.NewGigRepository(db.DB, logger),
		Expenses: repository.NewExpenseRepository(db.DB, logger),
		Mileage:  repository.NewMileageRepository(db.DB, logger),
		Invoices: repository.NewInvoiceRepository(db.DB, logger),
		Payments: repository.NewInvoicePaymentRepository(db.DB, logger),
		Payouts:  repository.NewPayoutRepository(db.DB, logger),
		Payers:   repository.NewPayerRepository(db.DB, logger),
	}

	service := export.NewService(
		sources,
		repository.NewExportRepository(db.DB, logger),
		taxexport.NewBuilder(coreCfg),
		taxexport.NewValidator(coreCfg),
		render.NewCSVRenderer(logger),
		render.NewExcelRenderer(logger),
		render.NewTXFRenderer(logger),
		logger,
	)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// coreExportConfig maps the file-level export section onto the engine
// config. Viper hands mileage rate keys back as strings.
func coreExportConfig(cfg config.ExportConfig) (taxexport.ExportConfig, error) {
	core := taxexport.DefaultExportConfig()
	core.AppLabel = cfg.AppLabel
	core.Currency = cfg.Currency
	core.Basis = cfg.Basis
	core.DefaultMealsPercent = cfg.DefaultMealsPercent
	core.AssetReviewThreshold = cfg.AssetReviewThreshold
	core.NotesTruncateLen = cfg.NotesTruncateLen
	core.SchemaVersion = cfg.SchemaVersion

	if len(cfg.MileageRates) > 0 {
		rates := make(taxexport.MileageRateTable, len(cfg.MileageRates))
		for yearStr, rate := range cfg.MileageRates {
			year, err := strconv.Atoi(yearStr)
			if err != nil {
				return core, fmt.Errorf("invalid mileage rate year %q: %w", yearStr, err)
			}
			rates[year] = rate
		}
		core.MileageRates = rates
	}

	return core, nil
}
