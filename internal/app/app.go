package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/services/importer"
	"github.com/bobmcallan/folio/internal/services/price"
	"github.com/bobmcallan/folio/internal/services/stockdata"
	"github.com/bobmcallan/folio/internal/services/valuation"
	"github.com/bobmcallan/folio/internal/storage"
)

// App holds all initialized services, clients, and the MCP server.
// It is the shared core used by cmd/folio-server and cmd/folio.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Resolver    interfaces.PriceResolver
	Batch       interfaces.BatchResolver
	StockData   interfaces.StockDataService
	Valuation   interfaces.ValuationService
	Importer    interfaces.ImportService
	Defaults    instrument.Defaults
	MCPServer   *server.MCPServer
	StartupTime time.Time

	scheduler       *Scheduler
	warmCacheCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath picks the config file: explicit path, FOLIO_CONFIG,
// folio.toml next to the binary, then config/folio.toml.
func resolveConfigPath(configPath, binDir string) string {
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and initializes all services, clients,
// storage, and the MCP server. configPath may be empty.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	binDir := getBinaryDir()
	config, err := common.LoadConfig(resolveConfigPath(configPath, binDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Relative data paths live next to the binary
	if p := config.Storage.SQLite.Path; p != "" && !filepath.IsAbs(p) {
		config.Storage.SQLite.Path = filepath.Join(binDir, p)
	}
	if p := config.Importer.InboxDir; p != "" && !filepath.IsAbs(p) {
		config.Importer.InboxDir = filepath.Join(binDir, p)
	}
	if p := config.Importer.ArchiveDir; p != "" && !filepath.IsAbs(p) {
		config.Importer.ArchiveDir = filepath.Join(binDir, p)
	}

	return New(config, common.NewLoggerFromConfig(config.Logging))
}

// New builds an App from an already loaded config.
func New(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	txns := storageManager.TransactionStore()
	instruments := storageManager.InstrumentStore()

	providers := newProviders(config, instruments, logger)

	opts := price.OptionsFromConfig(config.Pricing)
	resolver := price.NewResolver(providers.adapters, txns, instruments, opts, logger.WithComponent("resolver"))
	coordinator := price.NewCoordinator(resolver, price.BatchOptionsFromConfig(config.Batch), logger.WithComponent("batch"))

	stockDataService := stockdata.NewService(
		txns,
		instruments,
		resolver,
		providers.metadata,
		resolver.Cache(),
		stockdata.OptionsFromConfig(config.StockData),
		logger.WithComponent("stockdata"),
	)

	budget := config.Batch.GetTimeBudget()
	valuationService := valuation.NewService(txns, instruments, coordinator, budget, logger.WithComponent("valuation"))

	importOpts := importer.OptionsFromConfig(config.Importer)
	importOpts.Budget = budget
	importService := importer.NewService(txns, storageManager.FileStore(), coordinator, resolver, importOpts, logger.WithComponent("importer"))

	mcpServer := server.NewMCPServer(
		"folio",
		common.Version,
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Resolver:    resolver,
		Batch:       coordinator,
		StockData:   stockDataService,
		Valuation:   valuationService,
		Importer:    importService,
		Defaults:    opts.Defaults,
		MCPServer:   mcpServer,
		StartupTime: startupStart,
	}

	a.registerTools()

	logger.Info().
		Strs("equity_providers", providers.equityNames).
		Strs("fund_providers", providers.fundNames).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// DefaultUser resolves the user for a request context, falling back to
// the configured default user.
func (a *App) DefaultUser(ctx context.Context) string {
	return common.ResolveUserID(ctx, a.Config.DefaultUser)
}

// Close releases all resources held by the App.
// Shutdown order: stop scheduler, cancel warm cache, close storage.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
		a.scheduler = nil
	}
	if a.warmCacheCancel != nil {
		a.warmCacheCancel()
		a.warmCacheCancel = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}

// StartWarmCache launches the background instrument cache warm-up.
func (a *App) StartWarmCache() {
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	a.warmCacheCancel = warmCancel
	go func() {
		defer warmCancel()
		warmCache(warmCtx, a.StockData, a.Logger)
	}()
}

// StartScheduler registers the stock data refresher and the inbox import
// job and starts the cron scheduler. Jobs disabled in config are skipped.
func (a *App) StartScheduler() error {
	s := NewScheduler(a.Logger)

	if a.Config.StockData.AutoUpdate {
		job := &refreshJob{service: a.StockData, logger: a.Logger}
		if err := s.AddJob(everySpec(a.Config.StockData.GetInterval()), job); err != nil {
			return fmt.Errorf("failed to schedule stock data refresh: %w", err)
		}
	}

	if spec := a.Config.Importer.Schedule; spec != "" {
		job := &inboxJob{service: a.Importer, userID: a.Config.DefaultUser, logger: a.Logger}
		if err := s.AddJob(spec, job); err != nil {
			return fmt.Errorf("failed to schedule inbox import: %w", err)
		}
	}

	s.Start()
	a.scheduler = s
	return nil
}

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	du := a.Config.DefaultUser
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createResolvePriceTool(), handleResolvePrice(a.Resolver, du, logger))
	s.AddTool(createResolvePricesTool(), handleResolvePrices(a.Batch, a.Config.Batch.GetTimeBudget(), du, logger))
	s.AddTool(createClassifyTickerTool(), handleClassifyTicker(a.Defaults))
	s.AddTool(createGetValuationTool(), handleGetValuation(a.Valuation, du, logger))
	s.AddTool(createRefreshStockDataTool(), handleRefreshStockData(a.StockData, logger))
}
