package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docharvest-backend/internal/clients"
	"docharvest-backend/internal/documents"
	"docharvest-backend/internal/extract"
	"docharvest-backend/internal/scrape"
	"docharvest-backend/internal/services/health"
	"docharvest-backend/internal/shared/config"
	"docharvest-backend/internal/shared/server"
	"docharvest-backend/internal/shared/server/respond"
	"docharvest-backend/internal/shared/storage/db"
	"docharvest-backend/internal/shared/storage/object"
	localstore "docharvest-backend/internal/shared/storage/object/local"
	s3store "docharvest-backend/internal/shared/storage/object/s3"
	"docharvest-backend/internal/shared/telemetry"
)

// App holds the wired dependencies of the API process.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	ClientsRepo      clients.Repo
	DocumentsRepo    documents.Repo
	PDFExtractor     *extract.PDFExtractor
	Scraper          *scrape.Scraper
	ClientsService   *clients.Service
	DocumentsService *documents.Service
	ClientsHandler   *clients.Handler
	DocumentsHandler *documents.Handler
	Health           *health.Service
}

// Build connects storage, wires services and handlers, and constructs the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}
	buildExtractors(app)
	buildServices(app)
	buildHealth(app)

	respond.ExposeInternalErrors(config.IsDevLike(cfg.Env))
	app.Router = server.NewRouter(server.RouterDeps{
		Config:   app.Config,
		Handlers: []server.RouteRegistrar{app.ClientsHandler, app.DocumentsHandler},
		Health:   app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":             cfg.Env,
		"database":        sqlDB != nil,
		"object_store":    cfg.ObjectStoreType,
		"binary_document": app.PDFExtractor != nil,
		"remote_page":     app.Scraper != nil,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.UploadDir), nil
	}
}

func buildExtractors(app *App) {
	cfg := app.Config
	if cfg.PDF.Enabled {
		app.PDFExtractor = extract.NewPDFExtractor(app.Store, extract.WithMaxBytes(cfg.PDF.MaxBytes))
	}
	if cfg.Scraper.Enabled {
		app.Scraper = scrape.New(
			scrape.WithTimeout(cfg.Scraper.Timeout),
			scrape.WithMaxRedirects(cfg.Scraper.MaxRedirects),
			scrape.WithUserAgent(cfg.Scraper.UserAgent),
			scrape.WithMaxBodyBytes(cfg.Scraper.MaxBodyBytes),
			scrape.WithHostRate(cfg.Scraper.RequestsPerSecond),
		)
	}
}

func buildServices(app *App) {
	if app.DB != nil {
		app.ClientsRepo = &clients.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
	} else {
		clientRepo := clients.NewMemoryRepo()
		docRepo := documents.NewMemoryRepo()
		docRepo.ClientExists = func(ctx context.Context, id int64) bool {
			_, err := clientRepo.GetByID(ctx, id)
			return err == nil
		}
		app.ClientsRepo = clientRepo
		app.DocumentsRepo = docRepo
	}

	app.ClientsService = clients.NewService(app.ClientsRepo, app.DocumentsRepo)

	// Disabled extractors stay untyped nil interfaces.
	var pdf documents.PDFExtractor
	if app.PDFExtractor != nil {
		pdf = app.PDFExtractor
	}
	var scraper documents.PageScraper
	if app.Scraper != nil {
		scraper = app.Scraper
	}
	app.DocumentsService = documents.NewService(app.DocumentsRepo, app.ClientsService, pdf, scraper)
	if app.PDFExtractor != nil {
		app.DocumentsService.MaxUploadBytes = app.PDFExtractor.MaxBytes()
	}

	app.ClientsHandler = clients.NewHandler(app.ClientsService)
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
}

func buildHealth(app *App) {
	app.Health = health.NewService(2 * time.Second)
	if app.DB != nil {
		app.Health.Register("database", func(ctx context.Context) error {
			return db.Ping(ctx, app.DB, 0)
		})
	}
}
