package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"openhaus/internal/config"
	"openhaus/internal/controller"
	"openhaus/internal/logging"
	"openhaus/internal/mailer"
	"openhaus/internal/middleware"
	"openhaus/internal/model"
	"openhaus/internal/repository"
	"openhaus/internal/router"
	"openhaus/internal/service"
	"openhaus/internal/task"
	"openhaus/pkg/database"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, env wins)")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(*debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// 1. Database
	db := initDatabase(cfg, logger)

	// 2. Dependencies
	deps := initDependencies(db, cfg, logger)

	// 3. Background tasks
	tm := initTasks(deps, cfg, logger)
	defer tm.Stop()

	// 4. Router
	r := router.SetupRouter(deps.Controllers)

	// 5. Serve
	startServer(r, cfg, logger)
}

// ==================== Dependency container ====================

type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *router.Controllers
}

type Repositories struct {
	User     repository.UserRepository
	Listing  repository.ListingRepository
	Favorite repository.FavoriteRepository
	Search   repository.SavedSearchRepository
	Session  repository.SessionRepository
	Event    repository.EventRepository
	Setting  repository.SettingRepository
	Digest   repository.DigestRepository
}

type Services struct {
	Settings  *service.SettingsService
	Analytics *service.AnalyticsService
	Auth      *service.AuthService
	Listing   *service.ListingService
	Favorite  *service.FavoriteService
	Digest    *service.DigestService
	Storage   *service.StorageService
}

// ==================== Init functions ====================

func initDatabase(cfg *config.Config, logger *zap.Logger) *gorm.DB {
	db, err := database.Open(cfg.Database.DSN, database.Options{
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LogSQL:       cfg.LogSQL,
	},
		// Users & sessions
		&model.User{}, &model.ImpersonationSession{},
		// Listings
		&model.Listing{}, &model.ListingImage{},
		// Favorites
		&model.Favorite{}, &model.SavedSearch{},
		// Analytics
		&model.AnalyticsEvent{}, &model.DailyListingStat{}, &model.DailySiteStat{},
		// Settings & digests
		&model.AdminSetting{}, &model.DigestRun{},
	)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}

	middleware.RegisterAuditCallbacks(db)
	return db
}

func initDependencies(db *gorm.DB, cfg *config.Config, logger *zap.Logger) *Dependencies {
	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:       cfg.Auth.JWTSecret,
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		Issuer:          cfg.Auth.Issuer,
	})

	repos := &Repositories{
		User:     repository.NewUserRepository(db),
		Listing:  repository.NewListingRepository(db),
		Favorite: repository.NewFavoriteRepository(db),
		Search:   repository.NewSavedSearchRepository(db),
		Session:  repository.NewSessionRepository(db),
		Event:    repository.NewEventRepository(db),
		Setting:  repository.NewSettingRepository(db),
		Digest:   repository.NewDigestRepository(db),
	}

	storageSvc := initStorageService(cfg, logger)
	sender := initMailSender(cfg, logger)

	services := &Services{Storage: storageSvc}
	services.Settings = service.NewSettingsService(repos.Setting, logger)
	services.Analytics = service.NewAnalyticsService(repos.Event, repos.Listing, services.Settings, logger)
	services.Auth = service.NewAuthService(repos.User, repos.Session, services.Settings, services.Analytics, logger)
	services.Listing = service.NewListingService(repos.Listing, repos.Favorite, services.Settings, services.Analytics, storageSvc, logger)
	services.Favorite = service.NewFavoriteService(repos.Favorite, repos.Search, repos.Listing, services.Analytics, logger)
	services.Digest = service.NewDigestService(
		repos.Search, repos.Listing, repos.User, repos.Digest,
		services.Analytics, sender, cfg.Server.BaseURL, logger,
	)

	return &Dependencies{
		DB:       db,
		Repos:    repos,
		Services: services,
	}
}

func initControllers(svc *Services, tasks controller.TaskTrigger) *router.Controllers {
	return &router.Controllers{
		Auth:      controller.NewAuthController(svc.Auth),
		Listing:   controller.NewListingController(svc.Listing, svc.Favorite),
		Favorite:  controller.NewFavoriteController(svc.Favorite),
		Admin:     controller.NewAdminController(svc.Listing, svc.Auth, svc.Settings, svc.Digest, tasks),
		Analytics: controller.NewAnalyticsController(svc.Analytics, svc.Listing),
	}
}

func initStorageService(cfg *config.Config, logger *zap.Logger) *service.StorageService {
	storageSvc, err := service.NewStorageService(&service.StorageConfig{
		Provider:  cfg.Storage.Provider,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		CDNDomain: cfg.Storage.CDNDomain,
		BasePath:  cfg.Storage.BasePath,
	})
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	return storageSvc
}

func initMailSender(cfg *config.Config, logger *zap.Logger) mailer.Sender {
	if cfg.Mail.APIBaseURL == "" {
		logger.Warn("mail api not configured, digests will be dropped")
		return mailer.NoopSender{}
	}
	return mailer.NewHTTPSender(mailer.HTTPSenderConfig{
		BaseURL:  cfg.Mail.APIBaseURL,
		APIKey:   cfg.Mail.APIKey,
		FromAddr: cfg.Mail.FromAddr,
		FromName: cfg.Mail.FromName,
	})
}

// ==================== Tasks ====================

func initTasks(deps *Dependencies, cfg *config.Config, logger *zap.Logger) *task.TaskManager {
	tm := task.NewTaskManager(&task.TaskManagerDeps{
		AnalyticsService: deps.Services.Analytics,
		DigestService:    deps.Services.Digest,
		ListingService:   deps.Services.Listing,
		AuthService:      deps.Services.Auth,
		SettingsService:  deps.Services.Settings,
	}, &task.TaskManagerConfig{
		RollupEnabled:     cfg.Tasks.RollupEnabled,
		DigestEnabled:     cfg.Tasks.DigestEnabled,
		SweepEnabled:      cfg.Tasks.SweepEnabled,
		DigestConcurrency: cfg.Tasks.DigestConcurrency,
	}, logger)

	tm.Start()

	// Controllers need the manager for manual runs, so they're built
	// after the tasks.
	deps.Controllers = initControllers(deps.Services, tm)
	return tm
}

// ==================== Server ====================

func startServer(handler http.Handler, cfg *config.Config, logger *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
