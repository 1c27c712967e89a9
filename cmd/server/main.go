package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commercehub/backend/internal/application/integrationapp"
	"github.com/commercehub/backend/internal/infrastructure/auth"
	"github.com/commercehub/backend/internal/infrastructure/config"
	"github.com/commercehub/backend/internal/infrastructure/crypto"
	"github.com/commercehub/backend/internal/infrastructure/logger"
	"github.com/commercehub/backend/internal/infrastructure/marketplace"
	"github.com/commercehub/backend/internal/infrastructure/oauthstate"
	"github.com/commercehub/backend/internal/infrastructure/persistence"
	"github.com/commercehub/backend/internal/interfaces/http/handler"
	"github.com/commercehub/backend/internal/interfaces/http/middleware"
	"github.com/commercehub/backend/internal/interfaces/http/router"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting CommerceHub Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Credential cipher and state token codec. Both fail fast on weak
	// secrets so a misconfigured deployment never comes up.
	cipher, err := crypto.NewTokenCipher(cfg.Crypto.EncryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize token cipher", zap.Error(err))
	}
	codec, err := oauthstate.NewCodec(cfg.OAuthState.Secret, cfg.OAuthState.MaxAge)
	if err != nil {
		log.Fatal("Failed to initialize state codec", zap.Error(err))
	}

	registry, err := marketplace.NewRegistry(registryConfig(cfg.Providers))
	if err != nil {
		log.Fatal("Failed to build provider registry", zap.Error(err))
	}
	log.Info("Provider registry ready", zap.Int("providers", len(registry.Codes())))

	// Repositories
	credentialRepo := persistence.NewGormCredentialRepository(db.DB, log)
	runRepo := persistence.NewGormSyncRunRepository(db.DB)
	listingSink := persistence.NewGormListingSink(db.DB, log)

	// Application services
	etl := integrationapp.NewListingETL(listingSink, cfg.Sync.PageSize, log)
	connectService := integrationapp.NewConnectService(registry, codec, cipher, credentialRepo, log)
	healthService := integrationapp.NewHealthService(registry, cipher, credentialRepo, log)
	syncService := integrationapp.NewSyncService(registry, cipher, credentialRepo, runRepo, etl, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP handlers
	integrationHandler := handler.NewIntegrationHandler(connectService, healthService, syncService)
	systemHandler := handler.NewSystemHandler(db.DB, version)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(systemHandler).
		Register(integrationHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// registryConfig maps the provider registrations from application config to
// the registry. A provider with no registration stays nil and is simply not
// offered to tenants.
func registryConfig(p config.ProvidersConfig) marketplace.RegistryConfig {
	var rc marketplace.RegistryConfig

	if p.Bling.ClientID != "" {
		rc.Bling = marketplace.NewBlingConfig(p.Bling.ClientID, p.Bling.ClientSecret, p.Bling.RedirectURI)
	}
	if p.MercadoLivre.ClientID != "" {
		rc.MercadoLivre = marketplace.NewMeliConfig(p.MercadoLivre.ClientID, p.MercadoLivre.ClientSecret, p.MercadoLivre.RedirectURI)
	}
	if p.Shopee.PartnerID != 0 {
		if p.Shopee.Sandbox {
			rc.Shopee = marketplace.NewSandboxShopeeConfig(p.Shopee.PartnerID, p.Shopee.PartnerKey, p.Shopee.RedirectURI)
		} else {
			rc.Shopee = marketplace.NewShopeeConfig(p.Shopee.PartnerID, p.Shopee.PartnerKey, p.Shopee.RedirectURI)
		}
	}
	if p.Amazon.ClientID != "" {
		rc.Amazon = marketplace.NewAmazonConfig(p.Amazon.ApplicationID, p.Amazon.ClientID, p.Amazon.ClientSecret, p.Amazon.RedirectURI)
	}

	return rc
}
