// Точка входа Swift Garage — многоарендного приложения для автосервисов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт клиент Keycloak, сервисный слой, API и веб-интерфейс,
// запускает мониторинг зависимостей и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/tinocursor/swift-garage-sub001/internal/api/handlers"
	"github.com/tinocursor/swift-garage-sub001/internal/api/middleware"
	"github.com/tinocursor/swift-garage-sub001/internal/api/openapi"
	"github.com/tinocursor/swift-garage-sub001/internal/config"
	"github.com/tinocursor/swift-garage-sub001/internal/database"
	"github.com/tinocursor/swift-garage-sub001/internal/domain/model"
	"github.com/tinocursor/swift-garage-sub001/internal/keycloak"
	"github.com/tinocursor/swift-garage-sub001/internal/repository"
	"github.com/tinocursor/swift-garage-sub001/internal/server"
	"github.com/tinocursor/swift-garage-sub001/internal/service"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/auth"
	uihandlers "github.com/tinocursor/swift-garage-sub001/internal/ui/handlers"
	"github.com/tinocursor/swift-garage-sub001/internal/ui/i18n"
	uimiddleware "github.com/tinocursor/swift-garage-sub001/internal/ui/middleware"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Swift Garage запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("SG_DEPHEALTH_GROUP") == "" {
		logger.Warn("SG_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics: проверка идёт
	// через существующий пул и обнаруживает его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. HTTP-клиент для Keycloak (Admin API, OIDC, JWKS)
	httpClient := buildHTTPClient(cfg)
	if cfg.KeycloakTLSSkipVerify {
		logger.Warn("Проверка TLS-сертификата Keycloak отключена (SG_KEYCLOAK_TLS_SKIP_VERIFY)")
	}

	// 6. Keycloak Admin API клиент (создание администратора мастером)
	kcClient := keycloak.New(
		cfg.KeycloakURL,
		cfg.KeycloakRealm,
		cfg.KeycloakClientID,
		cfg.KeycloakClientSecret,
		httpClient,
		logger,
	)
	if status, msg := kcClient.CheckReady(); status != "ok" {
		logger.Warn("Keycloak Admin API пока недоступен", slog.String("status", status), slog.String("message", msg))
	} else {
		logger.Info("Keycloak клиент создан",
			slog.String("url", cfg.KeycloakURL),
			slog.String("realm", cfg.KeycloakRealm),
		)
	}

	// 7. Repositories
	orgRepo := repository.NewOrganisationRepository(pool)
	brandingRepo := repository.NewBrandingRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	settingsRepo := repository.NewAppSettingsRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	vehicleRepo := repository.NewVehicleRepository(pool)
	repairRepo := repository.NewRepairRepository(pool)
	stockRepo := repository.NewStockRepository(pool)
	bootstrapper := repository.NewBootstrapper(repository.NewTxRunner(pool))

	// 8. Services
	usersSvc := service.NewUserService(profileRepo, kcClient, cfg.RoleSuperadminGroups, logger)
	orgsSvc := service.NewOrganisationService(orgRepo, brandingRepo, logger)
	accessSvc := service.NewAccessService(orgsSvc, logger)
	setupSvc := service.NewSetupService(settingsRepo, orgsSvc, kcClient, bootstrapper, logger)
	setupSvc.OnComplete(func(_ context.Context, org *model.Organisation) {
		logger.Info("Первоначальная настройка выполнена",
			slog.String("organisation_id", org.ID),
			slog.String("slug", org.Slug),
			slog.String("plan", org.Plan),
		)
	})
	services := handlers.Services{
		Users:         usersSvc,
		Organisations: orgsSvc,
		Access:        accessSvc,
		Setup:         setupSvc,
		Clients:       service.NewClientService(clientRepo, logger),
		Vehicles:      service.NewVehicleService(vehicleRepo, logger),
		Repairs:       service.NewRepairService(repairRepo, logger),
		Stock:         service.NewStockService(stockRepo, logger),
		Dashboard:     service.NewDashboardService(clientRepo, vehicleRepo, repairRepo, stockRepo, logger),
	}

	// 9. topologymetrics — мониторинг зависимостей (PostgreSQL + Keycloak)
	var deps handlers.DependencyReporter
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		Group:           cfg.DephealthGroup,
		DB:              pgDB,
		PostgresURL:     cfg.DatabaseURL(),
		KeycloakJWKSURL: cfg.JWTJWKSURL,
		CheckInterval:   cfg.DephealthCheckInterval,
		TLSSkipVerify:   cfg.KeycloakTLSSkipVerify,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		deps = dephealthSvc
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 10. Readiness checkers (PostgreSQL + Keycloak JWKS)
	pgChecker := database.NewReadinessChecker(pool)
	kcChecker := middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, httpClient)
	apiHandler := handlers.NewAPIHandler(handlers.NewHealthHandler(pgChecker, kcChecker, deps), services, logger)

	// 11. JWT middleware (API)
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		usersSvc,
		httpClient,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 12. Проверка запросов по OpenAPI документу
	validator, err := openapi.NewValidator(ctx, logger)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI документа", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Веб-интерфейс
	ui, err := buildUI(cfg, httpClient, services, logger)
	if err != nil {
		logger.Error("Ошибка инициализации UI", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Создание и запуск HTTP-сервера
	router := server.NewRouter(logger, apiHandler, jwtAuth, validator, ui)
	if err := server.New(cfg, logger, router).Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 15. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	logger.Info("Swift Garage остановлен")
}

// buildUI создаёт обработчики и middleware веб-интерфейса.
func buildUI(cfg *config.Config, httpClient *http.Client, svc handlers.Services, logger *slog.Logger) (*uihandlers.UI, error) {
	bundle := i18n.Init(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		return nil, err
	}

	secure := cfg.SecureCookies()
	if cfg.SessionSecret == "" {
		logger.Warn("SG_SESSION_SECRET не задан, UI-сессии не сохраняются между рестартами")
	}
	sessions, err := auth.NewSessionManager(cfg.SessionSecret, secure)
	if err != nil {
		return nil, err
	}

	oidcClient := auth.NewOIDCClient(auth.OIDCConfig{
		KeycloakURL:        cfg.KeycloakURL,
		BrowserKeycloakURL: cfg.KeycloakBrowserURL,
		Realm:              cfg.KeycloakRealm,
		ClientID:           cfg.OIDCClientID,
		HTTPClient:         httpClient,
	})

	logger.Info("UI инициализирован",
		slog.String("oidc_client_id", cfg.OIDCClientID),
		slog.Bool("secure_cookie", secure),
	)

	return &uihandlers.UI{
		Auth:          uihandlers.NewAuthHandler(oidcClient, sessions, secure, logger),
		Setup:         uihandlers.NewSetupHandler(svc.Setup, sessions, cfg.WizardTTL, logger),
		Organisations: uihandlers.NewOrganisationHandler(svc.Organisations, sessions, logger),
		Dashboard:     uihandlers.NewDashboardHandler(svc.Dashboard, svc.Organisations, logger),
		Sessions:      uimiddleware.NewSessionProvider(sessions, oidcClient, svc.Users, logger),
		Guard:         uimiddleware.NewAccessGuard(svc.Access, uihandlers.HandleLoading(logger)),
	}, nil
}

// buildHTTPClient создаёт HTTP-клиент для запросов к Keycloak.
func buildHTTPClient(cfg *config.Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.KeycloakTLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // только dev-стенд
	}
	return &http.Client{Timeout: cfg.HTTPClientTimeout, Transport: transport}
}
