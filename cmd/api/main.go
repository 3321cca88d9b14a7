package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/swaggo/swag"

	"github.com/jhoicas/Comprobantes-api/docs"
	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/application/usecase"
	domhacienda "github.com/jhoicas/Comprobantes-api/internal/domain/hacienda"
	infrahacienda "github.com/jhoicas/Comprobantes-api/internal/infrastructure/hacienda"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/hacienda/signer"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/metrics"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/notification"
	infrapdf "github.com/jhoicas/Comprobantes-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Comprobantes-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/Comprobantes-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/Comprobantes-api/internal/interfaces/http"
	"github.com/jhoicas/Comprobantes-api/pkg/config"
	pkghacienda "github.com/jhoicas/Comprobantes-api/pkg/hacienda"
	"github.com/jhoicas/Comprobantes-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("hacienda", cfg.Hacienda.Environment).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	documentRepo := postgres.NewDocumentRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := metrics.New(registry)

	// Tokens de Hacienda: Redis si está configurado, si no en memoria.
	var tokenCache infrahacienda.TokenCache = infrahacienda.NewMemoryTokenCache()
	redisClient, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a Redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		tokenCache = infrahacienda.NewRedisTokenCache(redisClient)
	}
	authenticator := infrahacienda.NewCachingAuthenticator(
		infrahacienda.NewAuthClient(cfg.Hacienda.AuthURL, cfg.Hacienda.AuthTimeout).WithClientID(cfg.Hacienda.ClientID),
		tokenCache, 0, log,
	)

	var docSigner pkghacienda.Signer = signer.NewDigitalSignatureService()
	if cfg.Hacienda.SignerMode == "remote" {
		docSigner = infrahacienda.NewRemoteSigner(cfg.Hacienda.SignerURL, cfg.Hacienda.SignerAPIKey, cfg.Hacienda.SignTimeout)
	}

	var codes domhacienda.SecurityCodeSource = domhacienda.RandomSecurityCode{}
	if cfg.Hacienda.SecurityCodeMode == "hmac" {
		codes = domhacienda.HMACSecurityCode{Secret: []byte(cfg.Hacienda.SecurityCodeSecret)}
	}

	pdfGenerator := infrapdf.NewMarotoPDFGenerator()

	// Notificación por correo solo si hay SMTP configurado.
	var notifier billing.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notification.NewEmailNotifier(notification.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, pdfGenerator, log)
	}

	// Orquestador: firma → token → envío → consulta de estado → notificación
	orchestrator := billing.NewSubmissionOrchestrator(billing.OrchestratorDeps{
		Documents: documentRepo,
		Companies: companyRepo,
		Signer:    docSigner,
		Auth:      authenticator,
		Submitter: infrahacienda.NewReceptionClient(cfg.Hacienda.ReceptionURL, cfg.Hacienda.SubmitTimeout),
		Status:    infrahacienda.NewStatusClient(cfg.Hacienda.StatusTimeout),
		Locations: infrahacienda.NewLocationPolicy(cfg.Hacienda.StatusHosts),
		Notifier:  notifier,
		Metrics:   engineMetrics,
		Logger:    log,
	}, billing.OrchestratorConfig{
		StatusDelay:   cfg.Hacienda.StatusDelay,
		SignTimeout:   cfg.Hacienda.SignTimeout,
		AuthTimeout:   cfg.Hacienda.AuthTimeout,
		SubmitTimeout: cfg.Hacienda.SubmitTimeout,
		StatusTimeout: cfg.Hacienda.StatusTimeout,
		NotifyTimeout: cfg.Hacienda.NotifyTimeout,
	})

	documentUC := billing.NewDocumentUseCase(
		txRunner, documentRepo, companyRepo, customerRepo,
		billing.NewConsecutiveAllocator(billing.AllocatorConfig{
			Branch:   cfg.Hacienda.Branch,
			Terminal: cfg.Hacienda.Terminal,
		}, engineMetrics, log),
		domhacienda.NewKeyGenerator(codes),
		infrahacienda.NewXMLSerializer(infrahacienda.SerializerConfig{
			ProviderID: cfg.Hacienda.ProviderID,
			OtherText:  cfg.Hacienda.OtherText,
		}),
		domhacienda.NewCreditNoteResolver(infrahacienda.NewXMLParser()),
		orchestrator,
		billing.SystemClock{},
		billing.IssueConfig{
			CountryCode: cfg.Hacienda.CountryCode,
			Situation:   cfg.Hacienda.Situation,
		},
		log,
	)
	customerUC := billing.NewCustomerUseCase(customerRepo)
	documentPDFUC := billing.NewPDFUseCase(documentRepo, pdfGenerator)
	companyUC := usecase.NewCompanyUseCase(companyRepo, func(p12 []byte, password string) error {
		_, err := signer.LoadCertificate(p12, password)
		return err
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if specPath, err := writeSwaggerSpec(); err != nil {
		log.Warn().Err(err).Msg("swagger deshabilitado")
	} else {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: specPath,
			Path:     "docs",
			Title:    docs.SwaggerInfo.Title,
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		ServiceName: cfg.App.Name,
		CompanyUC:   companyUC,
		CustomerUC:  customerUC,
		DocumentUC:  documentUC,
		DocumentPDF: documentPDFUC,
		Gatherer:    registry,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Los envíos en curso terminan o se cancelan antes de cerrar el pool.
	if err := orchestrator.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("envíos a Hacienda pendientes al apagar")
	}

	log.Info().Msg("aplicación detenida")
}

// writeSwaggerSpec materializa la especificación registrada en swag para el middleware de Swagger UI.
func writeSwaggerSpec() (string, error) {
	doc, err := swag.ReadDoc()
	if err != nil {
		return "", err
	}
	path := filepath.Join(os.TempDir(), "comprobantes-api-swagger.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
