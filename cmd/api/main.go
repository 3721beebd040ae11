package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Facturacion-api/internal/application/auth"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/usecase"
	infradian "github.com/jhoicas/Facturacion-api/internal/infrastructure/dian"
	infrapdf "github.com/jhoicas/Facturacion-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/Facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Repositorios
	userRepo := postgres.NewUserRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	orgRepo := postgres.NewOrganizationRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Adaptadores DIAN: render UBL, firma XAdES, cliente REST del PST, storage
	renderer := infradian.NewUBLRenderer(cfg.DIAN)
	xadesSigner, err := infradian.NewXAdESSigner(cfg.DIAN, log.Component("signer"))
	if err != nil {
		log.Fatal().Err(err).Msg("cargar certificado de firma")
	}
	dianClient := infradian.NewRESTClient(cfg.DIAN, log.Component("dian"))
	artifactStore := storage.NewSupabaseStore(cfg.Storage, log.Component("storage"))

	// Casos de uso de facturación
	stageTimeout := time.Duration(cfg.DIAN.StageTimeoutSeconds) * time.Second
	transitioner := billing.NewStatusTransitioner(txRunner, log.Component("transition"))
	createInvoiceUC := billing.NewCreateInvoiceUseCase(txRunner, invoiceRepo, eventRepo, customerRepo, orgRepo)
	pipeline := billing.NewDocumentPipeline(
		renderer, xadesSigner, dianClient, artifactStore,
		transitioner, invoiceRepo, eventRepo, customerRepo, orgRepo,
		stageTimeout, log.Component("pipeline"),
	)
	reconcileUC := billing.NewReconcileUseCase(
		transitioner, invoiceRepo, dianClient, artifactStore,
		stageTimeout, log.Component("reconcile"),
	)

	pdfGenerator := infrapdf.NewMarotoPDFGenerator()
	invoicePDFUC := billing.NewPDFUseCase(
		pdfGenerator, artifactStore, invoiceRepo, eventRepo, customerRepo, orgRepo,
		log.Component("pdf"),
	)

	customerUC := billing.NewCustomerUseCase(customerRepo)
	productUC := usecase.NewProductUseCase(productRepo)
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 90, // la emisión corre el pipeline completo en la petición
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:        authUC,
		CustomerUC:    customerUC,
		ProductUC:     productUC,
		CreateInvoice: createInvoiceUC,
		Pipeline:      pipeline,
		Reconcile:     reconcileUC,
		InvoicePDF:    invoicePDFUC,
		InvoiceRepo:   invoiceRepo,
		JWTSecret:     cfg.JWT.Secret,
		WebhookSecret: cfg.DIAN.WebhookSecret,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
