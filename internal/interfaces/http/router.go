package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturacion-api/internal/application/auth"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/usecase"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC        *auth.AuthUseCase
	CustomerUC    *billing.CustomerUseCase
	ProductUC     *usecase.ProductUseCase
	CreateInvoice *billing.CreateInvoiceUseCase
	Pipeline      *billing.DocumentPipeline
	Reconcile     *billing.ReconcileUseCase
	InvoicePDF    *billing.PDFUseCase
	InvoiceRepo   repository.InvoiceRepository
	JWTSecret     string
	WebhookSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Webhook DIAN (público; autentica con secreto compartido, no con JWT)
	webhookHandler := NewWebhookHandler(deps.Reconcile, deps.WebhookSecret)
	api.Post("/invoices/webhook", webhookHandler.Handle)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Products (protegido; solo admin muta el catálogo)
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", RequireRole("admin"), productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", RequireRole("admin"), productHandler.Update)

	// Customers (protegido)
	customers := protected.Group("/customers")
	customerHandler := NewCustomerHandler(deps.CustomerUC)
	customers.Post("/", customerHandler.Create)
	customers.Get("/", customerHandler.List)
	customers.Get("/:id", customerHandler.GetByID)

	// Invoices (protegido). /status va antes de /:id para que Fiber no lo
	// capture como parámetro.
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.CreateInvoice, deps.Pipeline, deps.Reconcile, deps.InvoicePDF, deps.InvoiceRepo)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/status", invoiceHandler.GetStatus)
	invoices.Post("/status", invoiceHandler.Poll)
	invoices.Post("/:id/issue", invoiceHandler.Issue)
	invoices.Post("/:id/pdf", invoiceHandler.GeneratePDF)
}
