package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tadiwos/gojostay/config"
	"github.com/tadiwos/gojostay/internal/chapa"
	"github.com/tadiwos/gojostay/internal/handlers"
	"github.com/tadiwos/gojostay/internal/middleware"
	"github.com/tadiwos/gojostay/internal/notifier"
	"github.com/tadiwos/gojostay/internal/payments"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	chapaCfg, err := config.LoadChapaConfig()
	if err != nil {
		return fmt.Errorf("failed to load chapa config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gateway := chapa.NewClient(chapaCfg.SecretKey, logger)
	emails := notifier.New(64, logger)
	defer emails.Close()

	paymentSvc := payments.NewService(db, gateway, emails, logger)

	r := gin.Default()

	setupRoutes(r, db, logger, paymentSvc, emails, chapaCfg.WebhookSecret)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

func setupRoutes(r *gin.Engine, db *gorm.DB, logger *slog.Logger, paymentSvc *payments.Service, emails *notifier.Notifier, webhookSecret string) {
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.RequestLoggingMiddleware(db, logger))

	paymentHandler := handlers.NewPaymentHandler(paymentSvc, webhookSecret)
	bookingHandler := handlers.NewBookingHandler(emails)

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)

		listingPublic := public.Group("/listings")
		{
			listingPublic.GET("", handlers.ListListings)
			listingPublic.GET("/:id", handlers.GetListing)
		}

		// Chapa calls this server-to-server; it carries no user token.
		public.POST("/payments/webhook", paymentHandler.Webhook)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		protected.POST("/listings", handlers.CreateListing)

		bookingProtected := protected.Group("/bookings")
		{
			bookingProtected.POST("", bookingHandler.CreateBooking)
			bookingProtected.GET("", bookingHandler.ListBookings)
			bookingProtected.GET("/:id", bookingHandler.GetBooking)
		}

		paymentProtected := protected.Group("/payments")
		{
			paymentProtected.POST("/initiate", paymentHandler.Initiate)
			paymentProtected.POST("/verify", paymentHandler.Verify)
			paymentProtected.GET("", paymentHandler.ListPayments)
			paymentProtected.GET("/:id", paymentHandler.GetPayment)
			paymentProtected.POST("/:id/cancel", paymentHandler.CancelPayment)
			paymentProtected.GET("/:id/receipt", paymentHandler.ReceiptQR)
		}
	}
}
