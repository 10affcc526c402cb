package ginserver

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"padicrib/internal/infra/config"
	"padicrib/internal/infra/obs"
)

// PublicUploadsPrefix is where the local public file store is served from.
const PublicUploadsPrefix = "/uploads"

type Handlers struct {
	Auth           AuthHTTP
	Listings       ListingHTTP
	Admin          AdminHTTP
	Booking        BookingHTTP
	Payments       PaymentHTTP
	Reviews        ReviewHTTP
	Messages       MessageHTTP
	AuthMiddleware gin.HandlerFunc
	// PublicRoot is served under PublicUploadsPrefix when set.
	PublicRoot string
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env, cfg.HTTP.GinMode)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	router := NewRouter(cfg, obsMW, health, h)
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.HTTP.AllowedOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}
	if h.PublicRoot != "" {
		router.Static(PublicUploadsPrefix, h.PublicRoot)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Listings != nil {
		api.GET("/listings", h.Listings.Search)
		api.POST("/listings", h.Listings.Create)
		api.GET("/listings/:id", h.Listings.Get)
		api.GET("/listings/:id/fees", h.Listings.FeePage)
		api.POST("/listings/:id/images", h.Listings.AddImages)
		api.DELETE("/listings/:id/images/:imageId", h.Listings.DeleteImage)
		api.GET("/me/listings", h.Listings.Dashboard)
	}
	if h.Booking != nil {
		api.GET("/listings/:id/checkout", h.Booking.Checkout)
		api.POST("/bookings", h.Booking.Create)
		api.GET("/me/bookings", h.Booking.Mine)
	}
	if h.Payments != nil {
		payments := api.Group("/payments")
		payments.POST("/initiate", h.Payments.InitiateBooking)
		payments.GET("/verify", h.Payments.VerifyBooking)
		payments.POST("/listing-initiate", h.Payments.InitiateListing)
		payments.GET("/listing-callback", h.Payments.ListingCallback)
		payments.POST("/listing-stub", h.Payments.StubListing)
		payments.POST("/webhook", h.Payments.Webhook)
		payments.POST("/webhook/listing-payment", h.Payments.Webhook)
	}
	if h.Reviews != nil {
		api.GET("/reviews/:listingId", h.Reviews.List)
		api.POST("/reviews", h.Reviews.Submit)
		api.POST("/reviews/reply", h.Reviews.Reply)
	}
	if h.Messages != nil {
		api.GET("/messages", h.Messages.Inbox)
		api.POST("/messages", h.Messages.Start)
		api.GET("/messages/:id", h.Messages.Thread)
		api.POST("/messages/:id", h.Messages.Post)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.GET("", h.Admin.Dashboard)
		admin.POST("/listings/:id/approve", h.Admin.ApproveListing)
		admin.POST("/listings/:id/reject", h.Admin.RejectListing)
		admin.POST("/listings/:id/suspend", h.Admin.SuspendListing)
		admin.POST("/listings/:id/reactivate", h.Admin.ReactivateListing)
		admin.DELETE("/listings/:id", h.Admin.DeleteListing)
		admin.GET("/users", h.Admin.Users)
		admin.POST("/users/:id/suspend", h.Admin.SuspendUser)
		admin.POST("/users/:id/reactivate", h.Admin.ReactivateUser)
		admin.DELETE("/users/:id", h.Admin.DeleteUser)
		admin.POST("/staff", h.Admin.CreateStaff)
		admin.POST("/providers", h.Admin.AddProvider)
		admin.GET("/verifications/:id/:document", h.Admin.VerificationFile)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func configureGinMode(env, override string) string {
	mode := strings.ToLower(strings.TrimSpace(override))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(env))
	}
	switch mode {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
