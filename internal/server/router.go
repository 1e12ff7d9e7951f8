package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tourbooking/internal/config"
	"tourbooking/internal/middleware"
	"tourbooking/internal/modules/admin"
	"tourbooking/internal/modules/auth"
	"tourbooking/internal/modules/booking"
	"tourbooking/internal/modules/catalog"
	"tourbooking/internal/modules/live"
	"tourbooking/internal/modules/payment"
)

// NewRouter mounts every HTTP route under /api.
func NewRouter(cfg *config.Config, s *Services, log logrus.FieldLogger) *gin.Engine {
	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.ErrorLogger(log),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "live_connections": s.Hub.Count()})
	})

	bookingHandler := booking.NewHandler(s.Booking)
	paymentHandler := payment.NewHandler(s.Reconciler, log)
	authHandler := auth.NewHandler(s.Auth)
	adminHandler := admin.NewHandler(s.Admin)
	liveHandler := live.NewHandler(s.Hub, s.JWT, cfg.CORSAllowedOrigins)

	tours := catalog.NewHandler("tours", s.Tours)
	ships := catalog.NewHandler("ships", s.Ships)
	agents := catalog.NewHandler("agents", s.Agents)
	packages := catalog.NewHandler("packages", s.Packages)

	api := r.Group("/api")
	{
		// public
		bookingHandler.RegisterRoutes(api)
		paymentHandler.RegisterPublicRoutes(api)
		authHandler.RegisterPublicRoutes(api)
		tours.RegisterPublicRoutes(api)
		packages.RegisterPublicRoutes(api)

		// websocket authenticates through ?token=
		liveHandler.RegisterRoutes(api)

		protected := api.Group("")
		protected.Use(middleware.JWTAuth(s.JWT), middleware.AdminOnly())
		{
			paymentHandler.RegisterProtectedRoutes(protected)
		}

		adminGroup := api.Group("/admin")
		adminGroup.Use(middleware.JWTAuth(s.JWT), middleware.AdminOnly())
		{
			authHandler.RegisterProtectedRoutes(adminGroup)
			adminHandler.RegisterRoutes(adminGroup)
			tours.RegisterAdminRoutes(adminGroup)
			ships.RegisterAdminRoutes(adminGroup)
			agents.RegisterAdminRoutes(adminGroup)
			packages.RegisterAdminRoutes(adminGroup)
		}
	}

	return r
}
