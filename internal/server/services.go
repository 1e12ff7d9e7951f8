package server

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tourbooking/internal/config"
	"tourbooking/internal/database"
	"tourbooking/internal/domain"
	"tourbooking/internal/modules/admin"
	"tourbooking/internal/modules/auth"
	"tourbooking/internal/modules/booking"
	"tourbooking/internal/modules/catalog"
	"tourbooking/internal/modules/live"
	"tourbooking/internal/modules/notification"
	"tourbooking/internal/modules/payment"
	"tourbooking/internal/pkg/jwt"
	"tourbooking/internal/repository"
)

const maxRetryDelay = 5 * time.Second

// Services is the wired application graph shared by the HTTP server and tourctl.
type Services struct {
	Gateway    *database.Gateway
	Bookings   *repository.BookingRepository
	Events     *repository.PaymentEventRepository
	JWT        *jwt.Service
	Hub        *live.Hub
	Mailer     *notification.Dispatcher
	Booking    *booking.Service
	Reconciler *payment.Reconciler
	Auth       *auth.Service
	Admin      *admin.Service

	Tours    *catalog.Service[domain.Tour]
	Ships    *catalog.Service[domain.Ship]
	Agents   *catalog.Service[domain.Agent]
	Packages *catalog.Service[domain.Package]
}

func NewServices(cfg *config.Config, db *gorm.DB, log logrus.FieldLogger) *Services {
	gw := database.NewGateway(db, database.RetryPolicy{
		MaxRetries: cfg.DBMaxRetries,
		BaseDelay:  cfg.DBRetryBaseDelay,
		MaxDelay:   maxRetryDelay,
	}, cfg.DBQueryTimeout, log)

	bookings := repository.NewBookingRepository(gw)
	events := repository.NewPaymentEventRepository(gw)
	tours := repository.NewCatalogRepository[domain.Tour](gw)
	ships := repository.NewCatalogRepository[domain.Ship](gw)
	agents := repository.NewCatalogRepository[domain.Agent](gw)
	packages := repository.NewCatalogRepository[domain.Package](gw)

	jwtService := jwt.New(cfg.JWTSecret, cfg.JWTTTL)
	hub := live.NewHub(log)
	mailer := notification.NewDispatcher(notification.Config{
		APIKey:  cfg.EmailAPIKey,
		BaseURL: cfg.EmailBaseURL,
		From:    cfg.EmailFrom,
		Timeout: cfg.HTTPClientTimeout,
	}, &http.Client{Timeout: cfg.HTTPClientTimeout}, log)

	bookingService := booking.NewService(
		gw,
		bookings,
		repository.NewCustomerRepository(),
		tours,
		mailer,
		hub,
		booking.Options{
			RefPrefix:   cfg.BookingRefPrefix,
			RefAttempts: cfg.BookingRefAttempts,
			AdminEmail:  cfg.AdminNotificationEmail,
			Currency:    cfg.PaymentCurrency,
		},
		log,
	)

	reconciler := payment.NewReconciler(payment.Deps{
		Gateway: payment.NewGatewayClient(payment.GatewayConfig{
			APIKey:      cfg.DibsyAPIKey,
			BaseURL:     cfg.DibsyBaseURL,
			RedirectURL: cfg.DibsyRedirectURL,
			WebhookURL:  cfg.DibsyWebhookURL,
		}, cfg.HTTPClientTimeout),
		Bookings: bookings,
		Creator:  bookingService,
		Events:   events,
		Tours:    tours,
		Mailer:   mailer,
		Live:     hub,
	}, payment.Options{AdminEmail: cfg.AdminNotificationEmail, Currency: cfg.PaymentCurrency}, log)

	return &Services{
		Gateway:    gw,
		Bookings:   bookings,
		Events:     events,
		JWT:        jwtService,
		Hub:        hub,
		Mailer:     mailer,
		Booking:    bookingService,
		Reconciler: reconciler,
		Auth:       auth.NewService(repository.NewAdminUserRepository(gw), jwtService, log),
		Admin:      admin.NewService(bookings, tours, ships, agents, reconciler, hub, log).WithPaymentHistory(events),

		Tours:    catalog.NewService[domain.Tour]("tour", tours, log).WithCheck(catalog.PriceCheck),
		Ships:    catalog.NewService[domain.Ship]("ship", ships, log),
		Agents:   catalog.NewService[domain.Agent]("agent", agents, log),
		Packages: catalog.NewService[domain.Package]("package", packages, log).WithCheck(catalog.PackageCheck(tours)),
	}
}
