// Package rest exposes the marketplace as a JSON API over fiber, plus the
// payment webhook and the realtime WebSocket endpoint.
package rest

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/server/config"
	"github.com/dmitrijs2005/bazaar/internal/server/realtime"
	"github.com/dmitrijs2005/bazaar/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

// Services bundles the use cases the routes delegate to.
type Services struct {
	Users         UserService
	Products      ProductService
	Favorites     FavoriteService
	Blocks        BlockService
	Notifications NotificationService
	Messages      MessageService
	Checkout      CheckoutService
	Orders        OrderService
	Uploads       UploadService
}

type Server struct {
	address      string
	app          *fiber.App
	svc          Services
	hub          *realtime.Hub
	logger       logging.Logger
	secret       []byte
	issuer       string
	pollInterval time.Duration

	// ctx is handed to websocket read pumps; Run replaces it.
	ctx context.Context
}

func NewServer(cfg *config.Config, svc Services, hub *realtime.Hub, l logging.Logger) *Server {
	s := &Server{
		address:      cfg.EndpointAddrHTTP,
		svc:          svc,
		hub:          hub,
		logger:       l.With("module", "http_server"),
		secret:       []byte(cfg.SessionSecretKey),
		issuer:       cfg.SessionIssuer,
		pollInterval: cfg.NotificationPollInterval,
		ctx:          context.Background(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "Bazaar",
		BodyLimit:    services.MaxUploadSize + 1<<20,
		ErrorHandler: s.errorHandler,
	})
	s.setupMiddleware(cfg)
	s.routes()
	return s
}

// App returns the underlying fiber app; tests drive it with app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) setupMiddleware(cfg *config.Config) {
	s.app.Use(requestid.New())

	s.app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${method} ${path} - ${ip} - ${latency} - ${locals:requestid}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.TrimSpace(cfg.CORSAllowOrigins),
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization",
		ExposeHeaders: "X-Request-ID",
		MaxAge:        86400,
	}))
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Get("/ws", s.requireAuth, s.upgradeOnly, s.websocketHandler())

	api := s.app.Group("/api")

	// signed by the payment provider, not by a user
	api.Post("/webhooks/stripe", s.stripeWebhook)

	api.Get("/products", s.optionalAuth, s.listProducts)
	api.Get("/products/:id", s.getProduct)

	auth := api.Group("", s.requireAuth)

	auth.Get("/me", s.getMe)
	auth.Put("/me", s.updateMe)

	auth.Post("/products", s.createProduct)
	auth.Put("/products/:id", s.updateProduct)
	auth.Delete("/products/:id", s.deleteProduct)
	auth.Post("/products/:id/offers", s.submitOffer)

	auth.Get("/favorites", s.listFavorites)
	auth.Get("/favorites/:productId", s.isFavorite)
	auth.Post("/favorites/:productId", s.addFavorite)
	auth.Delete("/favorites/:productId", s.removeFavorite)

	auth.Get("/blocks/products", s.listBlockedProducts)
	auth.Post("/blocks/products/:productId", s.blockProduct)
	auth.Delete("/blocks/products/:productId", s.unblockProduct)
	auth.Get("/blocks/users", s.listBlockedUsers)
	auth.Post("/blocks/users/:userId", s.blockUser)
	auth.Delete("/blocks/users/:userId", s.unblockUser)
	auth.Get("/blocks/users/:userId/status", s.blockStatus)

	auth.Get("/notifications", s.listNotifications)
	auth.Get("/notifications/unread-count", s.unreadCount)
	auth.Post("/notifications/read-all", s.markAllNotificationsRead)
	auth.Post("/notifications/:id/read", s.markNotificationRead)
	auth.Delete("/notifications/:id", s.deleteNotification)

	auth.Post("/messages", s.sendMessage)
	auth.Get("/messages/broadcasts", s.listBroadcasts)
	auth.Patch("/messages/:id", s.editMessage)
	auth.Delete("/messages/:id", s.deleteMessage)
	auth.Get("/conversations", s.listConversations)
	auth.Get("/conversations/:userId", s.getConversation)
	auth.Post("/conversations/:userId/read", s.markConversationRead)

	auth.Post("/checkout/sessions", s.createCheckoutSession)
	auth.Get("/orders", s.listOrders)
	auth.Get("/orders/session/:sessionId", s.getOrderBySession)

	auth.Post("/uploads", s.uploadImage)
	auth.Post("/uploads/presign", s.presignUpload)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
	return s.app.Listen(s.address)
}
