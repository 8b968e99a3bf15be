// Package server wires the marketplace together: storage, platforms, the
// realtime hub and the HTTP and gRPC servers, and runs them until a shutdown
// signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/server/cache"
	"github.com/dmitrijs2005/bazaar/internal/server/config"
	"github.com/dmitrijs2005/bazaar/internal/server/events"
	"github.com/dmitrijs2005/bazaar/internal/server/payments"
	"github.com/dmitrijs2005/bazaar/internal/server/realtime"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bazaar/internal/server/rest"
	"github.com/dmitrijs2005/bazaar/internal/server/search"
	"github.com/dmitrijs2005/bazaar/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/bazaar/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	realtimeChannel = "bazaar:realtime"
	productIndex    = "products"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	repos      repomanager.RepositoryManager
	index      *search.ElasticIndex
	hub        *realtime.Hub
	httpServer *rest.Server
	grpcServer *gs.GRPCServer
	closers    []func() error
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, repos: rm}
	app.closers = append(app.closers, db.Close)

	var (
		broker realtime.Broker = realtime.NewMemoryBroker()
		unread cache.Counter   = cache.NewMemoryCounter(c.UnreadCacheTTL)
	)
	if c.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
		broker = realtime.NewRedisBroker(rdb, realtimeChannel)
		unread = cache.NewRedisCounter(rdb, c.UnreadCacheTTL)
		app.closers = append(app.closers, rdb.Close)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if brokers := splitList(c.KafkaBrokers); len(brokers) > 0 {
		kp, err := events.NewKafkaPublisher(brokers, logger)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("kafka init error: %w", err)
		}
		publisher = kp
		app.closers = append(app.closers, kp.Close)
	}

	var index search.Index
	if c.ElasticsearchAddr != "" {
		ei, err := search.NewElasticIndex(c.ElasticsearchAddr, productIndex)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("elasticsearch init error: %w", err)
		}
		index = ei
		app.index = ei
	}

	gateway := payments.NewStripeGateway(c.StripeSecretKey, c.StripeWebhookSecret, nil)
	app.hub = realtime.NewHub(broker, logger)

	messages := services.NewMessageService(db, rm, app.hub, logger)
	svc := rest.Services{
		Users:         services.NewUserService(db, rm, logger),
		Products:      services.NewProductService(db, rm, index, publisher, logger),
		Favorites:     services.NewFavoriteService(db, rm, logger),
		Blocks:        services.NewBlockService(db, rm, logger),
		Notifications: services.NewNotificationService(db, rm, unread, app.hub, publisher, logger),
		Messages:      messages,
		Checkout:      services.NewCheckoutService(db, rm, gateway, publisher, c, logger),
		Orders:        services.NewOrderService(db, rm, logger),
		Uploads:       services.NewUploadService(c, logger),
	}

	app.httpServer = rest.NewServer(c, svc, app.hub, logger)
	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, db, c.HealthCheckInterval)

	return app, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// start runs one component; a component failing brings the whole app down.
func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, wg *sync.WaitGroup, name string, run func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := run(ctx); err != nil && ctx.Err() == nil {
			app.logger.Error(ctx, "component failed", "component", name, "error", err)
			cancelFunc()
		}
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		app.logger.Error(ctx, "migrations failed", "error", err)
		app.close()
		return
	}

	if app.index != nil {
		if err := app.index.EnsureIndex(ctx); err != nil {
			app.logger.Error(ctx, "search index setup failed", "error", err)
			app.close()
			return
		}
	}

	var wg sync.WaitGroup

	app.start(ctx, cancelFunc, &wg, "realtime_hub", app.hub.Run)
	app.start(ctx, cancelFunc, &wg, "http_server", app.httpServer.Run)
	app.start(ctx, cancelFunc, &wg, "grpc_server", app.grpcServer.Run)

	wg.Wait()

	app.close()
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}
