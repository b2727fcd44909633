package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"go.uber.org/zap"

	"resto_storefront/internal/backend"
	"resto_storefront/internal/cart"
	"resto_storefront/internal/checkout"
	"resto_storefront/internal/config"
	"resto_storefront/internal/database"
	"resto_storefront/internal/handlers"
	"resto_storefront/internal/logger"
	"resto_storefront/internal/middleware"
	"resto_storefront/internal/payment"
	"resto_storefront/internal/routes"
	"resto_storefront/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration invalide : %v", err)
	}

	logg, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("❌ Logger : %v", err)
	}
	defer logg.Sync()

	stripe.Key = cfg.StripeKey
	logg.Info("✅ Stripe initialisé")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, locker, publisher, closeStorage, err := openStorage(ctx, cfg.Storage, logg)
	if err != nil {
		logg.Fatal("❌ Stockage du panier indisponible", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closeStorage()

	api := backend.NewClient(cfg.APIBaseURL, logg)
	orchestrator := checkout.NewOrchestrator(
		api,
		payment.NewStripeConfirmer(cfg.ReturnURL, logg),
		checkout.NewAttemptStore(st, cfg.Storage.AttemptTTL),
		logg,
	)

	var notifier cart.Notifier
	if publisher != nil {
		notifier = publisher
	}
	carts := handlers.NewCartHandler(st, locker, notifier, cfg.Storage.CartTTL, logg)
	orders := handlers.NewOrdersHandler(api, st, cfg.Storage.ActiveOrderTTL, logg)

	var socket *handlers.CartSocketHandler
	if publisher != nil {
		socket = handlers.NewCartSocketHandler(carts, publisher, cfg.CORSOrigins, logg)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logg))

	routes.RegisterRoutes(r, routes.Handlers{
		Cart:       carts,
		CartSocket: socket,
		Checkout:   handlers.NewCheckoutHandler(carts, orchestrator, orders),
		Orders:     orders,
	}, routes.Options{
		JWTSecret:   []byte(cfg.JWTSecret),
		Devices:     middleware.NewDeviceStore(cfg.SessionSecret, cfg.IsProduction()),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("🚀 Storefront lancé", zap.String("port", cfg.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("❌ Serveur arrêté", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logg.Info("🛑 Arrêt en cours...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("❌ Arrêt forcé", zap.Error(err))
	}
}

// openStorage : la synchronisation temps réel n'existe qu'avec Redis. Le verrou
// suit le driver pour être partagé entre instances (sauf memory, mono-instance).
func openStorage(ctx context.Context, cfg config.StorageConfig, logg *zap.Logger) (storage.Storage, storage.Locker, *storage.RedisPublisher, func(), error) {
	switch cfg.Driver {
	case "scylla":
		session, err := database.ConnectScylla(cfg, logg)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		st, err := storage.NewScyllaStorage(session)
		if err != nil {
			session.Close()
			return nil, nil, nil, nil, err
		}
		locker, err := storage.NewScyllaLocker(session, 0, 0)
		if err != nil {
			session.Close()
			return nil, nil, nil, nil, err
		}
		return st, locker, nil, session.Close, nil

	case "memory":
		logg.Warn("⚠️ Stockage mémoire : les paniers seront perdus au redémarrage")
		return storage.NewMemoryStorage(), storage.NewKeyedMutex(), nil, func() {}, nil

	default:
		client, err := database.ConnectRedis(ctx, cfg, logg)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logg.Warn("redis close", zap.Error(err))
			}
		}
		return storage.NewRedisStorage(client), storage.NewRedisLocker(client, 0, 0), storage.NewRedisPublisher(client), closeFn, nil
	}
}
