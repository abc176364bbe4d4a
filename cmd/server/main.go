package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/phoneshop/gateway"
	"github.com/example/phoneshop/pkg/audit"
	"github.com/example/phoneshop/pkg/config"
	"github.com/example/phoneshop/pkg/discovery"
	"github.com/example/phoneshop/pkg/repository"
	"github.com/example/phoneshop/pkg/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	configPath := "config/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting storefront service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	// MySQL
	db, err := repository.OpenMySQL(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}

	// MongoDB audit store
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	// Redis
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()

	// Audit sink behind an actor mailbox
	system := actor.NewActorSystem()
	auditSink, err := audit.NewSink(system, mongoRepo, logger)
	if err != nil {
		logger.Fatal("Failed to start audit sink", zap.Error(err))
	}

	// Services
	products := repository.NewProductRepository(db)
	carts := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	vouchers := repository.NewVoucherRepository(db)
	history := repository.NewHistoryRepository(db)

	voucherSvc := service.NewVoucherService(vouchers, logger)
	cartSvc := service.NewCartService(carts, products, voucherSvc, redisRepo, logger)
	orderSvc := service.NewOrderService(orders, carts, products, history,
		redisRepo, auditSink, decimal.NewFromFloat(cfg.Shipping.Fee), logger)
	paymentSvc := service.NewPaymentService(orderSvc, orders, &cfg.Payment, logger)

	// HTTP gateway
	gw := gateway.NewGateway(cfg, logger, cartSvc, orderSvc, paymentSvc)
	gw.SetupRoutes()

	// Register in etcd
	registry, err := discovery.NewRegistry(&cfg.Etcd)
	if err != nil {
		logger.Fatal("Failed to connect to etcd", zap.Error(err))
	}
	defer registry.Close()

	ctx := context.Background()
	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	if err := registry.Register(ctx, instance); err != nil {
		logger.Fatal("Failed to register service", zap.Error(err))
	}

	logger.Info("Service registered in etcd",
		zap.String("name", cfg.Server.Name),
		zap.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))

	// Ping dependencies
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}
	if err := mongoRepo.Ping(ctx); err != nil {
		logger.Warn("MongoDB connection failed", zap.Error(err))
	} else {
		logger.Info("MongoDB connected successfully")
	}

	// Start gateway in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	// Deregister and drain
	if err := registry.Deregister(ctx, instance); err != nil {
		logger.Error("Failed to deregister service", zap.Error(err))
	}
	auditSink.Stop()
	if err := mongoRepo.Close(ctx); err != nil {
		logger.Error("Failed to close MongoDB connection", zap.Error(err))
	}

	logger.Info("Service stopped")
}
