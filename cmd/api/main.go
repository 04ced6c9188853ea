package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go-fulfillment-ws/internal/broker"
	"go-fulfillment-ws/internal/config"
	"go-fulfillment-ws/internal/handler"
	"go-fulfillment-ws/internal/logger"
	"go-fulfillment-ws/internal/middleware"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/internal/service"
	"go-fulfillment-ws/internal/telemetry"
	"go-fulfillment-ws/internal/ws"
	"go-fulfillment-ws/pkg/database"
	"go-fulfillment-ws/pkg/jwt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const serviceName = "go-fulfillment-ws"

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.Development(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OtelEndpoint)
	if err != nil {
		zlog.Fatal("tracing setup failed", zap.Error(err))
	}

	// 2. Setup Store
	repo, closeStore, err := openStore(cfg, zlog)
	if err != nil {
		zlog.Fatal("store unavailable", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	// 3. Setup notification sinks
	wsHub := ws.NewHub(zlog)
	go wsHub.Run(ctx)
	publishers := []service.Publisher{wsHub}

	var kafkaPublisher *broker.KafkaPublisher
	if cfg.KafkaEnabled() {
		kafkaPublisher = broker.NewKafkaPublisher(broker.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaNotificationTopic))
		publishers = append(publishers, kafkaPublisher)
		zlog.Info("kafka notifications enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaNotificationTopic))
	}

	// 4. Dependency Injection (Wiring Layers)
	dispatcher := service.NewNotificationDispatcher(zlog, publishers...)
	ledger := service.NewActivityLedger(repo, zlog)
	locations := service.NewLocationAllocator(repo, ledger, zlog)

	// config.Load already validated both sets
	pickingCfg := service.DefaultPickingConfig()
	pickingCfg.SLAWindow = cfg.Picking.SLAWindow
	pickingCfg.ReadyStatuses, _ = cfg.Picking.ReadySet()
	pickingCfg.OrderStatuses, _ = cfg.Picking.PickableOrders()
	pickingCfg.DefaultLocation = cfg.Picking.DefaultLocation

	services := handler.Services{
		Products:  service.NewProductService(repo, ledger, zlog),
		Status:    service.NewStatusStateMachine(repo, locations, ledger, dispatcher, zlog),
		Locations: locations,
		Ledger:    ledger,
		Picking:   service.NewPickingTaskAggregator(repo, ledger, pickingCfg, zlog),
		Plans:     service.NewDeliveryPlanService(repo, ledger, dispatcher, zlog),
		Orders:    service.NewOrderService(repo, ledger, zlog),
		Dashboard: service.NewDashboardService(repo, locations, zlog),
	}

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Fulfillment Ledger v1.0",
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New())

	// 6. Routes
	secret := []byte(cfg.JWTSecret)
	handler.SetupRoutes(app, secret, services)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.SendStatus(fiber.StatusUpgradeRequired)
		}
		// browsers cannot set headers on an upgrade, so the token may come as ?token=
		tokenString := c.Query("token")
		if tokenString == "" {
			tokenString = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		}
		claims, err := jwt.ValidateToken(secret, tokenString)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}
		role, err := model.ParseRole(claims.Role)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Token carries an unknown role"})
		}
		c.Locals(middleware.ActorKey, model.Actor{ID: claims.ActorID, Name: claims.Name, Role: role})
		return c.Next()
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		actor, _ := c.Locals(middleware.ActorKey).(model.Actor)
		client := &ws.Client{Conn: c, Actor: actor}
		select {
		case wsHub.Register <- client:
		case <-ctx.Done():
			return
		}
		defer func() {
			select {
			case wsHub.Unregister <- client:
			case <-ctx.Done():
			}
		}()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 7. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("server stopped", zap.Error(err))
			stop()
		}
	}()
	zlog.Info("server started", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))

	<-ctx.Done()
	zlog.Info("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	dispatcher.Wait()
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			zlog.Warn("kafka writer close failed", zap.Error(err))
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		zlog.Warn("tracing shutdown failed", zap.Error(err))
	}
	zlog.Info("server exited")
}

// openStore connects the configured backend and returns its close func.
func openStore(cfg *config.Config, zlog *zap.Logger) (repository.FulfillmentRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := database.ConnectSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteRepo(db), func() { db.Close() }, nil

	case config.DriverMemory:
		zlog.Warn("STORE_DRIVER=memory: demo mode, nothing is persisted")
		return repository.NewMemoryRepo(), func() {}, nil

	default:
		db, err := database.ConnectPostgres(cfg.PostgresDSN(), cfg.Development())
		if err != nil {
			return nil, nil, err
		}
		// Auto Migrate (production should use a separate migration tool)
		if err := db.AutoMigrate(
			&model.Location{}, &model.Product{}, &model.ProductMovement{},
			&model.ActivityRecord{}, &model.Order{}, &model.OrderItem{},
			&model.PickingTask{}, &model.PickingItem{},
			&model.DeliveryPlan{}, &model.DeliveryPlanItem{},
		); err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return repository.NewGormRepo(db), closeDB, nil
	}
}
