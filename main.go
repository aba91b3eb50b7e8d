package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"eventhub/internal/auth"
	"eventhub/internal/config"
	"eventhub/internal/database/migrations"
	"eventhub/internal/event"
	event_db "eventhub/internal/event/db"
	"eventhub/internal/event/event_api"
	"eventhub/internal/kafka"
	"eventhub/internal/logger"
	"eventhub/internal/order"
	order_db "eventhub/internal/order/db"
	"eventhub/internal/order/order_api"
	"eventhub/internal/order/reservation"
	"eventhub/internal/payment"
	payment_db "eventhub/internal/payment/db"
	"eventhub/internal/payment/gateway"
	"eventhub/internal/payment/payment_api"
	"eventhub/internal/promo"
	promo_db "eventhub/internal/promo/db"
	"eventhub/internal/promo/promo_api"
	"eventhub/internal/task"
	task_db "eventhub/internal/task/db"
	"eventhub/internal/task/task_api"
	"eventhub/internal/tickets/qr"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Connecting to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err == nil {
			err = sqldb.Ping()
			if err == nil {
				break
			}
		}
		log.Error("DATABASE", fmt.Sprintf("PostgreSQL connection failed: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}

	// Reservation expiry relies on keyspace notifications for expired keys.
	if _, err := client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Result(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
	} else {
		log.Info("REDIS", "Keyspace notifications enabled for expired events")
	}

	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Addr))
	return client
}

func runMigrations(bunDB *bun.DB, log *logger.Logger) {
	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.Initialize(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration init failed: %v", err))
	}
	if err := runner.MigrateUp(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}
	log.Info("DATABASE", "Migrations applied")
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting EventHub initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()
	runMigrations(bunDB, log)

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		topics := []string{
			cfg.Kafka.Topics.OrderCreated,
			cfg.Kafka.Topics.OrderUpdated,
			cfg.Kafka.Topics.OrderCancelled,
			cfg.Kafka.Topics.PaymentCompleted,
			cfg.Kafka.Topics.PaymentFailed,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Warn("KAFKA", "Kafka disabled, events will not be published")
	}

	eventDB := event_db.NewDB(bunDB)
	orderDB := order_db.NewDB(bunDB)
	promoDB := promo_db.NewDB(bunDB)
	paymentDB := payment_db.NewDB(bunDB)
	taskDB := task_db.NewDB(bunDB)

	tracker := reservation.NewTracker(redisClient, log, cfg.Reservation.TTL)
	gatewayClient := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.KeyID, cfg.Gateway.KeySecret, cfg.Gateway.Timeout)
	qrGen := qr.NewGenerator(cfg.Auth.JWTSecret)

	eventService := event.NewService(eventDB, log)
	orderService := order.NewService(orderDB, eventDB, kafkaPublisher(producer), tracker, cfg.Kafka.Topics, log)
	promoService := promo.NewService(promoDB, orderDB, log)
	paymentService := payment.NewService(paymentDB, orderDB, gatewayClient, kafkaPublisher(producer), tracker, cfg.Kafka.Topics, cfg.Gateway.WebhookSecret, log)
	taskService := task.NewService(taskDB, log)

	eventHandler := event_api.NewHandler(eventService)
	orderHandler := order_api.NewHandler(orderService, qrGen)
	promoHandler := promo_api.NewHandler(promoService)
	paymentHandler := payment_api.NewHandler(paymentService)
	taskHandler := task_api.NewHandler(taskService)

	if cfg.Reservation.TTL > 0 {
		log.Info("RESERVATION", "Starting reservation expiry subscription")
		tracker.Subscribe(ctx, orderService.ExpireOrder)
	}
	promoService.StartSweeper(ctx, cfg.Promo.SweepInterval)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// The payment callback authenticates via its HMAC signature, not a
	// user token.
	r.Post("/api/payment/verify", paymentHandler.VerifyPayment)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.JWTSecret))

		r.Route("/api", func(r chi.Router) {
			r.Route("/order", func(r chi.Router) {
				r.Post("/", orderHandler.CreateOrder)
				r.Post("/preview", promoHandler.Preview)
				r.Get("/history", orderHandler.ListPending)
				r.Get("/completed", orderHandler.ListCompleted)
				r.Get("/all", orderHandler.ListAll)
				r.Get("/{orderId}", orderHandler.GetOrder)
				r.Get("/{orderId}/qr", orderHandler.TicketQR)
				r.Put("/update/{orderId}", orderHandler.UpdateOrder)
				r.Delete("/delete/{orderId}", orderHandler.DeleteOrder)
			})

			r.Route("/events", func(r chi.Router) {
				r.Post("/", eventHandler.CreateEvent)
				r.Get("/", eventHandler.ListEvents)
				r.Put("/details", eventHandler.AddEventDetails)
				r.Post("/tickets", eventHandler.AddTiers)
				r.Post("/buy", eventHandler.BuyTicket)
				r.Get("/{eventId}", eventHandler.GetEvent)
			})

			r.Route("/offer", func(r chi.Router) {
				r.Post("/apply", promoHandler.Apply)
				r.Post("/", promoHandler.Create)
				r.Get("/", promoHandler.List)
				r.Get("/active", promoHandler.ListActive)
				r.Get("/{id}", promoHandler.Get)
				r.Put("/{id}", promoHandler.Update)
				r.Patch("/{id}/status", promoHandler.SetStatus)
				r.Delete("/{id}", promoHandler.Delete)
			})

			r.Route("/payment", func(r chi.Router) {
				r.Post("/create-order", paymentHandler.CreatePaymentOrder)
				r.Get("/", paymentHandler.ListPayments)
				r.Get("/{id}", paymentHandler.GetPayment)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", taskHandler.Create)
				r.Get("/", taskHandler.List)
				r.Patch("/{id}/complete", taskHandler.Complete)
				r.Patch("/{id}/verify", taskHandler.Verify)
			})
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("EventHub running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	}
	log.Info("APP", "Shutdown complete")
}

// kafkaPublisher avoids handing services a non-nil interface wrapping a
// nil producer when kafka is disabled.
func kafkaPublisher(p *kafka.Producer) order.Publisher {
	if p == nil {
		return nil
	}
	return p
}
