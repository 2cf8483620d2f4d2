package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pixelnest/internal/config"
	"pixelnest/internal/db"
	"pixelnest/internal/events"
	"pixelnest/internal/handlers"
	"pixelnest/internal/middleware"
	"pixelnest/internal/ratelimit"
	"pixelnest/internal/router"
	"pixelnest/internal/services"
	"pixelnest/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	conn, err := db.Open(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close(conn)
	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatal(err)
	}

	users := store.NewUserStore(conn)
	posts := store.NewPostStore(conn)
	contacts := store.NewContactStore(conn)

	// Blob store
	blobs, err := services.NewMinioBlobStore(cfg.S3)
	if err != nil {
		log.Fatal(err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// Mail and post-created events
	mail := services.NewMailService(cfg.SMTP)
	notifier := services.NewNotifier(mail, cfg.ClientURL)

	var publisher events.Publisher
	if cfg.KafkaBrokers != "" {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		consumer := events.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic, notifier.NotifyPostCreated)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Printf("[Kafka] consumer stopped: %v", err)
			}
		}()
		log.Printf("Post-created events go through Kafka topic %s", cfg.KafkaTopic)
	} else {
		publisher = events.NewChannelBus(128, notifier.NotifyPostCreated)
	}

	// Rate limiting (optional)
	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unavailable at %s, rate limiting disabled: %v", cfg.RedisAddr, err)
		} else {
			limiter = ratelimit.New(rdb)
		}
	}

	// Services
	authService, err := services.NewAuthService(users, cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatal(err)
	}
	postService := services.NewPostService(posts, blobs, publisher)
	contactService := services.NewContactService(contacts, mail, cfg.AdminEmail)

	engine := router.New(router.Deps{
		Auth:            handlers.NewAuthHandler(authService, cfg.CookieLifetime, cfg.IsProduction()),
		Posts:           handlers.NewPostHandler(postService),
		Contact:         handlers.NewContactHandler(contactService),
		Resolver:        authService,
		Limiter:         limiter,
		RateLimit:       cfg.ContactRateLimit,
		RateLimitWindow: cfg.RateLimitWindow,
		Ping:            sqlDB.PingContext,
	})

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler(engine),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		log.Printf("PixelNest server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := publisher.Close(); err != nil {
		log.Printf("event publisher close: %v", err)
	}
	cancel()
}
