package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gymaccess/internal/attendance"
	"gymaccess/internal/config"
	"gymaccess/internal/handler"
	"gymaccess/internal/httpmiddleware"
	"gymaccess/internal/lock"
	"gymaccess/internal/member"
	"gymaccess/internal/notify"
	"gymaccess/internal/queue"
	"gymaccess/internal/station"
	"gymaccess/internal/store"
	"gymaccess/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

type backends struct {
	members  member.Repository
	records  attendance.Repository
	stations station.Repository
	checks   map[string]handler.HealthCheck
	closers  []func() error
}

func openBackends(ctx context.Context, cfg config.App) (*backends, error) {
	b := &backends{checks: map[string]handler.HealthCheck{}}
	if cfg.StoreBackend == "memory" {
		log.Println("store: in-memory (data is lost on restart)")
		b.members = member.NewMemoryRepository()
		b.records = attendance.NewMemoryRepository()
		b.stations = station.NewMemoryRepository()
		return b, nil
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	b.members = member.NewPostgresRepository(db.Client)
	b.records = attendance.NewRepository(db.Client)
	b.stations = station.NewPostgresRepository(db.Client)
	b.checks["db"] = db.Healthy
	b.closers = append(b.closers, db.Close)
	return b, nil
}

func (b *backends) Close() {
	for _, c := range b.closers {
		_ = c()
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	var redisClient *store.Redis
	if cfg.QueueBackend != "memory" || cfg.LockBackend != "memory" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		b.checks["redis"] = redisClient.Healthy
		defer redisClient.Close()
	}

	var q queue.Queue
	var memQueue *queue.InMemory
	if cfg.QueueBackend == "memory" {
		memQueue = queue.NewInMemory(64)
		q = memQueue
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	var locker lock.Locker
	if cfg.LockBackend == "memory" {
		locker = lock.NewLocal()
	} else {
		locker = lock.NewRedis(redisClient.Client, "gym:lock:", cfg.LockTTL)
	}

	registry := member.NewRegistry(b.members)
	ledger := attendance.NewService(registry, b.records, locker, cfg.SessionFreshness)
	stations := station.NewService(b.stations, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)

	if cfg.AdminPasswordHash == "" {
		log.Println("ADMIN_PASSWORD_HASH not set, admin login disabled")
	}

	h := handler.New(registry, ledger, stations, q, handler.Options{
		AdminUser:         cfg.AdminUser,
		AdminPasswordHash: cfg.AdminPasswordHash,
		Location:          loc,
		Checks:            b.checks,
	})

	// The memory queue is only reachable from this process.
	if memQueue != nil {
		consumeCtx, stopConsumer := context.WithCancel(ctx)
		defer stopConsumer()
		proc := worker.New(registry, ledger, notify.New(cfg.NotifierURL, cfg.NotifierSkip), cfg.ReminderDays, loc)
		if err := consume(consumeCtx, memQueue, proc); err != nil {
			return err
		}
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Disposition"},
		MaxAge:          24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Routes(r, cfg.JWTSigningKey, cfg.JWTIssuer)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // exports stream the whole roster
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func consume(ctx context.Context, q queue.Queue, proc *worker.Processor) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			if err := proc.Handle(ctx, msg); err != nil {
				log.Printf("%s message failed: %v", msg.Type, err)
			}
		}
	}()
	log.Println("queue: in-memory, events handled in process")
	return nil
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
