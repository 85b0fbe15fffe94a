package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"gymaccess/internal/attendance"
	"gymaccess/internal/config"
	"gymaccess/internal/lock"
	"gymaccess/internal/member"
	"gymaccess/internal/notify"
	"gymaccess/internal/queue"
	"gymaccess/internal/store"
	"gymaccess/internal/worker"
)

// Worker consumes queued events, dispatches member cards and runs the
// scheduled reminder and stale-session jobs.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.StoreBackend == "memory" || cfg.QueueBackend == "memory" {
		log.Fatalf("worker needs the shared postgres store and redis queue")
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)

	registry := member.NewRegistry(member.NewPostgresRepository(db.Client))
	ledger := attendance.NewService(registry, attendance.NewRepository(db.Client), lock.NewLocal(), cfg.SessionFreshness)
	notifier := notify.New(cfg.NotifierURL, cfg.NotifierSkip)

	// Check notifier health on startup
	if !cfg.NotifierSkip {
		if err := notifier.Health(ctx); err != nil {
			log.Printf("WARNING: notifier not available: %v", err)
			log.Println("Worker will retry when events arrive")
		} else {
			log.Println("Notifier connected")
		}
	}

	proc := worker.New(registry, ledger, notifier, cfg.ReminderDays, loc)
	scheduler := proc.NewCron()
	if err := proc.Schedule(ctx, scheduler, cfg.ReminderSchedule, cfg.StaleReportSchedule); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if err := proc.Handle(ctx, msg); err != nil {
			log.Printf("%s message failed: %v", msg.Type, err)
		}
		time.Sleep(10 * time.Millisecond) // Small delay between processing
	}

	log.Println("worker stopped")
}
