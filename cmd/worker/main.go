package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"visitordesk/internal/config"
	"visitordesk/internal/host"
	"visitordesk/internal/metrics"
	"visitordesk/internal/notify"
	"visitordesk/internal/queue"
	"visitordesk/internal/store"
	"visitordesk/internal/visit"
)

// Worker consumes check-in jobs, resolves the host and emails the arrival
// notice. Delivery is best-effort: failures are logged and counted, never
// retried, and never visible to the kiosk.
func main() {
	cfg := config.Load()
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

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "visitordesk:notifications")
	}

	visits := visit.NewPostgresRepo(db.Client)
	hosts := host.NewPostgresRepo(db.Client)

	mailer := &notify.Mailer{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		Username: cfg.EmailUsername,
		Password: cfg.EmailPassword,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
	}
	if !mailer.Configured() {
		log.Println("WARNING: email not configured (EMAIL_USERNAME / EMAIL_PASSWORD), notifications will be dropped")
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Printf("worker metrics on :%s", cfg.MetricsPort)
		if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
			log.Printf("metrics listener stopped: %v", err)
		}
	}()

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != visit.NotifyCheckin {
			continue
		}

		id := string(msg.Body)

		v, err := visits.GetByID(ctx, id)
		if err != nil {
			log.Printf("fetch visit %s failed: %v", id, err)
			metrics.NotificationsFailed.Inc()
			continue
		}
		if v == nil {
			log.Printf("visit %s not found, dropping notification", id)
			metrics.NotificationsFailed.Inc()
			continue
		}

		// Lenient host reference: a dangling hostId means no notification.
		hst, err := hosts.GetByID(ctx, v.HostID)
		if err != nil {
			log.Printf("host lookup for visit %s failed: %v", id, err)
			metrics.NotificationsFailed.Inc()
			continue
		}
		if hst == nil || hst.Email == "" {
			log.Printf("visit %s: no notifiable host for %q, skipping", id, v.HostID)
			metrics.NotificationsFailed.Inc()
			continue
		}

		body := notify.Arrival{
			VisitorName: v.Name,
			Company:     v.Company,
			Purpose:     v.Purpose,
			Phone:       v.Phone,
			CheckInTime: v.CheckInTime,
		}.HTML()

		if err := mailer.Send(hst.Email, notify.ArrivalSubject, body); err != nil {
			log.Printf("arrival email for visit %s to %s failed: %v", id, hst.Email, err)
			metrics.NotificationsFailed.Inc()
			continue
		}

		metrics.NotificationsSent.Inc()
		log.Printf("visit %s: notified %s", id, hst.Email)
	}

	log.Println("worker stopped")
}
