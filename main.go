package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskpulse/api"
	"taskpulse/broker"
	"taskpulse/notify"
	"taskpulse/storage"
	"taskpulse/sweep"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()

	dbFile := os.Getenv("DB_FILE")
	if dbFile == "" {
		dbFile = "tasks_db.json"
	}
	store, err := storage.New(dbFile, logger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var tasks api.Storage = store
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		rc := redis.NewClient(redisOpts)
		tasks = storage.NewCache(store, rc, envDur("CACHE_TTL", 30*time.Second))
	}

	mailHost := os.Getenv("MAIL_HOST")
	mailSender := os.Getenv("MAIL_SENDER")
	mailRecipient := os.Getenv("MAIL_RECIPIENT")
	if mailHost == "" || mailSender == "" || mailRecipient == "" {
		log.Fatal("missing mail config")
	}
	notifier, err := notify.NewMailer(notify.Config{
		Host:      mailHost,
		Port:      envInt("MAIL_PORT", 587),
		Username:  os.Getenv("MAIL_USERNAME"),
		Password:  os.Getenv("MAIL_PASSWORD"),
		Sender:    mailSender,
		Recipient: mailRecipient,
		Timeout:   envDur("MAIL_TIMEOUT", notify.DefaultTimeout),
	}, logger)
	if err != nil {
		log.Fatalf("notify: %v", err)
	}

	b := broker.New(logger, envInt("UPDATE_QUEUE_SIZE", broker.DefaultQueueSize))

	sweeper := sweep.New(
		tasks,
		notifier,
		envDur("SWEEP_INTERVAL", sweep.DefaultInterval),
		envDur("NOTIFY_WINDOW", sweep.DefaultWindow),
		logger,
	)
	sweeper.Start()

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	api.Register(e, tasks, notifier, b, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	go func() {
		if err := e.Start(listenAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	// The sweeper goes first so no sweep can touch the store mid-teardown.
	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return d
}
