package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"escandallo/internal/config"
	"escandallo/internal/db"
	"escandallo/internal/db/mock"
	"escandallo/internal/server"
	"gorm.io/gorm"

	applog "escandallo/internal/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("skipping .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := applog.SetLevel(cfg.Logging.Level); err != nil {
		log.Fatalf("invalid log level %q: %v", cfg.Logging.Level, err)
	}

	var database *gorm.DB
	if cfg.Database.UseMock {
		log.Println("using in-memory mock database")
		database, err = mock.New(context.Background())
	} else {
		database, err = db.Initialize(cfg.Database)
		if err == nil {
			err = db.AutoMigrate(database)
		}
	}
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	srv, err := server.New(server.Config{
		Addr: cfg.Server.Addr,
		Session: server.SessionConfig{
			Lifetime:     cfg.Auth.Session.Lifetime,
			CookieName:   cfg.Auth.Session.CookieName,
			CookieDomain: cfg.Auth.Session.CookieDomain,
			CookieSecure: cfg.Auth.Session.CookieSecure,
		},
		Database: database,
	})
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	go func() {
		log.Printf("starting http server on %s", cfg.Server.Addr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server encountered an error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	log.Println("shutting down http server")
	if err := srv.Stop(); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}
