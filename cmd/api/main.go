package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fullpega.cl/internal/auth"
	"fullpega.cl/internal/config"
	"fullpega.cl/internal/enrich"
	"fullpega.cl/internal/httpapi"
	"fullpega.cl/internal/obs"
)

var (
	version = "1.0.0"
	commit  = "none"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DB.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	enricher := enrich.New(
		enrich.WithBaseURL(cfg.Geo.BaseURL),
		enrich.WithTimeout(cfg.Geo.Timeout),
		enrich.WithFallbackIP(cfg.GeoFallbackIP()),
	)

	svc, err := auth.NewService(auth.NewPGStore(db), cfg.JWT.Key,
		auth.WithIssuer(cfg.JWT.Issuer),
		auth.WithAudience(cfg.JWT.Audience),
		auth.WithTokenTTL(cfg.JWT.TokenTTL),
		auth.WithSystemID(cfg.SystemID),
		auth.WithEnricher(enricher),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	if !svc.CanIssueTokens() {
		log.Fatal("token signing key is not configured")
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, svc, httpapi.Config{
		Version:         version,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		LoginRateBurst:  cfg.HTTP.LoginRateBurst,
		LoginRatePerSec: cfg.HTTP.LoginRatePerSec,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting fullpega-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
