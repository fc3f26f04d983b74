package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eamauth.org/internal/auth"
	"eamauth.org/internal/config"
	"eamauth.org/internal/email"
	"eamauth.org/internal/httpapi"
	"eamauth.org/internal/obs"
	"eamauth.org/internal/store/pg"
)

var version = "0.3.0"

func main() {
	configPath := flag.String("config", os.Getenv("EAMAUTH_CONFIG"), "path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("EAMAUTH_COMMIT"))

	store, err := pg.Open(cfg.Storage.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	issuer, err := auth.NewIssuer(cfg.JWT.Secret,
		auth.WithIssuerName(cfg.JWT.Issuer),
		auth.WithAccessTTL(cfg.JWT.AccessTTL.Std()),
	)
	if err != nil {
		log.Fatalf("issuer: %v", err)
	}

	opts := []auth.ServiceOption{}
	if cfg.SMTP.Host != "" {
		sender := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
		sender.TLSMode = cfg.SMTP.TLS
		sender.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		mailer, err := email.NewService(sender, cfg.Server.PublicBaseURL)
		if err != nil {
			log.Fatalf("mailer: %v", err)
		}
		opts = append(opts, auth.WithMailer(mailer))
	} else {
		log.Printf("smtp host not set, outbound e-mail disabled")
	}

	svc, err := auth.NewService(store, issuer, auth.NewRevocations(), opts...)
	if err != nil {
		log.Fatalf("service: %v", err)
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.PurposeTokens().RunSweeper(rootCtx, cfg.Tokens.SweepInterval.Std())

	api := httpapi.New(svc, httpapi.ReadyProbe{DB: store.DB()}, cfg, version)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting eamauth %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
