package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"account-provisioner-go/internal/authz"
	"account-provisioner-go/internal/config"
	"account-provisioner-go/internal/db"
	"account-provisioner-go/internal/directory"
	"account-provisioner-go/internal/handlers"
	"account-provisioner-go/internal/ledger"
	"account-provisioner-go/internal/mailbox"
	"account-provisioner-go/internal/metrics"
	"account-provisioner-go/internal/notifier"
	"account-provisioner-go/internal/parser"
	"account-provisioner-go/internal/poller"
	"account-provisioner-go/internal/provisioner"
	"account-provisioner-go/internal/scheduler"
	"account-provisioner-go/internal/server"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Account Provisioner Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.NewMetrics()

	var mb mailbox.Mailbox
	if cfg.Mailbox.UseIMAP {
		mb, err = mailbox.NewIMAPMailbox(&cfg.Mailbox)
		if err != nil {
			return fmt.Errorf("failed to create IMAP mailbox: %w", err)
		}
		logrus.Info("Using IMAP for mailbox access")
	} else {
		mb, err = mailbox.NewGmailMailbox(&cfg.Mailbox)
		if err != nil {
			return fmt.Errorf("failed to create Gmail mailbox: %w", err)
		}
		logrus.Info("Using Gmail API for mailbox access")
	}

	dir, err := directory.NewGoogleDirectory(&cfg.Directory)
	if err != nil {
		return fmt.Errorf("failed to create directory service: %w", err)
	}

	sender, err := notifier.NewGmailSender(&cfg.Mailbox, &cfg.Notify)
	if err != nil {
		return fmt.Errorf("failed to create notification sender: %w", err)
	}

	gate := authz.NewGate(cfg.Directory.AuthorizedSenders)
	requestParser := parser.NewRequestParser()
	prov := provisioner.NewProvisioner(dir, cfg.Directory.Domain, cfg.Directory.MaxRetries)
	dispatcher := notifier.NewDispatcher(sender, cfg.Directory.AdminEmail, cfg.Directory.Domain)
	lg := ledger.NewGormLedger(dbConn)

	pipeline := poller.NewPoller(mb, requestParser, gate, prov, dispatcher, lg, m, cfg.Directory.Domain)
	sched := scheduler.NewScheduler(&cfg.Scheduler, pipeline)

	h := handlers.NewHandlers(dbConn, lg, sched)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := mb.Close(); err != nil {
		logrus.Errorf("Failed to close mailbox: %v", err)
	}

	if err := sender.Close(); err != nil {
		logrus.Errorf("Failed to close notification sender: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
