package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anavel898/project-management-dashboard/internal/api"
	"github.com/anavel898/project-management-dashboard/internal/auth"
	"github.com/anavel898/project-management-dashboard/internal/authz"
	"github.com/anavel898/project-management-dashboard/internal/blob"
	"github.com/anavel898/project-management-dashboard/internal/config"
	"github.com/anavel898/project-management-dashboard/internal/database"
	"github.com/anavel898/project-management-dashboard/internal/invite"
	"github.com/anavel898/project-management-dashboard/internal/logging"
	"github.com/anavel898/project-management-dashboard/internal/mail"
	"github.com/anavel898/project-management-dashboard/internal/metrics"
	"github.com/anavel898/project-management-dashboard/internal/project"
	"github.com/anavel898/project-management-dashboard/internal/store/memory"
	"github.com/anavel898/project-management-dashboard/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation failed: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := logging.New(logging.Options{Level: cfg.Logging.Level, FilePath: cfg.Logging.FilePath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("server stopped")
		stop()
		_ = closeLog()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	handler, cleanup, err := buildHandler(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	tlsCfg, certFile, keyFile := loadTLSConfig(cfg.Server.TLSEnabled, cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile, cfg.Server.TLSMinVersion)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	mode := "production"
	if cfg.IsDev {
		mode = "development"
	}
	log.WithFields(logrus.Fields{
		"mode":    mode,
		"port":    cfg.Server.Port,
		"tls":     cfg.Server.TLSEnabled,
		"storage": cfg.Storage.Backend,
		"blob":    cfg.Blob.Backend,
		"mail":    cfg.Mail.Backend,
	}).Info("server starting")

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tlsCfg != nil {
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			// nosemgrep: go.lang.security.audit.net.use-tls.use-tls -- TLS termination handled by reverse proxy in production
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildHandler wires the backends selected by cfg into the API router.
// cleanup releases whatever was opened.
func buildHandler(ctx context.Context, cfg *config.Config, log *logrus.Logger) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { _ = st.Close() })

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	mailer, err := openMailer(ctx, cfg, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	sessions := auth.NewTokenCodec([]byte(cfg.Auth.SessionSecret))
	invites := auth.NewTokenCodec([]byte(cfg.Auth.InviteSecret))
	limiter := auth.NewRateLimiter(time.Minute, cfg.Auth.LoginWindow, 10000)
	closers = append(closers, limiter.Stop)

	manager := project.NewManager(st, blobs, blob.Buckets{
		Documents:      cfg.Blob.DocumentsBucket,
		RawLogos:       cfg.Blob.RawLogoBucket,
		ProcessedLogos: cfg.Blob.ResizedLogoBucket,
	}, project.WithLogger(log))

	handler := api.NewRouter(api.Deps{
		Projects:         manager,
		Credentials:      auth.NewCredentials(st, cfg.Auth.BcryptCost),
		Sessions:         sessions,
		SessionTTL:       cfg.Auth.SessionTTL,
		Builder:          authz.NewBuilder(sessions, st, st),
		Issuer:           invite.NewIssuer(invites, st, st, cfg.Server.PublicBaseURL, cfg.Auth.InviteTTL),
		Redeemer:         invite.NewRedeemer(invites, st, st, st),
		Mailer:           mailer,
		Metrics:          metrics.New(),
		AuditLogger:      auth.NewLogAuditLogger(log),
		Log:              log,
		RateLimiter:      limiter,
		LoginMaxAttempts: cfg.Auth.LoginMaxAttempts,
		LoginWindow:      cfg.Auth.LoginWindow,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		MaxUploadBytes:   cfg.Server.MaxUploadBytes,
	})
	return handler, cleanup, nil
}

func openStore(ctx context.Context, cfg *config.Config) (project.Store, error) {
	if cfg.Storage.Backend != config.StoragePostgres {
		return memory.New()
	}

	db, err := database.Open(ctx, cfg.Storage.DatabaseURL, database.DefaultPool)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return postgres.New(db), nil
}

func openBlobs(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.Blob.Backend != config.BlobS3 {
		return blob.NewMemoryStore(), nil
	}
	return blob.NewS3Store(ctx, blob.S3Config{
		Region:       cfg.Blob.Region,
		Endpoint:     cfg.Blob.Endpoint,
		UsePathStyle: cfg.Blob.UsePathStyle,
		AccessKey:    cfg.Blob.AccessKey,
		SecretKey:    cfg.Blob.SecretKey,
	})
}

func openMailer(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (mail.Mailer, error) {
	if cfg.Mail.Backend != config.MailSES {
		return mail.NewLogMailer(log), nil
	}
	return mail.NewSESMailer(ctx, cfg.Mail.Region, cfg.Mail.Sender)
}

// loadTLSConfig returns nil and empty paths when TLS is disabled.
func loadTLSConfig(enabled bool, certFile, keyFile, minVersion string) (*tls.Config, string, string) {
	if !enabled {
		return nil, "", ""
	}
	return &tls.Config{MinVersion: parseTLSMinVersion(minVersion)}, certFile, keyFile
}

// parseTLSMinVersion accepts "1.2", "1.3" or empty for 1.2. Other values
// are rejected earlier by config validation.
func parseTLSMinVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}
