package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/nvvs/portfolio/internal/analytics"
	"github.com/nvvs/portfolio/internal/config"
	"github.com/nvvs/portfolio/internal/contact"
	"github.com/nvvs/portfolio/internal/content"
	"github.com/nvvs/portfolio/internal/logging"
	"github.com/nvvs/portfolio/internal/resume"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type flags struct {
	addr        string
	dbPath      string
	contentFile string
	envFiles    []string
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{}
	fs := pflag.NewFlagSet("portfolio", pflag.ContinueOnError)
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (overrides PORT)")
	fs.StringVar(&f.dbPath, "db", "", "analytics database path (overrides PORTFOLIO_DB_PATH)")
	fs.StringVar(&f.contentFile, "content", "", "profile YAML file (overrides PORTFOLIO_CONTENT_FILE)")
	fs.StringSliceVar(&f.envFiles, "env-file", nil, "extra dotenv files to load")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func run(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.envFiles...)
	if err != nil {
		return err
	}
	if f.addr != "" {
		cfg.Port = f.addr
	}
	if f.dbPath != "" {
		cfg.DBPath = f.dbPath
	}
	if f.contentFile != "" {
		cfg.ContentFile = f.contentFile
	}

	logger, err := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile, err := content.Load(cfg.ContentFile)
	if err != nil {
		return err
	}

	db, err := analytics.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open analytics db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	store, err := analytics.NewStore(db)
	if err != nil {
		return err
	}
	logger.Info("analytics ready", "path", cfg.DBPath)

	source, err := newResumeSource(ctx, cfg)
	if err != nil {
		return err
	}
	resolver := resume.NewResolver(source, cfg.Resume.Candidates, logger)
	downloader := resume.NewDownloader(resolver, source, cfg.Resume.Filename, logger)
	logger.Info("resume source configured", "source", cfg.Resume.Source, "candidates", len(cfg.Resume.Candidates))

	creds := contact.Credentials{
		ServiceID:  cfg.EmailJS.ServiceID,
		TemplateID: cfg.EmailJS.TemplateID,
		PublicKey:  cfg.EmailJS.PublicKey,
	}
	sender := contact.NewEmailJS(
		contact.WithEndpoint(cfg.EmailJS.Endpoint),
		contact.WithHTTPClient(&http.Client{Timeout: cfg.EmailJS.Timeout}),
		contact.WithAccessToken(cfg.EmailJS.PrivateKey),
		contact.WithOrigin(cfg.EmailJS.Origin),
	)
	submitter := contact.NewSubmitter(creds, sender, logger)
	if !submitter.Enabled() {
		logger.Warn("EmailJS keys not set, contact form disabled")
	}

	var admin *adminAuth
	if cfg.Admin.Enabled() {
		admin, err = newAdminAuth(cfg.Admin.Username, cfg.Admin.Password, gin.Mode() == gin.ReleaseMode)
		if err != nil {
			return err
		}
		logger.Info("admin access available at /admin/login")
	} else {
		logger.Info("ADMIN_PASSWORD not set, admin dashboard disabled")
	}

	srv, err := newServer(serverDeps{
		Logger:     logger,
		Profile:    profile,
		Downloader: downloader,
		Submitter:  submitter,
		Tracker:    store,
		Admin:      admin,
		PublicDir:  cfg.PublicDir,
		Retention:  cfg.Retention,
	})
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	go srv.cleanupLoop(ctx, 24*time.Hour)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	srv.wait()
	logger.Info("shutdown complete")
	return nil
}

func newResumeSource(ctx context.Context, cfg *config.Config) (resume.Source, error) {
	switch cfg.Resume.Source {
	case config.SourceHTTP:
		return resume.NewHTTPSource(cfg.Resume.Origin, cfg.Resume.Timeout), nil
	case config.SourceS3:
		s3cfg := cfg.Resume.S3
		src, err := resume.NewS3Source(ctx, resume.S3Config{
			Bucket:         s3cfg.Bucket,
			Region:         s3cfg.Region,
			Prefix:         s3cfg.Prefix,
			Endpoint:       s3cfg.Endpoint,
			BaseURL:        s3cfg.BaseURL,
			AccessKeyID:    s3cfg.AccessKeyID,
			SecretKey:      s3cfg.SecretKey,
			ForcePathStyle: s3cfg.ForcePathStyle,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("configure s3 resume source: %w", err)
		}
		return src, nil
	default:
		return resume.NewDirSource(os.DirFS(cfg.PublicDir)), nil
	}
}

// cleanupLoop deletes expired visitor records at start-up and then on every tick.
func (s *server) cleanupLoop(ctx context.Context, every time.Duration) {
	if s.tracker == nil {
		return
	}
	clean := func() {
		n, err := s.tracker.Cleanup(ctx, s.retention)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("privacy cleanup failed", "error", err)
			}
			return
		}
		if n > 0 {
			s.logger.Info("privacy cleanup", "removed", n)
		}
	}

	clean()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			clean()
		}
	}
}
