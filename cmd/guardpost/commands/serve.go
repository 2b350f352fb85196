package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/guardpost/guardpost/cmd/guardpost/internal/config"
	"github.com/guardpost/guardpost/pkg/alert"
	"github.com/guardpost/guardpost/pkg/hub"
	"github.com/guardpost/guardpost/pkg/index"
	"github.com/guardpost/guardpost/pkg/kv"
	"github.com/guardpost/guardpost/pkg/recognizer"
	"github.com/guardpost/guardpost/pkg/session"
	"github.com/guardpost/guardpost/pkg/storage"
	"github.com/guardpost/guardpost/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion coordinator",
	Long: `Run the ingestion coordinator.

The coordinator serves the WebSocket endpoint devices and dashboards
connect through, records session artifacts, runs the recognition
engine, and raises keyword alerts.

Example:
  guardpost serve --config guardpost.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
	logger := slog.Default()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Shutting down...")
		cancel()
	}()

	// Session index
	var store kv.Store
	if cfg.IndexDir != "" {
		store, err = kv.NewBadger(kv.BadgerOptions{Dir: cfg.IndexDir})
		if err != nil {
			return fmt.Errorf("open session index: %w", err)
		}
	} else {
		store = kv.NewMemory()
	}
	ix := index.New(store)
	defer ix.Close()

	// Notification channel
	var notify alert.Sink
	if cfg.Telegram.Token != "" {
		d := alert.NewDispatcher(
			alert.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID),
			alert.DispatcherOptions{Logger: logger},
		)
		defer d.Close()
		notify = d
		logger.Info("Telegram notifications enabled", "chat_id", cfg.Telegram.ChatID)
	} else {
		logger.Warn("Telegram not configured, notifications disabled")
	}

	// Artifact archive
	var archive storage.FileStore
	if cfg.Archive.Bucket != "" {
		archive = storage.NewS3(newS3Client(cfg.Archive), cfg.Archive.Bucket, cfg.Archive.Prefix)
		logger.Info("Artifact archive enabled", "bucket", cfg.Archive.Bucket)
	}

	sessions, err := session.NewManager(session.Options{
		AudioDir: cfg.AudioDir,
		DataDir:  cfg.DataDir,
		Notify:   notify,
		Index:    ix,
		Archive:  archive,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer sessions.Close()

	// Recognition engine
	var engine recognizer.Engine
	if cfg.Recognizer.Command != "" {
		sub, err := recognizer.NewSubprocess(recognizer.SubprocessOptions{
			Command: cfg.Recognizer.Command,
			Args:    cfg.Recognizer.Args,
			Restart: cfg.Recognizer.Restart,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("start recognition engine: %w", err)
		}
		defer sub.Close()
		engine = sub
		logger.Info("Recognition engine started", "command", cfg.Recognizer.Command)
	} else {
		logger.Warn("Recognizer not configured, transcripts and alerts disabled")
	}

	var gateOpts []alert.GateOption
	if cfg.Alert.Cooldown > 0 {
		gateOpts = append(gateOpts, alert.WithCooldown(cfg.Alert.Cooldown))
	}

	h, err := hub.New(hub.Options{
		Sessions: sessions,
		Engine:   engine,
		Gate:     alert.NewGate(cfg.Alert.Keywords, gateOpts...),
		Notify:   notify,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	go h.Run(ctx)

	audio, err := storage.NewLocal(cfg.AudioDir)
	if err != nil {
		return err
	}
	data, err := storage.NewLocal(cfg.DataDir)
	if err != nil {
		return err
	}

	srv, err := web.NewServer(web.Options{
		Addr:      cfg.Listen,
		Hub:       h,
		Audio:     audio,
		Data:      data,
		Index:     ix,
		StaticDir: cfg.StaticDir,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown", "error", err)
		}
	}()

	logger.Info("Coordinator ready", "addr", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil {
		return err
	}

	// Let the hub finalize any active session before the deferred
	// closers tear the stack down.
	cancel()
	<-h.Done()
	logger.Info("Coordinator stopped")
	return nil
}

// newS3Client builds an S3 client from static archive configuration.
func newS3Client(a config.Archive) *s3.Client {
	opts := s3.Options{
		Region:       a.Region,
		UsePathStyle: a.UsePathStyle,
	}
	if a.Endpoint != "" {
		opts.BaseEndpoint = aws.String(a.Endpoint)
	}
	if a.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     a.AccessKeyID,
			SecretAccessKey: a.SecretAccessKey,
		}
		opts.Credentials = aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		)
	}
	return s3.New(opts)
}
