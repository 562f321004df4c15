package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Munykin/simple-video-editor/internal/api"
	"github.com/Munykin/simple-video-editor/internal/config"
	"github.com/Munykin/simple-video-editor/internal/db"
	"github.com/Munykin/simple-video-editor/internal/editor"
	"github.com/Munykin/simple-video-editor/internal/generate"
	"github.com/Munykin/simple-video-editor/internal/logging"
	"github.com/Munykin/simple-video-editor/internal/media"
	"github.com/Munykin/simple-video-editor/internal/render"
	"github.com/Munykin/simple-video-editor/internal/timeline"
	"github.com/Munykin/simple-video-editor/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.MediaDir(), 0755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting simple video editor", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	clipRepo := timeline.NewRepository(database.Conn())
	jobRepo := generate.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(clipRepo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(clipRepo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                 SIMPLE VIDEO EDITOR v0.1.0                ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	recon := render.NewReconciler(func() render.Renderer {
		return render.NewLogRenderer(logger)
	}, logger)
	defer recon.Close()

	editorSvc := editor.NewService(clipRepo, recon, logger)
	mediaSvc := media.NewServer(cfg.MediaDir(), logger)

	var genClient generate.Client
	if cfg.GenBaseURL() != "" && cfg.GenToken() != "" {
		genClient = generate.NewHTTPClient(cfg.GenBaseURL(), cfg.GenToken(), cfg.GenPollInterval(), logger)
		logger.Info("generation backend enabled", "base_url", cfg.GenBaseURL())
	} else {
		genClient = generate.NewStubClient(logger)
		logger.Info("no generation backend configured, generation jobs will fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	genRunner := generate.NewRunner(jobRepo, genClient, editorSvc, cfg.GenTimeout(), logger)
	go genRunner.Start(ctx)
	go editorSvc.RunClock(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:        cfg.Port(),
		Editor:      editorSvc,
		Repository:  clipRepo,
		Jobs:        jobRepo,
		GenRunner:   genRunner,
		MediaServer: mediaSvc,
		Logger:      logger,
		StartTime:   startTime,
		DeviceID:    deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Repository: clipRepo,
			Editor:     editorSvc,
			Runner:     genRunner,
			Logger:     logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo timeline.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo timeline.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
