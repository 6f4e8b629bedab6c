package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ahrdadan/snapq/internal/api"
	"github.com/ahrdadan/snapq/internal/browser"
	"github.com/ahrdadan/snapq/internal/capture"
	"github.com/ahrdadan/snapq/internal/config"
	"github.com/ahrdadan/snapq/internal/imaging"
	"github.com/ahrdadan/snapq/internal/queue"
	"github.com/ahrdadan/snapq/internal/storage"
)

func main() {
	// Parse CLI flags
	cfg := config.ParseFlags()

	// Handle --version and --help
	config.HandleFlags(cfg)

	// Banner
	log.Printf("Starting %s v%s (Screenshot + Queue)", config.AppName, config.Version)

	// Storage setup. A misconfigured backend disables the capture API
	// instead of crashing the server: requests then fail before any
	// browser work starts.
	var store storage.Store
	var localStore *storage.LocalStore
	if err := cfg.ValidateStorage(); err != nil {
		log.Printf("⚠️  Storage not configured (%v) - capture APIs will be disabled", err)
	} else {
		var err error
		store, localStore, err = buildStore(cfg)
		if err != nil {
			log.Printf("⚠️  Failed to initialize storage (%v) - capture APIs will be disabled", err)
			store = nil
		}
	}

	// Scheduler setup, only when storage is usable
	var scheduler *queue.Scheduler
	if store != nil {
		// Chromium setup
		chromeBin, err := browser.EnsureChromium(context.Background(), cfg.ChromeBin, cfg.ChromeRevision)
		if err != nil {
			log.Fatalf("Failed to install Chromium: %v", err)
		}
		log.Printf("Using Chromium at %s", chromeBin)

		launcher := browser.NewLauncher(chromeBin, cfg.SessionDeadline)

		orchestrator := capture.New(launcher, store, imaging.Optimize, capture.Options{
			Timeouts: capture.Timeouts{
				Navigate: cfg.NavigateTimeout,
				Click:    cfg.ClickWait,
				NewPage:  cfg.NewPageWait,
				Settle:   cfg.SettleWait,
				Selector: cfg.SelectorWait,
			},
			MaxWaitAfterLoad: cfg.MaxWaitAfterLoad,
		})

		scheduler = queue.NewScheduler(orchestrator.Run, queue.Options{
			MaxConcurrent: cfg.MaxConcurrent,
			ResultTTL:     cfg.ResultTTL,
		})
		defer scheduler.Stop()
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      config.AppName,
		ErrorHandler: api.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	// Serve local screenshots directly when the local backend is active
	if localStore != nil {
		app.Static("/screenshots", localStore.Dir())
	}

	// Setup routes
	api.SetupRoutes(app, scheduler, api.RouteConfig{
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		BaseURL:           cfg.BaseURL,
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Max concurrent captures: %d, session deadline: %s", cfg.MaxConcurrent, cfg.SessionDeadline)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildStore creates the configured storage backend. The second return is
// non-nil only for the local backend, which the HTTP layer serves itself.
func buildStore(cfg *config.Config) (storage.Store, *storage.LocalStore, error) {
	switch cfg.StorageBackend {
	case "local":
		ls, err := storage.NewLocalStore(cfg.LocalDir, cfg.BaseURL+"/screenshots")
		if err != nil {
			return nil, nil, err
		}
		return ls, ls, nil
	case "s3":
		s3, err := storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}
