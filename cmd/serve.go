package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusmess/mess-server/internal/catalog"
	"github.com/campusmess/mess-server/internal/config"
	"github.com/campusmess/mess-server/internal/database/postgres"
	"github.com/campusmess/mess-server/internal/facematch"
	"github.com/campusmess/mess-server/internal/ml"
	"github.com/campusmess/mess-server/internal/scan"
	"github.com/campusmess/mess-server/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Mess Server API.
The server exposes menu management, daily and weekly menus, transactions,
analytics, face registration and the scan endpoint.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// buildDetector picks the vision backend: Gemini when an API key is set,
// OpenAI as fallback. Returns nil when neither is configured; the scan
// endpoint then reports 503.
func buildDetector(ctx context.Context, cfg *config.Config) ml.FoodDetector {
	if cfg.Gemini.APIKey != "" {
		detector, err := ml.NewGeminiDetector(ctx, cfg.Gemini.APIKey)
		if err != nil {
			fmt.Printf("Warning: failed to create Gemini detector: %v\n", err)
		} else {
			fmt.Println("Food detection: Gemini")
			return detector
		}
	}
	if cfg.OpenAI.Token != "" {
		fmt.Println("Food detection: OpenAI")
		return ml.NewOpenAIDetector(cfg.OpenAI.Token)
	}
	fmt.Println("Warning: no vision backend configured, scans disabled")
	return nil
}

// initFaceHNSW builds or loads the face HNSW index for fast face matching.
func initFaceHNSW(ctx context.Context, userRepo *postgres.UserRepository, cfg *config.Config) {
	if cfg.Database.HNSWIndexPath != "" {
		fmt.Printf("Loading face HNSW index from %s...\n", cfg.Database.HNSWIndexPath)
	} else {
		fmt.Println("Building in-memory HNSW index for face matching...")
	}
	if err := userRepo.EnableHNSW(ctx, cfg.Database.HNSWIndexPath, cfg.Embedding.Dim); err != nil {
		fmt.Printf("Warning: failed to build face HNSW index: %v\n", err)
		fmt.Println("Face matching will use a linear scan (slower)")
		return
	}
	fmt.Printf("Face HNSW index ready with %d faces\n", userRepo.HNSWCount())
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Println("Connecting to PostgreSQL database...")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	userRepo := postgres.NewUserRepository(pool)
	menuRepo := postgres.NewMenuRepository(pool)
	trxRepo := postgres.NewTransactionRepository(pool)
	dailyRepo := postgres.NewDailyMenuRepository(pool)
	weeklyRepo := postgres.NewWeeklyMenuRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)

	initFaceHNSW(ctx, userRepo, cfg)

	embedder := ml.NewEmbeddingService(cfg.Embedding.URL)
	detector := buildDetector(ctx, cfg)

	var orchestrator *scan.Orchestrator
	if detector != nil {
		orchestrator = scan.New(
			embedder,
			detector,
			facematch.NewResolver(cfg.Scan.FaceThreshold),
			catalog.NewMatcher(cfg.Scan.DefaultItemPrice),
			scan.Stores{
				Users: userRepo,
				Menu:  menuRepo,
				Trx:   trxRepo,
				Items: menuRepo,
			},
			scan.Options{
				AutoCreateItems: cfg.Scan.AutoCreateItems,
				FaceIndex:       userRepo.FaceIndex(),
			},
		)
	}

	server := web.NewServer(cfg, web.Dependencies{
		Users:        userRepo,
		Menu:         menuRepo,
		Transactions: trxRepo,
		Analytics:    trxRepo,
		DailyMenus:   dailyRepo,
		WeeklyMenus:  weeklyRepo,
		Sessions:     sessionRepo,
		Orchestrator: orchestrator,
		Embedder:     embedder,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		if err := userRepo.SaveHNSWIndex(); err != nil {
			fmt.Printf("Warning: failed to save face HNSW index: %v\n", err)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Mess Server on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
