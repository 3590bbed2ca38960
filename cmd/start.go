package cmd

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ipocket/core/config"
	"ipocket/core/database"
	"ipocket/core/loader"
	"ipocket/core/logger"
	"ipocket/core/middleware/auth"
	"ipocket/core/middleware/rayid"
	"ipocket/core/storage"

	"ipocket/feature/connectors"
	"ipocket/feature/exports"
	"ipocket/feature/imports"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// inventoryTables are checked at startup so schema drift surfaces as
// one warning instead of per-request errors.
var inventoryTables = []string{
	"vendors",
	"projects",
	"hosts",
	"tags",
	"ip_assets",
	"ip_asset_tags",
	"import_run_summaries",
	"connector_jobs",
}

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the inventory server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database (Optional)
		var db *gorm.DB
		if conn, err := database.Connect(cfg.Database); err != nil {
			logg.Warn("Optional database connection failed", zap.Error(err))
		} else {
			db = conn
			logg.Info("Connected to inventory database", zap.String("name", cfg.Database.Name))
			if missing := database.MissingTables(db, inventoryTables...); len(missing) > 0 {
				logg.Warn("Inventory schema is incomplete",
					zap.String("missing", strings.Join(missing, ", ")))
			}
		}

		// 3. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
			BodyLimit:             cfg.Server.BodyLimitBytes(),
		})

		// 3. Initialize Storage
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}

		// 4. Initialize Feature Loader
		mgr := loader.NewManager()

		// Register Features
		importFeature := imports.NewFeature(db, logg)
		mgr.Register(importFeature)
		mgr.Register(exports.NewFeature(db, store, cfg.Storage.Bucket, logg))
		mgr.Register(connectors.NewFeature(db, logg, importFeature.Service()))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			// Log error if happened
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 5. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
