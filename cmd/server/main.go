package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/handoff-board/internal/airspace"
	"github.com/yegors/handoff-board/internal/api"
	"github.com/yegors/handoff-board/internal/classify"
	"github.com/yegors/handoff-board/internal/config"
	"github.com/yegors/handoff-board/internal/feed"
	"github.com/yegors/handoff-board/internal/navdata"
	"github.com/yegors/handoff-board/internal/tracker"
	"github.com/yegors/handoff-board/internal/websocket"
	"github.com/yegors/handoff-board/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	envPath := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	envLoaded := godotenv.Load(*envPath) == nil

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid environment: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting handoff board",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
		logger.Bool("env_file", envLoaded),
	)

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", logger.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("Server fully stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	// Reference data is read once; any failure here is fatal
	nav, err := navdata.Load(cfg.Reference.NavdataPath)
	if err != nil {
		return fmt.Errorf("failed to load navdata: %w", err)
	}
	stats := nav.Stats()
	log.Info("Loaded navdata",
		logger.String("path", cfg.Reference.NavdataPath),
		logger.Int("waypoints", stats.Waypoints),
		logger.Int("airways", stats.Airways),
		logger.Int("boundary_fixes", stats.BoundaryFixes),
		logger.Int("unlocated", stats.Unlocated),
	)
	if unlocated := nav.UnlocatedFixes(); len(unlocated) > 0 {
		log.Warn("Airway fixes without coordinates are unresolvable", logger.Strings("fixes", unlocated))
	}

	regions, err := airspace.LoadTable(cfg.Reference.BoundariesPath, cfg.RegionIDs())
	if err != nil {
		return fmt.Errorf("failed to load boundaries: %w", err)
	}
	for _, r := range regions.Unusable() {
		log.Warn("Region will never match", logger.String("region", r.ID), logger.String("problem", r.Problem))
	}

	engine, err := classify.NewEngine(regions, nav, cfg.EngineConfig())
	if err != nil {
		return fmt.Errorf("failed to create classification engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create WebSocket server and start its hub
	wsServer := websocket.NewServer(log, cfg.Server.CORSAllowedOrigins...)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	feedClient := feed.NewClient(
		cfg.Feed.SourceType,
		cfg.Feed.URL,
		cfg.Feed.FilePath,
		time.Duration(cfg.Feed.TimeoutSecs)*time.Second,
		log,
	)

	trackerService := tracker.NewService(
		feedClient,
		engine,
		wsServer,
		boundaryCollection(cfg, regions),
		time.Duration(cfg.Feed.FetchIntervalSecs)*time.Second,
		log,
	)

	// Handlers must be in place before the hub accepts clients
	wsHandler := tracker.NewWebSocketHandler(trackerService, log)
	wsServer.SetMessageHandler(wsHandler)
	wsServer.SetConnectHandler(wsHandler)
	go wsServer.Run(hubCtx)

	if err := trackerService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tracker service: %w", err)
	}

	router := api.NewRouter(
		api.NewHandler(trackerService, wsServer, log),
		wsServer.HandleConnection,
		cfg.Server.StaticFilesDir,
		cfg.Server.CORSAllowedOrigins,
		log,
	)
	handler := router.Routes()

	// --- Setup for multiple HTTP servers ---
	allPorts := append([]int{cfg.Server.Port}, cfg.Server.AdditionalPorts...)
	log.Info("Configured listener ports", logger.Any("ports", allPorts))

	g, gctx := errgroup.WithContext(ctx)
	servers := make([]*http.Server, 0, len(allPorts))
	for _, port := range allPorts {
		server := &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, port),
			Handler:      handler, // All servers use the same main router
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}
		servers = append(servers, server)

		g.Go(func() error {
			log.Info("Starting HTTP server", logger.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server on %s: %w", server.Addr, err)
			}
			return nil
		})
	}

	// A signal or the first listener failure starts the shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		trackerService.Stop()
		stopHub()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sg := new(errgroup.Group)
		for _, srv := range servers {
			sg.Go(func() error {
				log.Info("Attempting to shutdown HTTP server", logger.String("addr", srv.Addr))
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Error("HTTP server shutdown error", logger.String("addr", srv.Addr), logger.Error(err))
					return err
				}
				log.Info("HTTP server shutdown complete", logger.String("addr", srv.Addr))
				return nil
			})
		}
		return sg.Wait()
	})

	return g.Wait()
}

// boundaryCollection is the GeoJSON replayed to viewers, with each region's role attached
func boundaryCollection(cfg *config.Config, regions *airspace.Table) *geojson.FeatureCollection {
	roles := make(map[string]string, len(cfg.Regions))
	for _, r := range cfg.Regions {
		roles[r.ID] = r.Role
	}
	fc := regions.FeatureCollection()
	for _, f := range fc.Features {
		if id, ok := f.Properties["id"].(string); ok {
			f.Properties["role"] = roles[id]
		}
	}
	return fc
}
