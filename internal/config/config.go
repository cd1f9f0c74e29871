package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yegors/handoff-board/internal/classify"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server     ServerConfig     `toml:"server"`     // HTTP server settings
	Feed       FeedConfig       `toml:"feed"`       // Aircraft feed source settings
	Reference  ReferenceConfig  `toml:"reference"`  // Static reference data files
	Classifier ClassifierConfig `toml:"classifier"` // Classification tuning
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
	Regions    []RegionConfig   `toml:"regions"`    // Airspace regions in priority order
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS and websocket requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	AdditionalPorts    []int    `toml:"additional_ports"`      // Additional HTTP ports to listen on (useful for multiple interfaces)
	StaticFilesDir     string   `toml:"static_files_dir"`      // Directory to serve the board from (empty = API only)
}

// FeedConfig contains the aircraft feed configuration
type FeedConfig struct {
	// Allowed values:
	// - "http": poll URL (the VATSIM v3 data feed by default)
	// - "file": re-read a captured feed document at FilePath every cycle
	SourceType        string `toml:"source_type"`
	URL               string `toml:"url"`                    // Feed URL for source_type "http"
	FilePath          string `toml:"file_path"`              // Captured feed for source_type "file" (.json or .json.zst)
	FetchIntervalSecs int    `toml:"fetch_interval_seconds"` // Seconds between cycles
	TimeoutSecs       int    `toml:"timeout_seconds"`        // HTTP timeout for one fetch
}

// ReferenceConfig points at the static reference data loaded once at startup
type ReferenceConfig struct {
	NavdataPath    string `toml:"navdata_path"`    // Waypoints, airways and boundary fixes (.json, .json.zst or .db)
	BoundariesPath string `toml:"boundaries_path"` // Region polygons as a GeoJSON FeatureCollection (.geojson or .geojson.zst)
}

// ClassifierConfig tunes the classification engine
type ClassifierConfig struct {
	HorizonMinutes   int    `toml:"horizon_minutes"`   // Drop tracks whose Center Estimate is further ahead than this
	MaxListLength    int    `toml:"max_list_length"`   // Maximum entries in each of the inbound and outbound lists
	HeadingReference string `toml:"heading_reference"` // "true" or "magnetic": reference of the configured heading arcs
	RouteCacheSize   int    `toml:"route_cache_size"`  // Number of expanded routes kept in memory
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level      string `toml:"level"`        // Log level: "debug", "info", "warn", or "error"
	Format     string `toml:"format"`       // Log format: "json" (structured) or "console" (human-readable)
	FilePath   string `toml:"file_path"`    // Optional rotating log file, written in addition to stderr
	MaxSizeMB  int    `toml:"max_size_mb"`  // Rotate the log file after this many megabytes
	MaxAgeDays int    `toml:"max_age_days"` // Delete rotated log files older than this
}

// RegionConfig describes one airspace region and its heading arcs. Arcs are [from, to] in
// degrees, clockwise, and may wrap through north.
type RegionConfig struct {
	ID                  string    `toml:"id"`                   // Matches the "id" property in the boundaries file
	Role                string    `toml:"role"`                 // "approach" or "far"
	OutboundArc         []float64 `toml:"outbound_arc"`         // Headings classified as OUTBOUND
	InboundArc          []float64 `toml:"inbound_arc"`          // Headings classified as INBOUND
	ExcludeDestinations []string  `toml:"exclude_destinations"` // Destination prefixes never shown as OUTBOUND
}

// Region roles
const (
	RoleApproach = "approach"
	RoleFar      = "far"
)

// Environment variables that override the file
const (
	EnvFeedURL  = "HANDOFF_FEED_URL"
	EnvLogLevel = "HANDOFF_LOG_LEVEL"
	EnvPort     = "HANDOFF_PORT"
)

// DefaultRegions are the San Juan (far side), New York oceanic and Miami (approach side)
// facilities in the order they are tested. The arcs are empirical and not derived from geometry.
func DefaultRegions() []RegionConfig {
	sameSide := []string{"TJ", "TI", "TN", "TK"}
	return []RegionConfig{
		{ID: "TJZS", Role: RoleFar, OutboundArc: []float64{270, 60}, InboundArc: []float64{90, 250}},
		{ID: "KZWY", Role: RoleApproach, OutboundArc: []float64{270, 110}, InboundArc: []float64{111, 269}, ExcludeDestinations: sameSide},
		{ID: "KZMA", Role: RoleApproach, OutboundArc: []float64{270, 110}, InboundArc: []float64{111, 269}, ExcludeDestinations: sameSide},
	}
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // Default location in configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// ApplyEnv overrides file settings from the environment
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvFeedURL)); v != "" {
		c.Feed.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvPort, v)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate fills in defaults and validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	portsSeen := map[int]bool{c.Server.Port: true}
	for _, p := range c.Server.AdditionalPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid additional server port: %d", p)
		}
		if portsSeen[p] {
			return fmt.Errorf("duplicate port configured: %d (primary or additional)", p)
		}
		portsSeen[p] = true
	}
	if c.Server.StaticFilesDir != "" {
		if _, err := os.Stat(c.Server.StaticFilesDir); os.IsNotExist(err) {
			return fmt.Errorf("static files directory does not exist: %s", c.Server.StaticFilesDir)
		}
	}

	if err := c.ValidateFeed(); err != nil {
		return err
	}

	// Validate reference data paths; the files themselves are checked when loaded
	if c.Reference.NavdataPath == "" {
		return fmt.Errorf("reference navdata_path is required")
	}
	if c.Reference.BoundariesPath == "" {
		return fmt.Errorf("reference boundaries_path is required")
	}

	if err := c.ValidateClassifier(); err != nil {
		return err
	}

	// Validate logging config
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Logging.FilePath != "" {
		if c.Logging.MaxSizeMB <= 0 {
			c.Logging.MaxSizeMB = 50
		}
		if c.Logging.MaxAgeDays <= 0 {
			c.Logging.MaxAgeDays = 14
		}
	}

	return c.ValidateRegions()
}

// ValidateFeed validates the feed configuration
func (c *Config) ValidateFeed() error {
	if c.Feed.SourceType == "" {
		c.Feed.SourceType = "http"
	}
	switch c.Feed.SourceType {
	case "http":
		if c.Feed.URL == "" {
			c.Feed.URL = "https://data.vatsim.net/v3/vatsim-data.json"
		}
	case "file":
		if c.Feed.FilePath == "" {
			return fmt.Errorf("feed file_path is required when source_type is file")
		}
	default:
		return fmt.Errorf("invalid feed source type: %s (must be 'http' or 'file')", c.Feed.SourceType)
	}

	if c.Feed.FetchIntervalSecs == 0 {
		c.Feed.FetchIntervalSecs = 15
	}
	if c.Feed.FetchIntervalSecs < 0 {
		return fmt.Errorf("invalid fetch interval: %d", c.Feed.FetchIntervalSecs)
	}
	if c.Feed.TimeoutSecs == 0 {
		c.Feed.TimeoutSecs = 10
	}
	if c.Feed.TimeoutSecs < 0 {
		return fmt.Errorf("invalid feed timeout: %d", c.Feed.TimeoutSecs)
	}
	return nil
}

// ValidateClassifier validates the classifier configuration
func (c *Config) ValidateClassifier() error {
	if c.Classifier.HorizonMinutes == 0 {
		c.Classifier.HorizonMinutes = 45
	}
	if c.Classifier.HorizonMinutes < 0 || c.Classifier.HorizonMinutes >= 24*60 {
		return fmt.Errorf("invalid horizon_minutes: %d", c.Classifier.HorizonMinutes)
	}
	if c.Classifier.MaxListLength == 0 {
		c.Classifier.MaxListLength = 15
	}
	if c.Classifier.MaxListLength < 0 {
		return fmt.Errorf("invalid max_list_length: %d", c.Classifier.MaxListLength)
	}
	if c.Classifier.HeadingReference == "" {
		c.Classifier.HeadingReference = "true"
	}
	if c.Classifier.HeadingReference != "true" && c.Classifier.HeadingReference != "magnetic" {
		return fmt.Errorf("invalid heading_reference: %s (must be 'true' or 'magnetic')", c.Classifier.HeadingReference)
	}
	if c.Classifier.RouteCacheSize < 0 {
		return fmt.Errorf("invalid route_cache_size: %d", c.Classifier.RouteCacheSize)
	}
	return nil
}

// ValidateRegions validates the region list, using DefaultRegions when none are configured
func (c *Config) ValidateRegions() error {
	if len(c.Regions) == 0 {
		c.Regions = DefaultRegions()
	}

	seen := make(map[string]bool, len(c.Regions))
	for i := range c.Regions {
		r := &c.Regions[i]
		r.ID = strings.ToUpper(strings.TrimSpace(r.ID))
		if r.ID == "" {
			return fmt.Errorf("region #%d has no id", i+1)
		}
		if seen[r.ID] {
			return fmt.Errorf("region %s configured twice", r.ID)
		}
		seen[r.ID] = true

		if r.Role != RoleApproach && r.Role != RoleFar {
			return fmt.Errorf("region %s: invalid role %q (must be '%s' or '%s')", r.ID, r.Role, RoleApproach, RoleFar)
		}
		if err := validateArc(r.OutboundArc); err != nil {
			return fmt.Errorf("region %s: outbound_arc: %w", r.ID, err)
		}
		if err := validateArc(r.InboundArc); err != nil {
			return fmt.Errorf("region %s: inbound_arc: %w", r.ID, err)
		}
	}
	return nil
}

func validateArc(arc []float64) error {
	if len(arc) != 2 {
		return fmt.Errorf("must have exactly two headings, got %d", len(arc))
	}
	for _, h := range arc {
		if h < 0 || h > 360 {
			return fmt.Errorf("heading %v out of range 0-360", h)
		}
	}
	return nil
}

// RegionIDs returns the configured region ids in priority order
func (c *Config) RegionIDs() []string {
	ids := make([]string, 0, len(c.Regions))
	for _, r := range c.Regions {
		ids = append(ids, r.ID)
	}
	return ids
}

// Rule converts the region's arcs into a classifier rule
func (r RegionConfig) Rule() classify.Rule {
	return classify.Rule{
		Region:              r.ID,
		Outbound:            classify.Arc{From: r.OutboundArc[0], To: r.OutboundArc[1]},
		Inbound:             classify.Arc{From: r.InboundArc[0], To: r.InboundArc[1]},
		ExcludeDestinations: r.ExcludeDestinations,
	}
}

// EngineConfig builds the classification engine settings from a validated configuration
func (c *Config) EngineConfig() classify.Config {
	rules := make([]classify.Rule, 0, len(c.Regions))
	for _, r := range c.Regions {
		rules = append(rules, r.Rule())
	}
	return classify.Config{
		Rules:          rules,
		Horizon:        time.Duration(c.Classifier.HorizonMinutes) * time.Minute,
		MaxListLength:  c.Classifier.MaxListLength,
		MagneticArcs:   c.Classifier.HeadingReference == "magnetic",
		RouteCacheSize: c.Classifier.RouteCacheSize,
	}
}
