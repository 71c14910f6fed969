package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	DB         DBConfig         `yaml:"db"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Radio      RadioConfig      `yaml:"radio"`
	ScanGroup  ScanGroupConfig  `yaml:"scan_group"`
	WiFi       ScanConfig       `yaml:"wifi"`
	GNSS       ScanConfig       `yaml:"gnss"`
	Assistance AssistanceConfig `yaml:"assistance"`
	LoRaWAN    LoRaWANConfig    `yaml:"lorawan"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server LogSettings `yaml:"server"`
	Events LogSettings `yaml:"events"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path      string   `yaml:"path"`
	Retention Duration `yaml:"retention"` // stored bundles older than this are pruned at startup
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RadioConfig selects the transceiver driver.
type RadioConfig struct {
	Provider string          `yaml:"provider"` // "mock"
	Mock     MockRadioConfig `yaml:"mock"`
}

// MockRadioConfig holds settings for the simulated transceiver.
type MockRadioConfig struct {
	Latency             Duration `yaml:"latency"`
	AccessPoints        int      `yaml:"access_points"`
	Satellites          int      `yaml:"satellites"`
	EnergyPerChannelUAh uint32   `yaml:"energy_per_channel_uah"`
	GNSSEnergyUAh       uint32   `yaml:"gnss_energy_uah"`
	Seed                int64    `yaml:"seed"`
}

// ScanGroupConfig holds the cadence of scan groups.
type ScanGroupConfig struct {
	Period Duration     `yaml:"period"`
	Mode   string       `yaml:"mode"`  // static, mobile
	Order  []string     `yaml:"order"` // technologies in execution order
	Mobile MobileConfig `yaml:"mobile"`
}

// MobileConfig tunes the distance-based period policy used in mobile mode.
type MobileConfig struct {
	MinPeriod Duration `yaml:"min_period"`
	Distance  Distance `yaml:"distance"`
}

// ScanConfig holds the settings of one scan technology.
type ScanConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Channels          []int    `yaml:"channels,omitempty"`
	Types             []string `yaml:"types"`
	MaxResults        int      `yaml:"max_results"`
	TimeoutPerChannel Duration `yaml:"timeout_per_channel"`
	TimeoutPerScan    Duration `yaml:"timeout_per_scan"`
}

// AssistanceConfig holds the initial GNSS assistance position.
type AssistanceConfig struct {
	Auto      bool    `yaml:"auto"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Label     string  `yaml:"label"`
}

// LoRaWANConfig selects the regional radio profile handed to the MAC layer.
type LoRaWANConfig struct {
	Region string `yaml:"region"`
}

// Scan group modes.
const (
	ModeStatic = "static"
	ModeMobile = "mobile"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:      "./data/geoscan.db",
			Retention: Duration(30 * Day),
		},
		Server: ServerConfig{
			Address: "localhost:1930",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Radio: RadioConfig{
			Provider: "mock",
			Mock: MockRadioConfig{
				Latency:             Duration(40 * time.Millisecond),
				AccessPoints:        7,
				Satellites:          9,
				EnergyPerChannelUAh: 2,
				GNSSEnergyUAh:       60,
				Seed:                1,
			},
		},
		ScanGroup: ScanGroupConfig{
			Period: Duration(30 * time.Second),
			Mode:   ModeStatic,
			Order:  []string{"wifi", "gnss"},
			Mobile: MobileConfig{
				MinPeriod: Duration(10 * time.Second),
				Distance:  Distance(200),
			},
		},
		WiFi: ScanConfig{
			Enabled:           true,
			Channels:          []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14},
			Types:             []string{"b", "g", "n"},
			MaxResults:        5,
			TimeoutPerChannel: Duration(300 * time.Millisecond),
			TimeoutPerScan:    Duration(90 * time.Millisecond),
		},
		GNSS: ScanConfig{
			Enabled:           true,
			Types:             []string{"gps", "beidou"},
			MaxResults:        12,
			TimeoutPerChannel: Duration(1 * time.Second),
			TimeoutPerScan:    Duration(5 * time.Second),
		},
		Assistance: AssistanceConfig{
			Auto:      true,
			Latitude:  45.181454,
			Longitude: 5.720893,
			Label:     "Grenoble, FRANCE",
		},
		LoRaWAN: LoRaWANConfig{
			Region: "EU868",
		},
	}
}

// Validate checks cross-field constraints that the scan core relies on.
// Per-technology scan settings are validated by the scan package.
func (c *Config) Validate() error {
	if time.Duration(c.ScanGroup.Period) < time.Second {
		return fmt.Errorf("%w: scan_group.period must be at least 1s, got %v", ErrInvalid, time.Duration(c.ScanGroup.Period))
	}
	switch c.ScanGroup.Mode {
	case ModeStatic, ModeMobile:
	default:
		return fmt.Errorf("%w: scan_group.mode must be static or mobile, got %q", ErrInvalid, c.ScanGroup.Mode)
	}
	seen := make(map[string]bool)
	for _, tech := range c.ScanGroup.Order {
		tech = strings.ToLower(tech)
		if tech != "wifi" && tech != "gnss" {
			return fmt.Errorf("%w: unknown technology %q in scan_group.order", ErrInvalid, tech)
		}
		if seen[tech] {
			return fmt.Errorf("%w: technology %q listed twice in scan_group.order", ErrInvalid, tech)
		}
		seen[tech] = true
	}
	if !c.Assistance.Auto {
		if !(c.Assistance.Latitude >= -90 && c.Assistance.Latitude <= 90) {
			return fmt.Errorf("%w: assistance.latitude %v out of range", ErrInvalid, c.Assistance.Latitude)
		}
		if !(c.Assistance.Longitude >= -180 && c.Assistance.Longitude <= 180) {
			return fmt.Errorf("%w: assistance.longitude %v out of range", ErrInvalid, c.Assistance.Longitude)
		}
	}
	if c.LoRaWAN.Region == "" {
		return fmt.Errorf("%w: lorawan.region is required", ErrInvalid)
	}
	return nil
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// A .env file next to the config and GEOSCAN_* variables override selected fields; overrides are never saved.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if err := loadEnv(dir); err != nil {
		return nil, err
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnv(dir string) error {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err != nil {
		return nil
	}
	// godotenv.Load never overrides variables already set in the process.
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("failed to load %s: %w", envPath, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GEOSCAN_REGION"); v != "" {
		cfg.LoRaWAN.Region = strings.ToUpper(v)
	}
	if v := os.Getenv("GEOSCAN_DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("GEOSCAN_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("GEOSCAN_LOG_LEVEL"); v != "" {
		cfg.Log.Server.Level = v
	}
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# geoscan configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles)

`)
	data = append(header, data...)

	reMode := regexp.MustCompile(`(?m)^(\s+)mode:`)
	data = reMode.ReplaceAll(data, []byte("${1}# Options: static, mobile\n${1}mode:"))

	reMax := regexp.MustCompile(`(?m)^(\s+)max_results:`)
	data = reMax.ReplaceAll(data, []byte("${1}# At most 32\n${1}max_results:"))

	reRegion := regexp.MustCompile(`(?m)^(\s+)region:`)
	data = reRegion.ReplaceAll(data, []byte("${1}# Options: EU868, CN470, US915\n${1}region:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
