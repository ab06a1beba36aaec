package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "CRIME_MATCHER_CONFIG"
	databaseDSNEnv = "DATABASE_DSN"
	outputPathEnv  = "REPORT_OUTPUT_PATH"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Registry RegistryConfig `yaml:"registry"`
	Links    LinksConfig    `yaml:"links"`
	Fetcher  FetcherConfig  `yaml:"fetcher"`
	Matching MatchingConfig `yaml:"matching"`
	Output   OutputConfig   `yaml:"output"`
	Workers  int            `yaml:"workers"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the optional Postgres content cache.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RegistryConfig names the six curated entity CSV files, one per output
// sheet.
type RegistryConfig struct {
	Plants         string `yaml:"plants"`
	Topics         string `yaml:"topics"`
	VesselOwners   string `yaml:"vesselOwners"`
	VesselsEcuador string `yaml:"vesselsEcuador"`
	VesselsPeru    string `yaml:"vesselsPeru"`
	VesselsChile   string `yaml:"vesselsChile"`
}

// LinksConfig points at the CSV of article URLs extracted from the report
// PDFs.
type LinksConfig struct {
	Path string `yaml:"path"`
}

// FetcherConfig tunes article scraping.
type FetcherConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds"`
	MaxTextRunes   int `yaml:"maxTextRunes"`
	Workers        int `yaml:"workers"`
}

// MatchingConfig carries the heuristic thresholds and the maritime cue
// vocabulary. These are tunable on purpose; defaults were validated against
// a labeled sample.
type MatchingConfig struct {
	StrongThreshold    float64  `yaml:"strongThreshold"`
	WeakThreshold      float64  `yaml:"weakThreshold"`
	TokenPairThreshold float64  `yaml:"tokenPairThreshold"`
	ContextCues        []string `yaml:"contextCues"`
}

// OutputConfig names the workbook the report writer produces.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(outputPathEnv); v != "" {
		c.Output.Path = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Registry.Plants != "" {
		base.Registry.Plants = override.Registry.Plants
	}
	if override.Registry.Topics != "" {
		base.Registry.Topics = override.Registry.Topics
	}
	if override.Registry.VesselOwners != "" {
		base.Registry.VesselOwners = override.Registry.VesselOwners
	}
	if override.Registry.VesselsEcuador != "" {
		base.Registry.VesselsEcuador = override.Registry.VesselsEcuador
	}
	if override.Registry.VesselsPeru != "" {
		base.Registry.VesselsPeru = override.Registry.VesselsPeru
	}
	if override.Registry.VesselsChile != "" {
		base.Registry.VesselsChile = override.Registry.VesselsChile
	}

	if override.Links.Path != "" {
		base.Links = override.Links
	}

	if override.Fetcher.TimeoutSeconds > 0 {
		base.Fetcher.TimeoutSeconds = override.Fetcher.TimeoutSeconds
	}
	if override.Fetcher.MaxTextRunes > 0 {
		base.Fetcher.MaxTextRunes = override.Fetcher.MaxTextRunes
	}
	if override.Fetcher.Workers > 0 {
		base.Fetcher.Workers = override.Fetcher.Workers
	}

	if override.Matching.StrongThreshold > 0 {
		base.Matching.StrongThreshold = override.Matching.StrongThreshold
	}
	if override.Matching.WeakThreshold > 0 {
		base.Matching.WeakThreshold = override.Matching.WeakThreshold
	}
	if override.Matching.TokenPairThreshold > 0 {
		base.Matching.TokenPairThreshold = override.Matching.TokenPairThreshold
	}
	if len(override.Matching.ContextCues) > 0 {
		base.Matching.ContextCues = override.Matching.ContextCues
	}

	if override.Output.Path != "" {
		base.Output = override.Output
	}
	if override.Workers > 0 {
		base.Workers = override.Workers
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{DSN: ""},
		Registry: RegistryConfig{
			Plants:         "data/plants.csv",
			Topics:         "data/topics.csv",
			VesselOwners:   "data/vessel-owners.csv",
			VesselsEcuador: "data/vessels-ecuador.csv",
			VesselsPeru:    "data/vessels-peru.csv",
			VesselsChile:   "data/vessels-chile.csv",
		},
		Links:   LinksConfig{Path: "data/report-links.csv"},
		Fetcher: FetcherConfig{TimeoutSeconds: 30, MaxTextRunes: 5000, Workers: 10},
		Matching: MatchingConfig{
			StrongThreshold:    0.84,
			WeakThreshold:      0.66,
			TokenPairThreshold: 0.75,
			ContextCues: []string{
				"ship", "vessel", "boat", "fleet",
				"barco", "embarcación", "navío", "buque", "nave", "flota",
			},
		},
		Output:  OutputConfig{Path: "output/crime-report-matches.xlsx"},
		Workers: 8,
	}
}
