package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Simulation      SimulationConfig
	Server          ServerConfig
	GraphAPI        GraphAPIConfig
	RateLimit       RateLimitConfig
	Influx          InfluxConfig
	SQLite          SQLiteConfig
	TelemetryWorker TelemetryWorkerConfig
	Telemetry       TelemetryConfig
	Logging         LoggingConfig
}

type SimulationConfig struct {
	DefaultLatencyMetric string
	MaxTraversalDepth    int
	ScalingModel         string
	ScalingAlpha         float64
	MinLatencyFactor     float64
	RequestTimeoutMs     int
	MaxPathsReturned     int
}

type ServerConfig struct {
	Port int
}

type GraphAPIConfig struct {
	BaseURL   string
	TimeoutMs int
}

type RateLimitConfig struct {
	WindowMs    int
	MaxRequests int
}

type InfluxConfig struct {
	Host     string
	Token    string
	Database string
}

type SQLiteConfig struct {
	DBPath string
}

type TelemetryWorkerConfig struct {
	Enabled        bool
	PollIntervalMs int
}

type TelemetryConfig struct {
	Enabled bool
}

type LoggingConfig struct {
	Level     string
	FilePath  string
	MaxSizeMB int
}

// Load builds an immutable Config from defaults, an optional config
// file (config.yaml in the working directory or
// /etc/predictive-analysis-engine), and environment variables, in that
// order of increasing precedence. Call godotenv.Load() before Load so
// .env entries are visible as environment variables to viper.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("simulation.defaultLatencyMetric", "p95")
	v.SetDefault("simulation.maxTraversalDepth", 2)
	v.SetDefault("simulation.scalingModel", "bounded_sqrt")
	v.SetDefault("simulation.scalingAlpha", 0.5)
	v.SetDefault("simulation.minLatencyFactor", 0.6)
	v.SetDefault("simulation.requestTimeoutMs", 8000)
	v.SetDefault("simulation.maxPathsReturned", 10)

	v.SetDefault("server.port", 5000)

	v.SetDefault("graphApi.baseUrl", "http://service-graph-engine:3000")
	v.SetDefault("graphApi.timeoutMs", 5000)

	v.SetDefault("rateLimit.windowMs", 60000)
	v.SetDefault("rateLimit.maxRequests", 60)

	v.SetDefault("influx.host", "")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.database", "")

	v.SetDefault("sqlite.dbPath", "./data/decisions.db")

	v.SetDefault("telemetryWorker.enabled", true)
	v.SetDefault("telemetryWorker.pollIntervalMs", 60000)

	v.SetDefault("telemetry.enabled", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.filePath", "")
	v.SetDefault("logging.maxSizeMB", 100)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/predictive-analysis-engine")
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ANALYSIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	cfg := &Config{
		Simulation: SimulationConfig{
			DefaultLatencyMetric: v.GetString("simulation.defaultLatencyMetric"),
			MaxTraversalDepth:    v.GetInt("simulation.maxTraversalDepth"),
			ScalingModel:         v.GetString("simulation.scalingModel"),
			ScalingAlpha:         v.GetFloat64("simulation.scalingAlpha"),
			MinLatencyFactor:     v.GetFloat64("simulation.minLatencyFactor"),
			RequestTimeoutMs:     v.GetInt("simulation.requestTimeoutMs"),
			MaxPathsReturned:     v.GetInt("simulation.maxPathsReturned"),
		},
		Server: ServerConfig{
			Port: v.GetInt("server.port"),
		},
		GraphAPI: GraphAPIConfig{
			BaseURL:   v.GetString("graphApi.baseUrl"),
			TimeoutMs: v.GetInt("graphApi.timeoutMs"),
		},
		RateLimit: RateLimitConfig{
			WindowMs:    v.GetInt("rateLimit.windowMs"),
			MaxRequests: v.GetInt("rateLimit.maxRequests"),
		},
		Influx: InfluxConfig{
			Host:     v.GetString("influx.host"),
			Token:    v.GetString("influx.token"),
			Database: v.GetString("influx.database"),
		},
		SQLite: SQLiteConfig{
			DBPath: v.GetString("sqlite.dbPath"),
		},
		TelemetryWorker: TelemetryWorkerConfig{
			Enabled:        v.GetBool("telemetryWorker.enabled"),
			PollIntervalMs: v.GetInt("telemetryWorker.pollIntervalMs"),
		},
		Telemetry: TelemetryConfig{
			Enabled: v.GetBool("telemetry.enabled"),
		},
		Logging: LoggingConfig{
			Level:     v.GetString("logging.level"),
			FilePath:  v.GetString("logging.filePath"),
			MaxSizeMB: v.GetInt("logging.maxSizeMB"),
		},
	}

	return cfg, nil
}

// bindLegacyEnv keeps the flat env-var names used by the upstream
// graph-engine deployment manifests working alongside viper's nested
// ANALYSIS_-style keys.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"DEFAULT_LATENCY_METRIC":     "simulation.defaultLatencyMetric",
		"MAX_TRAVERSAL_DEPTH":        "simulation.maxTraversalDepth",
		"SCALING_MODEL":              "simulation.scalingModel",
		"SCALING_ALPHA":              "simulation.scalingAlpha",
		"MIN_LATENCY_FACTOR":         "simulation.minLatencyFactor",
		"REQUEST_TIMEOUT_MS":         "simulation.requestTimeoutMs",
		"MAX_PATHS_RETURNED":         "simulation.maxPathsReturned",
		"PORT":                       "server.port",
		"GRAPH_ENGINE_BASE_URL":      "graphApi.baseUrl",
		"SERVICE_GRAPH_ENGINE_URL":   "graphApi.baseUrl",
		"GRAPH_API_TIMEOUT_MS":       "graphApi.timeoutMs",
		"RATE_LIMIT_WINDOW_MS":       "rateLimit.windowMs",
		"RATE_LIMIT_MAX":             "rateLimit.maxRequests",
		"INFLUX_HOST":                "influx.host",
		"INFLUX_TOKEN":               "influx.token",
		"INFLUX_DATABASE":            "influx.database",
		"SQLITE_DB_PATH":             "sqlite.dbPath",
		"TELEMETRY_WORKER_ENABLED":   "telemetryWorker.enabled",
		"TELEMETRY_POLL_INTERVAL_MS": "telemetryWorker.pollIntervalMs",
		"TELEMETRY_ENABLED":          "telemetry.enabled",
		"LOG_LEVEL":                  "logging.level",
		"LOG_FILE_PATH":              "logging.filePath",
	}
	for env, key := range legacy {
		_ = v.BindEnv(key, env)
	}
}

// ValidateEnv checks that the graph engine base URL is configured
// before the server accepts traffic.
func ValidateEnv() error {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("graphApi.baseUrl", "GRAPH_ENGINE_BASE_URL")

	if v.GetString("graphApi.baseUrl") == "" && v.GetString("SERVICE_GRAPH_ENGINE_URL") == "" {
		return fmt.Errorf("GRAPH_ENGINE_BASE_URL (or SERVICE_GRAPH_ENGINE_URL) is required")
	}
	return nil
}
