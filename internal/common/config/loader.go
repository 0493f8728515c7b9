// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var validSources = map[string]bool{
	"file":          true,
	"postgres":      true,
	"redis":         true,
	"elasticsearch": true,
	"none":          true,
}

var validStrategies = map[string]bool{
	"proxy":         true,
	"aggregate":     true,
	"local_filter":  true,
	"fallback_only": true,
}

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env in the working directory, its parents and the
// project root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills values still empty after unmarshal from the
// plain environment variables used by the deployment scripts.
func overrideEmptyConfig(cfg *Config) {
	if val := os.Getenv("PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}

	if cfg.Upstreams.CAFile == "" {
		if val := os.Getenv("UPSTREAM_CA_FILE"); val != "" {
			cfg.Upstreams.CAFile = val
		}
	}
	if cfg.Upstreams.ReportingBaseURL == "" {
		if val := os.Getenv("REPORTING_BASE_URL"); val != "" {
			cfg.Upstreams.ReportingBaseURL = val
		}
	}
	if cfg.Upstreams.AuthBaseURL == "" {
		if val := os.Getenv("AUTH_BASE_URL"); val != "" {
			cfg.Upstreams.AuthBaseURL = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "dashboard-gateway"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3001
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if cfg.Server.RateLimit.RequestsPerSecond == 0 {
		cfg.Server.RateLimit.RequestsPerSecond = 20
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = 40
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	cfg.Upstreams.ReportingBaseURL = strings.TrimSuffix(cfg.Upstreams.ReportingBaseURL, "/")
	cfg.Upstreams.AuthBaseURL = strings.TrimSuffix(cfg.Upstreams.AuthBaseURL, "/")
	if cfg.Upstreams.Realm == "" {
		cfg.Upstreams.Realm = "intranet"
	}
	if cfg.Upstreams.PasswordClientID == "" {
		cfg.Upstreams.PasswordClientID = "cli-web-pnc"
	}
	if cfg.Upstreams.Timeout == 0 {
		cfg.Upstreams.Timeout = 30000
	}
	if cfg.Upstreams.MaxResponseBytes == 0 {
		cfg.Upstreams.MaxResponseBytes = 10 << 20
	}

	if cfg.Records.Source == "" {
		cfg.Records.Source = "file"
	}
	if cfg.Records.Path == "" {
		cfg.Records.Path = "data/massa-historico.json"
	}
	if cfg.Records.Table == "" {
		cfg.Records.Table = "proposta_historico"
	}
	if cfg.Records.RedisKey == "" {
		cfg.Records.RedisKey = "dashboard:propostas"
	}
	if cfg.Records.Index == "" {
		cfg.Records.Index = "propostas"
	}
	if cfg.Records.MaxItems == 0 {
		cfg.Records.MaxItems = 10000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Queries == nil {
		cfg.Queries = map[string]QueryConfig{}
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", cfg.Server.Port)
	}
	if (cfg.Server.TLSCertFile == "") != (cfg.Server.TLSKeyFile == "") {
		return fmt.Errorf("server.tls_cert_file and server.tls_key_file must be set together")
	}

	if cfg.Upstreams.ReportingBaseURL == "" {
		return fmt.Errorf("upstreams.reporting_base_url is required")
	}
	if cfg.Upstreams.AuthBaseURL == "" {
		return fmt.Errorf("upstreams.auth_base_url is required")
	}

	if !validSources[cfg.Records.Source] {
		return fmt.Errorf("records.source %q is not supported", cfg.Records.Source)
	}
	switch cfg.Records.Source {
	case "postgres":
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.host and database.postgres.database are required for records.source=postgres")
		}
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for records.source=redis")
		}
	case "elasticsearch":
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for records.source=elasticsearch")
		}
	}

	for name, q := range cfg.Queries {
		if q.Strategy != "" && !validStrategies[q.Strategy] {
			return fmt.Errorf("queries.%s.strategy %q is not supported", name, q.Strategy)
		}
		if q.DefaultLimit < 0 {
			return fmt.Errorf("queries.%s.default_limit must be positive", name)
		}
	}

	return nil
}
