// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct. It is built once at
// startup and passed explicitly to every constructor; nothing mutates it
// afterwards.
type Config struct {
	App       AppConfig              `mapstructure:"app"`
	Server    ServerConfig           `mapstructure:"server"`
	Upstreams UpstreamsConfig        `mapstructure:"upstreams"`
	Records   RecordsConfig          `mapstructure:"records"`
	Database  DatabaseConfig         `mapstructure:"database"`
	Logging   LoggingConfig          `mapstructure:"logging"`
	Queries   map[string]QueryConfig `mapstructure:"queries"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Timezone    string `mapstructure:"timezone"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	ReadTimeout     int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	TLSCertFile     string   `mapstructure:"tls_cert_file"`
	TLSKeyFile      string   `mapstructure:"tls_key_file"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimit       struct {
		Enabled           bool `mapstructure:"enabled"`
		RequestsPerSecond int  `mapstructure:"requests_per_second"`
		Burst             int  `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", s.Port)
}

// TLSEnabled reports whether both server certificate and key are configured.
func (s ServerConfig) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

// UpstreamsConfig describes the reporting API and the credential endpoint the
// gateway fronts.
type UpstreamsConfig struct {
	ReportingBaseURL string `mapstructure:"reporting_base_url"`
	AuthBaseURL      string `mapstructure:"auth_base_url"`
	Realm            string `mapstructure:"realm"`
	PasswordClientID string `mapstructure:"password_client_id"`
	CAFile           string `mapstructure:"ca_file"`
	Timeout          int    `mapstructure:"timeout"` // milliseconds
	MaxResponseBytes int64  `mapstructure:"max_response_bytes"`
}

// TokenURL returns the OpenID Connect token endpoint of the configured realm.
func (u UpstreamsConfig) TokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", u.AuthBaseURL, u.Realm)
}

// RecordsConfig selects the backing store of the locally held proposal
// collection.
type RecordsConfig struct {
	Source   string `mapstructure:"source"` // file | postgres | redis | elasticsearch | none
	Path     string `mapstructure:"path"`
	Table    string `mapstructure:"table"`
	RedisKey string `mapstructure:"redis_key"`
	Index    string `mapstructure:"index"`
	MaxItems int    `mapstructure:"max_items"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// QueryConfig overrides the retrieval strategy of one logical query.
// Empty fields keep the built-in route table defaults.
type QueryConfig struct {
	Strategy         string `mapstructure:"strategy"` // proxy | aggregate | local_filter | fallback_only
	FallbackTolerant *bool  `mapstructure:"fallback_tolerant"`
	DefaultLimit     int    `mapstructure:"default_limit"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// Location resolves the configured timezone, defaulting to UTC.
func (a AppConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
