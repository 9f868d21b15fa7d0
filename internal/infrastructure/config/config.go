package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Storage   StorageConfig
	Checkout  CheckoutConfig
	Providers ProvidersConfig
	Secrets   SecretsConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret          string
	Issuer          string
	TokenExpiration time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// AllowStudioHeader accepts X-Studio-ID when no bearer token is sent (development only)
	AllowStudioHeader bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool

	MetricsEnabled        bool
	MetricsExportInterval time.Duration
	LogsEnabled           bool

	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration

	ProfilingEnabled bool
	ProfilingServer  string
}

// StorageConfig holds photo storage settings
type StorageConfig struct {
	Driver            string // s3 or stub
	Bucket            string
	Region            string
	Endpoint          string
	AccessKeyID       string
	SecretAccessKey   string
	UsePathStyle      bool
	KeyPrefix         string
	PresignExpiration time.Duration
	PublicBaseURL     string // stub driver only
}

// CheckoutConfig holds dispatcher settings
type CheckoutConfig struct {
	DefaultAddress AddressConfig
	SubmitTimeout  time.Duration

	// RateLimit caps checkout requests per studio and client within RateLimitWindow; 0 disables it
	RateLimit       int
	RateLimitWindow time.Duration
}

// AddressConfig is a postal address used as a default
type AddressConfig struct {
	Name    string
	Line1   string
	City    string
	State   string
	Zip     string
	Country string
	Phone   string
}

// ProvidersConfig holds per-lab client settings
type ProvidersConfig struct {
	WHCC    WHCCConfig
	Mpix    MpixConfig
	ROES    ROESConfig
	Breaker BreakerConfig
}

// WHCCConfig holds WHCC client settings shared by every studio
type WHCCConfig struct {
	SandboxURL            string
	ProductionURL         string
	Timeout               time.Duration
	ShippingAttributeUID  int
	PackagingAttributeUID int
	DefaultNodeID         int
	DefaultProductUID     int
	ShipFrom              AddressConfig
}

// MpixConfig holds Mpix client settings
type MpixConfig struct {
	SandboxURL    string
	ProductionURL string
	Timeout       time.Duration
	DefaultSKU    string
}

// ROESConfig holds ROES handshake settings
type ROESConfig struct {
	CaptureTimeout time.Duration
	PendingLimit   int
}

// BreakerConfig holds circuit breaker thresholds applied to every lab
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

// SecretsConfig holds the key used to seal provider credentials
type SecretsConfig struct {
	SealingKey string // base64, 32 bytes
}

// Key decodes the sealing key
func (s SecretsConfig) Key() ([32]byte, error) {
	var key [32]byte
	raw, err := base64.StdEncoding.DecodeString(s.SealingKey)
	if err != nil {
		return key, fmt.Errorf("secrets.sealing_key is not valid base64: %w", err)
	}
	if len(raw) != len(key) {
		return key, fmt.Errorf("secrets.sealing_key must decode to %d bytes, got %d", len(key), len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PHOTOLAB_ prefix (e.g., PHOTOLAB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PHOTOLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			Issuer:          v.GetString("jwt.issuer"),
			TokenExpiration: v.GetDuration("jwt.token_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			AllowStudioHeader: v.GetBool("http.allow_studio_header"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsEnabled:        v.GetBool("telemetry.metrics_enabled"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:          v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh:     v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:      v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:       v.GetString("telemetry.profiling_server"),
		},
		Storage: StorageConfig{
			Driver:            v.GetString("storage.driver"),
			Bucket:            v.GetString("storage.bucket"),
			Region:            v.GetString("storage.region"),
			Endpoint:          v.GetString("storage.endpoint"),
			AccessKeyID:       v.GetString("storage.access_key_id"),
			SecretAccessKey:   v.GetString("storage.secret_access_key"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			KeyPrefix:         v.GetString("storage.key_prefix"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
			PublicBaseURL:     v.GetString("storage.public_base_url"),
		},
		Checkout: CheckoutConfig{
			DefaultAddress:  loadAddress(v, "checkout.default_address"),
			SubmitTimeout:   v.GetDuration("checkout.submit_timeout"),
			RateLimit:       v.GetInt("checkout.rate_limit"),
			RateLimitWindow: v.GetDuration("checkout.rate_limit_window"),
		},
		Providers: ProvidersConfig{
			WHCC: WHCCConfig{
				SandboxURL:            v.GetString("providers.whcc.sandbox_url"),
				ProductionURL:         v.GetString("providers.whcc.production_url"),
				Timeout:               v.GetDuration("providers.whcc.timeout"),
				ShippingAttributeUID:  v.GetInt("providers.whcc.shipping_attribute_uid"),
				PackagingAttributeUID: v.GetInt("providers.whcc.packaging_attribute_uid"),
				DefaultNodeID:         v.GetInt("providers.whcc.default_node_id"),
				DefaultProductUID:     v.GetInt("providers.whcc.default_product_uid"),
				ShipFrom:              loadAddress(v, "providers.whcc.ship_from"),
			},
			Mpix: MpixConfig{
				SandboxURL:    v.GetString("providers.mpix.sandbox_url"),
				ProductionURL: v.GetString("providers.mpix.production_url"),
				Timeout:       v.GetDuration("providers.mpix.timeout"),
				DefaultSKU:    v.GetString("providers.mpix.default_sku"),
			},
			ROES: ROESConfig{
				CaptureTimeout: v.GetDuration("providers.roes.capture_timeout"),
				PendingLimit:   v.GetInt("providers.roes.pending_limit"),
			},
			Breaker: BreakerConfig{
				MaxRequests:         v.GetUint32("providers.breaker.max_requests"),
				Interval:            v.GetDuration("providers.breaker.interval"),
				OpenTimeout:         v.GetDuration("providers.breaker.open_timeout"),
				ConsecutiveFailures: v.GetUint32("providers.breaker.consecutive_failures"),
			},
		},
		Secrets: SecretsConfig{
			SealingKey: v.GetString("secrets.sealing_key"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadAddress(v *viper.Viper, prefix string) AddressConfig {
	return AddressConfig{
		Name:    v.GetString(prefix + ".name"),
		Line1:   v.GetString(prefix + ".line1"),
		City:    v.GetString(prefix + ".city"),
		State:   v.GetString(prefix + ".state"),
		Zip:     v.GetString(prefix + ".zip"),
		Country: v.GetString(prefix + ".country"),
		Phone:   v.GetString(prefix + ".phone"),
	}
}

// developmentSealingKey is 32 zero bytes; validate rejects it in production
const developmentSealingKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "photolab-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "photolab"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "photolab-backend"
	}
	if cfg.JWT.TokenExpiration <= 0 {
		cfg.JWT.TokenExpiration = 12 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// ROES capture waits up to 10s, so the write timeout must be longer
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 45 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Studio-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "photolab-backend"
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "stub"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "photos/"
	}
	if cfg.Storage.PresignExpiration == 0 {
		// labs download asynchronously after import
		cfg.Storage.PresignExpiration = 72 * time.Hour
	}
	if cfg.Storage.PublicBaseURL == "" {
		cfg.Storage.PublicBaseURL = "http://localhost:8080/photos"
	}
	if cfg.Checkout.SubmitTimeout == 0 {
		cfg.Checkout.SubmitTimeout = 30 * time.Second
	}
	if cfg.Checkout.RateLimitWindow == 0 {
		cfg.Checkout.RateLimitWindow = time.Minute
	}
	applyAddressDefaults(&cfg.Checkout.DefaultAddress)

	w := &cfg.Providers.WHCC
	if w.SandboxURL == "" {
		w.SandboxURL = "https://sandbox.apps.whcc.com"
	}
	if w.ProductionURL == "" {
		w.ProductionURL = "https://apps.whcc.com"
	}
	if w.Timeout == 0 {
		w.Timeout = 20 * time.Second
	}
	if w.ShippingAttributeUID == 0 {
		w.ShippingAttributeUID = 96
	}
	if w.PackagingAttributeUID == 0 {
		w.PackagingAttributeUID = 545
	}
	if w.DefaultNodeID == 0 {
		w.DefaultNodeID = 10000
	}
	if w.DefaultProductUID == 0 {
		w.DefaultProductUID = 2
	}
	if w.ShipFrom == (AddressConfig{}) {
		w.ShipFrom = cfg.Checkout.DefaultAddress
	}

	m := &cfg.Providers.Mpix
	if m.SandboxURL == "" {
		m.SandboxURL = "https://sandbox.api.mpix.com/v1"
	}
	if m.ProductionURL == "" {
		m.ProductionURL = "https://api.mpix.com/v1"
	}
	if m.Timeout == 0 {
		m.Timeout = 20 * time.Second
	}
	if m.DefaultSKU == "" {
		m.DefaultSKU = "PRINT-4X6-LUSTER"
	}

	if cfg.Providers.ROES.CaptureTimeout == 0 {
		cfg.Providers.ROES.CaptureTimeout = 10 * time.Second
	}
	if cfg.Providers.ROES.PendingLimit == 0 {
		cfg.Providers.ROES.PendingLimit = 100
	}

	b := &cfg.Providers.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = 1
	}
	if b.Interval == 0 {
		b.Interval = time.Minute
	}
	if b.OpenTimeout == 0 {
		b.OpenTimeout = 30 * time.Second
	}
	if b.ConsecutiveFailures == 0 {
		b.ConsecutiveFailures = 5
	}

	if cfg.Secrets.SealingKey == "" && !cfg.App.IsProduction() {
		cfg.Secrets.SealingKey = developmentSealingKey
	}
}

func applyAddressDefaults(a *AddressConfig) {
	if a.Name == "" {
		a.Name = "Photo Lab Studio"
	}
	if a.Line1 == "" {
		a.Line1 = "3531 Commerce Dr"
	}
	if a.City == "" {
		a.City = "Eagan"
	}
	if a.State == "" {
		a.State = "MN"
	}
	if a.Zip == "" {
		a.Zip = "55121"
	}
	if a.Country == "" {
		a.Country = "US"
	}
	if a.Phone == "" {
		a.Phone = "000-000-0000"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Storage.Driver {
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when storage.driver is s3")
		}
	case "stub":
	default:
		return fmt.Errorf("storage.driver must be s3 or stub, got %q", c.Storage.Driver)
	}

	if _, err := c.Secrets.Key(); err != nil {
		return err
	}

	if c.App.IsProduction() {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Secrets.SealingKey == developmentSealingKey {
			return fmt.Errorf("secrets.sealing_key must be set in production")
		}
		if c.HTTP.AllowStudioHeader {
			return fmt.Errorf("http.allow_studio_header must be false in production")
		}
		if c.Storage.Driver == "stub" {
			return fmt.Errorf("storage.driver cannot be 'stub' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServer == "" {
		return fmt.Errorf("telemetry.profiling_server is required when profiling is enabled")
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
