package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envDBHost                = "DB_HOST"
	envDBPort                = "DB_PORT"
	envDBName                = "DB_NAME"
	envDBUser                = "DB_USER"
	envDBPassword            = "DB_PASSWORD"
	envDBSSLMode             = "DB_SSL_MODE"
	envDBMaxConns            = "DB_MAX_CONNS"
	envDBMinConns            = "DB_MIN_CONNS"
	envServiceDBUser         = "SERVICE_DB_USER"
	envServiceDBPassword     = "SERVICE_DB_PASSWORD"
	envGatewayURL            = "PAYMENT_GATEWAY_URL"
	envGatewayAPIKey         = "PAYMENT_GATEWAY_API_KEY"
	envGatewayTimeout        = "PAYMENT_GATEWAY_TIMEOUT"
	envGatewayCurrency       = "PAYMENT_CURRENCY"
	envAWSRegion             = "REGION"
	envAWSAccessKeyID        = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey    = "AWS_SECRET_ACCESS_KEY"
	envAssetsBucket          = "ASSETS_BUCKET"
	envJWTSecret             = "JWT_SECRET"
	envJWTExpiry             = "JWT_EXPIRY_MINUTES"
	envRabbitMQURL           = "RABBITMQ_URL"
	envRabbitMQExchange      = "RABBITMQ_EXCHANGE"
	envLogLevel              = "LOG_LEVEL"
	envLogPretty             = "LOG_PRETTY"
	envEnableProfiling       = "ENABLE_PROFILING"
	envAssetRetention        = "ASSET_RETENTION"
	envAssetSweepInterval    = "ASSET_SWEEP_INTERVAL"
	envFanoutConcurrency     = "NOTIFY_FANOUT_CONCURRENCY"
)

const (
	defaultServerPort          = "8080"
	defaultServerReadTimeout   = 10 * time.Second
	defaultServerWriteTimeout  = 10 * time.Second
	defaultServerShutdown      = 10 * time.Second
	defaultDBHost              = "localhost"
	defaultDBPort              = 5432
	defaultDBName              = "portal"
	defaultDBUser              = "portal_app"
	defaultDBSSLMode           = "disable"
	defaultDBMaxConns          = 25
	defaultDBMinConns          = 5
	defaultServiceDBMaxConns   = 4
	defaultServiceDBMinConns   = 0
	defaultGatewayTimeout      = 15 * time.Second
	defaultCurrency            = "usd"
	defaultJWTExpiry           = 60 * time.Minute
	defaultRabbitMQExchange    = "portal.events"
	defaultLogLevel            = "info"
	defaultAssetRetention      = 30 * 24 * time.Hour
	defaultAssetSweepInterval  = time.Hour
	defaultFanoutConcurrency   = 8
	minJWTSecretLength         = 32
	minUniqueCharsInSecret     = 16
	minRepeatedCharThreshold   = 4
	maxRepeatedChars           = 2
	errPortRequiredFmt         = "PORT must be set"
	errDBPasswordRequiredFmt   = "DB_PASSWORD must be set"
	errGatewayURLRequiredFmt   = "PAYMENT_GATEWAY_URL must be set"
	errGatewayTimeoutFmt       = "PAYMENT_GATEWAY_TIMEOUT must be positive"
	errServiceDBPartialFmt     = "SERVICE_DB_USER and SERVICE_DB_PASSWORD must be set together"
	errRegionRequiredFmt       = "REGION must be set"
	errJWTSecretRequiredFmt    = "JWT_SECRET must be set"
	errJWTSecretMinLengthFmt   = "JWT_SECRET must be at least %d characters"
	errJWTSecretLowEntropyFmt  = "JWT_SECRET has insufficient entropy (appears non-random). Use a cryptographically secure random string."
	errFanoutConcurrencyFmt    = "NOTIFY_FANOUT_CONCURRENCY must be positive"
	errInvalidConfigurationFmt = "invalid configuration: %w"
)

type Config struct {
	Server          ServerConfig
	Database        DatabaseConfig
	ServiceDatabase DatabaseConfig
	Gateway         GatewayConfig
	AWS             AWSConfig
	JWT             JWTConfig
	Messaging       MessagingConfig
	App             AppConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

// Enabled reports whether credentials were supplied.
func (c *DatabaseConfig) Enabled() bool {
	return c.User != "" && c.Password != ""
}

type GatewayConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Currency string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	AssetsBucket    string
}

type JWTConfig struct {
	Secret         string
	ExpiryDuration time.Duration
}

type MessagingConfig struct {
	RabbitMQURL string
	Exchange    string
}

type AppConfig struct {
	LogLevel           string
	LogPretty          bool
	EnableProfiling    bool
	AssetRetention     time.Duration
	AssetSweepInterval time.Duration
	FanoutConcurrency  int
}

func Load() (*Config, error) {
	db := loadDatabase()
	service := *db
	service.User = os.Getenv(envServiceDBUser)
	service.Password = os.Getenv(envServiceDBPassword)
	service.MaxConns = defaultServiceDBMaxConns
	service.MinConns = defaultServiceDBMinConns

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
		},
		Database: *db,
		// Same server, different role: this credential bypasses row-level policy.
		ServiceDatabase: service,
		Gateway: GatewayConfig{
			BaseURL:  strings.TrimRight(requireEnv(envGatewayURL), "/"),
			APIKey:   os.Getenv(envGatewayAPIKey),
			Timeout:  getDurationEnv(envGatewayTimeout, defaultGatewayTimeout),
			Currency: strings.ToLower(getEnv(envGatewayCurrency, defaultCurrency)),
		},
		AWS: AWSConfig{
			Region:          requireEnv(envAWSRegion),
			AccessKeyID:     os.Getenv(envAWSAccessKeyID),
			SecretAccessKey: os.Getenv(envAWSSecretAccessKey),
			AssetsBucket:    os.Getenv(envAssetsBucket),
		},
		JWT: JWTConfig{
			Secret:         requireEnv(envJWTSecret),
			ExpiryDuration: getDurationEnv(envJWTExpiry, defaultJWTExpiry),
		},
		Messaging: MessagingConfig{
			RabbitMQURL: os.Getenv(envRabbitMQURL),
			Exchange:    getEnv(envRabbitMQExchange, defaultRabbitMQExchange),
		},
		App: AppConfig{
			LogLevel:           getEnv(envLogLevel, defaultLogLevel),
			LogPretty:          getBoolEnv(envLogPretty, false),
			EnableProfiling:    getBoolEnv(envEnableProfiling, false),
			AssetRetention:     getDurationEnv(envAssetRetention, defaultAssetRetention),
			AssetSweepInterval: getDurationEnv(envAssetSweepInterval, defaultAssetSweepInterval),
			FanoutConcurrency:  getIntEnv(envFanoutConcurrency, defaultFanoutConcurrency),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

// LoadDatabase reads only the application database settings.
func LoadDatabase() (*DatabaseConfig, error) {
	db := loadDatabase()
	if db.Password == "" {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, fmt.Errorf(errDBPasswordRequiredFmt))
	}
	return db, nil
}

func loadDatabase() *DatabaseConfig {
	return &DatabaseConfig{
		Host:     getEnv(envDBHost, defaultDBHost),
		Port:     getIntEnv(envDBPort, defaultDBPort),
		Database: getEnv(envDBName, defaultDBName),
		User:     getEnv(envDBUser, defaultDBUser),
		Password: os.Getenv(envDBPassword),
		SSLMode:  getEnv(envDBSSLMode, defaultDBSSLMode),
		MaxConns: getIntEnv(envDBMaxConns, defaultDBMaxConns),
		MinConns: getIntEnv(envDBMinConns, defaultDBMinConns),
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	if c.Database.Password == "" {
		return fmt.Errorf(errDBPasswordRequiredFmt)
	}

	if (c.ServiceDatabase.User == "") != (c.ServiceDatabase.Password == "") {
		return fmt.Errorf(errServiceDBPartialFmt)
	}

	if c.Gateway.BaseURL == "" {
		return fmt.Errorf(errGatewayURLRequiredFmt)
	}

	if !isHTTPURL(c.Gateway.BaseURL) {
		return errors.New(messages.gatewayURLInvalid(c.Gateway.BaseURL))
	}

	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf(errGatewayTimeoutFmt)
	}

	if c.Gateway.Currency != "" && !isCurrencyCode(c.Gateway.Currency) {
		return errors.New(messages.currencyInvalid(c.Gateway.Currency))
	}

	if c.AWS.Region == "" {
		return fmt.Errorf(errRegionRequiredFmt)
	}

	if c.App.FanoutConcurrency <= 0 {
		return fmt.Errorf(errFanoutConcurrencyFmt)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf(errJWTSecretRequiredFmt)
	}

	if len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf(errJWTSecretMinLengthFmt, minJWTSecretLength)
	}

	if !hasMinimumEntropy(c.JWT.Secret) {
		return fmt.Errorf(errJWTSecretLowEntropyFmt)
	}

	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func hasMinimumEntropy(secret string) bool {
	if len(secret) < minJWTSecretLength {
		return false
	}

	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}

	uniqueChars := len(charCounts)
	if uniqueChars < minUniqueCharsInSecret {
		return false
	}

	repeatedChars := 0
	for _, count := range charCounts {
		if count > len(secret)/minRepeatedCharThreshold {
			repeatedChars++
		}
	}

	return repeatedChars <= maxRepeatedChars
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(messages.requiredEnvNotSet(key))
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
