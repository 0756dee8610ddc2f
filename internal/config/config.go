// Package config provides configuration structures and validation for the engine.
// It handles environment-based configuration for the HTTP gateway, the event dispatcher
// and the operator CLI, including the verification, fee and gate-chain policies.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

const defaultJWTSecret = "dev-only-jwt-secret"

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during startup.
type Config struct {
	Application  ApplicationConfig
	Logging      LoggingConfig
	Server       ServerConfig
	Auth         AuthConfig
	Kafka        KafkaConfig
	Postgres     PostgresConfig
	MongoDB      MongoDBConfig
	Redis        RedisConfig
	Outbox       OutboxConfig
	WorkerPool   WorkerPoolConfig
	Notify       NotifyConfig
	Verification VerificationConfig
	Fees         FeesConfig
	Gates        GatesConfig
	Reference    ReferenceConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// IsProduction reports whether the engine runs in the production environment
func (a ApplicationConfig) IsProduction() bool {
	return a.Env == "production"
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// AuthConfig contains bearer-token settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	EventTopic        string
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// BrokerList splits the comma separated KAFKA_BROKERS value
func (k KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains the rate limiter store configuration.
// When disabled the limiter keeps counters in process memory.
type RedisConfig struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
	Retention        time.Duration // PROCESSED rows older than this are purged; 0 keeps them forever
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int
}

// NotifyConfig controls the dispatcher's notification sink
type NotifyConfig struct {
	RevealOTPCodes bool // log OTP codes in clear text; refused outside development
}

// VerificationConfig holds attempt ceilings, cool-downs and one-time code settings
type VerificationConfig struct {
	MaxAttempts       int
	Cooldown          time.Duration // knowledge code and OTP gates
	PINCooldown       time.Duration
	OTPLength         int
	OTPExpiry         time.Duration
	OTPPurpose        string
	OTPMaxAttempts    int
	OTPIssueInterval  time.Duration // minimum spacing between two issued codes
	OTPIssueWindow    time.Duration
	OTPIssuePerWindow int
}

// FeePolicy is max(Minimum, floor(amount * Rate)) in minor units
type FeePolicy struct {
	Rate    decimal.Decimal
	Minimum int64
}

// FeesConfig maps each transfer type to its fee policy
type FeesConfig map[shared.TransferType]FeePolicy

// GatesConfig maps each transfer type to its ordered gate chain
type GatesConfig map[shared.TransferType][]shared.Gate

// ReferenceConfig controls transfer reference generation
type ReferenceConfig struct {
	Prefix      string
	MaxAttempts int
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Auth config
	if c.Auth.JWTSecret == "" {
		validationErrors = append(validationErrors, "AUTH_JWT_SECRET is required")
	} else if c.Application.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		validationErrors = append(validationErrors, "AUTH_JWT_SECRET must be overridden in production")
	}
	if c.Auth.TokenTTL <= 0 {
		validationErrors = append(validationErrors, "AUTH_TOKEN_TTL must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.BrokerList()) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.EventTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_EVENT_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Enabled && c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required when REDIS_ENABLED is true")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}
	if c.Outbox.Retention < 0 {
		validationErrors = append(validationErrors, "OUTBOX_RETENTION cannot be negative")
	}

	if c.Notify.RevealOTPCodes && c.Application.Env != "development" {
		validationErrors = append(validationErrors, "NOTIFY_REVEAL_OTP_CODES is only allowed in development")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	validationErrors = append(validationErrors, c.Verification.validate()...)
	validationErrors = append(validationErrors, c.Fees.validate()...)
	validationErrors = append(validationErrors, c.Gates.validate()...)

	// Validate Reference config
	if c.Reference.Prefix == "" {
		validationErrors = append(validationErrors, "REFERENCE_PREFIX is required")
	}
	if c.Reference.MaxAttempts <= 0 {
		validationErrors = append(validationErrors, "REFERENCE_MAX_ATTEMPTS must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}

func (v VerificationConfig) validate() []string {
	var errs []string
	if v.MaxAttempts <= 0 {
		errs = append(errs, "VERIFY_MAX_ATTEMPTS must be greater than 0")
	}
	if v.Cooldown <= 0 {
		errs = append(errs, "VERIFY_COOLDOWN must be greater than 0")
	}
	if v.PINCooldown <= 0 {
		errs = append(errs, "VERIFY_PIN_COOLDOWN must be greater than 0")
	}
	if v.OTPLength < 4 || v.OTPLength > 10 {
		errs = append(errs, "OTP_LENGTH must be between 4 and 10")
	}
	if v.OTPExpiry <= 0 {
		errs = append(errs, "OTP_EXPIRY must be greater than 0")
	}
	if v.OTPPurpose == "" {
		errs = append(errs, "OTP_PURPOSE is required")
	}
	if v.OTPMaxAttempts <= 0 {
		errs = append(errs, "OTP_MAX_ATTEMPTS must be greater than 0")
	}
	if v.OTPIssueInterval <= 0 {
		errs = append(errs, "OTP_ISSUE_INTERVAL must be greater than 0")
	}
	if v.OTPIssueWindow <= 0 {
		errs = append(errs, "OTP_ISSUE_WINDOW must be greater than 0")
	}
	if v.OTPIssuePerWindow <= 0 {
		errs = append(errs, "OTP_ISSUE_PER_WINDOW must be greater than 0")
	}
	return errs
}

func (f FeesConfig) validate() []string {
	var errs []string
	for _, t := range shared.TransferTypes {
		policy, ok := f[t]
		if !ok {
			errs = append(errs, fmt.Sprintf("fee policy for %s is required", t))
			continue
		}
		if policy.Rate.IsNegative() || policy.Rate.GreaterThan(decimal.NewFromInt(1)) {
			errs = append(errs, fmt.Sprintf("FEE_%s_RATE must be between 0 and 1", t))
		}
		if policy.Minimum < 0 {
			errs = append(errs, fmt.Sprintf("FEE_%s_MINIMUM must not be negative", t))
		}
	}
	return errs
}

func (g GatesConfig) validate() []string {
	var errs []string
	for _, t := range shared.TransferTypes {
		chain := g[t]
		if len(chain) == 0 {
			errs = append(errs, fmt.Sprintf("GATES_%s must name at least one gate", t))
			continue
		}
		seen := make(map[shared.Gate]bool, len(chain))
		for _, gate := range chain {
			if !gate.IsValid() {
				errs = append(errs, fmt.Sprintf("GATES_%s contains unknown gate %q", t, gate))
			} else if seen[gate] {
				errs = append(errs, fmt.Sprintf("GATES_%s lists gate %s twice", t, gate))
			}
			seen[gate] = true
		}
	}
	return errs
}
