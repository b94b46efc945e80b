package common

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
)

// Config holds all application configuration
type Config struct {
	API          APIConfig
	Store        StoreConfig
	Platform     PlatformConfig
	Orchestrator OrchestratorConfig
	Server       ServerConfig
	Logging      LoggingConfig
}

// APIConfig holds the document/payment backend configuration
type APIConfig struct {
	DocumentBaseURL string
	PaymentBaseURL  string
	AuthURL         string
	ClientID        string
	ClientSecret    string
	Timeout         time.Duration
	UserAgent       string
}

// StoreConfig holds the key-value / history store configuration.
// DSN is either a sqlite "file:" DSN or a postgres:// URL.
type StoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// PlatformConfig describes the host the flow runs for.
type PlatformConfig struct {
	Name             constants.Platform
	InstalledSchemes []string
	OpenCommand      string
}

// OrchestratorConfig holds payment flow tuning
type OrchestratorConfig struct {
	OnboardingLimit   int
	ArtifactDir       string
	FeedbackWorkers   int
	FeedbackQueueSize int
	FeedbackTimeout   time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string // text|json
}

const envPrefix = "PAYMENTS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.document_base_url", "https://pay-api.gini.net")
	v.SetDefault("api.payment_base_url", "https://health-api.gini.net")
	v.SetDefault("api.auth_url", "https://user.gini.net")
	v.SetDefault("api.client_id", "")
	v.SetDefault("api.client_secret", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.user_agent", "payment-orchestrator")

	v.SetDefault("store.dsn", "file:payments.db?_pragma=busy_timeout(5000)")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("store.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("store.dial_timeout", 3*time.Second)

	v.SetDefault("platform.name", string(constants.PlatformIOS))
	v.SetDefault("platform.installed_schemes", []string{})
	v.SetDefault("platform.open_command", "")

	v.SetDefault("orchestrator.onboarding_limit", constants.OnboardingShareLimit)
	v.SetDefault("orchestrator.artifact_dir", "./tmp")
	v.SetDefault("orchestrator.feedback_workers", 2)
	v.SetDefault("orchestrator.feedback_queue_size", 64)
	v.SetDefault("orchestrator.feedback_timeout", 30*time.Second)

	v.SetDefault("server.grpc_addr", ":8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// LoadConfig loads configuration from defaults, an optional YAML file and
// PAYMENTS_* environment variables (later sources win).
func LoadConfig(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	return fromViper(v), nil
}

// WatchConfig re-reads the YAML file at path whenever it changes and hands
// the new configuration to onChange. Revisions that fail Validate are logged
// and skipped.
func WatchConfig(path string, logger *slog.Logger, onChange func(*Config)) error {
	if path == "" {
		return NewAppError("CONFIG_ERROR", "watching requires a config file", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	v, err := newViper(path)
	if err != nil {
		return err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg := fromViper(v)
		if err := cfg.Validate(); err != nil {
			logger.Warn("config.reload.invalid", "file", e.Name, "error", err)
			return
		}
		logger.Info("config.reload", "file", e.Name, "op", e.Op.String())
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "config file not readable", err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		API: APIConfig{
			DocumentBaseURL: v.GetString("api.document_base_url"),
			PaymentBaseURL:  v.GetString("api.payment_base_url"),
			AuthURL:         v.GetString("api.auth_url"),
			ClientID:        v.GetString("api.client_id"),
			ClientSecret:    v.GetString("api.client_secret"),
			Timeout:         v.GetDuration("api.timeout"),
			UserAgent:       v.GetString("api.user_agent"),
		},
		Store: StoreConfig{
			DSN:             v.GetString("store.dsn"),
			MaxConns:        v.GetInt32("store.max_conns"),
			MinConns:        v.GetInt32("store.min_conns"),
			MaxConnLifetime: v.GetDuration("store.max_conn_lifetime"),
			MaxConnIdleTime: v.GetDuration("store.max_conn_idle_time"),
			DialTimeout:     v.GetDuration("store.dial_timeout"),
		},
		Platform: PlatformConfig{
			Name:             constants.Platform(strings.ToLower(v.GetString("platform.name"))),
			InstalledSchemes: splitList(v.GetStringSlice("platform.installed_schemes")),
			OpenCommand:      v.GetString("platform.open_command"),
		},
		Orchestrator: OrchestratorConfig{
			OnboardingLimit:   v.GetInt("orchestrator.onboarding_limit"),
			ArtifactDir:       v.GetString("orchestrator.artifact_dir"),
			FeedbackWorkers:   v.GetInt("orchestrator.feedback_workers"),
			FeedbackQueueSize: v.GetInt("orchestrator.feedback_queue_size"),
			FeedbackTimeout:   v.GetDuration("orchestrator.feedback_timeout"),
		},
		Server: ServerConfig{
			GRPCAddr: v.GetString("server.grpc_addr"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	var errs []error
	if c.API.PaymentBaseURL == "" {
		errs = append(errs, errors.New("api.payment_base_url is required"))
	}
	if c.API.DocumentBaseURL == "" {
		errs = append(errs, errors.New("api.document_base_url is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout))
	}
	if c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn is required"))
	}
	switch c.Platform.Name {
	case constants.PlatformIOS, constants.PlatformAndroid:
	default:
		errs = append(errs, fmt.Errorf("platform.name %q is not supported", c.Platform.Name))
	}
	if c.Orchestrator.OnboardingLimit < 0 {
		errs = append(errs, errors.New("orchestrator.onboarding_limit must not be negative"))
	}
	if len(errs) > 0 {
		return NewAppError("CONFIG_ERROR", "invalid configuration", errors.Join(errs...))
	}
	return nil
}
