package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Reports  ReportsConfig
	Agent    AgentConfig
	Sync     SyncConfig
	Mimir    MimirConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdleConns   int
	AutoMigrate    bool
}

type AuthConfig struct {
	JWTSecret string
}

// ReportsConfig bounds the report assembly collectors.
type ReportsConfig struct {
	CollectorTimeout time.Duration
	PerformanceLimit int
	SecurityLimit    int
	UpdateLimit      int
}

type AgentConfig struct {
	APIKey    string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

type SyncConfig struct {
	WorkerCount int
	Interval    time.Duration
	StaleAfter  time.Duration
	QueueSize   int
	Resolver    string
}

type MimirConfig struct {
	URL           string
	TenantHeader  string
	Tenant        string
	BatchSize     int
	FlushInterval time.Duration
	AuthToken     string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

func Load() (*Config, error) {
	// .env is optional; real environment variables still win
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("WPM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if key := os.Getenv("AGENT_API_KEY"); key != "" {
		cfg.Agent.APIKey = key
	}
	if url := os.Getenv("MIMIR_URL"); url != "" {
		cfg.Mimir.URL = url
	}
	if token := os.Getenv("MIMIR_AUTH_TOKEN"); token != "" {
		cfg.Mimir.AuthToken = token
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwtsecret is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.url", "")
	v.SetDefault("database.maxconnections", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.automigrate", true)
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("reports.collectortimeout", "5s")
	v.SetDefault("reports.performancelimit", 10)
	v.SetDefault("reports.securitylimit", 10)
	v.SetDefault("reports.updatelimit", 20)
	v.SetDefault("agent.apikey", "")
	v.SetDefault("agent.timeout", "15s")
	v.SetDefault("agent.ratelimit", 5.0)
	v.SetDefault("agent.burst", 5)
	v.SetDefault("sync.workercount", 4)
	v.SetDefault("sync.interval", "1m")
	v.SetDefault("sync.staleafter", "1h")
	v.SetDefault("sync.queuesize", 500)
	v.SetDefault("sync.resolver", "1.1.1.1:53")
	v.SetDefault("mimir.url", "")
	v.SetDefault("mimir.authtoken", "")
	v.SetDefault("mimir.tenantheader", "X-Scope-OrgID")
	v.SetDefault("mimir.tenant", "wp-maintenance")
	v.SetDefault("mimir.batchsize", 1000)
	v.SetDefault("mimir.flushinterval", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.maxsize", 100)
	v.SetDefault("log.maxbackups", 5)
	v.SetDefault("log.maxage", 30)
}
