package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultEnv        = "development"
	envKey            = "CAMPAIGN_CONSOLE_ENV"
	envPrefix         = "CAMPAIGN_CONSOLE"
	defaultConfigName = "default"
	configType        = "yaml"
)

// 删除用户时对其名下数据的处理策略。
const (
	CleanupNone    = "none"
	CleanupProfile = "profile"
	CleanupCascade = "cascade"
)

// Config 聚合应用所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 描述应用级别的元信息。
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// ServerConfig 负责 HTTP 服务相关配置。
type ServerConfig struct {
	Host            string                `mapstructure:"host"`
	Port            int                   `mapstructure:"port"`
	ReadTimeout     time.Duration         `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration         `mapstructure:"writeTimeout"`
	ShutdownTimeout time.Duration         `mapstructure:"shutdownTimeout"`
	MaxRequestBody  int64                 `mapstructure:"maxRequestBody"`
	CORS            CORSConfig            `mapstructure:"cors"`
	SecurityHeaders SecurityHeadersConfig `mapstructure:"securityHeaders"`
}

// CORSConfig 控制跨域访问白名单及相关选项。
type CORSConfig struct {
	AllowOrigins     []string `mapstructure:"allowOrigins"`
	AllowHeaders     []string `mapstructure:"allowHeaders"`
	AllowCredentials bool     `mapstructure:"allowCredentials"`
}

// SecurityHeadersConfig 控制通用安全响应头的行为。
type SecurityHeadersConfig struct {
	FrameOptions              string `mapstructure:"frameOptions"`
	ContentTypeNosniff        bool   `mapstructure:"contentTypeNosniff"`
	ReferrerPolicy            string `mapstructure:"referrerPolicy"`
	ContentSecurityPolicy     string `mapstructure:"contentSecurityPolicy"`
	CrossOriginResourcePolicy string `mapstructure:"crossOriginResourcePolicy"`
	StrictTransportSecurity   string `mapstructure:"strictTransportSecurity"`
}

// DatabaseConfig 定义数据库连接选项，兼容 SQLite 与 PostgreSQL。
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpen         int           `mapstructure:"maxOpen"`
	MaxIdle         int           `mapstructure:"maxIdle"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	AutoMigrate     bool          `mapstructure:"autoMigrate"`
}

// RedisConfig 描述 Redis 客户端所需的连接参数；Addr 为空时不启用。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"poolSize"`
}

// AuthConfig 管理 JWT 签发参数。
type AuthConfig struct {
	AccessTokenSecret  string        `mapstructure:"accessTokenSecret"`
	RefreshTokenSecret string        `mapstructure:"refreshTokenSecret"`
	AccessTokenTTL     time.Duration `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL    time.Duration `mapstructure:"refreshTokenTTL"`
	Issuer             string        `mapstructure:"issuer"`
}

// RateLimitConfig 控制函数接口的限流，Rate 使用 limiter 的格式，例如 "120-M"。
type RateLimitConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Rate      string `mapstructure:"rate"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

// ProviderConfig 描述模拟语音服务商的计费与通话参数。
type ProviderConfig struct {
	Name           string  `mapstructure:"name"`
	APIBase        string  `mapstructure:"apiBase"`
	DefaultAPIKey  string  `mapstructure:"defaultAPIKey"`
	CostPerSecond  float64 `mapstructure:"costPerSecond"`
	FailedCallCost float64 `mapstructure:"failedCallCost"`
	MinDuration    int     `mapstructure:"minDuration"`
	MaxDuration    int     `mapstructure:"maxDuration"`
}

// AdminConfig 管理后台相关策略。
type AdminConfig struct {
	DeleteUserCleanup string `mapstructure:"deleteUserCleanup"`
	SystemLogLimit    int    `mapstructure:"systemLogLimit"`
}

// SeedConfig 控制启动时的初始化数据。
type SeedConfig struct {
	Admin SeedAdminConfig `mapstructure:"admin"`
}

// SeedAdminConfig 定义初始管理员账号。
type SeedAdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	FullName string `mapstructure:"fullName"`
	Role     string `mapstructure:"role"`
}

// LoggingConfig 控制日志输出级别等行为。
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从给定路径加载配置；若 env 为空会自动读取环境变量或回退到默认值。
func Load(configDir string, env string) (*Config, error) {
	chosenEnv := determineEnv(env)

	v := viper.New()
	v.SetConfigType(configType)
	v.SetConfigName(defaultConfigName)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read base config: %w", err)
	}

	if chosenEnv != defaultConfigName {
		envConfig := viper.New()
		envConfig.SetConfigType(configType)
		envConfig.SetConfigName(chosenEnv)
		envConfig.AddConfigPath(configDir)

		if err := envConfig.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(envConfig.AllSettings()); err != nil {
				return nil, fmt.Errorf("merge %s config: %w", chosenEnv, err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg, chosenEnv)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// determineEnv 统一处理环境变量回退逻辑。
func determineEnv(env string) string {
	if env != "" {
		return env
	}
	if fromEnv := os.Getenv(envKey); fromEnv != "" {
		return fromEnv
	}
	return defaultEnv
}

// applyDefaults 补齐缺失字段，避免配置不完整导致的崩溃。
func applyDefaults(cfg *Config, env string) {
	if cfg.App.Name == "" {
		cfg.App.Name = "campaign-console"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = env
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxRequestBody <= 0 {
		cfg.Server.MaxRequestBody = 1024 * 1024
	}
	if len(cfg.Server.CORS.AllowOrigins) == 0 {
		cfg.Server.CORS.AllowOrigins = []string{"*"}
	}
	if len(cfg.Server.CORS.AllowHeaders) == 0 {
		cfg.Server.CORS.AllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}
	}
	if cfg.Server.SecurityHeaders.FrameOptions == "" {
		cfg.Server.SecurityHeaders.FrameOptions = "DENY"
	}
	if !cfg.Server.SecurityHeaders.ContentTypeNosniff {
		cfg.Server.SecurityHeaders.ContentTypeNosniff = true
	}
	if cfg.Server.SecurityHeaders.ReferrerPolicy == "" {
		cfg.Server.SecurityHeaders.ReferrerPolicy = "no-referrer"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = filepath.ToSlash("file:./data/dev.db?_time_format=sqlite")
	}
	if cfg.Database.MaxOpen == 0 {
		cfg.Database.MaxOpen = 10
	}
	if cfg.Database.MaxIdle == 0 {
		cfg.Database.MaxIdle = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Auth.AccessTokenTTL == 0 {
		cfg.Auth.AccessTokenTTL = time.Hour
	}
	if cfg.Auth.RefreshTokenTTL == 0 {
		cfg.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = cfg.App.Name
	}
	if cfg.RateLimit.Rate == "" {
		cfg.RateLimit.Rate = "120-M"
	}
	if cfg.RateLimit.KeyPrefix == "" {
		cfg.RateLimit.KeyPrefix = "campaign-console:ratelimit"
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "simulated"
	}
	if cfg.Provider.APIBase == "" {
		cfg.Provider.APIBase = "https://api.millis.ai/v1"
	}
	if cfg.Provider.DefaultAPIKey == "" {
		cfg.Provider.DefaultAPIKey = "demo_key_123"
	}
	if cfg.Provider.CostPerSecond == 0 {
		cfg.Provider.CostPerSecond = 0.002
	}
	if cfg.Provider.FailedCallCost == 0 {
		cfg.Provider.FailedCallCost = 0.05
	}
	if cfg.Provider.MinDuration == 0 {
		cfg.Provider.MinDuration = 30
	}
	if cfg.Provider.MaxDuration == 0 {
		cfg.Provider.MaxDuration = 330
	}
	if cfg.Admin.DeleteUserCleanup == "" {
		cfg.Admin.DeleteUserCleanup = CleanupCascade
	}
	if cfg.Admin.SystemLogLimit <= 0 {
		cfg.Admin.SystemLogLimit = 50
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func validateConfig(cfg *Config) error {
	if err := validateSecret("auth.accessTokenSecret", cfg.Auth.AccessTokenSecret); err != nil {
		return err
	}
	if err := validateSecret("auth.refreshTokenSecret", cfg.Auth.RefreshTokenSecret); err != nil {
		return err
	}
	if err := validateCORSConfig(cfg.Server.CORS, cfg.App.Env); err != nil {
		return err
	}
	if err := validateSecurityHeaders(cfg.Server.SecurityHeaders); err != nil {
		return err
	}
	if err := validateProvider(cfg.Provider); err != nil {
		return err
	}
	switch cfg.Admin.DeleteUserCleanup {
	case CleanupNone, CleanupProfile, CleanupCascade:
	default:
		return fmt.Errorf("config admin.deleteUserCleanup must be one of none, profile, cascade")
	}
	return nil
}

func validateSecret(field, secret string) error {
	clean := strings.TrimSpace(secret)
	if len(clean) < 32 {
		return fmt.Errorf("config %s must be at least 32 characters", field)
	}
	if strings.Contains(strings.ToLower(clean), "change-me") {
		return fmt.Errorf("config %s must not use default placeholder", field)
	}
	return nil
}

func validateCORSConfig(corsCfg CORSConfig, env string) error {
	for _, origin := range corsCfg.AllowOrigins {
		clean := strings.TrimSpace(origin)
		if clean == "" {
			return fmt.Errorf("config server.cors.allowOrigins must not contain empty entries")
		}
		if env == "production" && clean == "*" && corsCfg.AllowCredentials {
			return fmt.Errorf("config server.cors.allowOrigins must not combine '*' with allowCredentials in production")
		}
	}
	return nil
}

func validateSecurityHeaders(secCfg SecurityHeadersConfig) error {
	frame := strings.TrimSpace(strings.ToUpper(secCfg.FrameOptions))
	if frame != "" && frame != "DENY" && frame != "SAMEORIGIN" {
		return fmt.Errorf("config server.securityHeaders.frameOptions must be DENY or SAMEORIGIN when set")
	}
	return nil
}

func validateProvider(p ProviderConfig) error {
	if p.CostPerSecond < 0 || p.FailedCallCost < 0 {
		return fmt.Errorf("config provider costs must not be negative")
	}
	if p.MinDuration < 0 || p.MaxDuration <= p.MinDuration {
		return fmt.Errorf("config provider.maxDuration must be greater than provider.minDuration")
	}
	return nil
}

// Addr 返回 HTTP 服务监听地址。
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
