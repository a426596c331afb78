package config

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	App      AppConfig      `mapstructure:"app"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Ads      AdsConfig      `mapstructure:"ads"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int64  `mapstructure:"expire"` // 小时
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`

	// 粉丝数达到该阈值自动加 V（一次性，不自动取消）
	VerifyFollowerThreshold int64 `mapstructure:"verify_follower_threshold"`
	// 开通专业模式所需粉丝数
	ProfessionalFollowerThreshold int64 `mapstructure:"professional_follower_threshold"`
	// 故事有效期（小时）
	StoryTTLHours int `mapstructure:"story_ttl_hours"`
}

// PaymentConfig 移动钱包（bKash/Nagad）网关配置
type PaymentConfig struct {
	Bkash WalletGatewayConfig `mapstructure:"bkash"`
	Nagad WalletGatewayConfig `mapstructure:"nagad"`
}

type WalletGatewayConfig struct {
	MerchantPhone  string `mapstructure:"merchant_phone"`
	CallbackSecret string `mapstructure:"callback_secret"` // 回调 HMAC 签名密钥
}

type AdsConfig struct {
	CostPerClick    float64 `mapstructure:"cost_per_click"`
	FreeTrialDays   int     `mapstructure:"free_trial_days"`
	FreeTrialBudget float64 `mapstructure:"free_trial_budget"`
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	if c.JWT.Secret == "" || c.JWT.Secret == "your_super_secret_key" {
		return errors.New("please set a secure JWT secret in production")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}

	if c.Redis.Addr == "" {
		return errors.New("redis address is required")
	}

	if c.App.VerifyFollowerThreshold <= 0 {
		return errors.New("verify follower threshold must be positive")
	}

	return nil
}

// LoadConfig 加载配置
func LoadConfig() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	configName := "config"
	if env != "" && env != "dev" {
		configName = "config." + env
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("jwt.expire", 24)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("app.env", "dev")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.verify_follower_threshold", 1000)
	viper.SetDefault("app.professional_follower_threshold", 1000)
	viper.SetDefault("app.story_ttl_hours", 24)
	viper.SetDefault("ads.cost_per_click", 0.5)
	viper.SetDefault("ads.free_trial_days", 3)
	viper.SetDefault("ads.free_trial_budget", 100)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	// 手动覆盖，以防 viper 无法正确解析复杂结构或环境变量
	if host := os.Getenv("DB_HOST"); host != "" {
		GlobalConfig.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		GlobalConfig.Redis.Addr = redisAddr
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		GlobalConfig.JWT.Secret = jwtSecret
	}

	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
