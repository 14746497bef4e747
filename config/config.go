package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/qs3c/laundry_go_server/internal/loyalty"
	"github.com/qs3c/laundry_go_server/internal/pricing"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Tariff   TariffConfig   `mapstructure:"tariff"`
	Loyalty  LoyaltyConfig  `mapstructure:"loyalty"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, postgres, sqlite
	DSN          string `mapstructure:"dsn"`    // 非空时直接使用；sqlite 为文件路径
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type QueueConfig struct {
	NotificationQueue   string `mapstructure:"notification_queue"`
	NotificationChannel string `mapstructure:"notification_channel"`
	MaxWorkers          int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"` // debug, info, warn, error
	Development bool   `mapstructure:"development"`
}

type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"` // 并发冲突时事务最多执行次数
}

// TariffConfig 价目表。金额为最小货币单位的整数，重量和费率使用字符串避免浮点误差
type TariffConfig struct {
	Price20kgRun             int64  `mapstructure:"price_20kg_run"`
	Price6kgRun              int64  `mapstructure:"price_6kg_run"`
	PerKilogramRate          int64  `mapstructure:"per_kilogram_rate"`
	MinimumBillableKg        string `mapstructure:"minimum_billable_kg"`
	DeliveryFee              int64  `mapstructure:"delivery_fee"`
	DryingRatePerKg          int64  `mapstructure:"drying_rate_per_kg"`
	IroningRatePerKg         int64  `mapstructure:"ironing_rate_per_kg"`
	ExpressFee               int64  `mapstructure:"express_fee"`
	StudentDiscountRate      string `mapstructure:"student_discount_rate"`
	OpeningPromoDiscountRate string `mapstructure:"opening_promo_discount_rate"`
	PremiumMonthlyQuotaKg    string `mapstructure:"premium_monthly_quota_kg"`
}

type LoyaltyConfig struct {
	StandardRewardMilestoneWashes int    `mapstructure:"standard_reward_milestone_washes"`
	DetailRewardMilestoneKg       string `mapstructure:"detail_reward_milestone_kg"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("queue.notification_queue", "laundry:notifications")
	v.SetDefault("queue.notification_channel", "laundry:events")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("retry.max_attempts", 3)

	t := pricing.DefaultTariff()
	v.SetDefault("tariff.price_20kg_run", t.Price20kgRun)
	v.SetDefault("tariff.price_6kg_run", t.Price6kgRun)
	v.SetDefault("tariff.per_kilogram_rate", t.PerKilogramRate)
	v.SetDefault("tariff.minimum_billable_kg", t.MinimumBillableKg.String())
	v.SetDefault("tariff.delivery_fee", t.DeliveryFee)
	v.SetDefault("tariff.drying_rate_per_kg", t.DryingRatePerKg)
	v.SetDefault("tariff.ironing_rate_per_kg", t.IroningRatePerKg)
	v.SetDefault("tariff.express_fee", t.ExpressFee)
	v.SetDefault("tariff.student_discount_rate", t.StudentDiscountRate.String())
	v.SetDefault("tariff.opening_promo_discount_rate", t.OpeningPromoDiscountRate.String())
	v.SetDefault("tariff.premium_monthly_quota_kg", t.PremiumMonthlyQuotaKg.String())

	r := loyalty.DefaultRules()
	v.SetDefault("loyalty.standard_reward_milestone_washes", r.StandardMilestoneWashes)
	v.SetDefault("loyalty.detail_reward_milestone_kg", r.DetailMilestoneKg.String())
}

// ToTariff 转换为定价引擎使用的不可变价目表并校验
func (c TariffConfig) ToTariff() (pricing.Tariff, error) {
	var (
		t   pricing.Tariff
		err error
	)
	t.Price20kgRun = c.Price20kgRun
	t.Price6kgRun = c.Price6kgRun
	t.PerKilogramRate = c.PerKilogramRate
	t.DeliveryFee = c.DeliveryFee
	t.DryingRatePerKg = c.DryingRatePerKg
	t.IroningRatePerKg = c.IroningRatePerKg
	t.ExpressFee = c.ExpressFee

	if t.MinimumBillableKg, err = parseDecimal("tariff.minimum_billable_kg", c.MinimumBillableKg); err != nil {
		return t, err
	}
	if t.StudentDiscountRate, err = parseDecimal("tariff.student_discount_rate", c.StudentDiscountRate); err != nil {
		return t, err
	}
	if t.OpeningPromoDiscountRate, err = parseDecimal("tariff.opening_promo_discount_rate", c.OpeningPromoDiscountRate); err != nil {
		return t, err
	}
	if t.PremiumMonthlyQuotaKg, err = parseDecimal("tariff.premium_monthly_quota_kg", c.PremiumMonthlyQuotaKg); err != nil {
		return t, err
	}

	return t, t.Validate()
}

// ToRules 转换为积分规则并校验
func (c LoyaltyConfig) ToRules() (loyalty.Rules, error) {
	milestoneKg, err := parseDecimal("loyalty.detail_reward_milestone_kg", c.DetailRewardMilestoneKg)
	if err != nil {
		return loyalty.Rules{}, err
	}
	r := loyalty.Rules{
		StandardMilestoneWashes: c.StandardRewardMilestoneWashes,
		DetailMilestoneKg:       milestoneKg,
	}
	return r, r.Validate()
}

func parseDecimal(key, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("config %s: %w", key, err)
	}
	return d, nil
}
