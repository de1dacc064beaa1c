// Package config 提供配置管理
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/replacement/pkg/errors"
	"github.com/paiban/replacement/pkg/model"
	"github.com/paiban/replacement/pkg/scoring"
)

// Config 应用配置
type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Compliance ComplianceConfig `yaml:"compliance"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name" validate:"required"`
	Env       string `yaml:"env" validate:"oneof=development production test"`
	Port      int    `yaml:"port" validate:"min=1,max=65535"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn warning error fatal disabled off"`
	LogFormat string `yaml:"log_format" validate:"oneof=json console"`
	Timezone  string `yaml:"timezone" validate:"required"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver             string        `yaml:"driver" validate:"oneof=postgres sqlite"`
	Host               string        `yaml:"host" validate:"required_if=Driver postgres"`
	Port               int           `yaml:"port"`
	Name               string        `yaml:"name" validate:"required_if=Driver postgres"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	SSLMode            string        `yaml:"ssl_mode"`
	Path               string        `yaml:"path" validate:"required_if=Driver sqlite"`
	MaxOpenConns       int           `yaml:"max_open_conns" validate:"min=1"`
	MaxIdleConns       int           `yaml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime    time.Duration `yaml:"conn_max_lifetime"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite", c.Path)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// SchedulerConfig 周期任务配置
type SchedulerConfig struct {
	Enabled       bool          `yaml:"enabled"`
	DailyRule     string        `yaml:"daily_rule" validate:"required"`
	WeeklyRule    string        `yaml:"weekly_rule" validate:"required"`
	Workers       int           `yaml:"workers" validate:"min=1,max=256"`
	RunTimeout    time.Duration `yaml:"run_timeout" validate:"gt=0"`
	EligibleRoles []string      `yaml:"eligible_roles" validate:"min=1,dive,oneof=ADMIN DISPATCHER SUPERVISOR EMPLOYEE"`
}

// Roles 返回参与排班的角色
func (c *SchedulerConfig) Roles() []model.Role {
	roles := make([]model.Role, len(c.EligibleRoles))
	for i, r := range c.EligibleRoles {
		roles[i] = model.Role(r)
	}
	return roles
}

// RankingConfig 候选人排序配置
type RankingConfig struct {
	Timeout            time.Duration      `yaml:"timeout" validate:"gt=0"`
	Workers            int                `yaml:"workers" validate:"min=1,max=256"`
	DefaultTargetHours float64            `yaml:"default_target_hours" validate:"gt=0"`
	SnapshotMaxAge     time.Duration      `yaml:"snapshot_max_age" validate:"gte=0"`
	Tiers              scoring.Thresholds `yaml:"tiers"`
}

// ComplianceConfig 合规检查队列配置
type ComplianceConfig struct {
	Workers      int           `yaml:"workers" validate:"min=1,max=64"`
	QueueSize    int           `yaml:"queue_size" validate:"min=1"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gte=0"`
	Lookback     time.Duration `yaml:"lookback" validate:"gt=0"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"startswith=/"`
}

var validate = validator.New()

// Load 加载配置：.env 文件、环境变量、CONFIG_FILE 指定的 YAML 文件，依次覆盖
func Load() (*Config, error) {
	// .env 文件可选
	_ = godotenv.Load()

	cfg := FromEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv 从环境变量构建配置（未设置时使用默认值）
func FromEnv() *Config {
	env := getEnv("APP_ENV", "development")

	return &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "replacement-engine"),
			Env:       env,
			Port:      getEnvInt("APP_PORT", 7012),
			LogLevel:  getEnv("APP_LOG_LEVEL", "info"),
			LogFormat: getEnv("APP_LOG_FORMAT", "console"),
			Timezone:  getEnv("APP_TIMEZONE", "Europe/Berlin"),
		},
		Database: DatabaseConfig{
			Driver:             getEnv("DB_DRIVER", "postgres"),
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			Name:               getEnv("DB_NAME", "paiban"),
			User:               getEnv("DB_USER", "paiban"),
			Password:           getEnv("DB_PASSWORD", "paiban123"),
			SSLMode:            getEnv("DB_SSL_MODE", "disable"),
			Path:               getEnv("DB_PATH", "replacement.db"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:    getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			SlowQueryThreshold: getEnvDuration("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		},
		Scheduler: SchedulerConfig{
			Enabled:       getEnvBool("SCHEDULER_ENABLED", true) && env != "test",
			DailyRule:     getEnv("SCHEDULER_DAILY_RULE", "FREQ=DAILY;BYHOUR=1;BYMINUTE=0;BYSECOND=0"),
			WeeklyRule:    getEnv("SCHEDULER_WEEKLY_RULE", "FREQ=WEEKLY;BYDAY=MO;BYHOUR=2;BYMINUTE=0;BYSECOND=0"),
			Workers:       getEnvInt("SCHEDULER_WORKERS", 8),
			RunTimeout:    getEnvDuration("SCHEDULER_RUN_TIMEOUT", 30*time.Minute),
			EligibleRoles: getEnvList("SCHEDULER_ELIGIBLE_ROLES", []string{"EMPLOYEE", "SUPERVISOR"}),
		},
		Ranking: RankingConfig{
			Timeout:            getEnvDuration("RANKING_TIMEOUT", 5*time.Second),
			Workers:            getEnvInt("RANKING_WORKERS", 8),
			DefaultTargetHours: getEnvFloat("RANKING_DEFAULT_TARGET_HOURS", 160),
			SnapshotMaxAge:     getEnvDuration("RANKING_SNAPSHOT_MAX_AGE", 26*time.Hour),
			Tiers: scoring.Thresholds{
				Optimal:    getEnvFloat("RANKING_TIER_OPTIMAL", 85),
				Good:       getEnvFloat("RANKING_TIER_GOOD", 70),
				Acceptable: getEnvFloat("RANKING_TIER_ACCEPTABLE", 50),
			},
		},
		Compliance: ComplianceConfig{
			Workers:      getEnvInt("COMPLIANCE_WORKERS", 2),
			QueueSize:    getEnvInt("COMPLIANCE_QUEUE_SIZE", 256),
			PollInterval: getEnvDuration("COMPLIANCE_POLL_INTERVAL", 30*time.Second),
			Lookback:     getEnvDuration("COMPLIANCE_LOOKBACK", 7*24*time.Hour),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}
}

// overlayFile 用 YAML 文件中出现的字段覆盖当前配置
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	if c.IsTest() {
		c.Scheduler.Enabled = false
	}
	return nil
}

// Validate 校验配置，包括时区与周期规则
// 所有问题汇总为一个 VALIDATION_FAILED 错误，Fields 按字段列出原因
func Validate(cfg *Config) error {
	ve := &apperrors.ValidationErrors{}

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("配置校验失败: %w", err)
		}
		for _, fe := range fieldErrs {
			ve.Add(fe.Namespace(), fmt.Sprintf("不满足 %s %s", fe.Tag(), fe.Param()))
		}
	}

	if _, err := cfg.Location(); err != nil {
		ve.Add("app.timezone", err.Error())
	}

	if err := cfg.Ranking.Tiers.Validate(); err != nil {
		ve.Add("ranking.tiers", err.Error())
	}

	for _, r := range []struct {
		field string
		rule  string
	}{
		{"scheduler.daily_rule", cfg.Scheduler.DailyRule},
		{"scheduler.weekly_rule", cfg.Scheduler.WeeklyRule},
	} {
		if _, err := rrule.StrToRRule(r.rule); err != nil {
			ve.Add(r.field, err.Error())
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// Location 返回业务时区
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, strings.ToUpper(part))
		}
	}
	return items
}
