/*
 * @module service/config/config
 * @description 服务配置，按 .env 文件 -> YAML 配置文件 -> 环境变量 的顺序加载，后者覆盖前者
 * @architecture 分层架构 - 基础设施层
 * @documentReference dev_docs/requirements.md#10.3
 * @stateFlow 读取 .env -> 读取 CONFIG_FILE -> 环境变量覆盖 -> 校验
 * @rules 未设置的项使用默认值；非法取值直接报错，不静默回退
 * @dependencies github.com/joho/godotenv, gopkg.in/yaml.v3, github.com/spf13/cast
 * @refs service/init.go, main.go
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// 策略存储后端
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// 策略锁实现
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Config 服务配置
type Config struct {
	ListenPort  int    `yaml:"listen_port"`
	BaseContext string `yaml:"base_context"`
	LogLevel    string `yaml:"log_level"`
	DataDir     string `yaml:"data_dir"`

	PolicyStoreBackend string `yaml:"policy_store_backend"`
	PolicyLock         string `yaml:"policy_lock"`

	DatabaseURL string         `yaml:"database_url"`
	Database    DatabaseConfig `yaml:"database"`
	SQLitePath  string         `yaml:"sqlite_path"`
	Redis       RedisConfig    `yaml:"redis"`

	KafkaBrokers string `yaml:"kafka_brokers"`
	KafkaTopic   string `yaml:"kafka_topic"`
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTTopic    string `yaml:"mqtt_topic"`
	RedisChannel string `yaml:"redis_channel"`

	PGNotifyChannel string `yaml:"pg_notify_channel"`

	ExecuteRateLimit         int `yaml:"execute_rate_limit"`
	ExecuteRateWindowSeconds int `yaml:"execute_rate_window_seconds"`

	RunRetentionDays int    `yaml:"run_retention_days"`
	RunCleanupCron   string `yaml:"run_cleanup_cron"`

	ExecutorTimeoutSeconds int    `yaml:"executor_timeout_seconds"`
	DownloadTimeoutSeconds int    `yaml:"download_timeout_seconds"`
	PythonBin              string `yaml:"python_bin"`
	ScriptDir              string `yaml:"script_dir"`
}

// DatabaseConfig 数据库连接配置
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Schema   string `yaml:"schema"`
}

// RedisConfig Redis连接配置
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		ListenPort:         80,
		LogLevel:           "debug",
		DataDir:            "data",
		PolicyStoreBackend: BackendFile,
		PolicyLock:         LockLocal,
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "postgres",
			SSLMode: "disable",
			Schema:  "public",
		},
		SQLitePath: "data/policy.db",
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		KafkaTopic:               "adaptive-etl.policy-decisions",
		MQTTTopic:                "adaptive-etl/policy-decisions",
		PGNotifyChannel:          "adaptive_etl_decisions",
		ExecuteRateWindowSeconds: 60,
		RunRetentionDays:         0,
		RunCleanupCron:           "0 0 2 * * *",
		ExecutorTimeoutSeconds:   180,
		DownloadTimeoutSeconds:   60,
		PythonBin:                "python3",
		ScriptDir:                "scripts",
	}
}

// Load 加载配置
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 文件失败: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if err != nil {
			return
		}
		if v := os.Getenv(key); v != "" {
			n, convErr := cast.ToIntE(v)
			if convErr != nil {
				err = fmt.Errorf("环境变量 %s 不是合法整数: %q", key, v)
				return
			}
			*dst = n
		}
	}

	setInt("LISTEN_PORT", &c.ListenPort)
	setString("BASE_CONTEXT", &c.BaseContext)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("DATA_DIR", &c.DataDir)
	setString("POLICY_STORE_BACKEND", &c.PolicyStoreBackend)
	setString("POLICY_LOCK", &c.PolicyLock)

	setString("DATABASE_URL", &c.DatabaseURL)
	setString("DB_HOST", &c.Database.Host)
	setString("DB_PORT", &c.Database.Port)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_NAME", &c.Database.Name)
	setString("DB_SSLMODE", &c.Database.SSLMode)
	setString("DB_SCHEMA", &c.Database.Schema)
	setString("SQLITE_PATH", &c.SQLitePath)

	setString("REDIS_HOST", &c.Redis.Host)
	setString("REDIS_PORT", &c.Redis.Port)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	setInt("REDIS_DB", &c.Redis.DB)

	setString("KAFKA_BROKERS", &c.KafkaBrokers)
	setString("KAFKA_TOPIC", &c.KafkaTopic)
	setString("MQTT_BROKER", &c.MQTTBroker)
	setString("MQTT_TOPIC", &c.MQTTTopic)
	setString("REDIS_CHANNEL", &c.RedisChannel)
	setString("PG_NOTIFY_CHANNEL", &c.PGNotifyChannel)
	setInt("EXECUTE_RATE_LIMIT", &c.ExecuteRateLimit)
	setInt("EXECUTE_RATE_WINDOW_SECONDS", &c.ExecuteRateWindowSeconds)

	setInt("RUN_RETENTION_DAYS", &c.RunRetentionDays)
	setString("RUN_CLEANUP_CRON", &c.RunCleanupCron)
	setInt("EXECUTOR_TIMEOUT_SECONDS", &c.ExecutorTimeoutSeconds)
	setInt("DOWNLOAD_TIMEOUT_SECONDS", &c.DownloadTimeoutSeconds)
	setString("PYTHON_BIN", &c.PythonBin)
	setString("SCRIPT_DIR", &c.ScriptDir)
	return err
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.PolicyStoreBackend {
	case BackendFile, BackendPostgres, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("不支持的策略存储后端: %q", c.PolicyStoreBackend)
	}
	switch c.PolicyLock {
	case LockLocal, LockRedis:
	default:
		return fmt.Errorf("不支持的策略锁实现: %q", c.PolicyLock)
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("非法的监听端口: %d", c.ListenPort)
	}
	if c.ExecuteRateLimit < 0 {
		return fmt.Errorf("执行限流次数不能为负数: %d", c.ExecuteRateLimit)
	}
	if c.ExecuteRateLimit > 0 && c.ExecuteRateWindowSeconds <= 0 {
		return fmt.Errorf("执行限流窗口必须大于0: %d", c.ExecuteRateWindowSeconds)
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR 不能为空")
	}
	if c.ScriptDir == "" {
		return fmt.Errorf("SCRIPT_DIR 不能为空")
	}
	return nil
}

// PostgresDSN 构造 Postgres 连接串，DATABASE_URL 优先
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	db := c.Database
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
		db.Host, db.Port, db.User, db.Password, db.Name, db.SSLMode, db.Schema)
}

// ExecutorTimeout 脚本执行超时
func (c *Config) ExecutorTimeout() time.Duration {
	return time.Duration(c.ExecutorTimeoutSeconds) * time.Second
}

// ExecuteRateWindow 执行限流窗口
func (c *Config) ExecuteRateWindow() time.Duration {
	return time.Duration(c.ExecuteRateWindowSeconds) * time.Second
}

// DownloadTimeout 数据集下载超时
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSeconds) * time.Second
}
