/*
 * @module service/init
 * @description 服务初始化模块，负责配置驱动的存储、锁、通知器和各业务服务的装配
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/requirements.md#10, dev_docs/requirements.md#11
 * @stateFlow 应用启动 -> 运行目录 -> 策略存储后端 -> 策略锁 -> 通知器 -> 业务服务 -> 清理调度
 * @rules 所有依赖就绪后才提供API服务；任一必需组件初始化失败即终止启动
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite, github.com/go-redis/redis/v8
 * @refs main.go, api/routes.go
 */

package service

import (
	"adaptive-etl-service/client/connectors"
	"adaptive-etl-service/service/artifact"
	"adaptive-etl-service/service/cleanup"
	"adaptive-etl-service/service/config"
	"adaptive-etl-service/service/distributed_lock"
	"adaptive-etl-service/service/event"
	"adaptive-etl-service/service/evaluator"
	"adaptive-etl-service/service/executor"
	"adaptive-etl-service/service/notifier"
	"adaptive-etl-service/service/planner"
	"adaptive-etl-service/service/policy"
	"adaptive-etl-service/service/policy_store"
	"adaptive-etl-service/service/rate_limiter"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	DB                   *gorm.DB
	RedisClient          *redis.Client
	GlobalRunStore       *artifact.RunStore
	GlobalPolicyStore    *policy_store.Store
	GlobalNotifier       *notifier.Notifier
	GlobalPolicyEngine   *policy.Engine
	GlobalPlannerService *planner.Service
	GlobalEvaluator      *evaluator.Service
	GlobalExecutor       *executor.Service
	GlobalCleanupService *cleanup.RunCleanupService
	GlobalEventHub       *event.Hub
	GlobalPgRelay        *event.PostgresRelay
	GlobalExecuteLimiter rate_limiter.Limiter
)

// Init 按配置初始化全部服务
func Init(cfg *config.Config) error {
	runs, err := artifact.NewRunStore(filepath.Join(cfg.DataDir, "runs"))
	if err != nil {
		return err
	}
	GlobalRunStore = runs

	backend, err := initPolicyBackend(cfg)
	if err != nil {
		return err
	}

	lock, err := initPolicyLock(cfg)
	if err != nil {
		return err
	}

	GlobalPolicyStore = policy_store.NewStore(backend, lock)
	GlobalEventHub = event.NewHub()
	GlobalNotifier = initNotifier(cfg, GlobalEventHub)
	GlobalPolicyEngine = policy.NewEngine(GlobalPolicyStore, runs, policy.WithNotifier(GlobalNotifier))
	GlobalPlannerService = planner.NewService(runs)
	GlobalEvaluator = evaluator.NewService(runs)
	GlobalExecutor = executor.NewService(runs, executor.Config{
		ScriptTimeout:   cfg.ExecutorTimeout(),
		DownloadTimeout: cfg.DownloadTimeout(),
		PythonBin:       cfg.PythonBin,
		ScriptDir:       cfg.ScriptDir,
	})

	GlobalExecuteLimiter = initExecuteLimiter(cfg)

	GlobalCleanupService = cleanup.NewRunCleanupService(runs, cfg.RunRetentionDays, cfg.RunCleanupCron)
	if err := GlobalCleanupService.Start(); err != nil {
		return err
	}

	slog.Info("服务初始化完成",
		"data_dir", cfg.DataDir,
		"policy_store", backend.Name(),
		"policy_lock", cfg.PolicyLock,
		"publishers", GlobalNotifier.Len())
	return nil
}

// Shutdown 释放服务资源
func Shutdown() {
	if GlobalCleanupService != nil {
		GlobalCleanupService.Stop()
	}
	if GlobalNotifier != nil {
		if err := GlobalNotifier.Close(); err != nil {
			slog.Warn("关闭通知器失败", "error", err)
		}
	}
	if GlobalEventHub != nil {
		GlobalEventHub.Close()
	}
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			slog.Warn("关闭Redis连接失败", "error", err)
		}
	}
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

// initPolicyBackend 初始化策略存储后端
func initPolicyBackend(cfg *config.Config) (policy_store.Backend, error) {
	switch cfg.PolicyStoreBackend {
	case config.BackendPostgres:
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("数据库连接失败: %w", err)
		}
		DB = db
		slog.Info("数据库连接成功", "dialect", "postgres")
		return policy_store.NewGormBackend(db)

	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("创建SQLite目录失败: %w", err)
		}
		db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("SQLite连接失败: %w", err)
		}
		DB = db
		slog.Info("数据库连接成功", "dialect", "sqlite", "path", cfg.SQLitePath)
		return policy_store.NewGormBackend(db)

	case config.BackendRedis:
		client, err := redisClient(cfg)
		if err != nil {
			return nil, err
		}
		return policy_store.NewRedisBackend(client), nil

	default:
		return policy_store.NewFileBackend(filepath.Join(cfg.DataDir, "policies"))
	}
}

// initPolicyLock 初始化策略锁
func initPolicyLock(cfg *config.Config) (distributed_lock.DistributedLock, error) {
	if cfg.PolicyLock != config.LockRedis {
		return distributed_lock.NewLocalLock(), nil
	}
	client, err := redisClient(cfg)
	if err != nil {
		return nil, err
	}
	return distributed_lock.NewRedisLock(client), nil
}

// initNotifier 按配置注册决策发布器，未配置的通道被跳过
// Postgres 后端下决策经 NOTIFY 中转到各实例的事件中心，其它情况直接投递到本实例事件中心
func initNotifier(cfg *config.Config, hub *event.Hub) *notifier.Notifier {
	var publishers []notifier.Publisher

	if cfg.PolicyStoreBackend == config.BackendPostgres && DB != nil {
		relay := event.NewPostgresRelay(DB, cfg.PostgresDSN(), cfg.PGNotifyChannel, hub)
		if err := relay.Start(); err != nil {
			slog.Warn("Postgres事件中转启动失败，改为本地推送", "error", err)
			publishers = append(publishers, hub)
		} else {
			GlobalPgRelay = relay
			publishers = append(publishers, relay)
		}
	} else {
		publishers = append(publishers, hub)
	}

	if brokers := connectors.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		publishers = append(publishers, connectors.NewKafkaConnector(&connectors.KafkaConfig{
			Brokers: brokers,
			Topic:   cfg.KafkaTopic,
		}))
	}

	if cfg.MQTTBroker != "" {
		hostname, _ := os.Hostname()
		mc := connectors.NewMQTTConnector(&connectors.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: "adaptive-etl-" + hostname,
			Topic:    cfg.MQTTTopic,
			QoS:      1,
		})
		if err := mc.Connect(); err != nil {
			// 首次发布时会重连
			slog.Warn("MQTT连接失败", "broker", cfg.MQTTBroker, "error", err)
		}
		publishers = append(publishers, mc)
	}

	if cfg.RedisChannel != "" {
		client, err := redisClient(cfg)
		if err != nil {
			slog.Warn("Redis发布器初始化失败", "error", err)
		} else {
			publishers = append(publishers, connectors.NewRedisConnector(client, &connectors.RedisConfig{
				Channel: cfg.RedisChannel,
			}))
		}
	}

	return notifier.New(publishers...)
}

// initExecuteLimiter 初始化执行限流器，限额为0时不限流
func initExecuteLimiter(cfg *config.Config) rate_limiter.Limiter {
	if cfg.ExecuteRateLimit <= 0 {
		return nil
	}
	// 已有Redis连接时多实例共享计数
	var client redis.UniversalClient
	if RedisClient != nil {
		client = RedisClient
	}
	return rate_limiter.NewLimiter(client, cfg.ExecuteRateLimit, cfg.ExecuteRateWindow())
}

// redisClient 懒加载共享的Redis客户端
func redisClient(cfg *config.Config) (*redis.Client, error) {
	if RedisClient != nil {
		return RedisClient, nil
	}
	client, err := distributed_lock.NewRedisClient(distributed_lock.RedisOptions{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	RedisClient = client
	slog.Info("Redis连接成功", "host", cfg.Redis.Host, "port", cfg.Redis.Port)
	return client, nil
}
