package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/optimizer"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
		MaxUploadSize   int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10 MiB
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	Admin struct {
		Username     string `env:"USERNAME" envDefault:"admin"`
		PasswordHash string `env:"PASSWORD_HASH,required"` // bcrypt 哈希
	} `envPrefix:"ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"336"` // 小时，14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN               string `env:"DSN,required"`
		PublishTimeout    int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
		OptimizationQueue string `env:"OPTIMIZATION_QUEUE" envDefault:"optimization_queue"`
		EmailQueue        string `env:"EMAIL_QUEUE" envDefault:"email_queue"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host               string `env:"HOST" envDefault:"localhost"`
		Port               int    `env:"PORT" envDefault:"6379"`
		Password           string `env:"PASSWORD,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		ProgressExpiration int    `env:"PROGRESS_EXPIRATION" envDefault:"86400"` // 秒
	} `envPrefix:"REDIS_"`
	Metrics struct {
		Port string `env:"PORT" envDefault:"9090"`
	} `envPrefix:"METRICS_"`
	Optimizer struct {
		PopulationSize   int32    `env:"POPULATION_SIZE" envDefault:"50"`
		Generations      int32    `env:"GENERATIONS" envDefault:"250"`
		MutationRate     float64  `env:"MUTATION_RATE" envDefault:"0.2"`
		AffinityPairs    []string `env:"AFFINITY_PAIRS" envSeparator:"," envDefault:"P5:P6"`
		Concurrency      int      `env:"CONCURRENCY" envDefault:"1"`
		ProgressInterval int32    `env:"PROGRESS_INTERVAL" envDefault:"10"`
	} `envPrefix:"OPTIMIZER_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	if _, err := cfg.OptimizerParameters(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// OptimizerParameters 把环境变量中的默认参数转换为遗传算法参数
func (cfg *Config) OptimizerParameters() (optimizer.Parameters, error) {
	pairs, err := ParseAffinityPairs(cfg.Optimizer.AffinityPairs)
	if err != nil {
		return optimizer.Parameters{}, err
	}

	params := optimizer.Parameters{
		PopulationSize: cfg.Optimizer.PopulationSize,
		Generations:    cfg.Optimizer.Generations,
		MutationRate:   cfg.Optimizer.MutationRate,
		AffinityPairs:  pairs,
		Concurrency:    cfg.Optimizer.Concurrency,
	}
	if err := params.Validate(); err != nil {
		return optimizer.Parameters{}, err
	}

	return params, nil
}

// ParseAffinityPairs 解析形如 "P5:P6" 的关联商品对
func ParseAffinityPairs(values []string) ([]domain.AffinityPair, error) {
	pairs := make([]domain.AffinityPair, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		first, second, ok := strings.Cut(value, ":")
		if !ok {
			return nil, fmt.Errorf("关联商品对 %q 的格式应为 first:second", value)
		}
		pairs = append(pairs, domain.AffinityPair{
			First:  strings.TrimSpace(first),
			Second: strings.TrimSpace(second),
		})
	}
	return pairs, nil
}
