package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const envPrefix = "warehouse"

const (
	StorageFile   = "file"
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

type Config struct {
	HTTPAddr        string        `envconfig:"http_addr" default:":8080"`
	GRPCAddr        string        `envconfig:"grpc_addr" default:":50051"`
	Storage         string        `envconfig:"storage" default:"file"`
	DataDir         string        `envconfig:"data_dir" default:"./data"`
	MySQLDSN        string        `envconfig:"mysql_dsn" default:"root:root@tcp(localhost:3306)/warehouse?parseTime=true"`
	RedisAddr       string        `envconfig:"redis_addr"`
	KafkaBrokers    []string      `envconfig:"kafka_brokers"`
	KafkaTopic      string        `envconfig:"kafka_topic" default:"warehouse.operations"`
	LogLevel        string        `envconfig:"log_level" default:"info"`
	LogFormat       string        `envconfig:"log_format" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"shutdown_timeout" default:"5s"`
}

// Load reads WAREHOUSE_* environment variables.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse env")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageFile:
		if c.DataDir == "" {
			return errors.New("data dir is required for file storage")
		}
	case StorageMySQL:
		if c.MySQLDSN == "" {
			return errors.New("mysql dsn is required for mysql storage")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	return nil
}
