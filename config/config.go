// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorse-io/hybrid/base/log"
	"github.com/gorse-io/hybrid/model"
	"github.com/gorse-io/hybrid/storage"
	"github.com/juju/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the configuration for the blend.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Blend    BlendConfig    `mapstructure:"blend"`
	Server   ServerConfig   `mapstructure:"server"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// DatabaseConfig is the configuration for the data store and the cache store.
type DatabaseConfig struct {
	DataStore    string `mapstructure:"data_store" validate:"required,data_store"`
	CacheStore   string `mapstructure:"cache_store" validate:"required,cache_store"`
	TablePrefix  string `mapstructure:"table_prefix"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	CacheRPS     int    `mapstructure:"cache_rps" validate:"gte=0"`
}

// BlendConfig is the configuration for training the logistic blend.
type BlendConfig struct {
	Recommenders []string `mapstructure:"recommenders" validate:"unique,dive,required"`
	Lr           float64  `mapstructure:"lr" validate:"gt=0"`
	NEpochs      int      `mapstructure:"n_epochs" validate:"gte=0"`
	RandomState  int64    `mapstructure:"random_state"`
	Jobs         int      `mapstructure:"jobs" validate:"gt=0"`
}

func (config *BlendConfig) GetParams() model.Params {
	return model.Params{
		model.Lr:          config.Lr,
		model.NEpochs:     config.NEpochs,
		model.RandomState: config.RandomState,
	}
}

// ServerConfig is the configuration for the REST server.
type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	APIKey string `mapstructure:"api_key"`
}

// TracingConfig is the configuration for OpenTelemetry tracing.
type TracingConfig struct {
	EnableTracing     bool    `mapstructure:"enable_tracing"`
	Exporter          string  `mapstructure:"exporter" validate:"oneof=zipkin otlp otlphttp"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	Sampler           string  `mapstructure:"sampler" validate:"oneof=always never ratio"`
	Ratio             float64 `mapstructure:"ratio" validate:"gte=0,lte=1"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Blend: BlendConfig{
			Lr:      0.00005,
			NEpochs: 100,
			Jobs:    1,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8087,
		},
		Tracing: TracingConfig{
			Exporter: "otlp",
			Sampler:  "always",
			Ratio:    1,
		},
	}
}

func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("data_store", func(fl validator.FieldLevel) bool {
		prefixes := []string{
			storage.MySQLPrefix,
			storage.PostgresPrefix,
			storage.PostgreSQLPrefix,
			storage.SQLitePrefix,
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(fl.Field().String(), prefix) {
				return true
			}
		}
		return false
	}); err != nil {
		return errors.Trace(err)
	}
	if err := validate.RegisterValidation("cache_store", func(fl validator.FieldLevel) bool {
		prefixes := []string{
			storage.RedisPrefix,
			storage.RedissPrefix,
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(fl.Field().String(), prefix) {
				return true
			}
		}
		return false
	}); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(validate.Struct(config))
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [blend]
	viper.SetDefault("blend.lr", defaultConfig.Blend.Lr)
	viper.SetDefault("blend.n_epochs", defaultConfig.Blend.NEpochs)
	viper.SetDefault("blend.jobs", defaultConfig.Blend.Jobs)
	// [server]
	viper.SetDefault("server.host", defaultConfig.Server.Host)
	viper.SetDefault("server.port", defaultConfig.Server.Port)
	// [tracing]
	viper.SetDefault("tracing.exporter", defaultConfig.Tracing.Exporter)
	viper.SetDefault("tracing.sampler", defaultConfig.Tracing.Sampler)
	viper.SetDefault("tracing.ratio", defaultConfig.Tracing.Ratio)
}

type configBinding struct {
	key string
	env string
}

// LoadConfig loads configuration from toml file.
func LoadConfig(path string) (*Config, error) {
	// set default config
	setDefault()

	// bind environment bindings
	bindings := []configBinding{
		{"database.cache_store", "HYBRID_CACHE_STORE"},
		{"database.data_store", "HYBRID_DATA_STORE"},
		{"database.table_prefix", "HYBRID_TABLE_PREFIX"},
		{"blend.random_state", "HYBRID_RANDOM_STATE"},
		{"blend.jobs", "HYBRID_BLEND_JOBS"},
		{"server.host", "HYBRID_SERVER_HOST"},
		{"server.port", "HYBRID_SERVER_PORT"},
		{"server.api_key", "HYBRID_SERVER_API_KEY"},
		{"tracing.enable_tracing", "HYBRID_ENABLE_TRACING"},
		{"tracing.collector_endpoint", "HYBRID_COLLECTOR_ENDPOINT"},
	}
	for _, binding := range bindings {
		err := viper.BindEnv(binding.key, binding.env)
		if err != nil {
			log.Logger().Fatal("failed to bind a Viper key to a ENV variable", zap.Error(err))
		}
	}

	// load config file
	viper.SetConfigType("toml")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}

	// unmarshal config file
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
