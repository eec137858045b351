package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/orderkit/orderkit/internal/types"
)

type Configuration struct {
	Logging  LoggingConfig  `validate:"required"`
	Database DatabaseConfig `validate:"required"`
	Engine   EngineConfig   `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type EngineConfig struct {
	// RecomputeBatchSize is the chunk size used by the backlog recompute job
	RecomputeBatchSize int `mapstructure:"recompute_batch_size" validate:"required,gt=0"`
	// DefaultCurrency is the company currency assumed for rules without one
	DefaultCurrency string `mapstructure:"default_currency" validate:"required,len=3"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/orderkit")

	v.SetEnvPrefix("ORDERKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	v.SetDefault("engine.recompute_batch_size", 250)
	v.SetDefault("engine.default_currency", "EUR")
	v.SetDefault("logging.level", string(types.LogLevelInfo))

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// DSN renders the MySQL connection string for the configured database
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// GetDefaultConfig returns a default configuration for local development.
// This is useful for running scripts or other non-web applications.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Logging: LoggingConfig{Level: types.LogLevelDebug},
		Engine: EngineConfig{
			RecomputeBatchSize: 250,
			DefaultCurrency:    "EUR",
		},
	}
}
