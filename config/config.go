package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalid marks a missing or contradictory configuration value.
// Startup stops on it rather than limping along without credentials.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Weather     WeatherConfig     `mapstructure:"weather"`
	Cities      []string          `mapstructure:"cities"`
	ObjectStore ObjectStoreConfig `mapstructure:"objectstore"`
	TableStore  TableStoreConfig  `mapstructure:"tablestore"`
	Collector   CollectorConfig   `mapstructure:"collector"`
	API         APIConfig         `mapstructure:"api"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
}

type WeatherConfig struct {
	APIKey string `mapstructure:"api_key"`
	Units  string `mapstructure:"units"`
}

type ObjectStoreConfig struct {
	Backend string `mapstructure:"backend"` // "s3" or "filesystem"
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
	Region  string `mapstructure:"region"`
	Path    string `mapstructure:"path"` // filesystem root
}

type TableStoreConfig struct {
	Backend string `mapstructure:"backend"` // "dynamodb" or "sqlite"
	Table   string `mapstructure:"table"`
	Region  string `mapstructure:"region"`
	Path    string `mapstructure:"path"` // sqlite file
}

type CollectorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type APIConfig struct {
	Port    int  `mapstructure:"port"`
	Enabled bool `mapstructure:"enabled"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

func Load(configPath string) (*Config, error) {
	// .env for local runs; absence is fine.
	_ = godotenv.Load()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/weather-dashboard")
	}

	// Set defaults
	viper.SetDefault("weather.units", "imperial")
	viper.SetDefault("cities", []string{"Philadelphia", "Seattle", "New York"})
	viper.SetDefault("objectstore.backend", "s3")
	viper.SetDefault("objectstore.prefix", "weather-data")
	viper.SetDefault("objectstore.path", "./weather-data")
	viper.SetDefault("tablestore.backend", "dynamodb")
	viper.SetDefault("tablestore.table", "WeatherForecasts")
	viper.SetDefault("tablestore.path", "./forecasts.db")
	viper.SetDefault("collector.interval", "1h")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.enabled", false)
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic_prefix", "weather")
	viper.SetDefault("mqtt.client_id", "weather-dashboard")

	// Secrets come from the environment.
	viper.BindEnv("weather.api_key", "OPENWEATHER_API_KEY")
	viper.BindEnv("objectstore.bucket", "AWS_BUCKET_NAME")
	viper.BindEnv("objectstore.region", "AWS_REGION")
	viper.BindEnv("tablestore.table", "WEATHER_TABLE_NAME")
	viper.BindEnv("tablestore.region", "AWS_REGION")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Weather.APIKey == "" {
		return fmt.Errorf("%w: weather api key is not set (OPENWEATHER_API_KEY)", ErrInvalid)
	}
	if len(c.Cities) == 0 {
		return fmt.Errorf("%w: no cities configured", ErrInvalid)
	}

	switch c.ObjectStore.Backend {
	case "s3":
		if c.ObjectStore.Bucket == "" {
			return fmt.Errorf("%w: object store bucket is not set (AWS_BUCKET_NAME)", ErrInvalid)
		}
	case "filesystem":
		if c.ObjectStore.Path == "" {
			return fmt.Errorf("%w: object store path is not set", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown object store backend %q", ErrInvalid, c.ObjectStore.Backend)
	}

	switch c.TableStore.Backend {
	case "dynamodb":
		if c.TableStore.Table == "" {
			return fmt.Errorf("%w: table name is not set (WEATHER_TABLE_NAME)", ErrInvalid)
		}
	case "sqlite":
		if c.TableStore.Path == "" {
			return fmt.Errorf("%w: sqlite path is not set", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown table store backend %q", ErrInvalid, c.TableStore.Backend)
	}

	return nil
}
