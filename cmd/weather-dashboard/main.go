package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weather-dashboard/config"
	"weather-dashboard/internal/api"
	"weather-dashboard/internal/dashboard"
	"weather-dashboard/internal/mqtt"
	"weather-dashboard/internal/objectstore"
	"weather-dashboard/internal/tablestore"
	"weather-dashboard/internal/weather"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "weather-dashboard",
		Short: "Weather dashboard collector",
		Long:  "Fetches current weather and 5-day forecasts from OpenWeather and persists them to object and table storage",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(fetchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one collection pass",
		Long:  "Fetch, archive, and store weather for the configured cities once, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			blobs, tables, closeStores, err := buildStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStores()

			if err := tables.EnsureTable(ctx); err != nil {
				return err
			}

			dash := dashboard.New(dashboard.Config{
				Provider: weather.NewOpenWeatherClient(cfg.Weather.APIKey, cfg.Weather.Units),
				Archiver: objectstore.NewArchiver(blobs, cfg.ObjectStore.Prefix),
				Tables:   tables,
				Cities:   cfg.Cities,
			})

			return dash.RunOnce(ctx)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the collection service",
		Long:  "Run collection passes on an interval, with optional MQTT publishing and status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			blobs, tables, closeStores, err := buildStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStores()

			if err := tables.EnsureTable(ctx); err != nil {
				return err
			}

			publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
				Broker:      cfg.MQTT.Broker,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				Enabled:     cfg.MQTT.Enabled,
			})
			if err != nil {
				log.Printf("Warning: MQTT connection failed: %v", err)
			} else if cfg.MQTT.Enabled {
				log.Printf("MQTT connected to %s", cfg.MQTT.Broker)
			}

			dash := dashboard.New(dashboard.Config{
				Provider:  weather.NewOpenWeatherClient(cfg.Weather.APIKey, cfg.Weather.Units),
				Archiver:  objectstore.NewArchiver(blobs, cfg.ObjectStore.Prefix),
				Tables:    tables,
				Publisher: publisher,
				Cities:    cfg.Cities,
				Interval:  cfg.Collector.Interval,
			})

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				if err := dash.Start(ctx); err != nil {
					log.Printf("Collector error: %v", err)
				}
			}()

			var server *api.Server
			if cfg.API.Enabled {
				server = api.NewServer(api.ServerConfig{
					Port:      cfg.API.Port,
					Dashboard: dash,
					Tables:    tables,
				})

				go func() {
					if err := server.Start(); err != nil {
						log.Printf("API server error: %v", err)
					}
				}()
			}

			log.Println("Weather dashboard started. Press Ctrl+C to stop.")

			<-sigChan
			log.Println("Shutting down...")
			cancel()

			if server != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := server.Stop(shutdownCtx); err != nil {
					log.Printf("API server shutdown: %v", err)
				}
			}
			dash.Stop()

			return nil
		},
	}
}

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <city>",
		Short: "Fetch and print weather for one city",
		Long:  "Fetch current weather and the daily forecast for a city without writing to storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Weather.APIKey == "" {
				return fmt.Errorf("%w: weather api key is not set (OPENWEATHER_API_KEY)", config.ErrInvalid)
			}

			dash := dashboard.New(dashboard.Config{
				Provider: weather.NewOpenWeatherClient(cfg.Weather.APIKey, cfg.Weather.Units),
				Cities:   []string{args[0]},
			})

			return dash.RunOnce(cmd.Context())
		},
	}
}

// buildStores wires the configured object and table store backends.
// The returned func closes whatever needs closing.
func buildStores(ctx context.Context, cfg *config.Config) (objectstore.Store, tablestore.Store, func(), error) {
	closeStores := func() {}

	var awsCfg aws.Config
	if cfg.ObjectStore.Backend == "s3" || cfg.TableStore.Backend == "dynamodb" {
		region := cfg.ObjectStore.Region
		if region == "" {
			region = cfg.TableStore.Region
		}

		var opts []func(*awsconfig.LoadOptions) error
		if region != "" {
			opts = append(opts, awsconfig.WithRegion(region))
		}

		var err error
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
	}

	var blobs objectstore.Store
	switch cfg.ObjectStore.Backend {
	case "s3":
		blobs = objectstore.NewS3Store(s3.NewFromConfig(awsCfg), cfg.ObjectStore.Bucket)
	case "filesystem":
		blobs = objectstore.NewFilesystemStore(cfg.ObjectStore.Path)
	}

	var tables tablestore.Store
	switch cfg.TableStore.Backend {
	case "dynamodb":
		tables = tablestore.NewDynamoDBStore(dynamodb.NewFromConfig(awsCfg), cfg.TableStore.Table)
	case "sqlite":
		store, err := tablestore.NewSQLiteStore(cfg.TableStore.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		tables = store
		closeStores = func() {
			if err := store.Close(); err != nil {
				log.Printf("Error closing table store: %v", err)
			}
		}
	}

	return blobs, tables, closeStores, nil
}
