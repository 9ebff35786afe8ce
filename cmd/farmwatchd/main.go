// Command farmwatchd is a headless monitor for the farm backend: it
// authenticates, keeps the canonical collections fresh on a schedule,
// and exposes poll health on a Prometheus endpoint.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"farmwatch/internal/farmapi"
	"farmwatch/internal/model"
	"farmwatch/internal/normalize"
	"farmwatch/internal/poll"
	"farmwatch/internal/reconcile"
	"farmwatch/internal/session"
	"farmwatch/internal/transport"
)

// Config is the daemon configuration, loaded from a JSON file via viper.
type Config struct {
	API struct {
		Endpoint       string `mapstructure:"endpoint"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"api"`
	Auth struct {
		Email    string `mapstructure:"email"`
		Password string `mapstructure:"password"`
	} `mapstructure:"auth"`
	Poll struct {
		AlertsInterval  int `mapstructure:"alerts_interval"`
		SensorsInterval int `mapstructure:"sensors_interval"`
		DevicesInterval int `mapstructure:"devices_interval"`
	} `mapstructure:"poll"`
	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
	StateDir string `mapstructure:"state_dir"`
}

func main() {
	var configFile string
	var config Config

	rootCmd := &cobra.Command{
		Use:   "farmwatchd",
		Short: "Poll the farm monitoring API and export poll health",
		Run: func(c *cobra.Command, args []string) {
			if err := run(config); err != nil {
				log.Fatalf("Failed on start: %v", err)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.json", "Path to configuration")

	// Default Values
	viper.SetDefault("api.endpoint", "http://localhost:8000")
	viper.SetDefault("api.timeout_seconds", 5)
	viper.SetDefault("poll.alerts_interval", 30)
	viper.SetDefault("poll.sensors_interval", 60)
	viper.SetDefault("poll.devices_interval", 120)
	viper.SetDefault("metrics.addr", ":9090")

	cobra.OnInitialize(func() {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			envConfFile := os.Getenv("CONFIG_FILE")
			if envConfFile == "" {
				log.Fatalf("Config file %s does not exist!", configFile)
			}
			if _, err := os.Stat(envConfFile); os.IsNotExist(err) {
				log.Fatalf("Config file %s does not exist!", envConfFile)
			}
			configFile = envConfFile
		}

		viper.SetConfigFile(configFile)
		viper.SetConfigType("json")
		if err := viper.ReadInConfig(); err != nil {
			log.Fatalf("Failed to read config: %v", err)
		}
		if err := viper.Unmarshal(&config); err != nil {
			log.Fatalf("Failed to parse config: %v", err)
		}
		log.Printf("Loaded config file: %s", configFile)
	})

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(cfg Config) error {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stateDir := cfg.StateDir
	if stateDir == "" {
		stateDir = session.DefaultDir()
	}
	tokens := session.NewFileStore(stateDir)
	client := transport.NewClient(cfg.API.Endpoint, time.Duration(cfg.API.TimeoutSeconds)*time.Second, tokens, logger)
	store := session.NewStore(client, tokens, logger)
	client.SetUnauthorizedHook(store.ForceClear)

	// Persisted tokens first; fresh login only when restore cannot
	// produce a session.
	if err := store.Restore(ctx); err != nil {
		logger.Info("session restore failed, logging in", zap.Error(err))
	}
	if !store.IsAuthenticated() {
		creds := session.Credentials{Email: cfg.Auth.Email, Password: cfg.Auth.Password}
		if creds.Email == "" {
			creds.Email = os.Getenv("FARMWATCH_EMAIL")
			creds.Password = os.Getenv("FARMWATCH_PASSWORD")
		}
		if err := store.Login(ctx, creds); err != nil {
			return err
		}
	}
	sess := store.Current()
	logger.Info("authenticated",
		zap.String("user", sess.DisplayName),
		zap.String("role", string(sess.Role)),
	)

	alerts := farmapi.NewAlertAPI(client)
	farms := farmapi.NewFarmAPI(client)
	sensors := farmapi.NewSensorAPI(client)
	devices := farmapi.NewDeviceAPI(client)

	list := reconcile.NewAlertList(reconcile.FilterActive)
	rec := reconcile.New(alerts, farms, list, logger)

	activeAlerts := promauto.NewGauge(prometheus.GaugeOpts{
		Name: "farmwatch_active_alerts",
		Help: "Unresolved alerts as of the last poll.",
	})

	coord := poll.New(logger, nil)
	coord.Schedule("alerts", time.Duration(cfg.Poll.AlertsInterval)*time.Second, func(ctx context.Context) error {
		if err := rec.Refresh(ctx); err != nil {
			return err
		}
		snap := list.Snapshot()
		activeAlerts.Set(float64(len(snap)))
		for _, a := range snap {
			if a.Severity == model.SeverityHigh && !a.IsResolved {
				logger.Warn("critical alert",
					zap.Int64("id", a.ID),
					zap.String("coop", a.CoopName),
					zap.String("type", a.AlertType),
					zap.String("value", a.Info.Value+a.Info.Unit),
				)
			}
		}
		return nil
	})
	coord.Schedule("sensors", time.Duration(cfg.Poll.SensorsInterval)*time.Second, func(ctx context.Context) error {
		readings, err := sensors.Readings(ctx)
		if err != nil {
			return err
		}
		logger.Info("sensor readings", zap.Int("count", len(readings)))
		return nil
	})
	coord.Schedule("devices", time.Duration(cfg.Poll.DevicesInterval)*time.Second, func(ctx context.Context) error {
		devs, err := devices.List(ctx)
		if err != nil {
			return err
		}
		stats := normalize.DeviceStats(devs)
		logger.Info("devices",
			zap.Int("total", stats.Total),
			zap.Int("online", stats.Online),
			zap.Int("error", stats.Error),
			zap.Int("offline", stats.Offline),
		)
		return nil
	})

	// Session loss (401) stops polling; the daemon exits and lets the
	// supervisor restart it with fresh credentials.
	sessionLost := make(chan struct{})
	unsub := store.Subscribe(func(s *model.Session) {
		if s == nil {
			select {
			case <-sessionLost:
			default:
				close(sessionLost)
			}
		}
	})
	defer unsub()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	go func() {
		logger.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", zap.Error(err))
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("caught kill signal, shutting down")
	case <-sessionLost:
		logger.Warn("session lost, shutting down")
	}

	coord.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
	return nil
}
