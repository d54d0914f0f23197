package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/homedash/internal/adapter/actor"
	"github.com/berfenger/homedash/internal/adapter/backend"
	"github.com/berfenger/homedash/internal/adapter/cron"
	"github.com/berfenger/homedash/internal/config"
	"github.com/berfenger/homedash/internal/core/actor"
	"github.com/berfenger/homedash/internal/core/port"
	"github.com/berfenger/homedash/internal/server"
	"github.com/berfenger/homedash/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	gateway := backend.NewClient(cfg.Backend, logger)

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, dashboardActorProvider(cfg, gateway, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	historyRefresher, err := cron.NewHistoryRefresher(cfg.Dashboard.HistoryRefreshCron,
		cfg.Backend.RequestTimeout()+time.Second, ctx, pid, logger)
	if err != nil {
		panic(err)
	}
	cronCtx, stopCron := context.WithCancel(context.Background())
	if err := historyRefresher.Start(cronCtx); err != nil {
		panic(err)
	}

	server := server.NewServer(*cfg, ctx, pid, logger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	stopCron()
	historyRefresher.Stop(context.Background())
	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => HOMEDASH_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("HOMEDASH_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("homedash")
	// backend.base_url => HOMEDASH_BACKEND_BASE_URL
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func dashboardActorProvider(cfg *config.Config, gateway port.Backend, logger *zap.Logger) actor.DashboardActorProvider {
	return func(eventStream *eventstream.EventStream) *actor.DashboardActor {
		return actor.NewDashboardActor(cfg, gateway, port.SystemClock{}, eventStream, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(eventStream *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, eventStream, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
	viper.SetDefault("backend.base_url", "http://localhost:8000/api")
	viper.SetDefault("backend.request_timeout_millis", 10000)
	viper.SetDefault("backend.probe_timeout_millis", 20000)
	viper.SetDefault("dashboard.status_poll_interval_millis", 10000)
	viper.SetDefault("dashboard.actions_poll_interval_millis", 30000)
	viper.SetDefault("dashboard.settle_window_millis", 10000)
	viper.SetDefault("dashboard.default_circulation_minutes", 5)
	viper.SetDefault("dashboard.history_hours", 24)
	viper.SetDefault("dashboard.history_sample_minutes", 30)
	viper.SetDefault("dashboard.history_refresh_cron", "0 1/30 * * * *")
	viper.SetDefault("mqtt.enable", false)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.base_topic", "homedash")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
