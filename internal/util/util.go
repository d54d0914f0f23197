package util

import (
	"github.com/berfenger/homedash/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Backend: config.BackendConfig{
			BaseURL:              "http://127.0.0.1:8000/api",
			RequestTimeoutMillis: 2000,
			ProbeTimeoutMillis:   4000,
		},
		Dashboard: config.DashboardConfig{
			StatusPollIntervalMillis:  10000,
			ActionsPollIntervalMillis: 30000,
			SettleWindowMillis:        10000,
			DefaultCirculationMinutes: 5,
			HistoryHours:              24,
			HistorySampleMinutes:      30,
			HistoryRefreshCron:        "0 1/30 * * * *",
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "homedash",
			HADiscoveryTopic: "homeassistant",
		},
		Port: 8080,
	}
}
