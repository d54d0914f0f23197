package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel  zapcore.Level
	Backend   BackendConfig   `mapstructure:"backend"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Port      uint            `mapstructure:"port"`
	HttpLog   bool            `mapstructure:"http_log"`
}

type BackendConfig struct {
	BaseURL              string `mapstructure:"base_url"`
	RequestTimeoutMillis uint32 `mapstructure:"request_timeout_millis"`
	ProbeTimeoutMillis   uint32 `mapstructure:"probe_timeout_millis"`
}

func (c BackendConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}

func (c BackendConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMillis) * time.Millisecond
}

type DashboardConfig struct {
	StatusPollIntervalMillis  uint32 `mapstructure:"status_poll_interval_millis"`
	ActionsPollIntervalMillis uint32 `mapstructure:"actions_poll_interval_millis"`
	SettleWindowMillis        uint32 `mapstructure:"settle_window_millis"`
	DefaultCirculationMinutes int    `mapstructure:"default_circulation_minutes"`
	HistoryHours              int    `mapstructure:"history_hours"`
	HistorySampleMinutes      int    `mapstructure:"history_sample_minutes"`
	HistoryRefreshCron        string `mapstructure:"history_refresh_cron"`
}

func (c DashboardConfig) StatusPollInterval() time.Duration {
	return time.Duration(c.StatusPollIntervalMillis) * time.Millisecond
}

func (c DashboardConfig) ActionsPollInterval() time.Duration {
	return time.Duration(c.ActionsPollIntervalMillis) * time.Millisecond
}

func (c DashboardConfig) SettleWindow() time.Duration {
	return time.Duration(c.SettleWindowMillis) * time.Millisecond
}

func (c DashboardConfig) HistorySampleInterval() time.Duration {
	return time.Duration(c.HistorySampleMinutes) * time.Minute
}

type MQTTConfig struct {
	Enable            bool
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// Validate checks bounds and normalizes topics in place.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute http(s) url, got %q", c.Backend.BaseURL)
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.RequestTimeoutMillis < 100 {
		return errors.New("backend.request_timeout_millis must be >= 100")
	}
	if c.Backend.ProbeTimeoutMillis < c.Backend.RequestTimeoutMillis {
		return errors.New("backend.probe_timeout_millis must be >= backend.request_timeout_millis")
	}
	if c.Dashboard.StatusPollIntervalMillis < 1000 {
		return errors.New("dashboard.status_poll_interval_millis must be >= 1000")
	}
	if c.Dashboard.ActionsPollIntervalMillis < 1000 {
		return errors.New("dashboard.actions_poll_interval_millis must be >= 1000")
	}
	if c.Dashboard.DefaultCirculationMinutes < 1 {
		return errors.New("dashboard.default_circulation_minutes must be >= 1")
	}
	if c.Dashboard.HistoryHours < 1 {
		return errors.New("dashboard.history_hours must be >= 1")
	}
	if c.Dashboard.HistorySampleMinutes < 1 {
		return errors.New("dashboard.history_sample_minutes must be >= 1")
	}
	// empty disables the scheduled history refresh
	if c.Dashboard.HistoryRefreshCron != "" {
		if _, err := quartz.NewCronTrigger(c.Dashboard.HistoryRefreshCron); err != nil {
			return fmt.Errorf("dashboard.history_refresh_cron: %w", err)
		}
	}
	if c.Port == 0 || c.Port > 65535 {
		return errors.New("port must be within 1-65535")
	}
	if c.MQTT.Enable {
		if c.MQTT.Host == "" {
			return errors.New("mqtt.host is required when mqtt is enabled")
		}
		if c.MQTT.BaseTopic, err = CheckMQTTTopic(c.MQTT.BaseTopic); err != nil {
			return fmt.Errorf("mqtt.base_topic: %w", err)
		}
		if c.MQTT.HADiscoveryEnable {
			if c.MQTT.HADiscoveryTopic, err = CheckMQTTTopic(c.MQTT.HADiscoveryTopic); err != nil {
				return fmt.Errorf("mqtt.ha_discovery_topic: %w", err)
			}
		}
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
