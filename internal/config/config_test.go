package config_test

import (
	"testing"

	"github.com/berfenger/homedash/internal/config"
	"github.com/berfenger/homedash/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTestConfig(t *testing.T) {
	cfg := util.LoadTestConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateNormalizes(t *testing.T) {
	cfg := util.LoadTestConfig()
	cfg.Backend.BaseURL = "http://gateway:8000/api/"
	cfg.MQTT.Enable = true
	cfg.MQTT.BaseTopic = "HomeDash"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://gateway:8000/api", cfg.Backend.BaseURL)
	assert.Equal(t, "homedash", cfg.MQTT.BaseTopic)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*config.Config){
		"relative base url": func(c *config.Config) { c.Backend.BaseURL = "/api" },
		"ftp base url":      func(c *config.Config) { c.Backend.BaseURL = "ftp://gateway/api" },
		"fast status poll":  func(c *config.Config) { c.Dashboard.StatusPollIntervalMillis = 10 },
		"short probe":       func(c *config.Config) { c.Backend.ProbeTimeoutMillis = 1000 },
		"zero circulation":  func(c *config.Config) { c.Dashboard.DefaultCirculationMinutes = 0 },
		"zero port":         func(c *config.Config) { c.Port = 0 },
		"bad cron":          func(c *config.Config) { c.Dashboard.HistoryRefreshCron = "every half hour" },
		"bad topic": func(c *config.Config) {
			c.MQTT.Enable = true
			c.MQTT.BaseTopic = "home/dash"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := util.LoadTestConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCheckMQTTTopic(t *testing.T) {
	topic, err := config.CheckMQTTTopic("Home_Dash1")
	require.NoError(t, err)
	assert.Equal(t, "home_dash1", topic)

	_, err = config.CheckMQTTTopic("home dash")
	assert.Error(t, err)
}
