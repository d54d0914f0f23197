package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/berfenger/homedash/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id int64, deviceType, name, ts, data string) domain.HistoryRecord {
	return domain.HistoryRecord{
		ID:         id,
		DeviceType: deviceType,
		DeviceName: name,
		Timestamp:  ts,
		Data:       json.RawMessage(data),
	}
}

func TestProjectEmpty(t *testing.T) {
	p := NewProjector(0).Project(nil)

	assert.NotNil(t, p.Brightness)
	assert.Empty(t, p.Brightness)
	assert.NotNil(t, p.Switches)
	assert.Empty(t, p.SwitchUsage)
	assert.NotNil(t, p.Temperatures)
	assert.Empty(t, p.Temperatures)
}

func TestProjectMissingTypeYieldsEmptySeries(t *testing.T) {
	p := NewProjector(0).Project([]domain.HistoryRecord{
		record(1, "hue", "Baby room", "2025-01-01T10:00:00", `{"brightness": 100, "is_on": true}`),
	})

	assert.Len(t, p.Brightness, 1)
	assert.Empty(t, p.Switches)
	assert.Empty(t, p.Temperatures)
}

func TestProjectBrightnessSortedByTime(t *testing.T) {
	p := NewProjector(0).Project([]domain.HistoryRecord{
		record(2, "hue", "Baby room", "2025-01-01T10:30:00", `{"brightness": 200, "is_on": true}`),
		record(1, "hue", "Baby room", "2025-01-01T10:00:00", `{"brightness": 50, "is_on": false}`),
		record(3, "hue", "Baby room", "2025-01-01T11:00:00", `{"is_on": true}`),
	})

	require.Len(t, p.Brightness, 3)
	assert.Equal(t, 50.0, p.Brightness[0].Brightness)
	assert.False(t, p.Brightness[0].IsOn)
	assert.Equal(t, 200.0, p.Brightness[1].Brightness)
	assert.Equal(t, 0.0, p.Brightness[2].Brightness, "missing brightness defaults to zero")
	assert.True(t, p.Brightness[2].IsOn)
}

func TestProjectSwitchUsage(t *testing.T) {
	var records []domain.HistoryRecord
	// 5 samples on out of 7 for coffee => 150 minutes => 2.5h
	for i, on := range []bool{true, true, false, true, true, false, true} {
		data := `{"is_on": false}`
		if on {
			data = `{"is_on": true}`
		}
		records = append(records, record(int64(i), "wemo", "coffee", "2025-01-01T10:00:00", data))
	}
	records = append(records, record(100, "wemo", "tree", "2025-01-01T10:00:00", `{"is_on": true}`))
	records = append(records, record(101, "wemo", "tree", "2025-01-01T09:30:00", `{"is_on": null}`))

	p := NewProjector(0).Project(records)

	require.Len(t, p.SwitchUsage, 2)
	assert.Equal(t, domain.SwitchUsage{Name: "coffee", OnMinutes: 150, Hours: 2.5}, p.SwitchUsage[0])
	assert.Equal(t, domain.SwitchUsage{Name: "tree", OnMinutes: 30, Hours: 0.5}, p.SwitchUsage[1])
	require.Len(t, p.Switches["tree"], 2)
	assert.Equal(t, 0, p.Switches["tree"][0].OnMinutes, "chronological order")
	assert.Equal(t, 30, p.Switches["tree"][1].OnMinutes)
}

func TestProjectHoursRounding(t *testing.T) {
	// one 20 minute sample => 0.333h => 0.3h
	p := NewProjector(20 * time.Minute).Project([]domain.HistoryRecord{
		record(1, "wemo", "veggie", "2025-01-01T10:00:00", `{"is_on": true}`),
	})
	assert.Equal(t, 0.3, p.SwitchUsage[0].Hours)
}

func TestProjectTemperatures(t *testing.T) {
	p := NewProjector(0).Project([]domain.HistoryRecord{
		record(1, "rinnai", "Heater", "2025-01-01T10:00:00Z", `{"inlet_temp": 61.5, "outlet_temp": 119, "set_temperature": 120}`),
		record(2, "rinnai", "Heater", "2025-01-01T09:00:00Z", `{"inlet_temp": null}`),
	})

	require.Len(t, p.Temperatures, 2)
	assert.Equal(t, domain.TemperaturePoint{Time: p.Temperatures[0].Time}, p.Temperatures[0], "missing values default to zero")
	assert.Equal(t, 61.5, p.Temperatures[1].InletTemp)
	assert.Equal(t, 119.0, p.Temperatures[1].OutletTemp)
	assert.Equal(t, 120.0, p.Temperatures[1].SetTemperature)
}

func TestProjectTolerantPayloads(t *testing.T) {
	p := NewProjector(0).Project([]domain.HistoryRecord{
		record(1, "hue", "a", "2025-01-01T10:00:00", `"{\"brightness\": 77, \"is_on\": true}"`),
		record(2, "hue", "a", "2025-01-01T10:30:00", `"not json"`),
		record(3, "hue", "a", "2025-01-01T11:00:00", `[1, 2]`),
		record(4, "hue", "a", "2025-01-01T11:30:00", ``),
		record(5, "hue", "a", "2025-01-01T12:00:00", `{"brightness": "bright"}`),
		record(6, "meross", "garage", "2025-01-01T12:00:00", `{}`),
	})

	require.Len(t, p.Brightness, 5)
	assert.Equal(t, 77.0, p.Brightness[0].Brightness)
	assert.True(t, p.Brightness[0].IsOn)
	for _, point := range p.Brightness[1:] {
		assert.Equal(t, 0.0, point.Brightness)
		assert.False(t, point.IsOn)
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	records := []domain.HistoryRecord{
		record(1, "wemo", "coffee", "2025-01-01T10:00:00", `{"is_on": true}`),
		record(2, "hue", "a", "2025-01-01T10:00:00", `{"brightness": 1}`),
		record(3, "rinnai", "h", "2025-01-01T10:00:00", `{"inlet_temp": 1}`),
	}
	projector := NewProjector(0)
	assert.Equal(t, projector.Project(records), projector.Project(records))
}
