package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	HistoryDeviceHue    = "hue"
	HistoryDeviceWemo   = "wemo"
	HistoryDeviceRinnai = "rinnai"
)

// HistoryRecord is one immutable sample of the device history log.
type HistoryRecord struct {
	ID         int64           `json:"id"`
	DeviceType string          `json:"device_type"`
	DeviceName string          `json:"device_name"`
	Timestamp  string          `json:"timestamp"`
	Data       json.RawMessage `json:"data"`
}

// Payload decodes Data, which may be an object or a JSON-encoded string.
// Anything else yields an empty map.
func (r HistoryRecord) Payload() map[string]any {
	data := bytes.TrimSpace(r.Data)
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return map[string]any{}
		}
		data = []byte(inner)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil || payload == nil {
		return map[string]any{}
	}
	return payload
}

// Time returns the parsed timestamp, or the zero time when it is malformed.
func (r HistoryRecord) Time() time.Time {
	t, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

func ParseHistory(data []byte) ([]HistoryRecord, error) {
	records := []HistoryRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &ParseError{Op: "history", Err: err}
	}
	if records == nil {
		records = []HistoryRecord{}
	}
	return records, nil
}

type BrightnessPoint struct {
	Time       time.Time `json:"time"`
	Brightness float64   `json:"brightness"`
	IsOn       bool      `json:"is_on"`
}

type SwitchSample struct {
	Time      time.Time `json:"time"`
	OnMinutes int       `json:"on_minutes"`
}

type SwitchUsage struct {
	Name      string  `json:"name"`
	OnMinutes int     `json:"on_minutes"`
	Hours     float64 `json:"hours"`
}

type TemperaturePoint struct {
	Time           time.Time `json:"time"`
	InletTemp      float64   `json:"inlet_temp"`
	OutletTemp     float64   `json:"outlet_temp"`
	SetTemperature float64   `json:"set_temperature"`
}

// HistoryProjection holds display series derived from the history log. Series are never nil.
type HistoryProjection struct {
	Brightness   []BrightnessPoint         `json:"brightness"`
	Switches     map[string][]SwitchSample `json:"switches"`
	SwitchUsage  []SwitchUsage             `json:"switch_usage"`
	Temperatures []TemperaturePoint        `json:"temperatures"`
}

func EmptyHistoryProjection() HistoryProjection {
	return HistoryProjection{
		Brightness:   []BrightnessPoint{},
		Switches:     map[string][]SwitchSample{},
		SwitchUsage:  []SwitchUsage{},
		Temperatures: []TemperaturePoint{},
	}
}
