package service

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/berfenger/homedash/internal/core/domain"
)

const DefaultHistorySampleInterval = 30 * time.Minute

// Projector turns history records into display series. It is pure and keeps no state.
type Projector struct {
	SampleInterval time.Duration
}

func NewProjector(sampleInterval time.Duration) Projector {
	if sampleInterval <= 0 {
		sampleInterval = DefaultHistorySampleInterval
	}
	return Projector{SampleInterval: sampleInterval}
}

type timedRecord struct {
	time    time.Time
	name    string
	payload map[string]any
}

func (p Projector) Project(records []domain.HistoryRecord) domain.HistoryProjection {
	projection := domain.EmptyHistoryProjection()
	byType := partition(records)

	for _, r := range byType[domain.HistoryDeviceHue] {
		projection.Brightness = append(projection.Brightness, domain.BrightnessPoint{
			Time:       r.time,
			Brightness: number(r.payload["brightness"]),
			IsOn:       truthy(r.payload["is_on"]),
		})
	}

	sampleMinutes := int(p.interval().Minutes())
	totals := map[string]int{}
	for _, r := range byType[domain.HistoryDeviceWemo] {
		minutes := 0
		if truthy(r.payload["is_on"]) {
			minutes = sampleMinutes
		}
		projection.Switches[r.name] = append(projection.Switches[r.name], domain.SwitchSample{
			Time:      r.time,
			OnMinutes: minutes,
		})
		totals[r.name] += minutes
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		projection.SwitchUsage = append(projection.SwitchUsage, domain.SwitchUsage{
			Name:      name,
			OnMinutes: totals[name],
			Hours:     math.Round(float64(totals[name])/60*10) / 10,
		})
	}

	for _, r := range byType[domain.HistoryDeviceRinnai] {
		projection.Temperatures = append(projection.Temperatures, domain.TemperaturePoint{
			Time:           r.time,
			InletTemp:      number(r.payload["inlet_temp"]),
			OutletTemp:     number(r.payload["outlet_temp"]),
			SetTemperature: number(r.payload["set_temperature"]),
		})
	}

	return projection
}

func (p Projector) interval() time.Duration {
	if p.SampleInterval <= 0 {
		return DefaultHistorySampleInterval
	}
	return p.SampleInterval
}

// partition groups records by device type, each group in chronological order.
func partition(records []domain.HistoryRecord) map[string][]timedRecord {
	groups := map[string][]timedRecord{}
	for _, r := range records {
		groups[r.DeviceType] = append(groups[r.DeviceType], timedRecord{
			time:    r.Time(),
			name:    r.DeviceName,
			payload: r.Payload(),
		})
	}
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].time.Before(group[j].time)
		})
	}
	return groups
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0 && !math.IsNaN(b)
	case string:
		return b != ""
	case nil:
		return false
	default:
		return true
	}
}
