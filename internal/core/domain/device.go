package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

const MaxHueBrightness = 254

// PowerState is a tri-state on/off reading. Unknown is reported when a switch is unreachable.
type PowerState int8

const (
	PowerUnknown PowerState = iota
	PowerOff
	PowerOn
)

func PowerStateOf(on bool) PowerState {
	if on {
		return PowerOn
	}
	return PowerOff
}

func (p PowerState) Known() bool {
	return p != PowerUnknown
}

func (p PowerState) IsOn() bool {
	return p == PowerOn
}

func (p PowerState) String() string {
	switch p {
	case PowerOn:
		return "on"
	case PowerOff:
		return "off"
	default:
		return "unknown"
	}
}

func (p PowerState) MarshalJSON() ([]byte, error) {
	switch p {
	case PowerOn:
		return []byte("true"), nil
	case PowerOff:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (p *PowerState) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "null":
		*p = PowerUnknown
	case "true", "1":
		*p = PowerOn
	case "false", "0":
		*p = PowerOff
	default:
		return fmt.Errorf("invalid power state %s", string(data))
	}
	return nil
}

type HueStatus struct {
	Name        string `json:"name"`
	IsOn        bool   `json:"is_on"`
	Brightness  int    `json:"brightness"`
	TimerActive bool   `json:"timer_active"`
	BridgeIP    string `json:"bridge_ip,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s HueStatus) Validate() error {
	if s.Brightness < 0 || s.Brightness > MaxHueBrightness {
		return fmt.Errorf("brightness %d out of range 0-%d", s.Brightness, MaxHueBrightness)
	}
	return nil
}

type WemoDevice struct {
	Name  string     `json:"name,omitempty"`
	IsOn  PowerState `json:"is_on"`
	Host  string     `json:"host,omitempty"`
	Error string     `json:"error,omitempty"`
}

// UnmarshalJSON degrades an unreadable is_on to PowerUnknown and records why in
// Error, so one bad switch does not drop the whole family.
func (d *WemoDevice) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  string          `json:"name"`
		IsOn  json.RawMessage `json:"is_on"`
		Host  string          `json:"host"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = WemoDevice{Name: raw.Name, Host: raw.Host, Error: raw.Error}
	if len(raw.IsOn) == 0 {
		return nil
	}
	if err := d.IsOn.UnmarshalJSON(raw.IsOn); err != nil {
		d.IsOn = PowerUnknown
		if d.Error == "" {
			d.Error = err.Error()
		}
	}
	return nil
}

// WemoStatus maps switch name to its reading. A nil map means the family was never fetched.
type WemoStatus map[string]WemoDevice

type RinnaiStatus struct {
	DeviceID             string  `json:"device_id,omitempty"`
	Name                 string  `json:"name,omitempty"`
	IsOnline             bool    `json:"is_online"`
	SetTemperature       float64 `json:"set_temperature"`
	InletTemp            float64 `json:"inlet_temp"`
	OutletTemp           float64 `json:"outlet_temp"`
	WaterFlow            float64 `json:"water_flow"`
	OperationEnabled     bool    `json:"operation_enabled"`
	RecirculationEnabled bool    `json:"recirculation_enabled"`
	Error                string  `json:"error,omitempty"`
}

type GarageStatus struct {
	Available bool `json:"available"`
	DoorCount int  `json:"door_count"`
}

func (s GarageStatus) Validate() error {
	if s.DoorCount < 0 {
		return fmt.Errorf("door_count %d is negative", s.DoorCount)
	}
	return nil
}

// DeviceStatus is the composite snapshot. Each family is nil until first fetched.
type DeviceStatus struct {
	Hue    *HueStatus    `json:"hue"`
	Wemo   WemoStatus    `json:"wemo"`
	Rinnai *RinnaiStatus `json:"rinnai"`
	Garage *GarageStatus `json:"garage"`
}

func (s DeviceStatus) Has(f Family) bool {
	switch f {
	case FamilyHue:
		return s.Hue != nil
	case FamilyWemo:
		return s.Wemo != nil
	case FamilyRinnai:
		return s.Rinnai != nil
	case FamilyGarage:
		return s.Garage != nil
	}
	return false
}

// Families returns the families present in the snapshot.
func (s DeviceStatus) Families() []Family {
	var families []Family
	for _, f := range AllFamilies {
		if s.Has(f) {
			families = append(families, f)
		}
	}
	return families
}

func (s DeviceStatus) IsEmpty() bool {
	return len(s.Families()) == 0
}

// Merge returns a copy of s where every family present in partial replaces the
// current one wholesale. Families absent from partial are kept untouched.
func (s DeviceStatus) Merge(partial DeviceStatus) DeviceStatus {
	merged := s.Clone()
	partial = partial.Clone()
	if partial.Hue != nil {
		merged.Hue = partial.Hue
	}
	if partial.Wemo != nil {
		merged.Wemo = partial.Wemo
	}
	if partial.Rinnai != nil {
		merged.Rinnai = partial.Rinnai
	}
	if partial.Garage != nil {
		merged.Garage = partial.Garage
	}
	return merged
}

func (s DeviceStatus) Clone() DeviceStatus {
	var c DeviceStatus
	if s.Hue != nil {
		hue := *s.Hue
		c.Hue = &hue
	}
	if s.Wemo != nil {
		c.Wemo = maps.Clone(s.Wemo)
	}
	if s.Rinnai != nil {
		rinnai := *s.Rinnai
		c.Rinnai = &rinnai
	}
	if s.Garage != nil {
		garage := *s.Garage
		c.Garage = &garage
	}
	return c
}

// ParseDeviceStatus decodes a status response. Only the families present in the
// payload are set; unknown top-level keys are ignored.
func ParseDeviceStatus(data []byte) (DeviceStatus, error) {
	var status DeviceStatus
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return status, &ParseError{Op: "status", Err: err}
	}
	for _, f := range AllFamilies {
		payload, ok := raw[string(f)]
		if !ok || isJSONNull(payload) {
			continue
		}
		if err := status.decodeFamily(f, payload); err != nil {
			return DeviceStatus{}, &ParseError{Op: "status", Family: f, Err: err}
		}
	}
	return status, nil
}

func (s *DeviceStatus) decodeFamily(f Family, payload json.RawMessage) error {
	switch f {
	case FamilyHue:
		var hue HueStatus
		if err := json.Unmarshal(payload, &hue); err != nil {
			return err
		}
		if err := hue.Validate(); err != nil {
			return err
		}
		s.Hue = &hue
	case FamilyWemo:
		wemo := WemoStatus{}
		if err := json.Unmarshal(payload, &wemo); err != nil {
			return err
		}
		for name, dev := range wemo {
			if dev.Name == "" {
				dev.Name = name
				wemo[name] = dev
			}
		}
		s.Wemo = wemo
	case FamilyRinnai:
		var rinnai RinnaiStatus
		if err := json.Unmarshal(payload, &rinnai); err != nil {
			return err
		}
		s.Rinnai = &rinnai
	case FamilyGarage:
		var garage GarageStatus
		if err := json.Unmarshal(payload, &garage); err != nil {
			return err
		}
		if err := garage.Validate(); err != nil {
			return err
		}
		s.Garage = &garage
	}
	return nil
}

func isJSONNull(data json.RawMessage) bool {
	return string(bytes.TrimSpace(data)) == "null"
}
