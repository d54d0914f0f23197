package domain

// SensorRef names the Home Assistant entity a state update belongs to.
type SensorRef struct {
	Id string
}

func (r SensorRef) SensorId() string {
	return r.Id
}

// SensorUpdateEvent is published on the event stream whenever a device value
// is observed. The MQTT bridge turns each one into a state topic payload.
type SensorUpdateEvent interface {
	SensorId() string
}

// FloatSensorUpdateEvent is rendered with Decimals fractional digits.
type FloatSensorUpdateEvent struct {
	SensorRef
	Value    float64
	Decimals uint
}

type BinarySensorUpdateEvent struct {
	SensorRef
	Value bool
}

type SwitchSensorUpdateEvent struct {
	SensorRef
	Value bool
}

// SwitchState reports the on/off state of the switch entity id.
func SwitchState(id string, on bool) SwitchSensorUpdateEvent {
	return SwitchSensorUpdateEvent{SensorRef: SensorRef{Id: id}, Value: on}
}

type InputNumberSensorUpdateEvent struct {
	SensorRef
	Value    float64
	Decimals uint
}

// Inventory lists the entities a status snapshot exposes.
type Inventory struct {
	Hue          bool
	HueName      string
	WemoSwitches []string
	Rinnai       bool
	RinnaiName   string
	Garage       bool
	GarageDoors  int
}

// IsEmpty reports whether no device family has been seen yet.
func (i Inventory) IsEmpty() bool {
	return !i.Hue && !i.Rinnai && !i.Garage && len(i.WemoSwitches) == 0
}

// InventoryUpdateEvent is published when the set of known devices changes.
type InventoryUpdateEvent struct {
	Inventory Inventory
}
