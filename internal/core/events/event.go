package events

import (
	"slices"

	. "github.com/berfenger/homedash/internal/core/domain"
)

// StatusToUpdateEvents converts every family present in the snapshot into sensor updates.
func StatusToUpdateEvents(status DeviceStatus) []any {
	var events []any
	events = append(events, HueToUpdateEvents(status.Hue)...)
	events = append(events, WemoToUpdateEvents(status.Wemo)...)
	events = append(events, RinnaiToUpdateEvents(status.Rinnai)...)
	events = append(events, GarageToUpdateEvents(status.Garage)...)
	return events
}

func HueToUpdateEvents(hue *HueStatus) []any {
	var events []any
	if hue == nil || hue.Error != "" {
		return events
	}
	events = append(events, SwitchState(SWITCH_ID_HUE_LIGHT, hue.IsOn))
	events = append(events, FloatSensorUpdateEvent{
		SensorRef: SensorRef{
			Id: SENSOR_ID_HUE_BRIGHTNESS,
		},
		Value:    float64(hue.Brightness),
		Decimals: 0,
	})
	return events
}

func WemoToUpdateEvents(wemo WemoStatus) []any {
	var events []any
	for _, name := range sortedKeys(wemo) {
		dev := wemo[name]
		// unreachable switches keep their last published state
		if !dev.IsOn.Known() {
			continue
		}
		events = append(events, SwitchState(WemoSwitchId(name), dev.IsOn.IsOn()))
	}
	return events
}

func RinnaiToUpdateEvents(rinnai *RinnaiStatus) []any {
	var events []any
	if rinnai == nil {
		return events
	}
	events = append(events, BinarySensorUpdateEvent{
		SensorRef: SensorRef{
			Id: SENSOR_ID_RINNAI_ONLINE,
		},
		Value: rinnai.IsOnline && rinnai.Error == "",
	})
	if rinnai.Error != "" {
		return events
	}
	events = append(events, SwitchState(SWITCH_ID_RINNAI_RECIRCULATION, rinnai.RecirculationEnabled))
	events = append(events, FloatSensorUpdateEvent{
		SensorRef: SensorRef{
			Id: SENSOR_ID_RINNAI_SET_TEMPERATURE,
		},
		Value:    rinnai.SetTemperature,
		Decimals: 0,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorRef: SensorRef{
			Id: SENSOR_ID_RINNAI_INLET_TEMPERATURE,
		},
		Value:    rinnai.InletTemp,
		Decimals: 1,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorRef: SensorRef{
			Id: SENSOR_ID_RINNAI_OUTLET_TEMPERATURE,
		},
		Value:    rinnai.OutletTemp,
		Decimals: 1,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorRef: SensorRef{
			Id: SENSOR_ID_RINNAI_WATER_FLOW,
		},
		Value:    rinnai.WaterFlow,
		Decimals: 2,
	})
	return events
}

func GarageToUpdateEvents(garage *GarageStatus) []any {
	var events []any
	if garage == nil {
		return events
	}
	events = append(events, BinarySensorUpdateEvent{
		SensorRef: SensorRef{
			Id: SENSOR_ID_GARAGE_AVAILABLE,
		},
		Value: garage.Available,
	})
	// door relays are momentary
	for door := 1; door <= garage.DoorCount; door++ {
		events = append(events, SwitchState(GarageDoorSwitchId(door), false))
	}
	return events
}

func CirculationMinutesUpdateEvent(minutes int) any {
	return InputNumberSensorUpdateEvent{
		SensorRef: SensorRef{
			Id: INPUT_NUMBER_ID_RINNAI_CIRCULATION_MINS,
		},
		Value: float64(minutes),
	}
}

// InventoryOf lists the entities exposed by a snapshot.
func InventoryOf(status DeviceStatus) Inventory {
	var inv Inventory
	if status.Hue != nil {
		inv.Hue = true
		inv.HueName = status.Hue.Name
	}
	if status.Wemo != nil {
		inv.WemoSwitches = sortedKeys(status.Wemo)
	}
	if status.Rinnai != nil {
		inv.Rinnai = true
		inv.RinnaiName = status.Rinnai.Name
	}
	if status.Garage != nil {
		inv.Garage = true
		inv.GarageDoors = status.Garage.DoorCount
	}
	return inv
}

func InventoryEqual(a, b Inventory) bool {
	return a.Hue == b.Hue && a.HueName == b.HueName &&
		slices.Equal(a.WemoSwitches, b.WemoSwitches) &&
		a.Rinnai == b.Rinnai && a.RinnaiName == b.RinnaiName &&
		a.Garage == b.Garage && a.GarageDoors == b.GarageDoors
}

func sortedKeys(wemo WemoStatus) []string {
	keys := make([]string, 0, len(wemo))
	for name := range wemo {
		keys = append(keys, name)
	}
	slices.Sort(keys)
	return keys
}
