package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE                  = "bridge"
	SENSOR_ID_HUE_BRIGHTNESS                = "hue_brightness"
	SENSOR_ID_RINNAI_ONLINE                 = "rinnai_online"
	SENSOR_ID_RINNAI_SET_TEMPERATURE        = "rinnai_set_temperature"
	SENSOR_ID_RINNAI_INLET_TEMPERATURE      = "rinnai_inlet_temperature"
	SENSOR_ID_RINNAI_OUTLET_TEMPERATURE     = "rinnai_outlet_temperature"
	SENSOR_ID_RINNAI_WATER_FLOW             = "rinnai_water_flow"
	SENSOR_ID_GARAGE_AVAILABLE              = "garage_available"
	SWITCH_ID_HUE_LIGHT                     = "hue_light"
	SWITCH_ID_RINNAI_RECIRCULATION          = "rinnai_recirculation"
	SWITCH_ID_WEMO_PREFIX                   = "wemo_"
	SWITCH_ID_GARAGE_DOOR_PREFIX            = "garage_door_"
	INPUT_NUMBER_ID_RINNAI_CIRCULATION_MINS = "rinnai_circulation_minutes"
	STATE_CLASS_MEASUREMENT                 = "measurement"
	DEVICE_CLASS_TEMPERATURE                = "temperature"
	DEVICE_CLASS_CONNECTIVITY               = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC                 = "diagnostic"
	ENTITY_CLASS_CONFIG                     = "config"
	SENSOR_TYPE_SENSOR                      = "sensor"
	SENSOR_TYPE_BINARY                      = "binary_sensor"
	INPUT_NUMBER_MODE_BOX                   = "box"
	INPUT_NUMBER_MODE_SLIDER                = "slider"
	MAX_CIRCULATION_MINUTES                 = 60
)

var slugRegexp = regexp.MustCompile("[^a-z0-9]+")

func Slug(name string) string {
	return strings.Trim(slugRegexp.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

func WemoSwitchId(name string) string {
	return SWITCH_ID_WEMO_PREFIX + Slug(name)
}

func GarageDoorSwitchId(door int) string {
	return fmt.Sprintf("%s%d", SWITCH_ID_GARAGE_DOOR_PREFIX, door)
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("homedash_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "berfenger",
		Model:        "Homedash",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Homedash %s", md5HashShort(baseTopic)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{connectivitySensor(bridgeDevice, SENSOR_ID_BRIDGE_STATE, "Connection state")}
}

func childDevice(bridge Device, kind, name, model, manufacturer string) Device {
	return Device{
		Id:           fmt.Sprintf("homedash_%s_%s", kind, md5HashShort(bridge.Id+name)),
		Name:         name,
		Model:        model,
		Manufacturer: manufacturer,
		ViaDevice:    bridge.Id,
	}
}

// InventoryEntities builds the Home Assistant entities for every device in the inventory.
// The first entity of a device carries the full device block, the rest only its id.
func InventoryEntities(bridge Device, inv Inventory) ([]GenericSensor, []GenericSwitch, []GenericInputNumber) {
	sensors := BridgeSensors(bridge)
	var switches []GenericSwitch
	var inputNumbers []GenericInputNumber

	if inv.Hue {
		dev := childDevice(bridge, "hue", nameOr(inv.HueName, "Hue light"), "Hue", "Philips")
		switches = append(switches, GenericSwitch{newEntity(dev, SWITCH_ID_HUE_LIGHT, "Light", "mdi:lightbulb")})
		sensors = append(sensors, measurementSensor(IdDevice(dev), SENSOR_ID_HUE_BRIGHTNESS, "Brightness", "", "mdi:brightness-6"))
	}

	for _, name := range inv.WemoSwitches {
		dev := childDevice(bridge, "wemo", name, "Wemo", "Belkin")
		switches = append(switches, GenericSwitch{newEntity(dev, WemoSwitchId(name), "Power", "mdi:power-socket-us")})
	}

	if inv.Rinnai {
		dev := childDevice(bridge, "rinnai", nameOr(inv.RinnaiName, "Water heater"), "Control-R", "Rinnai")
		sensors = append(sensors, connectivitySensor(dev, SENSOR_ID_RINNAI_ONLINE, "Online"))
		for _, t := range []struct{ id, name string }{
			{SENSOR_ID_RINNAI_SET_TEMPERATURE, "Set temperature"},
			{SENSOR_ID_RINNAI_INLET_TEMPERATURE, "Inlet temperature"},
			{SENSOR_ID_RINNAI_OUTLET_TEMPERATURE, "Outlet temperature"},
		} {
			temp := measurementSensor(IdDevice(dev), t.id, t.name, "°F", "")
			temp.DeviceClass = DEVICE_CLASS_TEMPERATURE
			sensors = append(sensors, temp)
		}
		flow := measurementSensor(IdDevice(dev), SENSOR_ID_RINNAI_WATER_FLOW, "Water flow", "gal/min", "mdi:water-pump")
		flow.EnabledByDefault = optionalBool(false)
		sensors = append(sensors, flow)

		switches = append(switches, GenericSwitch{newEntity(IdDevice(dev), SWITCH_ID_RINNAI_RECIRCULATION, "Recirculation", "mdi:water-sync")})
		inputNumbers = append(inputNumbers, GenericInputNumber{
			Entity:       newEntity(IdDevice(dev), INPUT_NUMBER_ID_RINNAI_CIRCULATION_MINS, "Recirculation duration", "mdi:timer-outline"),
			Min:          1,
			Max:          MAX_CIRCULATION_MINUTES,
			Step:         1,
			Mode:         INPUT_NUMBER_MODE_BOX,
			InitialValue: 5,
		})
	}

	if inv.Garage {
		dev := childDevice(bridge, "garage", "Garage", "Garage opener", "Meross")
		sensors = append(sensors, connectivitySensor(dev, SENSOR_ID_GARAGE_AVAILABLE, "Available"))
		for door := 1; door <= inv.GarageDoors; door++ {
			switches = append(switches, GenericSwitch{newEntity(IdDevice(dev), GarageDoorSwitchId(door), fmt.Sprintf("Door %d", door), "mdi:garage")})
		}
	}

	return sensors, switches, inputNumbers
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
