package domain

// Home Assistant entity model. Every dashboard device maps to one Device
// hanging off the bridge, with its entities attached to it.

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

// Entity holds the fields shared by every entity kind.
type Entity struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}

// newEntity derives the unique id from the owning device.
func newEntity(device Device, id, name, icon string) Entity {
	return Entity{
		Device:   device,
		Id:       id,
		Name:     name,
		UniqueId: uniqueId(device.Id, id),
		Icon:     icon,
	}
}

type GenericSensor struct {
	Entity
	SensorType        string // sensor, binary_sensor
	UnitOfMeasurement string
	StateClass        string // measurement
	DeviceClass       string // temperature, connectivity
	EntityCategory    string // diagnostic or empty
	EnabledByDefault  *bool
}

// connectivitySensor is the diagnostic online/offline sensor each device family exposes.
func connectivitySensor(device Device, id, name string) GenericSensor {
	return GenericSensor{
		Entity:         newEntity(device, id, name, ""),
		SensorType:     SENSOR_TYPE_BINARY,
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
	}
}

func measurementSensor(device Device, id, name, unit, icon string) GenericSensor {
	return GenericSensor{
		Entity:            newEntity(device, id, name, icon),
		SensorType:        SENSOR_TYPE_SENSOR,
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: unit,
	}
}

type GenericSwitch struct {
	Entity
}

type GenericInputNumber struct {
	Entity
	Max          float64
	Min          float64
	Step         float64
	Mode         string
	InitialValue float64
}
