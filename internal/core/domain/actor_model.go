package domain

import "time"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_DASHBOARD    = "dashboard"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// DashboardView is the read model of the status snapshot store.
type DashboardView struct {
	Status    DeviceStatus `json:"status"`
	Loading   bool         `json:"loading"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// SetCirculationMinutesRequest changes the duration used by the recirculation switch.
type SetCirculationMinutesRequest struct {
	ActorRequestMixIn
	Minutes int
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// GetInventoryRequest asks the master for the last known device inventory.
type GetInventoryRequest struct {
	ActorRequestMixIn
}

type InventoryResponse struct {
	ActorResponseMixIn
	Inventory Inventory
}
