package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryEntities(t *testing.T) {
	bridge := BridgeDevice("homedash")
	inv := Inventory{
		Hue:          true,
		WemoSwitches: []string{"Coffee"},
		Rinnai:       true,
		Garage:       true,
		GarageDoors:  2,
	}

	sensors, switches, numbers := InventoryEntities(bridge, inv)

	// bridge + hue brightness + rinnai online/3 temps/flow + garage available
	assert.Len(t, sensors, 1+1+5+1)
	// hue + wemo + recirculation + 2 doors
	assert.Len(t, switches, 1+1+1+2)
	require.Len(t, numbers, 1)

	ids := map[string]Entity{}
	for _, s := range sensors {
		ids[s.Id] = s.Entity
	}
	for _, s := range switches {
		ids[s.Id] = s.Entity
	}
	for _, id := range []string{SENSOR_ID_BRIDGE_STATE, SWITCH_ID_HUE_LIGHT, WemoSwitchId("Coffee"),
		SWITCH_ID_RINNAI_RECIRCULATION, GarageDoorSwitchId(1), GarageDoorSwitchId(2)} {
		require.Contains(t, ids, id)
		e := ids[id]
		assert.Equal(t, uniqueId(e.Device.Id, id), e.UniqueId)
	}
	assert.Equal(t, "Light", ids[SWITCH_ID_HUE_LIGHT].Name)
	assert.Equal(t, "Hue light", ids[SWITCH_ID_HUE_LIGHT].Device.Name)
	assert.Equal(t, bridge.Id, ids[SWITCH_ID_HUE_LIGHT].Device.ViaDevice)
	// follow-up entities only reference their device
	assert.Empty(t, ids[GarageDoorSwitchId(2)].Device.Model)

	assert.Equal(t, INPUT_NUMBER_ID_RINNAI_CIRCULATION_MINS, numbers[0].Id)
	assert.Equal(t, float64(MAX_CIRCULATION_MINUTES), numbers[0].Max)

	for _, s := range sensors {
		if s.Id == SENSOR_ID_RINNAI_WATER_FLOW {
			require.NotNil(t, s.EnabledByDefault)
			assert.False(t, *s.EnabledByDefault)
		}
		if s.Id == SENSOR_ID_RINNAI_ONLINE {
			assert.Equal(t, SENSOR_TYPE_BINARY, s.SensorType)
			assert.Equal(t, ENTITY_CLASS_DIAGNOSTIC, s.EntityCategory)
		}
	}
}

func TestInventoryEntitiesEmpty(t *testing.T) {
	sensors, switches, numbers := InventoryEntities(BridgeDevice("homedash"), Inventory{})
	assert.Len(t, sensors, 1)
	assert.Empty(t, switches)
	assert.Empty(t, numbers)
}
