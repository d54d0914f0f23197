package actorutil

import (
	"testing"

	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/mqtt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedMQTTCommandToCommand(t *testing.T) {
	inv := domain.Inventory{WemoSwitches: []string{"Coffee Maker", "tree"}}

	cases := []struct {
		name     string
		cmd      mqtt.ParsedMQTTCommand
		expected domain.ActorRequest
	}{
		{"light on", mqtt.ParsedMQTTCommand{DeviceId: "hue_light", Payload: "on"}, domain.SetLightRequest{On: true}},
		{"light off", mqtt.ParsedMQTTCommand{DeviceId: "hue_light", Payload: "off"}, domain.SetLightRequest{On: false}},
		{"wemo by slug", mqtt.ParsedMQTTCommand{DeviceId: "wemo_coffee_maker", Payload: "on"}, domain.SetSwitchRequest{Name: "Coffee Maker", On: true}},
		{"circulate", mqtt.ParsedMQTTCommand{DeviceId: "rinnai_recirculation", Payload: "on"}, domain.CirculateWaterHeaterRequest{}},
		{"garage", mqtt.ParsedMQTTCommand{DeviceId: "garage_door_2", Payload: "on"}, domain.ToggleGarageDoorRequest{Door: 2}},
		{"minutes", mqtt.ParsedMQTTCommand{DeviceId: "rinnai_circulation_minutes", Command: "number", Payload: "15"}, domain.SetCirculationMinutesRequest{Minutes: 15}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req, err := ParsedMQTTCommandToCommand(c.cmd, inv)
			require.NoError(t, err)
			assert.Equal(t, c.expected, req)
		})
	}
}

func TestParsedMQTTCommandMomentaryOff(t *testing.T) {
	for _, id := range []string{"rinnai_recirculation", "garage_door_1"} {
		req, err := ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{DeviceId: id, Payload: "off"}, domain.Inventory{})
		assert.NoError(t, err)
		assert.Nil(t, req)
	}
}

func TestParsedMQTTCommandErrors(t *testing.T) {
	inv := domain.Inventory{WemoSwitches: []string{"tree"}}

	_, err := ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{DeviceId: "wemo_lamp", Payload: "on"}, inv)
	assert.ErrorIs(t, err, ErrUnknownEntity)

	_, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{DeviceId: "garage_door_x", Payload: "on"}, inv)
	assert.ErrorIs(t, err, ErrUnknownEntity)

	_, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{DeviceId: "rinnai_circulation_minutes", Payload: "90"}, inv)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{DeviceId: "sprinkler_zone_1", Payload: "on"}, inv)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}
