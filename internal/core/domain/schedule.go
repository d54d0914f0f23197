package domain

import (
	"encoding/json"
	"errors"
)

type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionExecuted  ActionStatus = "executed"
	ActionCancelled ActionStatus = "cancelled"
	ActionFailed    ActionStatus = "failed"
)

type Action struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// ScheduledAction is a server-owned one-shot future command.
type ScheduledAction struct {
	ID        string       `json:"id"`
	Action    Action       `json:"action"`
	Display   string       `json:"action_display"`
	Minutes   int          `json:"minutes"`
	CreatedAt Timestamp    `json:"created_at"`
	ExecuteAt Timestamp    `json:"execute_at"`
	Status    ActionStatus `json:"status"`
}

func (a ScheduledAction) IsPending() bool {
	return a.Status == ActionPending
}

type scheduledActionsEnvelope struct {
	Actions []ScheduledAction `json:"actions"`
}

func ParseScheduledActions(data []byte) ([]ScheduledAction, error) {
	var env scheduledActionsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ParseError{Op: "schedule actions", Err: err}
	}
	for _, a := range env.Actions {
		if a.ID == "" {
			return nil, &ParseError{Op: "schedule actions", Err: errors.New("action without id")}
		}
	}
	if env.Actions == nil {
		env.Actions = []ScheduledAction{}
	}
	return env.Actions, nil
}

// DeviceSchedule is a recurring schedule stored on the water heater itself.
type DeviceSchedule struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Days   json.RawMessage `json:"days"`
	Times  json.RawMessage `json:"times"`
	Active bool            `json:"active"`
}

func ParseDeviceSchedules(data []byte) ([]DeviceSchedule, error) {
	schedules := []DeviceSchedule{}
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, &ParseError{Op: "rinnai schedules", Family: FamilyRinnai, Err: err}
	}
	if schedules == nil {
		schedules = []DeviceSchedule{}
	}
	return schedules, nil
}
