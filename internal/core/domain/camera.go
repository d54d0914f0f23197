package domain

import (
	"encoding/json"
	"errors"
)

type Camera struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CameraState is the presentation state of one camera still.
type CameraState struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

type CameraView struct {
	Camera
	State       CameraState `json:"state"`
	Token       int64       `json:"token"`
	SnapshotURL string      `json:"snapshot_url"`
}

type Snapshot struct {
	CameraID    string
	Token       int64
	ContentType string
	Data        []byte
}

type camerasEnvelope struct {
	Cameras []Camera `json:"cameras"`
}

func ParseCameras(data []byte) ([]Camera, error) {
	var env camerasEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ParseError{Op: "cameras", Err: err}
	}
	for _, c := range env.Cameras {
		if c.ID == "" {
			return nil, &ParseError{Op: "cameras", Err: errors.New("camera without id")}
		}
	}
	if env.Cameras == nil {
		env.Cameras = []Camera{}
	}
	return env.Cameras, nil
}
