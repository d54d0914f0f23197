package service

import (
	"context"
	"slices"

	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/core/port"

	"go.uber.org/zap"
)

const CamerasLoadFailedMessage = "failed to load cameras"

// SnapshotResult is the outcome of one snapshot download.
type SnapshotResult struct {
	CameraID string
	Token    int64
	Snapshot *domain.Snapshot
	Err      error
}

// CameraTracker keeps per camera loading state and the cache-busting token of the
// latest requested still.
type CameraTracker struct {
	api       port.CameraAPI
	exec      port.Executor
	clock     port.Clock
	logger    *zap.Logger
	cameras   []domain.Camera
	states    map[string]domain.CameraState
	tokens    map[string]int64
	images    map[string]domain.Snapshot
	lastToken int64
	err       string
}

func NewCameraTracker(api port.CameraAPI, exec port.Executor, clock port.Clock, logger *zap.Logger) *CameraTracker {
	return &CameraTracker{
		api:     api,
		exec:    exec,
		clock:   clock,
		logger:  logger,
		cameras: []domain.Camera{},
		states:  map[string]domain.CameraState{},
		tokens:  map[string]int64{},
		images:  map[string]domain.Snapshot{},
	}
}

// ListCameras loads the roster and resets every camera to idle under a new token.
// Downloads still in flight complete as stale.
func (t *CameraTracker) ListCameras(done Done) {
	execute(t.exec, t.api.ListCameras, func(cameras []domain.Camera, err error) {
		if err != nil {
			t.logger.Warn("list cameras failed", zap.Error(err))
			t.err = CamerasLoadFailedMessage
			complete(done, err)
			return
		}
		t.cameras = cameras
		t.states = make(map[string]domain.CameraState, len(cameras))
		t.tokens = make(map[string]int64, len(cameras))
		t.images = map[string]domain.Snapshot{}
		for _, c := range cameras {
			t.states[c.ID] = domain.CameraState{}
			t.tokens[c.ID] = t.nextToken()
		}
		t.err = ""
		complete(done, nil)
	})
}

// RefreshAll marks every camera as loading under a new token and returns the
// downloads to perform.
func (t *CameraTracker) RefreshAll() []SnapshotResult {
	requests := make([]SnapshotResult, 0, len(t.cameras))
	for _, c := range t.cameras {
		requests = append(requests, t.begin(c.ID))
	}
	return requests
}

func (t *CameraTracker) RefreshOne(cameraID string) (SnapshotResult, error) {
	if !t.Known(cameraID) {
		return SnapshotResult{}, domain.ErrUnknownCamera
	}
	return t.begin(cameraID), nil
}

func (t *CameraTracker) begin(cameraID string) SnapshotResult {
	token := t.nextToken()
	t.tokens[cameraID] = token
	t.states[cameraID] = domain.CameraState{Loading: true}
	delete(t.images, cameraID)
	return SnapshotResult{CameraID: cameraID, Token: token}
}

// Complete applies a finished download. Results carrying a superseded token are
// ignored and false is returned.
func (t *CameraTracker) Complete(result SnapshotResult) bool {
	current, ok := t.tokens[result.CameraID]
	if !ok || current != result.Token {
		t.logger.Debug("stale snapshot ignored", zap.String("camera", result.CameraID), zap.Int64("token", result.Token))
		return false
	}
	if result.Err != nil {
		t.states[result.CameraID] = domain.CameraState{Error: result.Err.Error()}
		delete(t.images, result.CameraID)
		return true
	}
	t.states[result.CameraID] = domain.CameraState{}
	if result.Snapshot != nil {
		img := *result.Snapshot
		img.CameraID = result.CameraID
		img.Token = result.Token
		t.images[result.CameraID] = img
	}
	return true
}

// ReportLoad records a completion observed by a presentation layer that loaded the image itself.
func (t *CameraTracker) ReportLoad(cameraID string, token int64, errMsg string) (bool, error) {
	if !t.Known(cameraID) {
		return false, domain.ErrUnknownCamera
	}
	result := SnapshotResult{CameraID: cameraID, Token: token}
	if errMsg != "" {
		result.Err = snapshotLoadError(errMsg)
	}
	return t.Complete(result), nil
}

// Fetch downloads a still. It does not touch tracker state.
func (t *CameraTracker) Fetch(ctx context.Context, request SnapshotResult) SnapshotResult {
	snapshot, err := t.api.Snapshot(ctx, request.CameraID, request.Token)
	if err != nil {
		request.Err = err
		return request
	}
	request.Snapshot = &snapshot
	return request
}

// Download fetches request on the executor and completes it. then reports
// whether the result still matched the current token.
func (t *CameraTracker) Download(request SnapshotResult, then func(result SnapshotResult, applied bool)) {
	execute(t.exec, func(ctx context.Context) (SnapshotResult, error) {
		return t.Fetch(ctx, request), nil
	}, func(result SnapshotResult, err error) {
		if err != nil {
			result = request
			result.Err = err
		}
		then(result, t.Complete(result))
	})
}

// Image returns the cached still for the current token.
func (t *CameraTracker) Image(cameraID string) (domain.Snapshot, bool) {
	img, ok := t.images[cameraID]
	if !ok || img.Token != t.tokens[cameraID] {
		return domain.Snapshot{}, false
	}
	return img, true
}

func (t *CameraTracker) Known(cameraID string) bool {
	_, ok := t.tokens[cameraID]
	return ok
}

func (t *CameraTracker) Token(cameraID string) int64 {
	return t.tokens[cameraID]
}

func (t *CameraTracker) State(cameraID string) (domain.CameraState, bool) {
	s, ok := t.states[cameraID]
	return s, ok
}

func (t *CameraTracker) SnapshotURL(cameraID string) string {
	return t.api.SnapshotURL(cameraID, t.tokens[cameraID])
}

func (t *CameraTracker) Cameras() []domain.Camera {
	return slices.Clone(t.cameras)
}

func (t *CameraTracker) Views() []domain.CameraView {
	views := make([]domain.CameraView, 0, len(t.cameras))
	for _, c := range t.cameras {
		views = append(views, domain.CameraView{
			Camera:      c,
			State:       t.states[c.ID],
			Token:       t.tokens[c.ID],
			SnapshotURL: t.SnapshotURL(c.ID),
		})
	}
	return views
}

func (t *CameraTracker) Err() string {
	return t.err
}

// nextToken is strictly increasing, even when the clock stalls or goes backwards.
func (t *CameraTracker) nextToken() int64 {
	token := t.clock.Now().UnixMilli()
	if token <= t.lastToken {
		token = t.lastToken + 1
	}
	t.lastToken = token
	return token
}

type snapshotLoadError string

func (e snapshotLoadError) Error() string {
	return string(e)
}
