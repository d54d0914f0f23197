package domain

// Status and device commands. All of them are answered with a DashboardResponse.

type GetDashboardRequest struct {
	DashboardRequestMixIn
}

type FetchStatusRequest struct {
	DashboardRequestMixIn
	Families []Family
}

type ToggleLightRequest struct {
	DashboardRequestMixIn
}

type SetLightRequest struct {
	DashboardRequestMixIn
	On bool
}

type ToggleSwitchRequest struct {
	DashboardRequestMixIn
	Name string
}

type SetSwitchRequest struct {
	DashboardRequestMixIn
	Name string
	On   bool
}

type ToggleGarageDoorRequest struct {
	DashboardRequestMixIn
	Door int
}

type CirculateWaterHeaterRequest struct {
	DashboardRequestMixIn
	Minutes int
}

type RefreshWaterHeaterRequest struct {
	DashboardRequestMixIn
}

type DashboardResponse struct {
	ActorResponseMixIn
	View DashboardView
}

// Cameras

type ListCamerasRequest struct {
	DashboardRequestMixIn
	Reload bool
}

// RefreshCamerasRequest refreshes one camera, or all of them when CameraID is empty.
type RefreshCamerasRequest struct {
	DashboardRequestMixIn
	CameraID string
}

type ReportCameraLoadRequest struct {
	DashboardRequestMixIn
	CameraID string
	Token    int64
	Error    string
}

type CamerasResponse struct {
	ActorResponseMixIn
	Cameras []CameraView
	Error   string
}

type GetCameraSnapshotRequest struct {
	DashboardRequestMixIn
	CameraID string
}

type CameraSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot Snapshot
}

// Scheduled actions

type ListActionsRequest struct {
	DashboardRequestMixIn
}

type CancelActionRequest struct {
	DashboardRequestMixIn
	ID string
}

type ActionsResponse struct {
	ActorResponseMixIn
	Actions []ScheduledAction
	Error   string
}

type CancelActionResponse struct {
	ActorResponseMixIn
	Cancelled bool
	Actions   []ScheduledAction
}

// History and device schedules

type GetHistoryRequest struct {
	DashboardRequestMixIn
	Hours int
}

type RefreshHistoryRequest struct {
	DashboardRequestMixIn
}

type HistoryResponse struct {
	ActorResponseMixIn
	Hours      int
	Projection HistoryProjection
	Error      string
}

type ListDeviceSchedulesRequest struct {
	DashboardRequestMixIn
}

type DeviceSchedulesResponse struct {
	ActorResponseMixIn
	Schedules []DeviceSchedule
	Error     string
}

// ensure interface compliance
var (
	_ DashboardRequest = (*ToggleSwitchRequest)(nil)
	_ DashboardRequest = (*CancelActionRequest)(nil)
	_ DashboardRequest = (*GetHistoryRequest)(nil)
)
