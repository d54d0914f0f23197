package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/berfenger/homedash/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

var errActorTimeout = errors.New("dashboard did not answer in time")

type errorBody struct {
	Error string `json:"error"`
}

type commandErrorBody struct {
	Error string               `json:"error"`
	View  domain.DashboardView `json:"view"`
}

type camerasBody struct {
	Cameras []domain.CameraView `json:"cameras"`
	Error   string              `json:"error,omitempty"`
}

type actionsBody struct {
	Actions []domain.ScheduledAction `json:"actions"`
	Error   string                   `json:"error,omitempty"`
}

type cancelBody struct {
	Cancelled bool                     `json:"cancelled"`
	Actions   []domain.ScheduledAction `json:"actions"`
}

type historyBody struct {
	Hours      int                      `json:"hours"`
	Projection domain.HistoryProjection `json:"projection"`
	Error      string                   `json:"error,omitempty"`
}

type schedulesBody struct {
	Schedules []domain.DeviceSchedule `json:"schedules"`
	Error     string                  `json:"error,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/version", s.VersionHandler)

	api := e.Group("/api")
	api.GET("/dashboard", s.command(func(echo.Context) (domain.DashboardRequest, error) {
		return domain.GetDashboardRequest{}, nil
	}))
	api.POST("/dashboard/refresh", s.command(func(c echo.Context) (domain.DashboardRequest, error) {
		families, err := domain.ParseFamilies(c.QueryParam("devices"))
		return domain.FetchStatusRequest{Families: families}, err
	}))

	api.POST("/hue/toggle", s.command(func(echo.Context) (domain.DashboardRequest, error) {
		return domain.ToggleLightRequest{}, nil
	}))
	api.POST("/hue/on", s.command(func(echo.Context) (domain.DashboardRequest, error) {
		return domain.SetLightRequest{On: true}, nil
	}))
	api.POST("/hue/off", s.command(func(echo.Context) (domain.DashboardRequest, error) {
		return domain.SetLightRequest{On: false}, nil
	}))

	api.POST("/wemo/:name/toggle", s.command(func(c echo.Context) (domain.DashboardRequest, error) {
		name, err := switchName(c)
		return domain.ToggleSwitchRequest{Name: name}, err
	}))
	api.POST("/wemo/:name/on", s.command(func(c echo.Context) (domain.DashboardRequest, error) {
		name, err := switchName(c)
		return domain.SetSwitchRequest{Name: name, On: true}, err
	}))
	api.POST("/wemo/:name/off", s.command(func(c echo.Context) (domain.DashboardRequest, error) {
		name, err := switchName(c)
		return domain.SetSwitchRequest{Name: name, On: false}, err
	}))

	api.POST("/rinnai/circulate", s.command(func(c echo.Context) (domain.DashboardRequest, error) {
		minutes, err := intQuery(c, "duration", domain.ErrInvalidDuration)
		return domain.CirculateWaterHeaterRequest{Minutes: minutes}, err
	}))
	api.POST("/rinnai/refresh", s.command(func(echo.Context) (domain.DashboardRequest, error) {
		return domain.RefreshWaterHeaterRequest{}, nil
	}))
	api.GET("/rinnai/schedules", s.DeviceSchedulesHandler)

	api.POST("/garage/:door/toggle", s.command(func(c echo.Context) (domain.DashboardRequest, error) {
		door, err := strconv.Atoi(c.Param("door"))
		if err != nil {
			return nil, domain.ErrInvalidDoorIndex
		}
		return domain.ToggleGarageDoorRequest{Door: door}, nil
	}))

	api.GET("/cameras", s.cameras(func(c echo.Context) (domain.DashboardRequest, error) {
		reload, _ := strconv.ParseBool(c.QueryParam("reload"))
		return domain.ListCamerasRequest{Reload: reload}, nil
	}))
	api.POST("/cameras/refresh", s.cameras(func(echo.Context) (domain.DashboardRequest, error) {
		return domain.RefreshCamerasRequest{}, nil
	}))
	api.POST("/cameras/:id/refresh", s.cameras(func(c echo.Context) (domain.DashboardRequest, error) {
		return domain.RefreshCamerasRequest{CameraID: c.Param("id")}, nil
	}))
	api.POST("/cameras/:id/loaded", s.cameras(func(c echo.Context) (domain.DashboardRequest, error) {
		token, err := strconv.ParseInt(c.QueryParam("t"), 10, 64)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid snapshot token")
		}
		return domain.ReportCameraLoadRequest{CameraID: c.Param("id"), Token: token, Error: c.QueryParam("error")}, nil
	}))
	api.GET("/cameras/:id/snapshot", s.SnapshotHandler)

	api.GET("/schedule/actions", s.ListActionsHandler)
	api.DELETE("/schedule/actions/:id", s.CancelActionHandler)

	api.GET("/history", s.HistoryHandler)
	api.POST("/history/refresh", s.HistoryHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.ask(domain.ActorHealthRequest{})
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) VersionHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"version":  versioninfo.Short(),
		"revision": versioninfo.Revision,
		"dirty":    versioninfo.DirtyBuild,
	})
}

type requestBuilder func(c echo.Context) (domain.DashboardRequest, error)

// command answers with the dashboard view. Failed commands still carry the view,
// so the client can render the last confirmed state.
func (s *Server) command(build requestBuilder) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp, err := askAs[domain.DashboardResponse](s, c, build)
		if err != nil {
			return s.fail(c, err)
		}
		if resp.HasResponseError() {
			err := resp.GetResponseError()
			return c.JSON(statusFor(err), commandErrorBody{Error: err.Error(), View: resp.View})
		}
		return c.JSON(http.StatusOK, resp.View)
	}
}

func (s *Server) cameras(build requestBuilder) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp, err := askAs[domain.CamerasResponse](s, c, build)
		if err != nil {
			return s.fail(c, err)
		}
		if resp.HasResponseError() {
			return s.fail(c, resp.GetResponseError())
		}
		return c.JSON(http.StatusOK, camerasBody{Cameras: resp.Cameras, Error: resp.Error})
	}
}

func (s *Server) SnapshotHandler(c echo.Context) error {
	resp, err := askAs[domain.CameraSnapshotResponse](s, c, func(c echo.Context) (domain.DashboardRequest, error) {
		return domain.GetCameraSnapshotRequest{CameraID: c.Param("id")}, nil
	})
	if err != nil {
		return s.fail(c, err)
	}
	if resp.HasResponseError() {
		return s.fail(c, resp.GetResponseError())
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	c.Response().Header().Set("X-Snapshot-Token", strconv.FormatInt(resp.Snapshot.Token, 10))
	return c.Blob(http.StatusOK, resp.Snapshot.ContentType, resp.Snapshot.Data)
}

func (s *Server) ListActionsHandler(c echo.Context) error {
	resp, err := askAs[domain.ActionsResponse](s, c, func(echo.Context) (domain.DashboardRequest, error) {
		return domain.ListActionsRequest{}, nil
	})
	if err != nil {
		return s.fail(c, err)
	}
	status := http.StatusOK
	if resp.HasResponseError() {
		status = statusFor(resp.GetResponseError())
	}
	return c.JSON(status, actionsBody{Actions: resp.Actions, Error: resp.Error})
}

func (s *Server) CancelActionHandler(c echo.Context) error {
	resp, err := askAs[domain.CancelActionResponse](s, c, func(c echo.Context) (domain.DashboardRequest, error) {
		return domain.CancelActionRequest{ID: c.Param("id")}, nil
	})
	if err != nil {
		return s.fail(c, err)
	}
	if resp.HasResponseError() {
		return s.fail(c, resp.GetResponseError())
	}
	return c.JSON(http.StatusOK, cancelBody{Cancelled: resp.Cancelled, Actions: resp.Actions})
}

func (s *Server) HistoryHandler(c echo.Context) error {
	resp, err := askAs[domain.HistoryResponse](s, c, func(c echo.Context) (domain.DashboardRequest, error) {
		if c.Request().Method == http.MethodPost {
			return domain.RefreshHistoryRequest{}, nil
		}
		hours, err := intQuery(c, "hours", errors.New("invalid history hours"))
		return domain.GetHistoryRequest{Hours: hours}, err
	})
	if err != nil {
		return s.fail(c, err)
	}
	status := http.StatusOK
	if resp.HasResponseError() {
		status = statusFor(resp.GetResponseError())
	}
	return c.JSON(status, historyBody{Hours: resp.Hours, Projection: resp.Projection, Error: resp.Error})
}

func (s *Server) DeviceSchedulesHandler(c echo.Context) error {
	resp, err := askAs[domain.DeviceSchedulesResponse](s, c, func(echo.Context) (domain.DashboardRequest, error) {
		return domain.ListDeviceSchedulesRequest{}, nil
	})
	if err != nil {
		return s.fail(c, err)
	}
	status := http.StatusOK
	if resp.HasResponseError() {
		status = statusFor(resp.GetResponseError())
	}
	return c.JSON(status, schedulesBody{Schedules: resp.Schedules, Error: resp.Error})
}

func (s *Server) ask(msg any) (any, error) {
	res, err := s.rootContext.RequestFuture(s.masterActor, msg, s.timeout).Result()
	if err != nil {
		return nil, errActorTimeout
	}
	return res, nil
}

// askAs builds the request from the http context and waits for a response of type R.
// Request validation errors are returned as 400.
func askAs[R any](s *Server, c echo.Context, build requestBuilder) (R, error) {
	var zero R
	req, err := build(c)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return zero, httpErr
		}
		return zero, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := s.ask(req)
	if err != nil {
		return zero, err
	}
	resp, ok := res.(R)
	if !ok {
		s.logger.Error("unexpected response", zap.String("path", c.Path()), zap.Any("response", res))
		return zero, echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	return resp, nil
}

func (s *Server) fail(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return c.JSON(httpErr.Code, errorBody{Error: errorMessage(httpErr)})
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	}
	return c.JSON(status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errActorTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUnknownFamily),
		errors.Is(err, domain.ErrInvalidDoorIndex),
		errors.Is(err, domain.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownCamera),
		errors.Is(err, domain.ErrUnknownSwitch),
		domain.IsStatusCode(err, http.StatusNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func errorMessage(err *echo.HTTPError) string {
	if msg, ok := err.Message.(string); ok {
		return msg
	}
	return http.StatusText(err.Code)
}

func switchName(c echo.Context) (string, error) {
	name, err := url.PathUnescape(c.Param("name"))
	if err != nil || name == "" {
		return "", domain.ErrUnknownSwitch
	}
	return name, nil
}

// intQuery parses an optional non-negative integer query parameter. Absent means zero.
func intQuery(c echo.Context, name string, invalid error) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, invalid
	}
	return value, nil
}
