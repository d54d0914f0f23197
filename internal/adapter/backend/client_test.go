package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/homedash/internal/config"
	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/core/port"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	mu       sync.Mutex
	requests []*http.Request
}

func (g *fakeGateway) record(c echo.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, c.Request())
}

func (g *fakeGateway) last() *http.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

func newTestClient(t *testing.T, register func(api *echo.Group, g *fakeGateway)) (*Client, *fakeGateway) {
	e := echo.New()
	g := &fakeGateway{}
	api := e.Group("/api", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			g.record(c)
			return next(c)
		}
	})
	register(api, g)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	logger, _ := zap.NewDevelopment()
	client := NewClient(config.BackendConfig{
		BaseURL:              srv.URL + "/api/",
		RequestTimeoutMillis: 500,
		ProbeTimeoutMillis:   1000,
	}, logger)
	return client, g
}

func TestGetStatusSubset(t *testing.T) {
	client, g := newTestClient(t, func(api *echo.Group, _ *fakeGateway) {
		api.GET("/status", func(c echo.Context) error {
			return c.JSONBlob(http.StatusOK, []byte(`{"wemo": {"coffee": {"name": "coffee", "is_on": true}}, "timestamp": "2025-01-01T10:00:00"}`))
		})
	})

	status, err := client.GetStatus(context.Background(), port.StatusQuery{
		Families:      []domain.Family{domain.FamilyWemo, domain.FamilyGarage},
		RinnaiRefresh: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PowerOn, status.Wemo["coffee"].IsOn)
	assert.Nil(t, status.Hue)

	req := g.last()
	assert.Equal(t, "wemo,garage", req.URL.Query().Get("devices"))
	assert.Equal(t, "true", req.URL.Query().Get("rinnai_refresh"))
	assert.NotEmpty(t, req.Header.Get(echo.HeaderXRequestID))
}

func TestGetStatusAllFamiliesOmitsFilter(t *testing.T) {
	client, g := newTestClient(t, func(api *echo.Group, _ *fakeGateway) {
		api.GET("/status", func(c echo.Context) error {
			return c.JSONBlob(http.StatusOK, []byte(`{}`))
		})
	})

	_, err := client.GetStatus(context.Background(), port.StatusQuery{})
	require.NoError(t, err)
	assert.Empty(t, g.last().URL.RawQuery)
}

func TestGetStatusMalformed(t *testing.T) {
	client, _ := newTestClient(t, func(api *echo.Group, _ *fakeGateway) {
		api.GET("/status", func(c echo.Context) error {
			return c.JSONBlob(http.StatusOK, []byte(`{"hue": {"brightness": 999}}`))
		})
	})

	_, err := client.GetStatus(context.Background(), port.StatusQuery{})
	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, domain.FamilyHue, parseErr.Family)
}

func TestCommandEnvelopeError(t *testing.T) {
	client, _ := newTestClient(t, func(api *echo.Group, _ *fakeGateway) {
		api.GET("/hue/toggle", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "error", "message": "bridge unreachable"})
		})
	})

	err := client.ToggleLight(context.Background())
	var cmdErr *domain.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "bridge unreachable", cmdErr.Message)
}

func TestCommandPaths(t *testing.T) {
	client, g := newTestClient(t, func(api *echo.Group, _ *fakeGateway) {
		ok := func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "success"})
		}
		api.GET("/hue/on", ok)
		api.GET("/hue/off", ok)
		api.GET("/wemo/:name/toggle", ok)
		api.GET("/wemo/:name/off", ok)
		api.GET("/rinnai/circulate", ok)
		api.GET("/garage/:door/toggle", ok)
	})
	ctx := context.Background()

	require.NoError(t, client.SetLight(ctx, true))
	assert.Equal(t, "/api/hue/on", g.last().URL.Path)

	require.NoError(t, client.SetLight(ctx, false))
	assert.Equal(t, "/api/hue/off", g.last().URL.Path)

	require.NoError(t, client.ToggleSwitch(ctx, "coffee maker"))
	assert.Equal(t, "/api/wemo/coffee maker/toggle", g.last().URL.Path)

	require.NoError(t, client.SetSwitch(ctx, "tree", false))
	assert.Equal(t, "/api/wemo/tree/off", g.last().URL.Path)

	require.NoError(t, client.Circulate(ctx, 15))
	assert.Equal(t, "15", g.last().URL.Query().Get("duration"))

	require.NoError(t, client.ToggleGarageDoor(ctx, 2))
	assert.Equal(t, "/api/garage/2/toggle", g.last().URL.Path)
}

func TestStatusErrorDetail(t *testing.T) {
	client, _ := newTestClient(t, func(api *echo.Group, _ *fakeGateway) {
		api.GET("/garage/:door/toggle", func(c echo.Context) error {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "door_index out of range"})
		})
	})

	err := client.ToggleGarageDoor(context.Background(), 7)
	var statusErr *domain.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Equal(t, "door_index out of range", statusErr.Message)
	assert.True(t, domain.IsStatusCode(err, http.StatusBadRequest))
}

func TestTransportErrorOnTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(api *echo.Group, _ *fakeGateway) {
		api.GET("/cameras", func(c echo.Context) error {
			select {
			case <-time.After(2 * time.Second):
			case <-c.Request().Context().Done():
			}
			return c.NoContent(http.StatusOK)
		})
	})

	_, err := client.ListCameras(context.Background())
	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCamerasAndSnapshot(t *testing.T) {
	client, g := newTestClient(t, func(api *echo.Group, _ *fakeGateway) {
		api.GET("/cameras", func(c echo.Context) error {
			return c.JSONBlob(http.StatusOK, []byte(`{"cameras": [{"id": "front", "name": "Front door"}]}`))
		})
		api.GET("/cameras/snapshot/:id", func(c echo.Context) error {
			if c.Param("id") != "front" {
				return c.JSON(http.StatusNotFound, map[string]string{"detail": "Camera not found"})
			}
			return c.Blob(http.StatusOK, "image/jpeg", []byte{0xff, 0xd8, 0xff})
		})
	})
	ctx := context.Background()

	cameras, err := client.ListCameras(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Camera{{ID: "front", Name: "Front door"}}, cameras)

	snap, err := client.Snapshot(ctx, "front", 42)
	require.NoError(t, err)
	assert.Equal(t, "42", g.last().URL.Query().Get("t"))
	assert.Equal(t, "image/jpeg", snap.ContentType)
	assert.Equal(t, int64(42), snap.Token)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, snap.Data)

	_, err = client.Snapshot(ctx, "garden", 43)
	assert.True(t, domain.IsStatusCode(err, http.StatusNotFound))

	assert.Contains(t, client.SnapshotURL("front", 44), "/api/cameras/snapshot/front?t=44")
}

func TestScheduleActions(t *testing.T) {
	client, g := newTestClient(t, func(api *echo.Group, _ *fakeGateway) {
		api.GET("/schedule/actions", func(c echo.Context) error {
			return c.JSONBlob(http.StatusOK, []byte(`{"actions": [{"id": "a1", "action": {"type": "wemo_off", "params": {"name": "coffee"}}, "action_display": "Turn off coffee", "status": "pending"}]}`))
		})
		api.DELETE("/schedule/actions/:id", func(c echo.Context) error {
			if c.Param("id") != "a1" {
				return c.JSON(http.StatusNotFound, map[string]string{"detail": "Action not found"})
			}
			return c.JSON(http.StatusOK, map[string]string{"id": "a1", "status": "cancelled"})
		})
	})
	ctx := context.Background()

	actions, err := client.ListActions(ctx, domain.ActionPending)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "pending", g.last().URL.Query().Get("status"))

	require.NoError(t, client.CancelAction(ctx, "a1"))
	assert.Equal(t, http.MethodDelete, g.last().Method)

	err = client.CancelAction(ctx, "zz")
	assert.True(t, domain.IsStatusCode(err, http.StatusNotFound))
}

func TestHistoryAndDeviceSchedules(t *testing.T) {
	client, g := newTestClient(t, func(api *echo.Group, _ *fakeGateway) {
		api.GET("/history", func(c echo.Context) error {
			return c.JSONBlob(http.StatusOK, []byte(`[{"id": 1, "device_type": "wemo", "device_name": "coffee", "timestamp": "2025-01-01T10:00:00", "data": "{\"is_on\": true}"}]`))
		})
		api.GET("/rinnai/schedules", func(c echo.Context) error {
			return c.JSONBlob(http.StatusOK, []byte(`[{"id": "s1", "name": "Morning", "days": ["mon"], "times": [{"start": "06:00"}], "active": true}]`))
		})
	})
	ctx := context.Background()

	records, err := client.History(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, "12", g.last().URL.Query().Get("hours"))
	require.Len(t, records, 1)
	assert.Equal(t, true, records[0].Payload()["is_on"])

	schedules, err := client.DeviceSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.True(t, schedules[0].Active)
	assert.Equal(t, "Morning", schedules[0].Name)
}
