package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/homedash/internal/config"
	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/core/port"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	maxResponseSize = 10 << 20
	maxSnapshotSize = 20 << 20
)

// Client talks to the device gateway REST API. Every call is bounded by its own timeout.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	probeTimeout   time.Duration
	logger         *zap.Logger
}

var _ port.Backend = (*Client)(nil)

func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{},
		requestTimeout: cfg.RequestTimeout(),
		probeTimeout:   cfg.ProbeTimeout(),
		logger:         logger,
	}
}

// commandEnvelope is the body of command endpoints. A 2xx response may still
// carry status "error".
type commandEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type errorBody struct {
	Detail  any    `json:"detail"`
	Message string `json:"message"`
}

func (c *Client) GetStatus(ctx context.Context, query port.StatusQuery) (domain.DeviceStatus, error) {
	params := url.Values{}
	if len(query.Families) > 0 {
		params.Set("devices", domain.FamiliesCSV(query.Families))
	}
	timeout := c.requestTimeout
	if query.RinnaiRefresh {
		params.Set("rinnai_refresh", "true")
		timeout = c.probeTimeout
	}
	body, err := c.get(ctx, "status", "/status", params, timeout)
	if err != nil {
		return domain.DeviceStatus{}, err
	}
	return domain.ParseDeviceStatus(body)
}

func (c *Client) ToggleLight(ctx context.Context) error {
	return c.command(ctx, "toggle light", "/hue/toggle", nil)
}

func (c *Client) SetLight(ctx context.Context, on bool) error {
	return c.command(ctx, "set light", "/hue/"+onOff(on), nil)
}

func (c *Client) ToggleSwitch(ctx context.Context, name string) error {
	return c.command(ctx, "toggle switch", "/wemo/"+url.PathEscape(name)+"/toggle", nil)
}

func (c *Client) SetSwitch(ctx context.Context, name string, on bool) error {
	return c.command(ctx, "set switch", "/wemo/"+url.PathEscape(name)+"/"+onOff(on), nil)
}

func (c *Client) Circulate(ctx context.Context, minutes int) error {
	params := url.Values{}
	params.Set("duration", strconv.Itoa(minutes))
	return c.command(ctx, "circulate", "/rinnai/circulate", params)
}

func (c *Client) ToggleGarageDoor(ctx context.Context, door int) error {
	return c.command(ctx, "toggle garage door", "/garage/"+strconv.Itoa(door)+"/toggle", nil)
}

func (c *Client) ListCameras(ctx context.Context) ([]domain.Camera, error) {
	body, err := c.get(ctx, "cameras", "/cameras", nil, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	return domain.ParseCameras(body)
}

func (c *Client) SnapshotURL(cameraID string, token int64) string {
	return c.baseURL + "/cameras/snapshot/" + url.PathEscape(cameraID) + "?t=" + strconv.FormatInt(token, 10)
}

func (c *Client) Snapshot(ctx context.Context, cameraID string, token int64) (domain.Snapshot, error) {
	const op = "snapshot"
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	resp, err := c.do(ctx, op, http.MethodGet, c.SnapshotURL(cameraID, token))
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return domain.Snapshot{}, &domain.TransportError{Op: op, Err: err}
	}
	if err := statusError(op, resp.StatusCode, data); err != nil {
		return domain.Snapshot{}, err
	}
	contentType := resp.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return domain.Snapshot{CameraID: cameraID, Token: token, ContentType: contentType, Data: data}, nil
}

func (c *Client) ListActions(ctx context.Context, status domain.ActionStatus) ([]domain.ScheduledAction, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", string(status))
	}
	body, err := c.get(ctx, "list actions", "/schedule/actions", params, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	return domain.ParseScheduledActions(body)
}

func (c *Client) CancelAction(ctx context.Context, id string) error {
	const op = "cancel action"
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	_, err := c.roundTrip(ctx, op, http.MethodDelete, c.baseURL+"/schedule/actions/"+url.PathEscape(id))
	return err
}

func (c *Client) DeviceSchedules(ctx context.Context) ([]domain.DeviceSchedule, error) {
	body, err := c.get(ctx, "rinnai schedules", "/rinnai/schedules", nil, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	return domain.ParseDeviceSchedules(body)
}

func (c *Client) History(ctx context.Context, hours int) ([]domain.HistoryRecord, error) {
	params := url.Values{}
	params.Set("hours", strconv.Itoa(hours))
	body, err := c.get(ctx, "history", "/history", params, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	return domain.ParseHistory(body)
}

func (c *Client) command(ctx context.Context, op string, path string, params url.Values) error {
	body, err := c.get(ctx, op, path, params, c.requestTimeout)
	if err != nil {
		return err
	}
	var env commandEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		// non-JSON success bodies are accepted
		return nil
	}
	if strings.EqualFold(env.Status, "error") || (env.Status == "" && env.Error != "") {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return &domain.CommandError{Op: op, Message: msg}
	}
	return nil
}

func (c *Client) get(ctx context.Context, op string, path string, params url.Values, timeout time.Duration) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.roundTrip(ctx, op, http.MethodGet, endpoint)
}

func (c *Client) roundTrip(ctx context.Context, op string, method string, endpoint string) ([]byte, error) {
	resp, err := c.do(ctx, op, method, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	if err := statusError(op, resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, op string, method string, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set(echo.HeaderXRequestID, requestID)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("op", op), zap.String("request_id", requestID), zap.Error(err))
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	c.logger.Debug("backend request",
		zap.String("op", op), zap.String("method", method), zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode), zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

func statusError(op string, code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	return &domain.StatusError{Op: op, Code: code, Message: errorMessage(body)}
}

// errorMessage extracts a readable message from a FastAPI style error body.
func errorMessage(body []byte) string {
	var e errorBody
	if err := json.Unmarshal(body, &e); err == nil {
		switch d := e.Detail.(type) {
		case string:
			return d
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
		if e.Message != "" {
			return e.Message
		}
	}
	text := string(bytes.TrimSpace(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
