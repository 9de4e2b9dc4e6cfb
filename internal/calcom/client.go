package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/careslot/pkg/logging"
)

const (
	defaultBaseURL = "https://api.cal.com"
	defaultTimeout = 15 * time.Second

	// APIVersion pins the booking endpoint contract.
	APIVersion = "2024-08-13"
)

type latencyObserver interface {
	ObserveProviderLatency(operation string, seconds float64)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client wraps the Cal.com v2 REST endpoints used for booking.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logging.Logger
	metrics    latencyObserver
}

// NewClient constructs a Cal.com REST client.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// WithMetrics attaches a provider latency observer.
func (c *Client) WithMetrics(m latencyObserver) *Client {
	c.metrics = m
	return c
}

// GetAvailableSlots lists open slots between q.Start and q.End.
func (c *Client) GetAvailableSlots(ctx context.Context, q SlotsQuery) (*SlotsResponse, error) {
	params := url.Values{}
	params.Set("startTime", q.Start.UTC().Format(time.RFC3339))
	params.Set("endTime", q.End.UTC().Format(time.RFC3339))
	params.Set("eventTypeId", strconv.Itoa(q.EventTypeID))
	if q.TimeZone != "" {
		params.Set("timeZone", q.TimeZone)
	}

	var resp SlotsResponse
	if err := c.doJSON(ctx, "get_slots", http.MethodGet, "/v2/slots/available?"+params.Encode(), false, nil, &resp); err != nil {
		return nil, fmt.Errorf("get available slots: %w", err)
	}
	return &resp, nil
}

// CreateBooking submits a booking. A 2xx envelope whose status is not
// "success" is reported as an *APIError.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingResponse, error) {
	var resp BookingResponse
	if err := c.doJSON(ctx, "create_booking", http.MethodPost, "/v2/bookings", true, req, &resp); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	if err := envelopeError(&resp); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return &resp, nil
}

// CancelBooking cancels the booking identified by uid.
func (c *Client) CancelBooking(ctx context.Context, uid, reason string) (*BookingResponse, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, fmt.Errorf("cancel booking: uid is required")
	}
	body := map[string]string{}
	if strings.TrimSpace(reason) != "" {
		body["cancellationReason"] = reason
	}
	path := fmt.Sprintf("/v2/bookings/%s/cancel", url.PathEscape(uid))

	var resp BookingResponse
	if err := c.doJSON(ctx, "cancel_booking", http.MethodPost, path, true, body, &resp); err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if err := envelopeError(&resp); err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	return &resp, nil
}

// ListBookings returns bookings matching filter.
func (c *Client) ListBookings(ctx context.Context, filter BookingFilter) (*BookingResponse, error) {
	params := url.Values{}
	if filter.EventTypeID > 0 {
		params.Set("eventTypeId", strconv.Itoa(filter.EventTypeID))
	}
	if filter.AttendeeName != "" {
		params.Set("attendeeName", filter.AttendeeName)
	}
	if filter.AttendeeEmail != "" {
		params.Set("attendeeEmail", filter.AttendeeEmail)
	}
	if filter.Status != "" {
		params.Set("status", filter.Status)
	}
	path := "/v2/bookings"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp BookingResponse
	if err := c.doJSON(ctx, "list_bookings", http.MethodGet, path, true, nil, &resp); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if err := envelopeError(&resp); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return &resp, nil
}

func envelopeError(resp *BookingResponse) error {
	if resp.Status == "" || resp.Status == StatusSuccess {
		return nil
	}
	msg := "request failed"
	if resp.Error != nil && resp.Error.Message != "" {
		msg = resp.Error.Message
	}
	return &APIError{StatusCode: http.StatusOK, Message: msg}
}

func (c *Client) doJSON(ctx context.Context, operation, method, path string, versioned bool, body interface{}, out interface{}) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return fmt.Errorf("calcom: missing api key")
	}
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if versioned {
		req.Header.Set("cal-api-version", APIVersion)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.ObserveProviderLatency(operation, time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := providerMessage(respBody)
		c.logger.Warn("calcom API non-2xx response", "status", resp.StatusCode, "operation", operation, "body", msg)
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// providerMessage pulls error.message (or message) out of an error body,
// falling back to the truncated raw text.
func providerMessage(body []byte) string {
	var env struct {
		Message string     `json:"message"`
		Error   *ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != nil && env.Error.Message != "" {
			return env.Error.Message
		}
		if env.Message != "" {
			return env.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}
