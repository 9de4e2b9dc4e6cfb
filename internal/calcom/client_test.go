package calcom

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/careslot/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(Config{BaseURL: ts.URL, APIKey: "cal_test_key"}, logging.New("error"))
}

func TestClient_GetAvailableSlots_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/v2/slots/available" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer cal_test_key" {
			t.Fatalf("authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("eventTypeId") != "77" {
			t.Fatalf("eventTypeId = %s", q.Get("eventTypeId"))
		}
		if q.Get("startTime") != "2026-03-02T09:00:00Z" || q.Get("endTime") != "2026-03-09T09:00:00Z" {
			t.Fatalf("window = %s..%s", q.Get("startTime"), q.Get("endTime"))
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"slots":{"2026-03-03":[{"time":"2026-03-03T15:00:00.000Z"}]}}}`))
	})

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	resp, err := client.GetAvailableSlots(context.Background(), SlotsQuery{
		Start:       start,
		End:         start.AddDate(0, 0, 7),
		EventTypeID: 77,
	})
	if err != nil {
		t.Fatalf("GetAvailableSlots() error = %v", err)
	}
	if resp.Status != StatusSuccess || resp.Data == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := resp.Data.Slots["2026-03-03"]; len(got) != 1 || got[0].Time != "2026-03-03T15:00:00.000Z" {
		t.Fatalf("slots = %+v", got)
	}
}

func TestClient_CreateBooking_SendsVersionHeaderAndPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/bookings" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("cal-api-version"); got != APIVersion {
			t.Fatalf("cal-api-version = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req CreateBookingRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req.Attendee.Email != "pat@example.com" || req.EventTypeID != 77 || req.Location != "Zoom" {
			t.Fatalf("unexpected payload %s", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"success","data":{"uid":"bk_1"}}`))
	})

	resp, err := client.CreateBooking(context.Background(), CreateBookingRequest{
		Start:       "2026-03-03T15:00:00Z",
		EventTypeID: 77,
		Attendee:    Attendee{Name: "Pat", Email: "pat@example.com", TimeZone: "UTC"},
		Location:    "Zoom",
	})
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if string(resp.Data) != `{"uid":"bk_1"}` {
		t.Fatalf("data = %s", resp.Data)
	}
}

func TestClient_CreateBooking_ProviderErrorMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","error":{"code":"BadRequestException","message":"User either already has booking at this time or is not available"}}`))
	})

	_, err := client.CreateBooking(context.Background(), CreateBookingRequest{Start: "2026-03-03T15:00:00Z"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "User either already has booking at this time or is not available" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestClient_CreateBooking_ErrorEnvelopeOn200(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","error":{"message":"event type not found"}}`))
	})

	_, err := client.CreateBooking(context.Background(), CreateBookingRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "event type not found" {
		t.Fatalf("expected envelope APIError, got %v", err)
	}
}

func TestClient_CancelBooking(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/bookings/bk_1/cancel" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["cancellationReason"] != "patient request" {
			t.Fatalf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"uid":"bk_1","status":"cancelled"}}`))
	})

	if _, err := client.CancelBooking(context.Background(), "bk_1", "patient request"); err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}
	if _, err := client.CancelBooking(context.Background(), " ", ""); err == nil {
		t.Fatal("expected error for empty uid")
	}
}

func TestClient_ListBookings_Filters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("attendeeEmail") != "pat@example.com" || q.Get("status") != "upcoming" || q.Get("eventTypeId") != "77" {
			t.Fatalf("query = %s", r.URL.RawQuery)
		}
		if q.Has("attendeeName") {
			t.Fatalf("attendeeName should be omitted")
		}
		_, _ = w.Write([]byte(`{"status":"success","data":[]}`))
	})

	resp, err := client.ListBookings(context.Background(), BookingFilter{EventTypeID: 77, AttendeeEmail: "pat@example.com", Status: "upcoming"})
	if err != nil {
		t.Fatalf("ListBookings() error = %v", err)
	}
	if string(resp.Data) != `[]` {
		t.Fatalf("data = %s", resp.Data)
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":`))
	})

	if _, err := client.GetAvailableSlots(context.Background(), SlotsQuery{}); err == nil {
		t.Fatal("expected JSON decode error, got nil")
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	if _, err := client.GetAvailableSlots(context.Background(), SlotsQuery{}); err == nil {
		t.Fatal("expected missing api key error")
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.ListBookings(ctx, BookingFilter{}); err == nil {
		t.Fatal("expected cancellation error, got nil")
	}
}

func TestProviderMessage(t *testing.T) {
	tests := map[string]string{
		`{"error":{"message":"boom"}}`: "boom",
		`{"message":"flat"}`:           "flat",
		`upstream failed`:              "upstream failed",
	}
	for in, want := range tests {
		if got := providerMessage([]byte(in)); got != want {
			t.Errorf("providerMessage(%s) = %q, want %q", in, got, want)
		}
	}
}
