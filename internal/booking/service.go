package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/careslot/internal/availability"
	"github.com/wolfman30/careslot/internal/calcom"
	"github.com/wolfman30/careslot/internal/normalize"
	"github.com/wolfman30/careslot/internal/retry"
	"github.com/wolfman30/careslot/pkg/logging"
)

var bookingTracer = otel.Tracer("careslot.internal.booking")

const (
	submitMaxAttempts  = 2
	submitBackoffBase  = time.Second
	fallbackFailureMsg = "Failed to create booking"
)

var errEmptyBooking = errors.New("calcom returned no booking data")

// Provider is the remote scheduling API.
type Provider interface {
	CreateBooking(ctx context.Context, req calcom.CreateBookingRequest) (*calcom.BookingResponse, error)
	CancelBooking(ctx context.Context, uid, reason string) (*calcom.BookingResponse, error)
	ListBookings(ctx context.Context, filter calcom.BookingFilter) (*calcom.BookingResponse, error)
}

// AvailabilityChecker answers whether a requested time is open.
type AvailabilityChecker interface {
	GetAvailability(ctx context.Context, days int, timeZone string) availability.Result
	IsTimeSlotAvailable(ctx context.Context, startTime, timeZone string) bool
}

// ContactValidator validates and normalizes contact details.
type ContactValidator interface {
	ValidateEmail(email string, phoneticConfirmation bool) normalize.ValidationResult
	ValidatePhone(phone, countryCode string) normalize.ValidationResult
}

type bookingObserver interface {
	ObserveSubmissionAttempt(success bool)
	ObserveBooking(outcome string)
}

// Service orchestrates booking creation. It keeps no per-request state, so
// one instance serves concurrent requests.
type Service struct {
	provider    Provider
	slots       AvailabilityChecker
	contacts    ContactValidator
	eventTypeID int
	logger      *logging.Logger
	metrics     bookingObserver
	policy      retry.Policy
	cache       OutcomeCache
	recorder    AttemptRecorder
}

// NewService wires the orchestrator. eventTypeID is the default event type
// used when a request does not override it.
func NewService(provider Provider, slots AvailabilityChecker, contacts ContactValidator, eventTypeID int, logger *logging.Logger) *Service {
	if provider == nil {
		panic("booking: provider required")
	}
	if slots == nil {
		panic("booking: availability checker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if contacts == nil {
		contacts = normalize.NewValidator(logger, nil)
	}
	return &Service{
		provider:    provider,
		slots:       slots,
		contacts:    contacts,
		eventTypeID: eventTypeID,
		logger:      logger,
		policy: retry.Policy{
			MaxAttempts: submitMaxAttempts,
			Backoff:     retry.Linear(submitBackoffBase),
			Retryable:   isRetryable,
		},
	}
}

// WithMetrics attaches booking counters.
func (s *Service) WithMetrics(m bookingObserver) *Service {
	s.metrics = m
	return s
}

// WithOutcomeCache enables idempotent replays of successful bookings.
func (s *Service) WithOutcomeCache(cache OutcomeCache) *Service {
	s.cache = cache
	return s
}

// WithAttemptRecorder records every submission to an external store.
func (s *Service) WithAttemptRecorder(rec AttemptRecorder) *Service {
	s.recorder = rec
	return s
}

// WithSleep replaces the backoff wait. Tests use it to avoid real delays.
func (s *Service) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Service {
	s.policy.Sleep = sleep
	return s
}

// CreateBooking runs every gate in order and only then writes to the
// provider. Gate failures return a *Error without any remote write.
func (s *Service) CreateBooking(ctx context.Context, req Request) (*Outcome, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(attribute.String("careslot.timezone", req.Attendee.TimeZone))

	fail := func(err *Error, outcome string) (*Outcome, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Message)
		s.observeBooking(outcome)
		s.logger.Warn("booking rejected", "reason", outcome, "error", err.Message)
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if s.cache == nil {
		key = ""
	}
	var fingerprint string
	if key != "" {
		fingerprint = requestFingerprint(req, s.eventTypeID)
		claim, err := s.cache.Claim(ctx, key, fingerprint)
		switch {
		case errors.Is(err, ErrKeyReused):
			return fail(newError(ErrConflict, "Idempotency-Key was already used for a different booking request."), "idempotency_mismatch")
		case errors.Is(err, ErrKeyInFlight):
			return fail(newError(ErrConflict, "A booking with this Idempotency-Key is already in progress."), "idempotency_in_flight")
		case err != nil:
			s.logger.Warn("idempotency claim failed, continuing without replay", "key_digest", keyDigest(key), "error", err)
			key = ""
		case claim.Replay != nil:
			span.SetAttributes(attribute.Bool("careslot.idempotent_replay", true))
			s.logger.Info("replaying booking outcome", "key_digest", keyDigest(key))
			return claim.Replay, nil
		}
	}

	// A held claim is released on every early return; once submitted it is
	// settled by complete instead.
	settled := false
	if key != "" {
		defer func() {
			if !settled {
				s.release(context.WithoutCancel(ctx), key, fingerprint)
			}
		}()
	}

	tz := req.Attendee.TimeZone
	if !s.slots.IsTimeSlotAvailable(ctx, req.Start, tz) {
		return fail(newError(ErrUnavailable, "time slot is not available."), "unavailable")
	}

	phone := s.contacts.ValidatePhone(req.Attendee.PhoneNumber, CountryForTimeZone(tz))
	if !phone.IsValid {
		return fail(newError(ErrInvalidInput, "Invalid phone number: "+phone.Message), "invalid_phone")
	}

	email := s.contacts.ValidateEmail(req.Attendee.Email, true)
	if !email.IsValid {
		return fail(newError(ErrInvalidInput, "Invalid email: "+email.Message), "invalid_email")
	}

	start, err := availability.ToUTCInstant(req.Start, tz)
	if err != nil {
		return fail(newError(ErrInvalidInput, "Invalid start time."), "invalid_start")
	}

	payload := s.buildPayload(req, start, email.Normalized, phone.Normalized)

	// Once submission starts the caller can no longer abort it; the provider
	// client's own timeout bounds each call.
	submitCtx := context.WithoutCancel(ctx)
	outcome, attempts := s.submit(submitCtx, payload)
	s.record(submitCtx, payload, outcome, attempts)
	if key != "" {
		s.complete(submitCtx, key, fingerprint, &outcome)
		settled = true
	}

	if !outcome.Status {
		kind := ErrProviderFailure
		label := "provider_failure"
		if isConflictMessage(outcome.Error) {
			kind, label = ErrConflict, "conflict"
		}
		msg := outcome.Error
		if strings.TrimSpace(msg) == "" {
			msg = fallbackFailureMsg
		}
		return fail(newError(kind, msg), label)
	}

	s.observeBooking("success")
	s.logger.Info("booking created", "start", payload.Start, "event_type_id", payload.EventTypeID, "attempts", attempts)
	return &outcome, nil
}

func (s *Service) buildPayload(req Request, start time.Time, email, phone string) calcom.CreateBookingRequest {
	eventTypeID := s.eventTypeID
	if req.EventTypeID > 0 {
		eventTypeID = req.EventTypeID
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = DefaultLocation
	}
	return calcom.CreateBookingRequest{
		Start:       availability.FormatUTC(start),
		EventTypeID: eventTypeID,
		Attendee: calcom.Attendee{
			Name:        strings.TrimSpace(req.Attendee.Name),
			Email:       email,
			TimeZone:    req.Attendee.TimeZone,
			PhoneNumber: phone,
			Language:    req.Attendee.Language,
		},
		Location: location,
		Metadata: req.Metadata,
	}
}

// submit sends payload under the retry policy. It never returns an error:
// every failure ends up in Outcome.Error.
func (s *Service) submit(ctx context.Context, payload calcom.CreateBookingRequest) (Outcome, int) {
	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()

	resp, attempts, err := retry.Do(ctx, s.policy, func(ctx context.Context, attempt int) (*calcom.BookingResponse, error) {
		resp, err := s.provider.CreateBooking(ctx, payload)
		if err == nil && (resp == nil || len(resp.Data) == 0) {
			err = errEmptyBooking
		}
		s.observeAttempt(err == nil)
		if err != nil {
			s.logger.Warn("booking submission attempt failed",
				"attempt", attempt,
				"retryable", isRetryable(err),
				"error", providerMessage(err),
			)
		}
		return resp, err
	})
	span.SetAttributes(attribute.Int("careslot.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		msg := providerMessage(err)
		if errors.Is(err, errEmptyBooking) || strings.TrimSpace(msg) == "" {
			msg = fallbackFailureMsg
		}
		return Outcome{Status: false, Error: msg}, attempts
	}
	return Outcome{Status: true, Booking: resp.Data}, attempts
}

// ValidateEmail exposes soft email validation to the controller.
func (s *Service) ValidateEmail(email string, phoneticConfirmation bool) normalize.ValidationResult {
	return s.contacts.ValidateEmail(email, phoneticConfirmation)
}

// ValidatePhone exposes soft phone validation to the controller.
func (s *Service) ValidatePhone(phone, countryCode string) normalize.ValidationResult {
	return s.contacts.ValidatePhone(phone, countryCode)
}

// GetAvailability exposes the reconciler's window lookup.
func (s *Service) GetAvailability(ctx context.Context, days int, timeZone string) availability.Result {
	return s.slots.GetAvailability(ctx, days, timeZone)
}

// CancelBooking cancels a booking by uid.
func (s *Service) CancelBooking(ctx context.Context, uid, reason string) (json.RawMessage, error) {
	resp, err := s.provider.CancelBooking(ctx, uid, reason)
	if err != nil {
		return nil, fmt.Errorf("booking: cancel %s: %w", uid, err)
	}
	return resp.Data, nil
}

// FindBookings lists bookings for the default event type unless filter
// names one.
func (s *Service) FindBookings(ctx context.Context, filter calcom.BookingFilter) (json.RawMessage, error) {
	if filter.EventTypeID == 0 {
		filter.EventTypeID = s.eventTypeID
	}
	if filter.AttendeeEmail != "" {
		if email := normalize.ValidateEmail(filter.AttendeeEmail, false); email.IsValid {
			filter.AttendeeEmail = email.Normalized
		}
	}
	resp, err := s.provider.ListBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("booking: list: %w", err)
	}
	return resp.Data, nil
}

func (s *Service) complete(ctx context.Context, key, fingerprint string, outcome *Outcome) {
	if err := s.cache.Complete(ctx, key, fingerprint, outcome); err != nil {
		s.logger.Warn("idempotency store failed", "key_digest", keyDigest(key), "error", err)
	}
}

func (s *Service) release(ctx context.Context, key, fingerprint string) {
	if err := s.cache.Release(ctx, key, fingerprint); err != nil {
		s.logger.Warn("idempotency release failed", "key_digest", keyDigest(key), "error", err)
	}
}

func (s *Service) record(ctx context.Context, payload calcom.CreateBookingRequest, outcome Outcome, attempts int) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, newAttemptRecord(payload, outcome, attempts)); err != nil {
		s.logger.Error("failed to record booking attempt", "error", err)
	}
}

func (s *Service) observeAttempt(success bool) {
	if s.metrics != nil {
		s.metrics.ObserveSubmissionAttempt(success)
	}
}

func (s *Service) observeBooking(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveBooking(outcome)
	}
}
