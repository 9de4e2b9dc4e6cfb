// Package availability reconciles a requested appointment time against the
// open slots the scheduling provider reports.
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/careslot/internal/calcom"
	"github.com/wolfman30/careslot/pkg/logging"
)

var availabilityTracer = otel.Tracer("careslot.internal.availability")

const (
	// LookaheadDays is the window searched when checking one requested time.
	LookaheadDays = 7
	// MatchTolerance absorbs sub-minute formatting differences between
	// systems. It is not a scheduling grace period.
	MatchTolerance = time.Minute
)

// SlotSource is the remote availability query.
type SlotSource interface {
	GetAvailableSlots(ctx context.Context, q calcom.SlotsQuery) (*calcom.SlotsResponse, error)
}

type availabilityObserver interface {
	ObserveAvailability(result string)
}

// Slot is one open time, expressed in the requested timezone.
type Slot struct {
	Time string `json:"time"`

	at time.Time
}

// Instant returns the absolute time of the slot, if it could be parsed.
func (s Slot) Instant() (time.Time, bool) {
	return s.at, !s.at.IsZero()
}

// Availability is the slot collection for one window.
type Availability struct {
	Slots []Slot `json:"slots"`
}

// Result is the soft outcome of GetAvailability: either Success with
// Availability set, or an Error description.
type Result struct {
	Success      bool          `json:"success"`
	Availability *Availability `json:"availability,omitempty"`
	Error        string        `json:"error,omitempty"`
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Reconciler fetches provider availability and matches requested times
// against it. Slots are fetched fresh on every call.
type Reconciler struct {
	source      SlotSource
	eventTypeID int
	logger      *logging.Logger
	metrics     availabilityObserver
	now         func() time.Time
}

// New creates a Reconciler for one event type. metrics may be nil.
func New(source SlotSource, eventTypeID int, logger *logging.Logger, metrics availabilityObserver) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		source:      source,
		eventTypeID: eventTypeID,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// WithClock overrides the clock used to anchor the search window.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	if now != nil {
		r.now = now
	}
	return r
}

// GetAvailability returns every open slot between now and now+days, with each
// slot time rewritten into timeZone. It never returns an error; failures are
// reported through Result.
func (r *Reconciler) GetAvailability(ctx context.Context, days int, timeZone string) Result {
	ctx, span := availabilityTracer.Start(ctx, "availability.get")
	defer span.End()
	span.SetAttributes(attribute.Int("careslot.days", days), attribute.String("careslot.timezone", timeZone))

	if r == nil || r.source == nil {
		return failure("availability source is not configured")
	}
	if days < 1 {
		return failure("days must be at least 1, got %d", days)
	}
	loc, err := LoadLocation(timeZone)
	if err != nil {
		return failure("invalid timezone: %v", err)
	}

	start := r.now().UTC()
	resp, err := r.source.GetAvailableSlots(ctx, calcom.SlotsQuery{
		Start:       start,
		End:         start.AddDate(0, 0, days),
		EventTypeID: r.eventTypeID,
		TimeZone:    timeZone,
	})
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("availability fetch failed", "error", err, "days", days)
		return failure("failed to fetch availability: %v", err)
	}
	if resp == nil {
		return failure("availability response was empty")
	}
	if resp.Status != calcom.StatusSuccess {
		return failure("availability request returned status %q", resp.Status)
	}
	if resp.Data == nil || resp.Data.Slots == nil {
		return failure("availability response is missing data.slots")
	}

	return Result{
		Success:      true,
		Availability: &Availability{Slots: localize(resp.Data.Slots, loc)},
	}
}

// localize flattens the date-keyed slots in date order and rewrites each time
// into loc. Times that do not parse are passed through unchanged.
func localize(byDate map[string][]calcom.Slot, loc *time.Location) []Slot {
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	out := make([]Slot, 0)
	for _, date := range dates {
		for _, s := range byDate[date] {
			t, err := time.Parse(time.RFC3339Nano, s.Time)
			if err != nil {
				out = append(out, Slot{Time: s.Time})
				continue
			}
			out = append(out, Slot{Time: t.In(loc).Format(LocalLayout), at: t.UTC()})
		}
	}
	return out
}

// IsTimeSlotAvailable reports whether startTime, read in timeZone, matches an
// open slot in the next LookaheadDays days. A failed or malformed lookup
// counts as unavailable.
func (r *Reconciler) IsTimeSlotAvailable(ctx context.Context, startTime, timeZone string) bool {
	if r == nil || r.source == nil {
		return false
	}
	ctx, span := availabilityTracer.Start(ctx, "availability.check")
	defer span.End()

	result := r.GetAvailability(ctx, LookaheadDays, timeZone)
	if !result.Success || result.Availability == nil {
		r.logger.Warn("availability unknown, treating slot as unavailable", "error", result.Error, "start", startTime)
		r.observe("error")
		return false
	}

	requested, err := ToUTCInstant(startTime, timeZone)
	if err != nil {
		r.logger.Warn("requested start time not parseable", "error", err, "start", startTime)
		r.observe("error")
		return false
	}

	for _, slot := range result.Availability.Slots {
		at, ok := slot.Instant()
		if !ok {
			if at, err = ToUTCInstant(slot.Time, timeZone); err != nil {
				continue
			}
		}
		diff := at.Sub(requested)
		if diff < 0 {
			diff = -diff
		}
		if diff < MatchTolerance {
			span.SetAttributes(attribute.Bool("careslot.available", true))
			r.observe("available")
			return true
		}
	}
	span.SetAttributes(attribute.Bool("careslot.available", false))
	r.observe("unavailable")
	return false
}

func (r *Reconciler) observe(result string) {
	if r.metrics != nil {
		r.metrics.ObserveAvailability(result)
	}
}
