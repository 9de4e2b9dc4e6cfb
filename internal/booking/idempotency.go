package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careslot/internal/availability"
	"github.com/wolfman30/careslot/internal/normalize"
)

const (
	idempotencyKeyPrefix = "careslot:booking:idem:"

	// pendingClaimTTL bounds how long a crashed submission can hold a key.
	pendingClaimTTL = 2 * time.Minute
)

var (
	// ErrKeyReused means the key was first used with a different request.
	ErrKeyReused = errors.New("idempotency key reused with a different request")
	// ErrKeyInFlight means another request holding the key is still running.
	ErrKeyInFlight = errors.New("idempotency key in flight")
)

// Claim is the result of reserving an idempotency key.
type Claim struct {
	// Replay is set when the key already completed for the same request.
	Replay *Outcome
}

// OutcomeCache guards booking submissions by client-supplied key. A key is
// bound to the fingerprint of the first request that claimed it.
type OutcomeCache interface {
	// Claim reserves key for fingerprint. It returns a Claim with Replay set
	// when the same request already succeeded, ErrKeyReused when the key
	// belongs to another request, and ErrKeyInFlight while the holder runs.
	Claim(ctx context.Context, key, fingerprint string) (Claim, error)
	// Complete stores a successful outcome in place of the claim.
	Complete(ctx context.Context, key, fingerprint string, outcome *Outcome) error
	// Release drops a pending claim so the client may retry.
	Release(ctx context.Context, key, fingerprint string) error
}

type idemState string

const (
	statePending idemState = "pending"
	stateDone    idemState = "done"
)

type idemEntry struct {
	Fingerprint string    `json:"fingerprint"`
	State       idemState `json:"state"`
	Outcome     *Outcome  `json:"outcome,omitempty"`
}

// releaseScript deletes the key only while it still holds our pending claim.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOutcomeCache keeps claims and outcomes in Redis with a TTL.
type RedisOutcomeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisOutcomeCache returns nil when client is nil so callers can wire it
// unconditionally.
func NewRedisOutcomeCache(client *redis.Client, ttl time.Duration) *RedisOutcomeCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisOutcomeCache{client: client, ttl: ttl}
}

// Keys are hashed so client input never lands in Redis key space verbatim.
func (c *RedisOutcomeCache) key(k string) string {
	sum := sha256.Sum256([]byte(k))
	return idempotencyKeyPrefix + hex.EncodeToString(sum[:])
}

func pendingValue(fingerprint string) ([]byte, error) {
	return json.Marshal(idemEntry{Fingerprint: fingerprint, State: statePending})
}

// Claim reserves key with SETNX, or inspects whoever holds it.
func (c *RedisOutcomeCache) Claim(ctx context.Context, key, fingerprint string) (Claim, error) {
	if c == nil {
		return Claim{}, nil
	}
	pending, err := pendingValue(fingerprint)
	if err != nil {
		return Claim{}, fmt.Errorf("booking: idempotency encode: %w", err)
	}
	ok, err := c.client.SetNX(ctx, c.key(key), pending, pendingClaimTTL).Result()
	if err != nil {
		return Claim{}, fmt.Errorf("booking: idempotency claim: %w", err)
	}
	if ok {
		return Claim{}, nil
	}

	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; the caller may simply retry.
		return Claim{}, ErrKeyInFlight
	}
	if err != nil {
		return Claim{}, fmt.Errorf("booking: idempotency get: %w", err)
	}
	var entry idemEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Claim{}, fmt.Errorf("booking: idempotency decode: %w", err)
	}
	switch {
	case entry.Fingerprint != fingerprint:
		return Claim{}, ErrKeyReused
	case entry.State == stateDone && entry.Outcome != nil:
		return Claim{Replay: entry.Outcome}, nil
	default:
		return Claim{}, ErrKeyInFlight
	}
}

// Complete replaces the pending claim with the outcome. Failed outcomes
// release the key instead, since a failed booking may be retried.
func (c *RedisOutcomeCache) Complete(ctx context.Context, key, fingerprint string, outcome *Outcome) error {
	if c == nil {
		return nil
	}
	if outcome == nil || !outcome.Status {
		return c.Release(ctx, key, fingerprint)
	}
	payload, err := json.Marshal(idemEntry{Fingerprint: fingerprint, State: stateDone, Outcome: outcome})
	if err != nil {
		return fmt.Errorf("booking: idempotency encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("booking: idempotency set: %w", err)
	}
	return nil
}

// Release drops the key if it still holds fingerprint's pending claim.
func (c *RedisOutcomeCache) Release(ctx context.Context, key, fingerprint string) error {
	if c == nil {
		return nil
	}
	pending, err := pendingValue(fingerprint)
	if err != nil {
		return fmt.Errorf("booking: idempotency encode: %w", err)
	}
	if err := releaseScript.Run(ctx, c.client, []string{c.key(key)}, string(pending)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("booking: idempotency release: %w", err)
	}
	return nil
}

// requestFingerprint identifies what a request would book: when, which event
// type, and for which contact. Values are normalized the same way the gates
// normalize them, so formatting differences do not change the fingerprint.
func requestFingerprint(req Request, defaultEventTypeID int) string {
	tz := req.Attendee.TimeZone

	start := strings.TrimSpace(req.Start)
	if at, err := availability.ToUTCInstant(req.Start, tz); err == nil {
		start = availability.FormatUTC(at)
	}
	eventTypeID := defaultEventTypeID
	if req.EventTypeID > 0 {
		eventTypeID = req.EventTypeID
	}
	email := strings.ToLower(strings.TrimSpace(req.Attendee.Email))
	if res := normalize.ValidateEmail(req.Attendee.Email, false); res.IsValid {
		email = res.Normalized
	}
	phone := strings.TrimSpace(req.Attendee.PhoneNumber)
	if res := normalize.ValidatePhone(req.Attendee.PhoneNumber, CountryForTimeZone(tz)); res.IsValid {
		phone = res.Normalized
	}

	sum := sha256.Sum256([]byte(strings.Join([]string{start, strconv.Itoa(eventTypeID), email, phone}, "\x1f")))
	return hex.EncodeToString(sum[:])
}

// keyDigest is a short, log-safe stand-in for a client-supplied key.
func keyDigest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}
