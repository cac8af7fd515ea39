package jsonapikit

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/oueway/jsonapikit/internal/singleflight"
)

// FingerprintFunc derives the identity of a request for duplicate detection.
type FingerprintFunc func(*Request) string

// DefaultFingerprint is the absolute URL followed by the hex BLAKE2b-256
// digest of the body. Requests without a body are keyed by URL alone.
func DefaultFingerprint(r *Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	key := r.URL.String()
	if r.Body == nil {
		return key
	}
	sum := blake2b.Sum256(r.Body)
	return key + hex.EncodeToString(sum[:])
}

// InFlightTracker admits at most one request per fingerprint. A duplicate is
// rejected rather than coalesced, and a fingerprint is released when its
// request finishes, whatever the outcome.
type InFlightTracker struct {
	group *singleflight.Group
}

// NewInFlightTracker returns an empty tracker.
func NewInFlightTracker() *InFlightTracker {
	return &InFlightTracker{
		group: singleflight.New(),
	}
}

// Run executes fn under fingerprint. It returns ErrDuplicateInFlight without
// calling fn when the fingerprint is already admitted.
func (t *InFlightTracker) Run(fingerprint string, fn func() error) error {
	_, err, admitted := t.group.TryDo(fingerprint, func() (interface{}, error) {
		return nil, fn()
	})
	if !admitted {
		return ErrDuplicateInFlight
	}
	return err
}

// InFlight reports whether fingerprint is admitted and since when.
func (t *InFlightTracker) InFlight(fingerprint string) (time.Time, bool) {
	return t.group.Started(fingerprint)
}

// Len returns the number of admitted requests.
func (t *InFlightTracker) Len() int {
	return t.group.Len()
}

// Forget releases one fingerprint early.
func (t *InFlightTracker) Forget(fingerprint string) {
	t.group.ForgetKey(fingerprint)
}

// Clean releases every fingerprint.
func (t *InFlightTracker) Clean() {
	t.group.Reset()
}
