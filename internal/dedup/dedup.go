// Package dedup collapses concurrent identical remote reads into a single
// in-flight call.
//
// Overlapping UI renders tend to fire the same lookup several times within a
// few hundred milliseconds; the deduplicator shields the backend from that
// redundancy. It is strictly a read-path optimisation; writes always go
// through the offline queue and are never deduplicated client-side.
package dedup

import (
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mknoufi/stockverify/internal/logger"
)

// DefaultWindow is the staleness window after which an in-flight entry is
// abandoned and a fresh request issued. A flight older than this is assumed
// hung; new callers should not be chained onto it.
const DefaultWindow = 30 * time.Second

// Deduplicator shares the result of one in-flight producer call between all
// concurrent callers using the same key. Entries are evicted the moment the
// call settles, on success and failure alike, so no in-flight entry can leak.
type Deduplicator struct {
	logger *logger.Logger
	window time.Duration
	group  singleflight.Group

	mu       sync.Mutex
	inflight map[string]*flight

	now func() time.Time
}

// flight is the bookkeeping record for one singleflight call. Identity
// matters: an abandoned producer must only evict its own record, never the
// record of the flight that replaced it after a staleness Forget.
type flight struct {
	startedAt time.Time
}

// New returns a deduplicator with the given staleness window; window <= 0
// falls back to [DefaultWindow].
func New(window time.Duration, logger *logger.Logger) *Deduplicator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Deduplicator{
		logger:   logger,
		window:   window,
		inflight: make(map[string]*flight),
		now:      time.Now,
	}
}

// Do executes producer under key, collapsing concurrent calls with an
// identical key onto the same pending result. The returned shared flag
// reports whether the value was produced by another caller's flight.
//
// When the in-flight entry for key is older than the staleness window it is
// discarded and producer runs fresh.
func (d *Deduplicator) Do(key string, producer func() (any, error)) (value any, shared bool, err error) {
	d.mu.Lock()
	if f, ok := d.inflight[key]; ok && d.now().Sub(f.startedAt) > d.window {
		d.logger.Warn().
			Str("key", key).
			Dur("age", d.now().Sub(f.startedAt)).
			Msg("discarding stale in-flight request")
		d.group.Forget(key)
		delete(d.inflight, key)
	}
	f, ok := d.inflight[key]
	if !ok {
		f = &flight{startedAt: d.now()}
		d.inflight[key] = f
	}
	d.mu.Unlock()

	value, err, shared = d.group.Do(key, func() (any, error) {
		defer func() {
			d.mu.Lock()
			// an abandoned producer finishing late must not evict the
			// flight that replaced it
			if d.inflight[key] == f {
				delete(d.inflight, key)
			}
			d.mu.Unlock()
		}()
		return producer()
	})

	return value, shared, err
}

// Key derives a deduplication key from an endpoint and its parameters.
// Parameters are sorted so equal requests map to equal keys regardless of
// call-site ordering.
func Key(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(endpoint)
	for i, name := range names {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}
	return b.String()
}
