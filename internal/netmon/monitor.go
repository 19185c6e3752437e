// Package netmon tracks device connectivity for the sync engine.
//
// The monitor owns the process-wide [models.NetworkState] snapshot. Platform
// connectivity callbacks feed it through SetState; consumers read the last
// known snapshot with CurrentState and subscribe to transitions with
// OnChange. Transitions are relayed as reported, including redundant ones;
// an "online" notification is an advisory trigger to attempt remote work,
// never proof that a request will succeed end to end.
package netmon

import (
	"sync"

	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/models"
)

// Listener receives every state transition reported by the platform.
type Listener func(models.NetworkState)

// Monitor holds the last reported network state and a listener registry.
type Monitor struct {
	logger *logger.Logger

	mu        sync.RWMutex
	state     models.NetworkState
	listeners map[int]Listener
	nextID    int
}

// NewMonitor returns a monitor whose initial state assumes the network is
// usable (connection type unknown, reachability undetermined). Assuming
// online until told otherwise lets the first live request discover the truth
// instead of queuing writes that would have succeeded.
func NewMonitor(logger *logger.Logger) *Monitor {
	return &Monitor{
		logger: logger,
		state: models.NetworkState{
			Online:         true,
			ConnectionType: models.ConnectionUnknown,
		},
		listeners: make(map[int]Listener),
	}
}

// CurrentState returns the last known network state. Never blocks.
func (m *Monitor) CurrentState() models.NetworkState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// OnChange registers listener for every subsequent transition and returns an
// unsubscribe function. Unsubscribing is idempotent.
func (m *Monitor) OnChange(listener Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// SetState publishes a platform-reported connectivity transition. The
// snapshot is replaced atomically and every registered listener is invoked
// with the new value, even when it equals the previous one. Deduplication is
// the consumer's concern.
func (m *Monitor) SetState(state models.NetworkState) {
	m.mu.Lock()
	prev := m.state
	m.state = state
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	m.logger.Debug().
		Bool("online", state.Online).
		Bool("was_online", prev.Online).
		Str("connection_type", string(state.ConnectionType)).
		Msg("network state transition")

	for _, l := range listeners {
		l(state)
	}
}
