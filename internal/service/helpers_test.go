package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/internal/netmon"
	"github.com/mknoufi/stockverify/models"
)

// memKV is an in-memory KVStore used where tests care about durable state
// surviving a "restart" (a second component built over the same memKV).
type memKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failing bool
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

// fail makes every subsequent operation error, simulating a broken local
// disk.
func (m *memKV) fail(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = on
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, false, errors.New("kv: simulated failure")
	}
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("kv: simulated failure")
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("kv: simulated failure")
	}
	delete(m.data, key)
	return nil
}

func (m *memKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errors.New("kv: simulated failure")
	}
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// eventRecorder collects published events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *eventRecorder) record(event models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) ofType(t models.EventType) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func onlineMonitor() *netmon.Monitor {
	return netmon.NewMonitor(logger.Nop())
}

func offlineMonitor() *netmon.Monitor {
	m := netmon.NewMonitor(logger.Nop())
	m.SetState(models.NetworkState{Online: false, ConnectionType: models.ConnectionNone})
	return m
}

func countLineItem(id, lineID string, qty, baseVersion int64) models.QueueItem {
	return models.QueueItem{
		ID:   id,
		Kind: models.MutationUpdateCountLine,
		CountLinePayload: &models.CountLineMutation{
			Line:        models.CountLine{ID: lineID, SessionID: "s-1", ItemSKU: "SKU-1", CountedQty: qty, Version: baseVersion},
			BaseVersion: baseVersion,
		},
	}
}
