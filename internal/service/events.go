package service

import (
	"sync"
	"time"

	"github.com/mknoufi/stockverify/models"
)

// Notifier fans engine events out to UI subscribers. Delivery is synchronous
// and in subscription order; subscribers must not block.
type Notifier struct {
	mu     sync.Mutex
	subs   map[int]func(models.Event)
	nextID int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(models.Event))}
}

// Subscribe registers fn for every subsequent event and returns an
// unsubscribe func. Unsubscribing twice is a no-op.
func (n *Notifier) Subscribe(fn func(models.Event)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subs[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Publish delivers event to all current subscribers. Callbacks run outside
// the notifier lock so a subscriber may unsubscribe from within its callback.
func (n *Notifier) Publish(event models.Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	n.mu.Lock()
	fns := make([]func(models.Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}
