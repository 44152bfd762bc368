// Package events carries donation status changes to in-process listeners.
package events

import (
	"sync"
	"time"

	"foodshare/pkg/types"

	"github.com/sirupsen/logrus"
)

const defaultBuffer = 16

type StatusChanged struct {
	DonationID string
	From       types.DonationStatus
	To         types.DonationStatus
	NGOID      string
	At         time.Time
}

// Bus fans status changes out to subscribers. A subscriber that falls behind
// its buffer loses events rather than blocking the publisher.
type Bus struct {
	logger logrus.FieldLogger

	mu     sync.RWMutex
	subs   map[int]chan StatusChanged
	nextID int
}

func NewBus(logger logrus.FieldLogger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[int]chan StatusChanged),
	}
}

// Subscribe returns the event channel and the function that ends the
// subscription and closes the channel. The owner must call it.
func (b *Bus) Subscribe(buffer int) (<-chan StatusChanged, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan StatusChanged, buffer)
	b.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}

	return ch, unsubscribe
}

func (b *Bus) Publish(event StatusChanged) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.WithFields(logrus.Fields{
				"subscriber":  id,
				"donation_id": event.DonationID,
				"status":      event.To,
			}).Warn("dropping status event for slow subscriber")
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
