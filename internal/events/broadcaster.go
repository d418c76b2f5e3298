package events

import "sync"

// Subscriber receives a copy of every emitted event.
type Subscriber chan Event

// subscriberBuffer bounds how far a slow WebSocket client can fall behind
// before it starts losing events. Emit never blocks on a subscriber.
const subscriberBuffer = 64

var (
	subMu sync.RWMutex
	subs  = make(map[Subscriber]struct{})
)

// Subscribe registers a new live-stream subscriber.
func Subscribe() Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	subMu.Lock()
	subs[ch] = struct{}{}
	subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Unsubscribing
// twice is a no-op.
func Unsubscribe(sub Subscriber) {
	subMu.Lock()
	_, ok := subs[sub]
	delete(subs, sub)
	subMu.Unlock()
	if ok {
		close(sub)
	}
}

// broadcast fans an event out to every subscriber, dropping it for any
// subscriber whose buffer is full.
func broadcast(e Event) {
	subMu.RLock()
	defer subMu.RUnlock()

	for sub := range subs {
		select {
		case sub <- e:
		default:
		}
	}
}

// SubscriberCount returns the number of live-stream subscribers.
func SubscriberCount() int {
	subMu.RLock()
	defer subMu.RUnlock()
	return len(subs)
}

// RecentEvents returns up to the last n buffered events, oldest first.
func RecentEvents(n int) []Event {
	all := buffer.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
