package service

import (
	"sync"

	"github.com/amslabs/assethub.go/lib/ledger"
	"github.com/google/uuid"
)

// Pubsub fans ledger push events out to subscribers by event type. Delivery
// is best-effort: a send to a subscriber whose channel is full is dropped,
// so a burst collapses to whatever the subscriber's buffer holds. Consumers
// treat events as re-fetch cues, never as state.
type Pubsub struct {
	mu   sync.RWMutex
	subs map[string]map[string]chan ledger.PushEvent
}

func NewPubsub() *Pubsub {
	ps := &Pubsub{}
	ps.subs = make(map[string]map[string]chan ledger.PushEvent)
	return ps
}

func (ps *Pubsub) Subscribe(topic string, ch chan ledger.PushEvent) (subId string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		ps.subs[topic] = make(map[string]chan ledger.PushEvent)
	}
	subId = uuid.NewString()
	ps.subs[topic][subId] = ch
	return subId
}

func (ps *Pubsub) Unsubscribe(subId, topic string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		return
	}
	if ps.subs[topic][subId] == nil {
		return
	}
	close(ps.subs[topic][subId])
	delete(ps.subs[topic], subId)
}

func (ps *Pubsub) Publish(topic string, event ledger.PushEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.subs[topic] == nil {
		return
	}

	for _, ch := range ps.subs[topic] {
		select {
		case ch <- event:
		default:
			// subscriber still has an unconsumed event, this one is a
			// redundant hint
		}
	}
}
