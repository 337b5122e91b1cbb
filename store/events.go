package store

import (
	"sync"

	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/types"
)

// EventKind identifies the store mutation or signal an Event describes
type EventKind string

const (
	// EventTxAdded is published when a new transaction record is created
	EventTxAdded EventKind = "tx_added"
	// EventTxUpdated is published when a record is mutated with a non-terminal change
	EventTxUpdated EventKind = "tx_updated"
	// EventTxFinalized is published when a record reaches a terminal status
	EventTxFinalized EventKind = "tx_finalized"
	// EventTxDeleted is published when a record is removed (invalidation)
	EventTxDeleted EventKind = "tx_deleted"
	// EventCancelRequested is published when the user asks to cancel a tracked tx
	EventCancelRequested EventKind = "cancel_requested"
	// EventReplaceRequested is published when the user asks to replace (speed up) a tracked tx
	EventReplaceRequested EventKind = "replace_requested"
	// EventNotification is published for every user-visible notification
	EventNotification EventKind = "notification"
	// EventFiatOnRampForceFetch is published when a fiat on-ramp watcher should poll immediately
	EventFiatOnRampForceFetch EventKind = "fiat_onramp_force_fetch"
)

// Event describes one store mutation or user signal. Tx is always a copy the receiver may
// keep without further synchronization.
type Event struct {
	Kind         EventKind
	Tx           *types.TransactionDetails
	Request      *types.TxRequest
	Notification *types.Notification
}

const subscriptionBuffer = 128

// Subscription is a filtered feed of store events
type Subscription struct {
	id     uint64
	ch     chan Event
	filter func(Event) bool
	owner  *Store
	once   sync.Once
}

// C returns the event channel of the subscription
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close detaches the subscription from the store
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.owner.unsubscribe(s.id)
	})
}

// Subscribe registers a filtered event feed. A nil filter receives every event. Slow
// consumers that let the buffer fill up lose events (logged at warn), they never block
// the store.
func (s *Store) Subscribe(filter func(Event) bool) *Subscription {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextSubID++
	sub := &Subscription{
		id:     s.nextSubID,
		ch:     make(chan Event, subscriptionBuffer),
		filter: filter,
		owner:  s,
	}
	s.subs[sub.id] = sub
	return sub
}

func (s *Store) unsubscribe(id uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.subs, id)
}

// publish fans the event out to matching subscriptions. Must be called with the store
// mutex held so subscribers observe events in mutation order.
func (s *Store) publish(ev Event) {
	for _, sub := range s.subs {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			log.Warnf("store subscription %d buffer full, dropping %s event", sub.id, ev.Kind)
		}
	}
}
