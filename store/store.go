package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/types"
)

// Persister is the optional write-through backend for transaction records. Persistence
// failures are logged, never surfaced to callers; the in-memory state is authoritative
// for the running process.
type Persister interface {
	UpsertTransaction(ctx context.Context, tx *types.TransactionDetails) error
	DeleteTransaction(ctx context.Context, from string, chainID uint64, id string) error
}

type txKey struct {
	from    string
	chainID uint64
	id      string
}

// Store owns every TransactionDetails record. It is the only synchronization point of the
// transaction lifecycle: all mutations go through its methods and are serialized by a single
// mutex, and every mutation is published to subscribers in order.
type Store struct {
	mutex       sync.Mutex
	txs         map[txKey]*types.TransactionDetails
	notifStatus map[string]bool
	subs        map[uint64]*Subscription
	nextSubID   uint64
	persister   Persister
}

// New creates a transaction store. persister may be nil for a purely in-memory store.
func New(persister Persister) *Store {
	return &Store{
		txs:         make(map[txKey]*types.TransactionDetails),
		notifStatus: make(map[string]bool),
		subs:        make(map[uint64]*Subscription),
		persister:   persister,
	}
}

func keyOf(tx *types.TransactionDetails) txKey {
	return txKey{from: strings.ToLower(tx.From), chainID: tx.ChainID, id: tx.ID}
}

func (s *Store) persist(tx *types.TransactionDetails) {
	if s.persister == nil {
		return
	}
	if err := s.persister.UpsertTransaction(context.Background(), tx); err != nil {
		log.Errorf("error persisting tx %s, error: %v", tx.Tag(), err)
	}
}

// Load inserts records without publishing events or persisting. Used to rehydrate the
// store from the database at startup.
func (s *Store) Load(txs []*types.TransactionDetails) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, tx := range txs {
		s.txs[keyOf(tx)] = tx.Copy()
	}
}

// AddTransaction creates a new record. The id must not collide with an existing record for
// the same (from, chainID).
func (s *Store) AddTransaction(tx *types.TransactionDetails) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	k := keyOf(tx)
	if _, found := s.txs[k]; found {
		return fmt.Errorf("transaction %s already exists for %s on chain %d", tx.ID, tx.From, tx.ChainID)
	}
	c := tx.Copy()
	s.txs[k] = c
	s.persist(c)
	s.publish(Event{Kind: EventTxAdded, Tx: c.Copy()})
	return nil
}

// UpdateTransaction overwrites an existing record with interim (non-terminal) state
func (s *Store) UpdateTransaction(tx *types.TransactionDetails) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	k := keyOf(tx)
	if _, found := s.txs[k]; !found {
		return fmt.Errorf("transaction %s not found for %s on chain %d", tx.ID, tx.From, tx.ChainID)
	}
	c := tx.Copy()
	s.txs[k] = c
	s.persist(c)
	s.publish(Event{Kind: EventTxUpdated, Tx: c.Copy()})
	return nil
}

// FinalizeTransaction moves a record to a terminal status and attaches the receipt, if any.
// Returns the finalized record.
func (s *Store) FinalizeTransaction(from string, chainID uint64, id string, status types.TransactionStatus, receipt *types.Receipt) (*types.TransactionDetails, error) {
	if !status.IsFinal() {
		return nil, fmt.Errorf("status %s is not terminal", status)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	k := txKey{from: strings.ToLower(from), chainID: chainID, id: id}
	tx, found := s.txs[k]
	if !found {
		return nil, fmt.Errorf("transaction %s not found for %s on chain %d", id, from, chainID)
	}
	tx.Status = status
	if receipt != nil {
		r := *receipt
		tx.Receipt = &r
	}
	s.persist(tx)
	s.publish(Event{Kind: EventTxFinalized, Tx: tx.Copy()})
	return tx.Copy(), nil
}

// DeleteTransaction removes a record. Used when a tx is invalidated by another tx mined
// with the same nonce.
func (s *Store) DeleteTransaction(from string, chainID uint64, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	k := txKey{from: strings.ToLower(from), chainID: chainID, id: id}
	tx, found := s.txs[k]
	if !found {
		return fmt.Errorf("transaction %s not found for %s on chain %d", id, from, chainID)
	}
	delete(s.txs, k)
	if s.persister != nil {
		if err := s.persister.DeleteTransaction(context.Background(), from, chainID, id); err != nil {
			log.Errorf("error deleting tx %s from persistence, error: %v", tx.Tag(), err)
		}
	}
	s.publish(Event{Kind: EventTxDeleted, Tx: tx.Copy()})
	return nil
}

// CancelTransaction signals an explicit user-initiated cancel for a tracked tx. The record
// itself is not mutated here; the watcher owning the tx reacts to the signal.
func (s *Store) CancelTransaction(from string, chainID uint64, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	k := txKey{from: strings.ToLower(from), chainID: chainID, id: id}
	tx, found := s.txs[k]
	if !found {
		return fmt.Errorf("transaction %s not found for %s on chain %d", id, from, chainID)
	}
	if tx.Status.IsFinal() {
		return fmt.Errorf("transaction %s is already finalized (%s)", tx.Tag(), tx.Status)
	}
	s.publish(Event{Kind: EventCancelRequested, Tx: tx.Copy()})
	return nil
}

// ReplaceTransaction signals an explicit user-initiated replacement (speed up / fee bump)
// carrying the new request parameters. Last writer wins when cancel and replace race on the
// same record.
func (s *Store) ReplaceTransaction(from string, chainID uint64, id string, newRequest types.TxRequest) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	k := txKey{from: strings.ToLower(from), chainID: chainID, id: id}
	tx, found := s.txs[k]
	if !found {
		return fmt.Errorf("transaction %s not found for %s on chain %d", id, from, chainID)
	}
	if tx.Status.IsFinal() {
		return fmt.Errorf("transaction %s is already finalized (%s)", tx.Tag(), tx.Status)
	}
	r := newRequest
	s.publish(Event{Kind: EventReplaceRequested, Tx: tx.Copy(), Request: &r})
	return nil
}

// UpsertFiatOnRampTransaction creates or overwrites a fiat on/off-ramp record
func (s *Store) UpsertFiatOnRampTransaction(tx *types.TransactionDetails) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	k := keyOf(tx)
	_, found := s.txs[k]
	c := tx.Copy()
	s.txs[k] = c
	s.persist(c)
	kind := EventTxAdded
	if found {
		kind = EventTxUpdated
	}
	if c.Status.IsFinal() {
		kind = EventTxFinalized
	}
	s.publish(Event{Kind: kind, Tx: c.Copy()})
}

// ForceFetchFiatOnRampTransaction asks the polling loop of a fiat on-ramp record to fetch
// immediately, e.g. when the user returns from the external browser flow.
func (s *Store) ForceFetchFiatOnRampTransaction(from string, chainID uint64, id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	k := txKey{from: strings.ToLower(from), chainID: chainID, id: id}
	tx, found := s.txs[k]
	if !found {
		return
	}
	s.publish(Event{Kind: EventFiatOnRampForceFetch, Tx: tx.Copy()})
}

// PushNotification publishes a user-visible notification and raises the badge flag for the
// address.
func (s *Store) PushNotification(n types.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.notifStatus[strings.ToLower(n.Address)] = true
	s.publish(Event{Kind: EventNotification, Notification: &n})
}

// SetNotificationStatus raises or clears the badge flag for an address
func (s *Store) SetNotificationStatus(address string, hasNotifications bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.notifStatus[strings.ToLower(address)] = hasNotifications
}

// HasNotifications returns the badge flag for an address
func (s *Store) HasNotifications(address string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.notifStatus[strings.ToLower(address)]
}

// GetTransaction returns a copy of a record, or nil if not found
func (s *Store) GetTransaction(from string, chainID uint64, id string) *types.TransactionDetails {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, found := s.txs[txKey{from: strings.ToLower(from), chainID: chainID, id: id}]
	if !found {
		return nil
	}
	return tx.Copy()
}

// GetTransactions returns copies of every record for an address, optionally filtered by
// chain (chainID 0 means all chains), newest first.
func (s *Store) GetTransactions(from string, chainID uint64) []*types.TransactionDetails {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	lower := strings.ToLower(from)
	var out []*types.TransactionDetails
	for k, tx := range s.txs {
		if k.from != lower {
			continue
		}
		if chainID != 0 && k.chainID != chainID {
			continue
		}
		out = append(out, tx.Copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedTime.After(out[j].AddedTime) })
	return out
}

// GetIncompleteTransactions returns copies of every record not yet in a terminal status,
// across all addresses. Used by the watcher at startup to resume monitoring.
func (s *Store) GetIncompleteTransactions() []*types.TransactionDetails {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var out []*types.TransactionDetails
	for _, tx := range s.txs {
		if !tx.Status.IsFinal() {
			out = append(out, tx.Copy())
		}
	}
	return out
}

// PendingPrivateTxCount returns how many txs for the account on the chain were submitted
// through a private relay and are still pending. Used by the nonce resolver for relay kinds
// without a global pending view.
func (s *Store) PendingPrivateTxCount(from string, chainID uint64) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	lower := strings.ToLower(from)
	count := 0
	for k, tx := range s.txs {
		if k.from != lower || k.chainID != chainID {
			continue
		}
		if !tx.Status.IsFinal() && tx.Options.SubmittedPrivately {
			count++
		}
	}
	return count
}

// CountSuccessfulSwaps returns the number of finalized successful swaps for an address.
// Used to detect a user's first-ever swap.
func (s *Store) CountSuccessfulSwaps(from string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	lower := strings.ToLower(from)
	count := 0
	for k, tx := range s.txs {
		if k.from != lower || tx.Status != types.StatusSuccess || tx.TypeInfo == nil {
			continue
		}
		if tx.TypeInfo.Kind() == types.TypeKindSwap {
			count++
		}
	}
	return count
}
