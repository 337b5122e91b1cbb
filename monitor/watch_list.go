package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/dexwallet/tx-manager/log"
)

type watchEntry struct {
	txID     string
	chainID  uint64
	hash     string
	deadline time.Time
}

// watchList tracks the active watchers indexed by tx id but sorted by deadline, so the
// summary can report overdue txs cheaply
type watchList struct {
	list   map[string]*watchEntry
	sorted []*watchEntry
	mutex  sync.Mutex
}

func newWatchList() *watchList {
	return &watchList{
		list:   make(map[string]*watchEntry),
		sorted: []*watchEntry{},
	}
}

// add registers a watch entry. Returns false if the tx is already being watched.
func (w *watchList) add(entry *watchEntry) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, found := w.list[entry.txID]; !found {
		w.list[entry.txID] = entry
		w.addSort(entry)
		return true
	}
	return false
}

// delete removes the entry for a tx id
func (w *watchList) delete(txID string) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	entry, found := w.list[txID]
	if !found {
		return false
	}

	sLen := len(w.sorted)
	i := sort.Search(sLen, func(i int) bool {
		return w.sorted[i].deadline.UnixMilli() >= entry.deadline.UnixMilli()
	})

	// i is the index of the first entry with the same (or later) deadline. Walk forward
	// through the run of equal deadlines looking for the entry itself.
	for {
		if i == sLen {
			log.Warnf("error deleting watch entry %s, reached the end of the list", txID)
			return false
		}
		if w.sorted[i].deadline != entry.deadline {
			log.Warnf("error deleting watch entry %s, not found among entries with deadline %v", txID, entry.deadline)
			return false
		}
		if w.sorted[i].txID == txID {
			break
		}
		i++
	}

	delete(w.list, txID)
	copy(w.sorted[i:], w.sorted[i+1:])
	w.sorted[sLen-1] = nil
	w.sorted = w.sorted[:sLen-1]
	return true
}

func (w *watchList) len() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return len(w.sorted)
}

// overdue returns how many active watches have passed their advisory deadline
func (w *watchList) overdue(now time.Time) int {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	count := 0
	for _, entry := range w.sorted {
		// zero deadlines (no advisory timeout) sort first, skip them
		if entry.deadline.IsZero() {
			continue
		}
		if entry.deadline.After(now) {
			break
		}
		count++
	}
	return count
}

func (w *watchList) getByIndex(i int) *watchEntry {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sorted[i]
}

// addSort inserts the entry keeping the slice sorted by deadline
func (w *watchList) addSort(entry *watchEntry) {
	i := sort.Search(len(w.sorted), func(i int) bool {
		return w.sorted[i].deadline.UnixMilli() > entry.deadline.UnixMilli()
	})

	w.sorted = append(w.sorted, nil)
	copy(w.sorted[i+1:], w.sorted[i:])
	w.sorted[i] = entry
	log.Debugf("added watch entry for tx %s with deadline %v at index %d of %d", entry.txID, entry.deadline, i, len(w.sorted))
}
