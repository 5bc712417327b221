// Package watch notifies observers of the keys changed by the commits of a
// data store, so that a consumer can react to the new live settings.
//
// Documentation Last Review: 18.10.2026
package watch

import (
	"sync"

	"github.com/jmt-lab/bottlerocket/datastore"
)

// Event is the notification of a successful commit.
type Event struct {
	// Committed is the set of data keys written to the live version.
	Committed datastore.KeySet
}

// Observer is the interface to implement to watch the commits.
type Observer interface {
	NotifyCallback(event Event)
}

// Observable provides primitives to add and remove observers and to notify
// them of new events.
type Observable interface {
	// Add adds the observer to the list of observers that will be notified of
	// new events.
	Add(observer Observer)

	// Remove removes the observer from the list thus stopping it from receiving
	// new events.
	Remove(observer Observer)

	// Notify notifies the observers of a new event.
	Notify(event Event)
}

// Watcher is an implementation of the Observable interface.
//
// - implements watch.Observable
type Watcher struct {
	sync.RWMutex

	observers map[Observer]struct{}
}

// NewWatcher creates a new empty watcher.
func NewWatcher() *Watcher {
	return &Watcher{
		observers: make(map[Observer]struct{}),
	}
}

// Add implements watch.Observable.
func (w *Watcher) Add(observer Observer) {
	w.Lock()
	w.observers[observer] = struct{}{}
	w.Unlock()
}

// Remove implements watch.Observable.
func (w *Watcher) Remove(observer Observer) {
	w.Lock()
	delete(w.observers, observer)
	w.Unlock()
}

// Notify implements watch.Observable. It notifies the whole list of observers
// one after each other.
func (w *Watcher) Notify(event Event) {
	w.RLock()
	defer w.RUnlock()

	for obs := range w.observers {
		obs.NotifyCallback(event)
	}
}

// DataStore notifies the observers after every commit that changed at least
// one key. The other operations are forwarded as is.
//
// - implements datastore.DataStore
type DataStore struct {
	datastore.DataStore

	watcher Observable
}

// NewDataStore returns the data store decorated with the watcher.
func NewDataStore(store datastore.DataStore, watcher Observable) *DataStore {
	return &DataStore{
		DataStore: store,
		watcher:   watcher,
	}
}

// Commit implements datastore.DataStore.
func (s *DataStore) Commit() (datastore.KeySet, error) {
	keys, err := s.DataStore.Commit()
	if err != nil {
		return nil, err
	}

	if len(keys) > 0 {
		s.watcher.Notify(Event{Committed: keys})
	}

	return keys, nil
}
