// Package monitor implements a data store decorator that records Prometheus
// metrics about the operations of the data store it wraps.
//
// The collectors are global to the package and appended to
// bottlerocket.PromCollectors so that a command can register them.
//
// Documentation Last Review: 18.10.2026
package monitor

import (
	"github.com/jmt-lab/bottlerocket"
	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelOp        = "op"
	labelCommitted = "committed"
	labelKind      = "kind"
)

// defines prometheus metrics
var (
	promOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bottlerocket_datastore_operations_total",
		Help: "total number of operations on the data store",
	}, []string{labelOp, labelCommitted})

	promErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bottlerocket_datastore_errors_total",
		Help: "total number of failed operations per kind of error",
	}, []string{labelOp, labelKind})

	promCommitted = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bottlerocket_datastore_committed_keys",
		Help:    "number of keys committed by the last commit",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 20, 30, 50, 100},
	})

	promPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bottlerocket_datastore_pending_writes",
		Help: "number of keys written in the pending version since the last commit",
	})
)

func init() {
	bottlerocket.PromCollectors = append(bottlerocket.PromCollectors,
		promOps, promErrors, promCommitted, promPending)
}

// DataStore records the metrics of the operations of a data store.
//
// - implements datastore.DataStore
type DataStore struct {
	store datastore.DataStore
}

// NewDataStore returns the data store decorated with the metrics.
func NewDataStore(store datastore.DataStore) *DataStore {
	return &DataStore{
		store: store,
	}
}

// observe counts the operation and its failure, if any.
func observe(op string, committed datastore.Committed, err error) {
	promOps.WithLabelValues(op, committed.String()).Inc()

	if err != nil {
		promErrors.WithLabelValues(op, datastore.KindOf(err).String()).Inc()
	}
}

// ListPopulatedKeys implements datastore.DataStore.
func (s *DataStore) ListPopulatedKeys(prefix string,
	committed datastore.Committed) (datastore.KeySet, error) {

	keys, err := s.store.ListPopulatedKeys(prefix, committed)
	observe("list_keys", committed, err)

	return keys, err
}

// ListPopulatedMetadata implements datastore.DataStore.
func (s *DataStore) ListPopulatedMetadata(prefix string,
	committed datastore.Committed) (map[datastore.Key]datastore.KeySet, error) {

	res, err := s.store.ListPopulatedMetadata(prefix, committed)
	observe("list_metadata", committed, err)

	return res, err
}

// GetKey implements datastore.DataStore.
func (s *DataStore) GetKey(key datastore.Key, committed datastore.Committed) (datastore.Value, error) {
	value, err := s.store.GetKey(key, committed)
	observe("get_key", committed, err)

	return value, err
}

// GetMetadata implements datastore.DataStore.
func (s *DataStore) GetMetadata(metadataKey, dataKey datastore.Key,
	committed datastore.Committed) (datastore.Value, error) {

	value, err := s.store.GetMetadata(metadataKey, dataKey, committed)
	observe("get_metadata", committed, err)

	return value, err
}

// GetMetadataKeysFor implements datastore.DataStore.
func (s *DataStore) GetMetadataKeysFor(dataKey datastore.Key,
	committed datastore.Committed) (datastore.KeySet, error) {

	names, err := s.store.GetMetadataKeysFor(dataKey, committed)
	observe("get_metadata_keys", committed, err)

	return names, err
}

// SetKeys implements datastore.DataStore. The keys written in the pending
// version are added to the pending gauge.
func (s *DataStore) SetKeys(pairs map[datastore.Key]datastore.Value,
	committed datastore.Committed) error {

	err := s.store.SetKeys(pairs, committed)
	observe("set_keys", committed, err)

	if err == nil && committed == datastore.Pending {
		promPending.Add(float64(len(pairs)))
	}

	return err
}

// SetMetadata implements datastore.DataStore.
func (s *DataStore) SetMetadata(metadataKey, dataKey datastore.Key, value datastore.Value,
	committed datastore.Committed) error {

	err := s.store.SetMetadata(metadataKey, dataKey, value, committed)
	observe("set_metadata", committed, err)

	return err
}

// DeleteKey implements datastore.DataStore.
func (s *DataStore) DeleteKey(key datastore.Key, committed datastore.Committed) error {
	err := s.store.DeleteKey(key, committed)
	observe("delete_key", committed, err)

	return err
}

// DeleteMetadata implements datastore.DataStore.
func (s *DataStore) DeleteMetadata(metadataKey, dataKey datastore.Key,
	committed datastore.Committed) error {

	err := s.store.DeleteMetadata(metadataKey, dataKey, committed)
	observe("delete_metadata", committed, err)

	return err
}

// Commit implements datastore.DataStore. It records the number of committed
// keys and resets the pending gauge.
func (s *DataStore) Commit() (datastore.KeySet, error) {
	keys, err := s.store.Commit()
	observe("commit", datastore.Pending, err)

	if err == nil {
		promCommitted.Observe(float64(len(keys)))
		promPending.Set(0)
	}

	return keys, err
}

// DeletePending implements datastore.DataStore.
func (s *DataStore) DeletePending() (datastore.KeySet, error) {
	keys, err := s.store.DeletePending()
	observe("delete_pending", datastore.Pending, err)

	if err == nil {
		promPending.Set(0)
	}

	return keys, err
}
