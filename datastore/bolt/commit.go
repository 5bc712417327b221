package bolt

import (
	"github.com/jmt-lab/bottlerocket/datastore"
	"github.com/jmt-lab/bottlerocket/datastore/kv"
	"github.com/jmt-lab/bottlerocket/datastore/serialization"
)

// Commit implements datastore.DataStore. The merge of the pending version and
// the removal of the pending buckets happen in one transaction.
func (s *DataStore) Commit() (datastore.KeySet, error) {
	committed := make(datastore.KeySet)

	err := s.db.Update(func(tx kv.WritableTx) error {
		pending, err := loadParcel(tx, datastore.Pending)
		if err != nil {
			return err
		}

		if pending.IsEmpty() {
			return nil
		}

		live, err := loadParcel(tx, datastore.Live)
		if err != nil {
			return err
		}

		merged, keys := datastore.MergePending(live, pending)

		for _, name := range [][]byte{liveData, liveMetadata, pendingData, pendingMetadata} {
			err = tx.DeleteBucket(name)
			if err != nil {
				return err
			}
		}

		err = storeParcel(tx, datastore.Live, merged)
		if err != nil {
			return err
		}

		committed = keys

		tx.OnCommit(func() {
			s.logger.Info().Int("keys", len(keys)).Msg("committed pending version")
		})

		return nil
	})

	if err != nil {
		return nil, s.fail("commit", err)
	}

	return committed, nil
}

// DeletePending implements datastore.DataStore.
func (s *DataStore) DeletePending() (datastore.KeySet, error) {
	var removed datastore.KeySet

	err := s.db.Update(func(tx kv.WritableTx) error {
		var err error
		removed, err = readKeys(tx, pendingData, "")
		if err != nil {
			return err
		}

		err = tx.DeleteBucket(pendingData)
		if err != nil {
			return err
		}

		return tx.DeleteBucket(pendingMetadata)
	})

	if err != nil {
		return nil, s.fail("delete pending version", err)
	}

	s.logger.Debug().Int("keys", len(removed)).Msg("pending version deleted")

	return removed, nil
}

// loadParcel reads the whole version in a parcel.
func loadParcel(tx kv.ReadableTx, committed datastore.Committed) (*datastore.Parcel, error) {
	parcel := datastore.NewParcel()

	bucketName := dataBucket(committed)

	keys, err := readKeys(tx, bucketName, "")
	if err != nil {
		return nil, err
	}

	for key := range keys {
		value, err := readValue(tx, bucketName, key.Name())
		if err != nil {
			return nil, err
		}

		parcel.Data[key] = value
	}

	metaBucket := metadataBucket(committed)

	err = scanMetadata(tx, metaBucket, "", func(dataKey, name datastore.Key, data []byte) error {
		value, err := decode(metaBucket, []byte(metadataName(name, dataKey)), data)
		if err != nil {
			return err
		}

		parcel.SetMetadata(name, dataKey, value)

		return nil
	})

	if err != nil {
		return nil, err
	}

	return parcel, nil
}

// storeParcel writes every entry of the parcel in the buckets of the version.
func storeParcel(tx kv.WritableTx, committed datastore.Committed, parcel *datastore.Parcel) error {
	if len(parcel.Data) > 0 {
		bucket, err := tx.GetBucketOrCreate(dataBucket(committed))
		if err != nil {
			return err
		}

		for key, value := range parcel.Data {
			data, err := serialization.MarshalValue(value)
			if err != nil {
				return err
			}

			err = bucket.Set([]byte(key.Name()), data)
			if err != nil {
				return err
			}
		}
	}

	if len(parcel.Metadata) > 0 {
		bucket, err := tx.GetBucketOrCreate(metadataBucket(committed))
		if err != nil {
			return err
		}

		for dataKey, entries := range parcel.Metadata {
			for name, value := range entries {
				data, err := serialization.MarshalValue(value)
				if err != nil {
					return err
				}

				err = bucket.Set([]byte(metadataName(name, dataKey)), data)
				if err != nil {
					return err
				}
			}
		}
	}

	return nil
}
