package kv

import (
	"fmt"
	"os"
	"path/filepath"
)

func ExampleBucket_Scan() {
	dir, err := os.MkdirTemp(os.TempDir(), "example")
	if err != nil {
		panic("failed to create folder: " + err.Error())
	}

	defer os.RemoveAll(dir)

	db, err := New(filepath.Join(dir, "example.db"))
	if err != nil {
		panic("failed to open db: " + err.Error())
	}

	defer db.Close()

	names := []string{
		"settings.motd",
		"services.ntp.restart",
		"settings.network.hostname",
		"settings.kernel.lockdown",
	}

	err = db.Update(func(tx WritableTx) error {
		bucket, err := tx.GetBucketOrCreate([]byte("settings"))
		if err != nil {
			return err
		}

		for _, name := range names {
			err = bucket.Set([]byte(name), []byte("value"))
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		panic("database write failed: " + err.Error())
	}

	err = db.View(func(tx ReadableTx) error {
		bucket := tx.GetBucket([]byte("settings"))
		if bucket == nil {
			return nil
		}

		return bucket.Scan([]byte("settings."), func(key, value []byte) error {
			fmt.Println(string(key))
			return nil
		})
	})
	if err != nil {
		panic("database read failed: " + err.Error())
	}

	// Output: settings.kernel.lockdown
	// settings.motd
	// settings.network.hostname
}
