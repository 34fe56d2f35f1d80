package thumbnail

import (
	"encoding/json"

	"go.etcd.io/bbolt"
)

var buckets = struct {
	Metadata   []byte
	Thumbnails []byte
}{
	Metadata:   []byte("__metadata__"),
	Thumbnails: []byte("thumbnails"),
}

var metadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

type boltStore struct {
	*bbolt.DB
}

// NewBoltStore opens (creating if necessary) a thumbnail cache database at
// path, so fetched thumbnails survive across runs.
func NewBoltStore(path string) (Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(buckets.Thumbnails); err != nil {
			return err
		}

		// Get the current version of the database
		var version int
		if versionBytes := metadata.Get(metadataKeys.Version); versionBytes == nil {
			version = 0
		} else if err = json.Unmarshal(versionBytes, &version); err != nil {
			return err
		}

		// Set the current version of the database
		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(metadataKeys.Version, versionBytes); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db}, nil
}

func (s *boltStore) Get(url string) (entry Entry, ok bool, err error) {
	err = s.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(buckets.Thumbnails)
		data := bucket.Get([]byte(url))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return err
		}
		ok = true
		return nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	return entry, ok, nil
}

func (s *boltStore) Put(url string, e Entry) error {
	if data, err := json.Marshal(e); err != nil {
		return err
	} else {
		return s.Update(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket(buckets.Thumbnails)
			return bucket.Put([]byte(url), data)
		})
	}
}

func (s *boltStore) Delete(url string) error {
	return s.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(buckets.Thumbnails)
		return bucket.Delete([]byte(url))
	})
}
