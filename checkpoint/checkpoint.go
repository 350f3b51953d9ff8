// Package checkpoint stores optimizer state in a bolt database, so an
// interrupted parameter optimization can be resumed.
package checkpoint

import (
	"encoding/json"
	"time"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// bucket is the bucket name for all the checkpoints.
var bucket = []byte("checkpoints")

// CheckpointData stores checkpoint data.
type CheckpointData struct {
	// Model is the model full name.
	Model      string             `json:"model"`
	Parameters map[string]float64 `json:"parameters"`
	Likelihood float64            `json:"likelihood"`
	Iter       int                `json:"iter"`
	Final      bool               `json:"final"`
}

// CheckpointIO saves and loads checkpoints of a single model.
type CheckpointIO struct {
	db      *bolt.DB
	key     []byte
	last    time.Time
	seconds float64
}

// Open opens (or creates) a checkpoint database.
func Open(path string) (*bolt.DB, error) {
	return bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
}

// NewCheckpointIO creates a new CheckpointIO. Checkpoints are stored
// under the key (usually the model name) and are saved not more often
// than every seconds.
func NewCheckpointIO(db *bolt.DB, key string, seconds float64) *CheckpointIO {
	return &CheckpointIO{
		db:      db,
		key:     []byte(key),
		seconds: seconds,
		last:    time.Now(),
	}
}

// Save saves a checkpoint.
func (s *CheckpointIO) Save(data *CheckpointData) error {
	// Even if saving fails, we do not want to run this code too often.
	s.SetNow()
	if data.Model == "" {
		data.Model = string(s.key)
	}
	dataB, err := json.Marshal(data)
	if err != nil {
		log.Error("Error serializing checkpoint", err)
		return err
	}
	err = SaveData(s.db, s.key, dataB)
	if err != nil {
		log.Error("Error saving checkpoint", err)
		return err
	}
	log.Debugf("Saved checkpoint (iter=%v, lnL=%v)", data.Iter, data.Likelihood)
	return nil
}

// Load returns the last saved checkpoint or nil if there is none.
func (s *CheckpointIO) Load() (*CheckpointData, error) {
	b, err := LoadData(s.db, s.key)
	if err != nil || b == nil {
		return nil, err
	}

	var data *CheckpointData
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, err
	}

	if data == nil || len(data.Parameters) == 0 {
		return nil, nil
	}

	if data.Final {
		log.Noticef("Found finished optimization checkpoint (iter=%v, lnL=%v)", data.Iter, data.Likelihood)
	} else {
		log.Noticef("Found unfinished optimization checkpoint (iter=%v, lnL=%v)", data.Iter, data.Likelihood)
	}

	return data, nil
}

// Old returns true if the last checkpoint was saved too long ago.
func (s *CheckpointIO) Old() bool {
	return time.Since(s.last).Seconds() > s.seconds
}

// SetNow sets last checkpoint time to now.
func (s *CheckpointIO) SetNow() {
	s.last = time.Now()
}

// SaveData saves a value in bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// LoadData loads a value from bolt database. The value is copied, so
// it stays valid after the transaction.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}

		if v := b.Get(key); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
