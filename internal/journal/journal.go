package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "dnschanger.db"

var (
	bucketHistory = []byte("history")
	bucketState   = []byte("state")
	keyActive     = []byte("active")
)

// Entry is one apply or clear run.
type Entry struct {
	ID        string    `yaml:"id"`
	Op        string    `yaml:"op"`
	Profile   string    `yaml:"profile,omitempty"`
	Addresses []string  `yaml:"addresses,omitempty"`
	Adapters  []string  `yaml:"adapters,omitempty"`
	Failed    []string  `yaml:"failed,omitempty"`
	Time      time.Time `yaml:"time"`
}

// Journal keeps the history of apply/clear runs and the name of the profile last applied.
// Keys are xids, so bolt's byte order is also time order.
type Journal struct {
	db *bolt.DB
}

func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketHistory, bucketState} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores e. ID and Time are filled in when empty. A successful apply marks e.Profile
// active; a clear resets it.
func (j *Journal) Record(e Entry) (Entry, error) {
	id := xid.New()
	if e.ID == "" {
		e.ID = id.String()
	} else if parsed, err := xid.FromString(e.ID); err == nil {
		id = parsed
	}
	if e.Time.IsZero() {
		e.Time = id.Time()
	}
	val, err := yaml.Marshal(e)
	if err != nil {
		return e, err
	}
	err = j.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketHistory).Put(id.Bytes(), val); err != nil {
			return err
		}
		state := tx.Bucket(bucketState)
		switch {
		case e.Op == "clear":
			return state.Put(keyActive, []byte{})
		case len(e.Failed) == 0:
			return state.Put(keyActive, []byte(e.Profile))
		}
		return nil
	})
	return e, err
}

// Recent returns up to n entries, newest first. n <= 0 means all of them.
func (j *Journal) Recent(n int) ([]Entry, error) {
	var out []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n > 0 && len(out) >= n {
				break
			}
			var e Entry
			if err := yaml.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("entry %x: %w", k, err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

// Active is the profile the last fully successful apply used, "" after a clear or on a fresh journal.
func (j *Journal) Active() (string, error) {
	var name string
	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		if b == nil {
			return errors.New("journal not initialised")
		}
		name = string(b.Get(keyActive))
		return nil
	})
	return name, err
}
