// Package store implements the persistent resolution database: a disk-backed
// map from an address or class-prefix key to the name it resolved to, where
// the answer came from, and when. Later runs reuse prior answers through it.
//
// The database is a bbolt file. bbolt takes an exclusive file lock on open,
// so two concurrent runs against the same database cannot interleave writes;
// the second open fails instead.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Origin is the single-letter provenance code persisted with each record.
type Origin string

const (
	// OriginNS marks an answer obtained from a nameserver.
	OriginNS Origin = "N"
	// OriginRecursed marks a name synthesized by class recursion.
	OriginRecursed Origin = "R"
	// OriginMerged marks an entry imported via merge.
	OriginMerged Origin = "M"
)

var (
	// ErrBadRecord is returned when a stored value does not parse.
	ErrBadRecord = errors.New("malformed store record")
	// ErrBadMergeLine is returned when a merge input line does not parse.
	ErrBadMergeLine = errors.New("malformed merge line")
)

var _bucket = []byte("resolutions")

// Record is one stored resolution.
type Record struct {
	Name      string
	Origin    Origin
	Timestamp int64 // whole seconds since the UNIX epoch
}

// DB is a handle to an open resolution database.
type DB struct {
	bolt *bolt.DB
}

// Open opens or creates the database at path. The open fails after one
// second if another process holds the file lock.
func Open(path string) (*DB, error) {
	b, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}
	err = b.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(_bucket)
		return err
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("preparing database %q: %w", path, err)
	}
	return &DB{bolt: b}, nil
}

// Close releases the database file and its lock.
func (db *DB) Close() error {
	return db.bolt.Close()
}

// Get returns the record stored under key, if any.
func (db *DB) Get(key string) (*Record, bool, error) {
	var rec *Record
	err := db.bolt.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(_bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		r, err := decodeRecord(v)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return rec, rec != nil, nil
}

// Put stores rec under key, replacing any prior record.
func (db *DB) Put(key string, rec Record) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(_bucket).Put([]byte(key), encodeRecord(rec))
	})
}

// Dump writes every record to w, one per line, as
// "key name origin timestamp" in key order.
func (db *DB) Dump(w io.Writer) error {
	return db.bolt.View(func(tx *bolt.Tx) error {
		return tx.Bucket(_bucket).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("key %q: %w", string(k), err)
			}
			_, err = fmt.Fprintf(w, "%s %s %s %d\n", k, rec.Name, rec.Origin, rec.Timestamp)
			return err
		})
	})
}

// Merge reads "key name" lines from r and stores each with origin M and the
// given timestamp. Blank lines are skipped. It returns the number of entries
// merged.
func (db *DB) Merge(r io.Reader, now int64) (int, error) {
	merged := 0
	sc := bufio.NewScanner(r)
	err := db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(_bucket)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return fmt.Errorf("%w: %q", ErrBadMergeLine, line)
			}
			rec := Record{Name: fields[1], Origin: OriginMerged, Timestamp: now}
			if err := b.Put([]byte(fields[0]), encodeRecord(rec)); err != nil {
				return err
			}
			merged++
		}
		return sc.Err()
	})
	if err != nil {
		return 0, err
	}
	return merged, nil
}

// Expire deletes every record with a timestamp strictly older than
// now-maxAge and returns how many were removed.
func (db *DB) Expire(maxAge time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-maxAge).Unix()
	removed := 0
	err := db.bolt.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(_bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			rec, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("key %q: %w", string(k), err)
			}
			if rec.Timestamp < cutoff {
				if err := c.Delete(); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// encodeRecord renders the external text value "name origin timestamp".
func encodeRecord(r Record) []byte {
	return []byte(fmt.Sprintf("%s %s %d", r.Name, r.Origin, r.Timestamp))
}

func decodeRecord(v []byte) (Record, error) {
	fields := strings.Fields(string(v))
	if len(fields) != 3 {
		return Record{}, fmt.Errorf("%w: %q", ErrBadRecord, string(v))
	}
	switch Origin(fields[1]) {
	case OriginNS, OriginRecursed, OriginMerged:
	default:
		return Record{}, fmt.Errorf("%w: unknown origin %q", ErrBadRecord, fields[1])
	}
	ts, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad timestamp %q", ErrBadRecord, fields[2])
	}
	return Record{Name: fields[0], Origin: Origin(fields[1]), Timestamp: ts}, nil
}
