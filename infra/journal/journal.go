// Package journal persists the items still sitting on the stack when
// the server stops, so the next start can put them back.
package journal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

var (
	itemPrefix = []byte("item/")
	itemUpper  = []byte("item/~")
	seqKey     = []byte("meta/seq")
)

// -------------------- Record --------------------

// Record is one checkpointed stack item.
type Record struct {
	Seq     uint64
	Payload []byte
}

// binary encoding: [seq:8][payload...]
func encodeRecord(r Record) []byte {
	buf := make([]byte, 8+len(r.Payload))
	binary.BigEndian.PutUint64(buf[:8], r.Seq)
	copy(buf[8:], r.Payload)
	return buf
}

func decodeRecord(b []byte) (Record, error) {
	if len(b) < 8 {
		return Record{}, errors.Errorf("journal: record too short (%d bytes)", len(b))
	}
	return Record{
		Seq:     binary.BigEndian.Uint64(b[:8]),
		Payload: bytes.Clone(b[8:]),
	}, nil
}

// -------------------- Journal --------------------

// ErrClosed is returned by every operation on a closed Journal.
var ErrClosed = errors.New("journal: closed")

type Journal struct {
	db     *pebble.DB
	closed atomic.Bool
}

func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "journal: open %s", dir)
	}
	return &Journal{db: db}, nil
}

// Close releases the store. A second Close is a no-op.
func (j *Journal) Close() error {
	if j.closed.Swap(true) {
		return nil
	}
	return j.db.Close()
}

// Save replaces the stored checkpoint with records, ordered top of the
// stack first, and remembers lastSeq. The replacement is atomic.
func (j *Journal) Save(records []Record, lastSeq uint64) error {
	if j.closed.Load() {
		return ErrClosed
	}
	b := j.db.NewBatch()
	defer b.Close()

	if err := b.DeleteRange(itemPrefix, itemUpper, nil); err != nil {
		return errors.Wrap(err, "journal: clear items")
	}
	for i, r := range records {
		if err := b.Set(keyFor(uint64(i)), encodeRecord(r), nil); err != nil {
			return errors.Wrapf(err, "journal: stage item %d", i)
		}
	}

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], lastSeq)
	if err := b.Set(seqKey, seq[:], nil); err != nil {
		return errors.Wrap(err, "journal: stage seq")
	}

	return errors.Wrap(b.Commit(pebble.Sync), "journal: commit")
}

// Load returns the checkpointed records, top of the stack first, and
// the last sequence ID issued when they were saved.
func (j *Journal) Load() ([]Record, uint64, error) {
	if j.closed.Load() {
		return nil, 0, ErrClosed
	}
	lastSeq, err := j.lastSeq()
	if err != nil {
		return nil, 0, err
	}

	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: itemPrefix,
		UpperBound: itemUpper,
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "journal: iterate")
	}
	defer iter.Close()

	var out []Record
	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return nil, 0, errors.Wrapf(err, "journal: key %s", iter.Key())
		}
		out = append(out, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, 0, errors.Wrap(err, "journal: iterate")
	}
	return out, lastSeq, nil
}

// Clear drops every checkpointed record but keeps the last sequence.
func (j *Journal) Clear() error {
	if j.closed.Load() {
		return ErrClosed
	}
	return errors.Wrap(
		j.db.DeleteRange(itemPrefix, itemUpper, pebble.Sync),
		"journal: clear",
	)
}

func (j *Journal) lastSeq() (uint64, error) {
	val, closer, err := j.db.Get(seqKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "journal: read seq")
	}
	defer closer.Close()

	if len(val) != 8 {
		return 0, errors.Errorf("journal: invalid seq length %d", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

// -------------------- Helpers --------------------

func keyFor(pos uint64) []byte {
	return []byte(fmt.Sprintf("item/%020d", pos))
}
