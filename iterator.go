package fundboard

import (
	"bytes"
	"log"
	"math"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
)

// IteratorOpts is the options for reading. It describes the range of history
// to read.
type IteratorOpts struct {
	// From is the time to start reading the points backwards. The default
	// zero-value means to read from the latest point.
	From time.Time
	// To is the time to stop reading the points backwards. By default, the
	// zero-value is used, which would read all points. The To time must
	// ALWAYS be before From.
	To time.Time
}

// Iterator is a backwards history iterator that allows iterating over a
// project's points.
type Iterator struct {
	tx *badger.Txn
	it *badger.Iterator

	// current state
	item  *badger.Item
	error error

	// constants
	prefix []byte
	begin  []byte
	to     uint64
	from   uint64
}

// newIterator creates a new iterator. See (*History).Iterator.
func newIterator(db *badger.DB, projectID string, opts IteratorOpts) (*Iterator, error) {
	if !opts.To.IsZero() && !opts.From.IsZero() {
		if !opts.From.After(opts.To) {
			return nil, errors.New("opts.From should be after opts.To")
		}
	}

	i := Iterator{
		prefix: pointsPrefix(projectID),
		to:     unixMilliOrZero(opts.To),
		from:   unixMilliOrZero(opts.From),
	}

	// If from is 0, then we start at the end of time. The trailing 0xFF sorts
	// after every transaction suffix at the same millisecond.
	if i.from == 0 {
		i.begin = bkey(i.prefix, msToBE(math.MaxUint64), []byte{0xFF})
	} else {
		i.begin = bkey(i.prefix, msToBE(i.from), []byte{0xFF})
	}

	i.tx = db.NewTransaction(false)
	i.it = i.tx.NewIterator(badger.IteratorOptions{
		Prefix:  i.prefix,
		Reverse: true, // from is later than to
	})

	i.Rewind()

	return &i, nil
}

// Close closes the iterator.
func (i *Iterator) Close() error {
	i.it.Close()
	i.tx.Discard()
	return nil
}

// Err returns the error that stopped the iterator, if any.
func (i *Iterator) Err() error {
	return i.error
}

func (i *Iterator) setItem() {
	if i.it.Valid() {
		i.item = i.it.Item()
	} else {
		i.item = nil
	}
}

func (i *Iterator) itemTime() uint64 {
	return readPointTime(i.item.Key(), i.prefix)
}

// isValid returns true if the iterator is still within range.
func (i *Iterator) isValid() bool {
	if i.item == nil {
		return false
	}

	return i.to == 0 || i.to <= i.itemTime()
}

// Prev reads the previous point into the given pointer or the latest point if
// the Iterator has never been used before. If point is nil, then the iterator
// is still updated, but no unmarshaling is done.
//
// False is returned if nothing is read and the iterator is done, otherwise
// true is.
func (i *Iterator) Prev(point *HistoryPoint) bool {
	if !i.isValid() {
		i.item = nil
		return false
	}

	if point != nil {
		if !i.readPoint(point) {
			i.item = nil
			return false
		}
	}

	// Seek for the next call.
	i.it.Next()
	i.setItem()

	return true
}

func (i *Iterator) readPoint(point *HistoryPoint) bool {
	// Unmarshal fail is a fatal error, so we invalidate everything.
	if err := i.item.Value(func(v []byte) error {
		return decodePoint(v, point)
	}); err != nil {
		i.error = errors.Wrapf(err, "failed to decode point at %d", i.itemTime())
		log.Println("readPoint failed:", i.error)
		return false
	}

	point.X = float64(i.itemTime())
	return true
}

// Remaining returns the number of remaining points to read until either the
// database has nothing left or the requested range has been reached. The
// cursor position stays the same by the time this function returns.
func (i *Iterator) Remaining() int {
	if i.item == nil {
		return 0
	}

	// The iterator reuses the key buffer, so the current position has to be
	// copied.
	current := i.item.KeyCopy(nil)

	var total int
	for i.Prev(nil) {
		total++
	}

	// Seek back to where we were.
	i.it.Rewind()
	i.it.Seek(current)
	i.setItem()

	if i.item == nil || !bytes.Equal(i.item.Key(), current) {
		log.Panicln("Remaining: cannot seek back to last known key")
	}

	return total
}

// ReadRemaining reads the rest of the range from the current position. Points
// are returned oldest first.
func (i *Iterator) ReadRemaining() []HistoryPoint {
	total := i.Remaining()
	points := make([]HistoryPoint, total)

	for total > 0 && i.Prev(&points[total-1]) {
		total--
	}

	// A decoding error stops the iterator early; only return what was read.
	return points[total:]
}

// Rewind resets the cursor back to the initial position.
func (i *Iterator) Rewind() {
	i.it.Rewind()
	i.it.Seek(i.begin)
	i.setItem()
}

// ReadAll is similar to ReadRemaining, except the cursor is rewound to the
// requested position "from" and read again.
func (i *Iterator) ReadAll() []HistoryPoint {
	i.Rewind()
	return i.ReadRemaining()
}
