package fundboard

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"git.unix.lgbt/diamondburned/fundboard/internal/badgerlog"
	"github.com/dgraph-io/badger/v3"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// Version is the type for the version of the encoded values.
type Version uint8

// VersionCBOR values are CBOR arrays behind a version prefix.
const VersionCBOR Version = 1

// versionBytePrefix starts every stored value.
const versionBytePrefix = 0xFE

// CurrentVersion is the version that values will be written as.
const CurrentVersion = VersionCBOR

// Convenient inaccurate time constants.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

// ErrNoHistory is returned when a project has no recorded history.
var ErrNoHistory = errors.New("no history recorded")

// HistoryEvent is the payload of a funding history point: the transaction
// that moved the funding total.
type HistoryEvent struct {
	TxnID  string  `json:"txn_id" cbor:"1,keyasint,omitempty"`
	From   string  `json:"from,omitempty" cbor:"2,keyasint,omitempty"`
	Amount float64 `json:"amount" cbor:"3,keyasint,omitempty"`
}

// HistoryPoint is a point in a project's funding history. X is the Unix time
// in milliseconds and Y the amount raised so far.
type HistoryPoint = Point[HistoryEvent]

// storedPoint is the on-disk value of a point. X lives in the key.
type storedPoint struct {
	_   struct{} `cbor:",toarray"`
	Y   float64
	Obj *HistoryEvent
}

// History is the funding history database. Each project's points are kept
// ordered by time.
type History struct {
	db *badger.DB
	ro bool
}

// HistoryOpts is the options for OpenHistory.
type HistoryOpts struct {
	// ReadOnly opens the database without write access. It is ignored for
	// in-memory databases.
	ReadOnly bool
	// Logger overrides the default logger, which only logs warnings and
	// errors.
	Logger badger.Logger
}

// OpenHistory opens the history database at path. If path is empty, then an
// in-memory database is opened. Databases must be closed once they're done.
func OpenHistory(path string, opts HistoryOpts) (*History, error) {
	var logger badger.Logger = badgerlog.NewDefaultLogger().WithPrefix("history")
	if opts.Logger != nil {
		logger = opts.Logger
	}

	bopts := badger.DefaultOptions(path)
	if path == "" {
		bopts = bopts.WithInMemory(true)
		opts.ReadOnly = false
	}

	bopts = bopts.
		WithReadOnly(opts.ReadOnly).
		WithLogger(logger)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrap(err, "badger")
	}

	return &History{db: db, ro: opts.ReadOnly}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record records a single point into the project's history.
func (h *History) Record(projectID string, point HistoryPoint) error {
	return h.RecordBatch(projectID, []HistoryPoint{point})
}

// RecordBatch records points into the project's history. Points are keyed by
// their time and transaction, so recording the same point twice overwrites
// it.
func (h *History) RecordBatch(projectID string, points []HistoryPoint) error {
	if h.ro {
		return errors.New("history not writable")
	}

	if err := checkProjectID(projectID); err != nil {
		return err
	}

	wb := h.db.NewWriteBatch()

	for _, point := range points {
		k, err := pointKey(projectID, point)
		if err != nil {
			wb.Cancel()
			return err
		}

		v, err := encodePoint(point)
		if err != nil {
			wb.Cancel()
			return err
		}

		if err := wb.Set(k, v); err != nil {
			wb.Cancel()
			return errors.Wrap(err, "failed to set point")
		}
	}

	if err := wb.Flush(); err != nil {
		return errors.Wrap(err, "failed to update history")
	}

	return nil
}

// Points returns the project's points between since and until, oldest first.
// A zero since reads from the beginning and a zero until reads up to the
// latest point.
func (h *History) Points(projectID string, since, until time.Time) ([]HistoryPoint, error) {
	iter, err := h.Iterator(projectID, IteratorOpts{From: until, To: since})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	points := iter.ReadAll()
	return points, iter.Err()
}

// Latest returns the project's latest point. ErrNoHistory is returned if the
// project has none.
func (h *History) Latest(projectID string) (HistoryPoint, error) {
	iter, err := h.Iterator(projectID, IteratorOpts{})
	if err != nil {
		return HistoryPoint{}, err
	}
	defer iter.Close()

	var point HistoryPoint
	if !iter.Prev(&point) {
		if err := iter.Err(); err != nil {
			return point, err
		}
		return point, ErrNoHistory
	}

	return point, nil
}

// GC deletes the project's points recorded before the given time. The number
// of deleted points is returned.
func (h *History) GC(projectID string, before time.Time) (int, error) {
	if h.ro {
		return 0, errors.New("history not writable")
	}

	if err := checkProjectID(projectID); err != nil {
		return 0, err
	}

	prefix := pointsPrefix(projectID)
	end := unixMilliOrZero(before)

	var keys [][]byte

	err := h.db.View(func(tx *badger.Txn) error {
		it := tx.NewIterator(badger.IteratorOptions{
			Prefix: prefix,
		})
		defer it.Close()

		for it.Seek(prefix); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if readPointTime(key, prefix) >= end {
				break
			}
			keys = append(keys, key)
		}

		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to scan history")
	}

	wb := h.db.NewWriteBatch()

	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			wb.Cancel()
			return 0, errors.Wrap(err, "failed to delete under cursor")
		}
	}

	if err := wb.Flush(); err != nil {
		return 0, errors.Wrap(err, "failed to gc history")
	}

	return len(keys), nil
}

// Iterator returns a new iterator over the project's history with millisecond
// precision. The iterator must be closed after it's done.
func (h *History) Iterator(projectID string, opts IteratorOpts) (*Iterator, error) {
	if err := checkProjectID(projectID); err != nil {
		return nil, err
	}
	return newIterator(h.db, projectID, opts)
}

func checkProjectID(projectID string) error {
	if projectID == "" {
		return errors.New("missing project ID")
	}
	if strings.Contains(projectID, "/") {
		return fmt.Errorf("invalid project ID %q", projectID)
	}
	return nil
}

var bPoints = []byte("points/")

func bkey(parts ...[]byte) []byte {
	var n int
	for _, part := range parts {
		n += len(part)
	}

	key := make([]byte, 0, n)
	for _, part := range parts {
		key = append(key, part...)
	}

	return key
}

func pointsPrefix(projectID string) []byte {
	return bkey(bPoints, []byte(projectID), []byte("/"))
}

func pointKey(projectID string, point HistoryPoint) ([]byte, error) {
	if math.IsNaN(point.X) || point.X < 0 || point.X > math.MaxInt64 {
		return nil, fmt.Errorf("point time %v out of range", point.X)
	}

	var txn []byte
	if point.Obj != nil {
		txn = []byte(point.Obj.TxnID)
	}

	return bkey(pointsPrefix(projectID), msToBE(uint64(point.X)), txn), nil
}

func msToBE(ms uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, ms)
	return b
}

func readPointTime(key, prefix []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(prefix):])
}

// unixMilliOrZero converts a time.Time to Unix milliseconds, or if time.Time
// is zero, then 0 is returned.
func unixMilliOrZero(t time.Time) uint64 {
	if t.IsZero() || t.UnixMilli() < 0 {
		return 0
	}
	return uint64(t.UnixMilli())
}

func encodePoint(point HistoryPoint) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(64)
	buf.WriteByte(versionBytePrefix)
	buf.WriteByte(byte(CurrentVersion))

	stored := storedPoint{Y: point.Y, Obj: point.Obj}
	if err := cbor.NewEncoder(&buf).Encode(stored); err != nil {
		return nil, errors.Wrap(err, "failed to marshal")
	}

	return buf.Bytes(), nil
}

// decodePoint decodes b into dst. dst.X is left untouched.
func decodePoint(b []byte, dst *HistoryPoint) error {
	if len(b) < 2 || b[0] != versionBytePrefix {
		return errors.New("value has no version prefix")
	}

	version := Version(b[1])
	b = b[2:]

	switch version {
	case VersionCBOR:
		var stored storedPoint
		if err := cbor.Unmarshal(b, &stored); err != nil {
			return err
		}
		dst.Y = stored.Y
		dst.Obj = stored.Obj
		return nil
	default:
		return fmt.Errorf("unknown version %d", version)
	}
}
