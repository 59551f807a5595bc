package fundboard

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// testedHistory extends History to add useful testing information.
type testedHistory struct {
	*History
	start time.Time
}

// prepHistory prepares an in-memory history with 20 points over 20 seconds.
// Each point's amount is its index.
func prepHistory(t *testing.T) *testedHistory {
	t.Helper()

	h, err := OpenHistory("", HistoryOpts{})
	if err != nil {
		t.Fatal("failed to open history:", err)
	}
	t.Cleanup(func() { h.Close() })

	start := time.UnixMilli(time.Now().UnixMilli())
	points := gatherPoints(start, 20)

	// Shuffle the slice to ensure keys are what's ordering the points.
	rand.Shuffle(len(points), func(i, j int) {
		points[i], points[j] = points[j], points[i]
	})

	for _, point := range points {
		if err := h.Record("proj", point); err != nil {
			t.Fatal("failed to record:", err)
		}
	}

	return &testedHistory{h, start}
}

func gatherPoints(start time.Time, n int) []HistoryPoint {
	points := make([]HistoryPoint, n)
	for i := 1; i <= n; i++ {
		points[i-1] = HistoryPoint{
			X: float64(start.Add(time.Duration(i) * time.Second).UnixMilli()),
			Y: float64(i * 10),
			Obj: &HistoryEvent{
				TxnID:  fmt.Sprintf("txn-%02d", i),
				Amount: float64(i),
			},
		}
	}
	return points
}

func TestHistoryPoints(t *testing.T) {
	h := prepHistory(t)

	points, err := h.Points("proj", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal("failed to read:", err)
	}

	if len(points) != 20 {
		t.Fatalf("expected 20 points, got %d", len(points))
	}

	for i, point := range points {
		if point.Obj == nil || point.Obj.Amount != float64(i+1) {
			t.Fatalf("point %d has unexpected payload %+v", i, point.Obj)
		}
		if point.Y != float64((i+1)*10) {
			t.Fatalf("point %d has unexpected y %v", i, point.Y)
		}
	}

	if !isSortedByX(points) {
		t.Fatal("points are not sorted by x")
	}
}

func TestHistoryRange(t *testing.T) {
	h := prepHistory(t)

	since := h.start.Add(5 * time.Second)
	until := h.start.Add(10 * time.Second)

	points, err := h.Points("proj", since, until)
	if err != nil {
		t.Fatal("failed to read:", err)
	}

	// Both ends are inclusive.
	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}

	if points[0].Obj.Amount != 5 || points[5].Obj.Amount != 10 {
		t.Fatalf("unexpected range %v..%v", points[0].Obj.Amount, points[5].Obj.Amount)
	}
}

func TestHistoryIterator(t *testing.T) {
	h := prepHistory(t)

	iter, err := h.Iterator("proj", IteratorOpts{})
	if err != nil {
		t.Fatal("failed to create iterator:", err)
	}
	defer iter.Close()

	var point HistoryPoint
	if !iter.Prev(&point) || point.Obj.Amount != 20 {
		t.Fatalf("expected the latest point first, got %+v", point.Obj)
	}

	if n := iter.Remaining(); n != 19 {
		t.Fatalf("expected 19 remaining, got %d", n)
	}

	// Remaining must not move the cursor.
	if !iter.Prev(&point) || point.Obj.Amount != 19 {
		t.Fatalf("expected point 19, got %+v", point.Obj)
	}

	if rest := iter.ReadRemaining(); len(rest) != 18 {
		t.Fatalf("expected 18 points, got %d", len(rest))
	}

	if iter.Prev(&point) {
		t.Fatal("unexpected point after the end")
	}

	if all := iter.ReadAll(); len(all) != 20 {
		t.Fatalf("expected 20 points after rewind, got %d", len(all))
	}
}

func TestHistoryInvalidRange(t *testing.T) {
	h := prepHistory(t)

	_, err := h.Iterator("proj", IteratorOpts{
		From: h.start,
		To:   h.start.Add(time.Second),
	})
	if err == nil {
		t.Fatal("expected error for reversed range")
	}
}

func TestHistoryProjectsIsolated(t *testing.T) {
	h := prepHistory(t)

	if err := h.Record("proj2", HistoryPoint{X: 1, Y: 1}); err != nil {
		t.Fatal("failed to record:", err)
	}

	points, err := h.Points("proj2", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal("failed to read:", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}

	if _, err := h.Latest("none"); err != ErrNoHistory {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}

	if err := h.Record("a/b", HistoryPoint{X: 1}); err == nil {
		t.Fatal("expected error for project ID with a slash")
	}
}

func TestHistorySameMillisecond(t *testing.T) {
	h, err := OpenHistory("", HistoryOpts{})
	if err != nil {
		t.Fatal("failed to open history:", err)
	}
	defer h.Close()

	err = h.RecordBatch("proj", []HistoryPoint{
		{X: 1000, Y: 5, Obj: &HistoryEvent{TxnID: "a", Amount: 5}},
		{X: 1000, Y: 8, Obj: &HistoryEvent{TxnID: "b", Amount: 3}},
	})
	if err != nil {
		t.Fatal("failed to record:", err)
	}

	points, err := h.Points("proj", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal("failed to read:", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected both transactions, got %d points", len(points))
	}

	latest, err := h.Latest("proj")
	if err != nil {
		t.Fatal("failed to get latest:", err)
	}
	if latest.X != 1000 || latest.Obj.TxnID != "b" {
		t.Fatalf("unexpected latest point %+v", latest)
	}
}

func TestHistoryGC(t *testing.T) {
	h := prepHistory(t)

	n, err := h.GC("proj", h.start.Add(11*time.Second))
	if err != nil {
		t.Fatal("failed to gc:", err)
	}
	if n != 10 {
		t.Fatalf("expected 10 deleted points, got %d", n)
	}

	points, err := h.Points("proj", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal("failed to read:", err)
	}
	if len(points) != 10 || points[0].Obj.Amount != 11 {
		t.Fatalf("unexpected points after GC: %d", len(points))
	}
}

func TestHistoryUnversionedValue(t *testing.T) {
	h, err := OpenHistory("", HistoryOpts{})
	if err != nil {
		t.Fatal("failed to open history:", err)
	}
	defer h.Close()

	err = h.db.Update(func(tx *badger.Txn) error {
		return tx.Set(bkey(pointsPrefix("proj"), msToBE(5000)), []byte(`[0,42]`))
	})
	if err != nil {
		t.Fatal("failed to set raw value:", err)
	}

	if _, err := h.Latest("proj"); err == nil || err == ErrNoHistory {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestHistoryOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")

	h, err := OpenHistory(path, HistoryOpts{})
	if err != nil {
		t.Fatal("failed to open history:", err)
	}

	if err := h.Record("proj", HistoryPoint{X: 1, Y: 2}); err != nil {
		t.Fatal("failed to record:", err)
	}
	if err := h.Close(); err != nil {
		t.Fatal("failed to close:", err)
	}

	ro, err := OpenHistory(path, HistoryOpts{ReadOnly: true})
	if err != nil {
		t.Fatal("failed to reopen history:", err)
	}
	defer ro.Close()

	if err := ro.Record("proj", HistoryPoint{X: 2, Y: 3}); err == nil {
		t.Fatal("expected read-only history to refuse writes")
	}

	latest, err := ro.Latest("proj")
	if err != nil {
		t.Fatal("failed to get latest:", err)
	}
	if latest.Y != 2 {
		t.Fatalf("unexpected point %+v", latest)
	}
}
