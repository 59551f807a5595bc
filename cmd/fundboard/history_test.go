package main

import (
	"bytes"
	"testing"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteHistoryParquet(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	points := store.CumulativeHistory([]store.Txn{
		{ID: "t1", From: fundboard.Profile{Username: "bob"}, Amount: 100, CreatedAt: start},
		{ID: "t2", Amount: 50, CreatedAt: start.Add(time.Hour)},
	})
	points = append(points, fundboard.HistoryPoint{
		X: float64(start.Add(2 * time.Hour).UnixMilli()),
		Y: 150,
	})

	var buf bytes.Buffer
	p := store.Project{ID: "p1", Slug: "telescope"}
	require.NoError(t, writeHistoryParquet(&buf, p, points))

	r := parquet.NewGenericReader[historyRow](bytes.NewReader(buf.Bytes()))
	defer r.Close()

	require.EqualValues(t, 3, r.NumRows())

	rows := make([]historyRow, 3)
	n, _ := r.Read(rows)
	require.Equal(t, 3, n)

	assert.Equal(t, "p1", rows[0].ProjectID)
	assert.True(t, start.Equal(rows[0].Time))
	assert.Equal(t, 100.0, rows[0].Raised)
	require.NotNil(t, rows[0].TxnID)
	assert.Equal(t, "t1", *rows[0].TxnID)
	require.NotNil(t, rows[0].Donor)
	assert.Equal(t, "bob", *rows[0].Donor)

	assert.Nil(t, rows[1].Donor, "platform donations have no donor")
	require.NotNil(t, rows[1].Amount)
	assert.Equal(t, 50.0, *rows[1].Amount)
	assert.Equal(t, 150.0, rows[1].Raised)

	assert.Nil(t, rows[2].TxnID)
	assert.Nil(t, rows[2].Amount)
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "hello world", oneLine("hello\n\n  world "))

	long := oneLine(string(bytes.Repeat([]byte("ab"), 40)))
	assert.Equal(t, 60, len([]rune(long)))
	assert.Equal(t, "…", string([]rune(long)[59:]))
}

func TestPointCount(t *testing.T) {
	assert.Equal(t, "1 point", pointCount(1))
	assert.Equal(t, "0 points", pointCount(0))
	assert.Equal(t, "12,345 points", pointCount(12345))
}
