package handler

import (
	"context"
	"net/http"
	"time"

	"git.unix.lgbt/diamondburned/fundboard"
	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend/components/chart"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/go-chi/chi"
	"github.com/pkg/errors"
)

var zeroTime time.Time

// loadHistory returns the project's funding history since the given time. The
// recorded history is preferred; projects without one have it computed from
// their donations.
func (h *handler) loadHistory(ctx context.Context, projectID string, since time.Time) ([]fundboard.HistoryPoint, error) {
	if h.history != nil {
		points, err := h.history.Points(projectID, since, zeroTime)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read history")
		}
		if len(points) > 0 {
			return points, nil
		}
	}

	txns, err := h.store.ProjectTxns(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return trimBefore(store.CumulativeHistory(txns), since), nil
}

// trimBefore drops the points before since. A zero since keeps everything.
func trimBefore(points []fundboard.HistoryPoint, since time.Time) []fundboard.HistoryPoint {
	if since.IsZero() {
		return points
	}

	ms := float64(since.UnixMilli())
	for i, p := range points {
		if p.X >= ms {
			return points[i:]
		}
	}

	return points[:0]
}

type historyResponse struct {
	Points       []fundboard.SerializedPoint[fundboard.HistoryEvent] `json:"points"`
	IsCompressed bool                                                `json:"isCompressed"`
}

// projectHistory serves the project's history as compact tuples. The t
// parameter limits it to the last duration, and from and to pick the range
// that is kept at full detail. series=multi returns one series per donor
// instead.
func (h *handler) projectHistory(w http.ResponseWriter, r *http.Request) {
	dura, err := parseDuration(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()

	p, err := h.store.GetProjectBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		writeJSONError(w, statusOf(err), err)
		return
	}

	var since time.Time
	if dura > 0 {
		since = h.now().Add(-dura)
	}

	if r.FormValue("series") == "multi" {
		txns, err := h.store.ProjectTxns(ctx, p.ID)
		if err != nil {
			writeJSONError(w, statusOf(err), err)
			return
		}

		donors := store.DonorHistories(txns)
		for donor, points := range donors {
			donors[donor] = trimBefore(points, since)
		}

		writeJSON(w, http.StatusOK, fundboard.SerializeMultiPoints(donors))
		return
	}

	points, err := h.loadHistory(ctx, p.ID, since)
	if err != nil {
		writeJSONError(w, statusOf(err), err)
		return
	}

	var from, to float64
	if len(points) > 0 {
		from, to = points[0].X, points[len(points)-1].X
	}

	window := chart.ParseWindow(r.URL.Query())
	if window.To > window.From {
		from, to = window.From, window.To
	}

	compressed := fundboard.CompressPoints(points, from, to)

	writeJSON(w, http.StatusOK, historyResponse{
		Points:       fundboard.SerializePoints(compressed.Points),
		IsCompressed: compressed.IsCompressed,
	})
}
