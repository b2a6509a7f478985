package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// StreamBalance streams the subject's snapshot as server-sent events: one
// immediately, then one per live clock tick until the client disconnects
// or the server shuts down.
// GET /api/subjects/{id}/live
func (h *Handler) StreamBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject := subjectParam(r)

	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "Live updates are disabled", nil)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported", nil)
		return
	}

	snap, err := h.svc.Balance(ctx, subject, h.svc.Now())
	if err != nil {
		h.writeServiceError(w, "Failed to compute balance", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "balance", toBalanceDTO(subject, snap)); err != nil {
		return
	}
	flusher.Flush()

	updates := h.hub.Subscribe(ctx, subject)
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, "balance", toBalanceDTO(subject, snap)); err != nil {
				h.logger.Debug().Err(err).Str("subject", string(subject)).Msg("Live client gone")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}
