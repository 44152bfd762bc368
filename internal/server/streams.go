package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"foodshare/pkg/types"
)

type pendingUpdate struct {
	requests []*types.NGOOnboardingRequest
	err      error
}

// handleNGORequestStream pushes the pending review list as server-sent
// events, once on connect and again on every change.
func (s *Service) handleNGORequestStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported", Kind: "store_failure"})
		return
	}
	s.holdOpen(w)

	updates := make(chan pendingUpdate, 1)
	sub, err := s.onboarding.WatchPending(ctx, func(requests []*types.NGOOnboardingRequest, err error) {
		select {
		case updates <- pendingUpdate{requests: requests, err: err}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer sub.Close()

	startStream(w)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			if update.err != nil {
				s.logger.WithError(update.err).Error("pending ngo request subscription failed")
				writeEvent(w, "error", errorResponse{Error: "subscription failed", Kind: types.Kind(update.err)})
				flusher.Flush()
				return
			}
			writeEvent(w, "pending", newNGORequestViews(update.requests))
			flusher.Flush()
		}
	}
}

// handleDonationEvents streams donation status changes as they happen.
func (s *Service) handleDonationEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported", Kind: "store_failure"})
		return
	}
	s.holdOpen(w)

	changes, unsubscribe := s.events.Subscribe(0)
	defer unsubscribe()

	startStream(w)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			writeEvent(w, "status", statusEventView{
				DonationID: change.DonationID,
				From:       string(change.From),
				To:         string(change.To),
				NGOID:      change.NGOID,
				At:         change.At,
			})
			flusher.Flush()
		}
	}
}

// holdOpen lifts the server's read and write deadlines for a stream, which
// lives until the client goes away.
func (s *Service) holdOpen(w http.ResponseWriter) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.WithError(err).Warn("failed to clear stream write deadline")
	}
	if err := rc.SetReadDeadline(time.Time{}); err != nil {
		s.logger.WithError(err).Warn("failed to clear stream read deadline")
	}
}

func startStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}

func writeEvent(w http.ResponseWriter, event string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
