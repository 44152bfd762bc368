package server

import (
	"net/http"

	"foodshare/internal/notify"

	"github.com/alexedwards/flow"
)

func (s *Service) handlePostNotification(w http.ResponseWriter, r *http.Request) {
	var body notificationForm
	if err := decodeForm(r, &body); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	s.respondWithDelivery(w, r, s.dispatcher.Notify(r.Context(), body.UserID, body.Title, body.Message))
}

func (s *Service) handlePostAnnouncement(w http.ResponseWriter, r *http.Request) {
	var body notificationForm
	if err := decodeForm(r, &body); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	s.respondWithDelivery(w, r, s.dispatcher.Broadcast(r.Context(), body.Title, body.Message))
}

// respondWithDelivery reports the write outcome if it arrives while the
// client is still connected. The write itself carries on either way.
func (s *Service) respondWithDelivery(w http.ResponseWriter, r *http.Request, delivery *notify.Delivery) {
	if err := delivery.Wait(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, newNotificationView(&delivery.Record))
}

func (s *Service) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := s.dispatcher.Fetch(ctx, flow.Param(ctx, "userID"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]notificationView, 0, len(records))
	for _, record := range records {
		views = append(views, newNotificationView(record))
	}

	s.writeJSON(w, http.StatusOK, views)
}
