package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"foodshare/internal/events"
	"foodshare/internal/lifecycle"
	"foodshare/internal/notify"
	"foodshare/internal/onboarding"
	"foodshare/internal/storage"
	"foodshare/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Service struct {
	logger     *logrus.Logger
	config     *types.Config
	donations  *lifecycle.Engine
	dispatcher *notify.Dispatcher
	onboarding *onboarding.Workflow
	events     *events.Bus
	images     *storage.ImageStore
	gatherer   prometheus.Gatherer

	server *http.Server
}

// New builds the HTTP surface. images may be nil, in which case uploaded
// files are refused.
func New(
	config *types.Config,
	logger *logrus.Logger,
	donations *lifecycle.Engine,
	dispatcher *notify.Dispatcher,
	workflow *onboarding.Workflow,
	bus *events.Bus,
	images *storage.ImageStore,
	gatherer prometheus.Gatherer,
) *Service {
	mux := flow.New()

	s := &Service{
		logger:     logger,
		config:     config,
		donations:  donations,
		dispatcher: dispatcher,
		onboarding: workflow,
		events:     bus,
		images:     images,
		gatherer:   gatherer,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}), http.MethodGet)

	// Streams are declared ahead of the :id routes they would otherwise match.
	r.HandleFunc("/donations/events", s.handleDonationEvents, http.MethodGet)
	r.HandleFunc("/ngo-requests/stream", s.handleNGORequestStream, http.MethodGet)

	r.HandleFunc("/donations", s.handlePostDonation, http.MethodPost)
	r.HandleFunc("/donations", s.handleGetDonations, http.MethodGet)
	r.HandleFunc("/donations/:id", s.handleGetDonation, http.MethodGet)
	r.HandleFunc("/donations/:id/accept", s.handlePostAccept, http.MethodPost)
	r.HandleFunc("/donations/:id/pickup", s.handlePostPickup, http.MethodPost)
	r.HandleFunc("/donations/:id/pickup/approval", s.handlePostPickupApproval, http.MethodPost)
	r.HandleFunc("/donations/:id/collected", s.handlePostCollected, http.MethodPost)
	r.HandleFunc("/donations/:id/status", s.handlePostStatus, http.MethodPost)

	r.HandleFunc("/notifications", s.handlePostNotification, http.MethodPost)
	r.HandleFunc("/announcements", s.handlePostAnnouncement, http.MethodPost)
	r.HandleFunc("/users/:userID/notifications", s.handleGetNotifications, http.MethodGet)

	r.HandleFunc("/ngo-requests", s.handlePostNGORequest, http.MethodPost)
	r.HandleFunc("/ngo-requests", s.handleGetNGORequests, http.MethodGet)
	r.HandleFunc("/ngo-requests/:id/approve", s.handlePostApproveNGORequest, http.MethodPost)
	r.HandleFunc("/ngo-requests/:id/reject", s.handlePostRejectNGORequest, http.MethodPost)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
