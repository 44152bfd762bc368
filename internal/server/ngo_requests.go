package server

import (
	"net/http"

	"foodshare/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handlePostNGORequest(w http.ResponseWriter, r *http.Request) {
	var request types.NGOOnboardingRequest
	if err := decodeForm(r, &request); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	if err := s.onboarding.Submit(r.Context(), &request); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, newNGORequestViews([]*types.NGOOnboardingRequest{&request})[0])
}

func (s *Service) handleGetNGORequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.onboarding.Pending(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newNGORequestViews(requests))
}

func (s *Service) handlePostApproveNGORequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.onboarding.Approve(ctx, flow.Param(ctx, "id")); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handlePostRejectNGORequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.onboarding.Reject(ctx, flow.Param(ctx, "id")); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
