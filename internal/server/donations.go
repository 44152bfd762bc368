package server

import (
	"context"
	"errors"
	"net/http"

	"foodshare/internal/utils"
	"foodshare/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handlePostDonation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body donationForm
	if err := decodeForm(r, &body); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	donation := &types.Donation{
		Title:       body.Title,
		Description: body.Description,
		Quantity:    body.Quantity,
		ImageRef:    body.ImageRef,
		DonorID:     body.DonorID,
		DonorName:   body.DonorName,
	}
	if !body.ExpiryDate.IsZero() {
		donation.ExpiryDate = utils.TimePtr(body.ExpiryDate)
	}

	uploaded, err := s.uploadImage(ctx, r, donation)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}

	if err := s.donations.Create(ctx, donation); err != nil {
		if uploaded {
			if derr := s.images.Delete(context.WithoutCancel(ctx), donation.ImageRef); derr != nil {
				s.logger.WithError(derr).WithField("image_ref", donation.ImageRef).Warn("failed to remove orphaned image")
			}
		}
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, newDonationView(donation))
}

// uploadImage stores the optional "image" file and points the donation at it.
func (s *Service) uploadImage(ctx context.Context, r *http.Request, donation *types.Donation) (bool, error) {
	if r.MultipartForm == nil {
		return false, nil
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer file.Close()

	if s.images == nil {
		return false, errors.New("image uploads are not configured")
	}

	key, err := s.images.Upload(ctx, donation.DonorID, header.Header.Get("Content-Type"), file)
	if err != nil {
		return false, err
	}

	donation.ImageRef = key
	return true, nil
}

func (s *Service) handleGetDonations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := r.URL.Query().Get("status")
	if raw == "" {
		donations, err := s.donations.FetchAll(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, newDonationViews(donations))
		return
	}

	status, err := types.ParseDonationStatus(raw)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}

	donations, err := s.donations.FetchByStatus(ctx, status)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newDonationViews(donations))
}

func (s *Service) handleGetDonation(w http.ResponseWriter, r *http.Request) {
	donation, err := s.donations.Get(r.Context(), flow.Param(r.Context(), "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newDonationView(donation))
}

func (s *Service) handlePostAccept(w http.ResponseWriter, r *http.Request) {
	var body acceptForm
	if err := decodeForm(r, &body); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	s.respondWithDonation(w, r, func(ctx context.Context, id string) error {
		return s.donations.Accept(ctx, id, body.NGOID)
	})
}

func (s *Service) handlePostPickup(w http.ResponseWriter, r *http.Request) {
	var body pickupForm
	if err := decodeForm(r, &body); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if body.PickupDate.IsZero() {
		s.badRequest(w, "pickup_date is required")
		return
	}

	s.respondWithDonation(w, r, func(ctx context.Context, id string) error {
		return s.donations.AttachPickupSchedule(ctx, id, types.PickupSchedule{
			PickupDate:      body.PickupDate,
			PickupTimeRange: body.PickupTimeRange,
			PickupLocation:  body.PickupLocation,
		})
	})
}

func (s *Service) handlePostPickupApproval(w http.ResponseWriter, r *http.Request) {
	var body approvalForm
	if err := decodeForm(r, &body); err != nil {
		s.badRequest(w, err.Error())
		return
	}
	if body.Approved == nil {
		s.badRequest(w, "approved is required")
		return
	}

	s.respondWithDonation(w, r, func(ctx context.Context, id string) error {
		return s.donations.UpdatePickupApproval(ctx, id, *body.Approved)
	})
}

func (s *Service) handlePostCollected(w http.ResponseWriter, r *http.Request) {
	s.respondWithDonation(w, r, s.donations.MarkCollected)
}

func (s *Service) handlePostStatus(w http.ResponseWriter, r *http.Request) {
	var body statusForm
	if err := decodeForm(r, &body); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	status, err := types.ParseDonationStatus(body.Status)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}

	s.respondWithDonation(w, r, func(ctx context.Context, id string) error {
		return s.donations.UpdateStatus(ctx, id, status)
	})
}

// respondWithDonation runs a lifecycle command and answers with the donation
// as it reads after the command.
func (s *Service) respondWithDonation(w http.ResponseWriter, r *http.Request, command func(ctx context.Context, id string) error) {
	ctx := r.Context()
	id := flow.Param(ctx, "id")

	if err := command(ctx, id); err != nil {
		s.writeError(w, err)
		return
	}

	donation, err := s.donations.Get(ctx, id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newDonationView(donation))
}
