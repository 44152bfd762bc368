package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodshare/internal/docstore"
	"foodshare/pkg/types"

	"github.com/stretchr/testify/suite"
)

type RepositorySuite struct {
	suite.Suite
	ctx       context.Context
	docs      *docstore.Memory
	donations *DonationRepository
	requests  *NGORequestRepository
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.docs = docstore.NewMemory()
	s.donations = NewDonationRepository(s.docs)
	s.requests = NewNGORequestRepository(s.docs)
}

func (s *RepositorySuite) TestDonationErrorsUseTypesTaxonomy() {
	s.Run("missing donation", func() {
		_, err := s.donations.Donation(s.ctx, "nope")
		s.ErrorIs(err, types.ErrNotFound)
		s.ErrorIs(err, docstore.ErrNotFound)
	})

	s.Run("stale guard", func() {
		donation := testDonation(types.Pending{})
		donation.ID = ""
		s.Require().NoError(s.donations.CreateDonation(s.ctx, donation))
		s.NotEmpty(donation.ID)

		err := s.donations.UpdateStage(s.ctx, donation.ID, types.DonationStatusAccepted, types.PickupProposed{NGOID: "n1", Pickup: testPickup()})
		s.ErrorIs(err, types.ErrConflict)
		s.ErrorIs(err, types.ErrInvalidPrecondition)
	})

	s.Run("backend failure", func() {
		s.docs.InjectFault(func(docstore.Operation) error { return errors.New("disk full") })
		defer s.docs.InjectFault(nil)

		err := s.donations.CreateDonation(s.ctx, testDonation(types.Pending{}))
		s.ErrorIs(err, types.ErrStoreFailure)
		s.Equal("store_failure", types.Kind(err))
	})
}

func (s *RepositorySuite) TestDonationsByStatus() {
	for i, stage := range []types.DonationStage{types.Pending{}, types.Accepted{NGOID: "n1"}, types.Pending{}} {
		donation := testDonation(stage)
		donation.ID = string(rune('a' + i))
		s.Require().NoError(s.donations.CreateDonation(s.ctx, donation))
	}

	pending, err := s.donations.DonationsByStatus(s.ctx, types.DonationStatusPending)
	s.Require().NoError(err)
	s.Len(pending, 2)

	all, err := s.donations.Donations(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *RepositorySuite) TestUpdateStageClearsSchedule() {
	donation := testDonation(types.PickupProposed{NGOID: "n1", Pickup: testPickup()})
	s.Require().NoError(s.donations.CreateDonation(s.ctx, donation))

	err := s.donations.UpdateStage(s.ctx, donation.ID, types.DonationStatusToBeApproved, types.Accepted{NGOID: "n1"})
	s.Require().NoError(err)

	doc, err := s.docs.Get(s.ctx, DonationsCollection, donation.ID)
	s.Require().NoError(err)
	s.Contains(doc.Fields, "scheduledPickup")
	s.Nil(doc.Fields["scheduledPickup"])
	s.Equal("accepted", doc.Fields["status"])
}

func (s *RepositorySuite) TestMoveToRejected() {
	request := &types.NGOOnboardingRequest{
		Name:      "City Food Bank",
		Status:    types.NGORequestStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.requests.Create(s.ctx, request))

	s.Require().NoError(s.requests.MoveToRejected(s.ctx, request))

	_, err := s.requests.Request(s.ctx, request.ID)
	s.ErrorIs(err, types.ErrNotFound)

	rejected, err := s.requests.RejectedRequest(s.ctx, request.ID)
	s.Require().NoError(err)
	s.Equal(types.NGORequestStatusRejected, rejected.Status)
	s.False(rejected.Approved)
	s.Equal("City Food Bank", rejected.Name)
}

func (s *RepositorySuite) TestMoveToRejectedRefusesRequestApprovedSinceRead() {
	request := &types.NGOOnboardingRequest{
		Name:      "Harbour Pantry",
		Status:    types.NGORequestStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.requests.Create(s.ctx, request))

	read, err := s.requests.Request(s.ctx, request.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.requests.MarkApproved(s.ctx, request.ID))

	err = s.requests.MoveToRejected(s.ctx, read)
	s.ErrorIs(err, types.ErrConflict)

	stored, err := s.requests.Request(s.ctx, request.ID)
	s.Require().NoError(err)
	s.True(stored.Approved)

	_, err = s.requests.RejectedRequest(s.ctx, request.ID)
	s.ErrorIs(err, types.ErrNotFound)
}

func (s *RepositorySuite) TestReadNullsStaleScheduleOnAcceptedDonation() {
	fields := EncodeDonation(testDonation(types.Accepted{NGOID: "n1"}))
	fields["scheduledPickup"] = encodePickup(testPickup())
	s.Require().NoError(s.docs.Create(s.ctx, DonationsCollection, "legacy", fields))

	s.Run("single read", func() {
		donation, err := s.donations.Donation(s.ctx, "legacy")
		s.Require().NoError(err)
		s.Nil(donation.ScheduledPickup())

		doc, err := s.docs.Get(s.ctx, DonationsCollection, "legacy")
		s.Require().NoError(err)
		s.Contains(doc.Fields, "scheduledPickup")
		s.Nil(doc.Fields["scheduledPickup"])
		s.Equal("n1", doc.Fields["ngoId"])
	})

	s.Run("list read", func() {
		fields["scheduledPickup"] = encodePickup(testPickup())
		s.Require().NoError(s.docs.Update(s.ctx, DonationsCollection, "legacy", fields))

		accepted, err := s.donations.DonationsByStatus(s.ctx, types.DonationStatusAccepted)
		s.Require().NoError(err)
		s.Len(accepted, 1)

		doc, err := s.docs.Get(s.ctx, DonationsCollection, "legacy")
		s.Require().NoError(err)
		s.Nil(doc.Fields["scheduledPickup"])
	})

	s.Run("failed repair is a store failure", func() {
		s.Require().NoError(s.docs.Update(s.ctx, DonationsCollection, "legacy", docstore.Fields{"scheduledPickup": encodePickup(testPickup())}))
		s.docs.InjectFault(func(docstore.Operation) error { return errors.New("read only") })
		defer s.docs.InjectFault(nil)

		_, err := s.donations.Donation(s.ctx, "legacy")
		s.ErrorIs(err, types.ErrStoreFailure)
	})
}
