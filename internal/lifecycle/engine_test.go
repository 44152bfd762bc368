package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"foodshare/internal/docstore"
	"foodshare/internal/events"
	"foodshare/internal/notify"
	"foodshare/internal/store"
	"foodshare/internal/utils"
	"foodshare/pkg/types"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var fixedNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

type EngineSuite struct {
	suite.Suite
	ctx           context.Context
	docs          *docstore.Memory
	notifications *store.NotificationRepository
	dispatcher    *notify.Dispatcher
	bus           *events.Bus
	engine        *Engine
	logs          *test.Hook
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	logger, hook := test.NewNullLogger()
	s.logs = hook

	s.ctx = context.Background()
	s.docs = docstore.NewMemory()
	s.notifications = store.NewNotificationRepository(s.docs)
	s.dispatcher = notify.NewDispatcher(s.notifications, logger,
		notify.WithMaxRetries(1),
		notify.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	s.bus = events.NewBus(logger)
	s.engine = New(store.NewDonationRepository(s.docs), s.dispatcher, logger,
		WithPublisher(s.bus),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func (s *EngineSuite) createDonation() *types.Donation {
	donation := &types.Donation{
		Title:      "Bread",
		Quantity:   "20 loaves",
		ExpiryDate: utils.TimePtr(fixedNow.Add(24 * time.Hour)),
		DonorID:    "donor-1",
		DonorName:  "Corner Bakery",
	}
	s.Require().NoError(s.engine.Create(s.ctx, donation))
	return donation
}

func (s *EngineSuite) proposal() types.PickupSchedule {
	return types.PickupSchedule{
		PickupDate:      fixedNow.Add(48 * time.Hour),
		PickupTimeRange: "17:00-19:00",
		PickupLocation:  "Back door",
	}
}

func (s *EngineSuite) reload(id string) *types.Donation {
	donation, err := s.engine.Get(s.ctx, id)
	s.Require().NoError(err)
	return donation
}

// inbox waits for deliveries and returns the titles addressed to userID.
func (s *EngineSuite) inbox(userID string) []string {
	s.dispatcher.Wait()

	records, err := s.notifications.ForRecipient(s.ctx, userID)
	s.Require().NoError(err)

	titles := make([]string, 0, len(records))
	for _, r := range records {
		titles = append(titles, r.Title)
	}
	return titles
}

func (s *EngineSuite) TestCreate() {
	s.Run("new donation is pending", func() {
		donation := s.createDonation()
		s.NotEmpty(donation.ID)

		stored := s.reload(donation.ID)
		s.Equal(types.DonationStatusPending, stored.Status())
		_, hasNGO := stored.NGOID()
		s.False(hasNGO)
		s.Nil(stored.ScheduledPickup())
	})

	s.Run("validation", func() {
		tests := []struct {
			name     string
			donation types.Donation
		}{
			{"missing title", types.Donation{Quantity: "1", DonorID: "d"}},
			{"missing quantity", types.Donation{Title: "t", DonorID: "d"}},
			{"missing donor", types.Donation{Title: "t", Quantity: "1"}},
			{"expired", types.Donation{Title: "t", Quantity: "1", DonorID: "d", ExpiryDate: utils.TimePtr(fixedNow.Add(-time.Hour))}},
		}

		for _, tt := range tests {
			donation := tt.donation
			err := s.engine.Create(s.ctx, &donation)
			s.ErrorIs(err, types.ErrInvalidPrecondition, tt.name)
		}

		all, err := s.engine.FetchAll(s.ctx)
		s.Require().NoError(err)
		s.Len(all, 1)
	})
}

func (s *EngineSuite) TestAcceptScenario() {
	donation := s.createDonation()

	s.Require().NoError(s.engine.Accept(s.ctx, donation.ID, "ngo-1"))

	stored := s.reload(donation.ID)
	s.Equal(types.DonationStatusAccepted, stored.Status())
	ngoID, ok := stored.NGOID()
	s.True(ok)
	s.Equal("ngo-1", ngoID)

	s.Equal([]string{"Donation accepted"}, s.inbox("donor-1"))
	s.Equal([]string{"Donation accepted"}, s.inbox("ngo-1"))

	s.Run("same ngo again is a no-op", func() {
		s.Require().NoError(s.engine.Accept(s.ctx, donation.ID, "ngo-1"))
		s.Len(s.inbox("donor-1"), 1)
	})

	s.Run("another ngo is refused", func() {
		err := s.engine.Accept(s.ctx, donation.ID, "ngo-2")
		s.ErrorIs(err, types.ErrInvalidPrecondition)

		ngoID, _ := s.reload(donation.ID).NGOID()
		s.Equal("ngo-1", ngoID)
	})

	s.Run("ngo id is required", func() {
		other := s.createDonation()
		err := s.engine.Accept(s.ctx, other.ID, " ")
		s.ErrorIs(err, types.ErrInvalidPrecondition)
		s.Equal(types.DonationStatusPending, s.reload(other.ID).Status())
	})

	s.Run("missing donation", func() {
		err := s.engine.Accept(s.ctx, "nope", "ngo-1")
		s.ErrorIs(err, types.ErrNotFound)
	})
}

func (s *EngineSuite) TestProposePickup() {
	donation := s.createDonation()

	s.Run("requires accepted", func() {
		err := s.engine.ProposePickup(s.ctx, donation.ID, s.proposal())
		s.ErrorIs(err, types.ErrInvalidPrecondition)
		s.Equal(types.DonationStatusPending, s.reload(donation.ID).Status())
	})

	s.Require().NoError(s.engine.Accept(s.ctx, donation.ID, "ngo-1"))

	s.Run("requires time range and location", func() {
		blankRange := s.proposal()
		blankRange.PickupTimeRange = "  "
		s.ErrorIs(s.engine.ProposePickup(s.ctx, donation.ID, blankRange), types.ErrInvalidPrecondition)

		blankLocation := s.proposal()
		blankLocation.PickupLocation = ""
		s.ErrorIs(s.engine.ProposePickup(s.ctx, donation.ID, blankLocation), types.ErrInvalidPrecondition)

		s.Equal(types.DonationStatusAccepted, s.reload(donation.ID).Status())
	})

	s.Require().NoError(s.engine.AttachPickupSchedule(s.ctx, donation.ID, s.proposal()))

	stored := s.reload(donation.ID)
	s.Equal(types.DonationStatusToBeApproved, stored.Status())
	pickup := stored.ScheduledPickup()
	s.Require().NotNil(pickup)
	s.NotEmpty(pickup.ID)
	s.Equal(donation.ID, pickup.DonationID)
	s.Equal("17:00-19:00", pickup.PickupTimeRange)
	s.Equal("Back door", pickup.PickupLocation)
	s.True(pickup.PickupDate.Equal(s.proposal().PickupDate))

	s.Equal([]string{"Donation accepted", "Pickup proposed"}, sortedTitles(s.inbox("ngo-1")))

	s.Run("cannot propose twice", func() {
		err := s.engine.ProposePickup(s.ctx, donation.ID, s.proposal())
		s.ErrorIs(err, types.ErrInvalidPrecondition)
		s.Equal(pickup.ID, s.reload(donation.ID).ScheduledPickup().ID)
	})
}

func (s *EngineSuite) TestRejectPickupScenario() {
	donation := s.createDonation()
	s.Require().NoError(s.engine.Accept(s.ctx, donation.ID, "ngo-1"))
	s.Require().NoError(s.engine.ProposePickup(s.ctx, donation.ID, s.proposal()))
	first := s.reload(donation.ID).ScheduledPickup()

	s.Require().NoError(s.engine.UpdatePickupApproval(s.ctx, donation.ID, false))

	stored := s.reload(donation.ID)
	s.Equal(types.DonationStatusAccepted, stored.Status())
	s.Nil(stored.ScheduledPickup())

	doc, err := s.docs.Get(s.ctx, store.DonationsCollection, donation.ID)
	s.Require().NoError(err)
	s.Contains(doc.Fields, "scheduledPickup")
	s.Nil(doc.Fields["scheduledPickup"])

	s.Contains(s.inbox("donor-1"), "Pickup rejected")

	s.Run("a new proposal gets a new schedule id", func() {
		s.Require().NoError(s.engine.ProposePickup(s.ctx, donation.ID, s.proposal()))
		second := s.reload(donation.ID).ScheduledPickup()
		s.Require().NotNil(second)
		s.NotEqual(first.ID, second.ID)
	})
}

func (s *EngineSuite) TestApproveAndCollect() {
	donation := s.createDonation()
	s.Require().NoError(s.engine.Accept(s.ctx, donation.ID, "ngo-1"))

	s.Run("approve requires a proposal", func() {
		s.ErrorIs(s.engine.ApprovePickup(s.ctx, donation.ID), types.ErrInvalidPrecondition)
	})

	s.Require().NoError(s.engine.ProposePickup(s.ctx, donation.ID, s.proposal()))
	s.Require().NoError(s.engine.UpdatePickupApproval(s.ctx, donation.ID, true))

	s.Run("double approve is a no-op", func() {
		s.Require().NoError(s.engine.ApprovePickup(s.ctx, donation.ID))

		stored := s.reload(donation.ID)
		s.Equal(types.DonationStatusToBeCollected, stored.Status())
		s.NotNil(stored.ScheduledPickup())

		approvals := 0
		for _, title := range s.inbox("donor-1") {
			if title == "Pickup approved" {
				approvals++
			}
		}
		s.Equal(1, approvals)
	})

	s.Run("reject after approval is refused", func() {
		s.ErrorIs(s.engine.RejectPickup(s.ctx, donation.ID), types.ErrInvalidPrecondition)
	})

	s.Require().NoError(s.engine.MarkCollected(s.ctx, donation.ID))

	stored := s.reload(donation.ID)
	s.Equal(types.DonationStatusCompleted, stored.Status())
	s.Nil(stored.ScheduledPickup())
	ngoID, _ := stored.NGOID()
	s.Equal("ngo-1", ngoID)
	s.Contains(s.inbox("donor-1"), "Donation collected")

	s.Run("collected twice is a no-op", func() {
		s.NoError(s.engine.MarkCollected(s.ctx, donation.ID))
	})

	s.Run("completed donations cannot be cancelled", func() {
		s.ErrorIs(s.engine.Cancel(s.ctx, donation.ID), types.ErrInvalidPrecondition)
	})
}

func (s *EngineSuite) TestUpdateStatus() {
	s.Run("cancel from pending", func() {
		donation := s.createDonation()
		s.Require().NoError(s.engine.UpdateStatus(s.ctx, donation.ID, types.DonationStatusCancelled))
		s.Equal(types.DonationStatusCancelled, s.reload(donation.ID).Status())
		s.Contains(s.inbox("donor-1"), "Donation cancelled")

		s.NoError(s.engine.UpdateStatus(s.ctx, donation.ID, types.DonationStatusCancelled))
	})

	s.Run("cancel keeps the ngo and clears the schedule", func() {
		donation := s.createDonation()
		s.Require().NoError(s.engine.Accept(s.ctx, donation.ID, "ngo-7"))
		s.Require().NoError(s.engine.ProposePickup(s.ctx, donation.ID, s.proposal()))
		s.Require().NoError(s.engine.Cancel(s.ctx, donation.ID))

		stored := s.reload(donation.ID)
		s.Equal(types.DonationStatusCancelled, stored.Status())
		s.Nil(stored.ScheduledPickup())
		ngoID, _ := stored.NGOID()
		s.Equal("ngo-7", ngoID)
		s.Contains(s.inbox("ngo-7"), "Donation cancelled")
	})

	s.Run("accepted needs an ngo", func() {
		donation := s.createDonation()
		err := s.engine.UpdateStatus(s.ctx, donation.ID, types.DonationStatusAccepted)
		s.ErrorIs(err, types.ErrInvalidPrecondition)
		s.Equal(types.DonationStatusPending, s.reload(donation.ID).Status())
	})

	s.Run("full path through bare statuses", func() {
		donation := s.createDonation()
		s.Require().NoError(s.engine.Accept(s.ctx, donation.ID, "ngo-1"))
		s.Require().NoError(s.engine.ProposePickup(s.ctx, donation.ID, s.proposal()))
		s.Require().NoError(s.engine.UpdateStatus(s.ctx, donation.ID, types.DonationStatusToBeCollected))
		s.Require().NoError(s.engine.UpdateStatus(s.ctx, donation.ID, types.DonationStatusCompleted))
		s.Equal(types.DonationStatusCompleted, s.reload(donation.ID).Status())
	})

	s.Run("refused targets", func() {
		donation := s.createDonation()
		for _, status := range []types.DonationStatus{types.DonationStatusPending, types.DonationStatusToBeApproved, "shipped"} {
			err := s.engine.UpdateStatus(s.ctx, donation.ID, status)
			s.ErrorIs(err, types.ErrInvalidPrecondition, string(status))
		}
		s.ErrorIs(s.engine.UpdateStatus(s.ctx, donation.ID, "shipped"), types.ErrUnknownStatus)
	})
}

func (s *EngineSuite) TestFetchByStatus() {
	first := s.createDonation()
	s.createDonation()
	s.Require().NoError(s.engine.Accept(s.ctx, first.ID, "ngo-1"))

	accepted, err := s.engine.FetchByStatus(s.ctx, types.DonationStatusAccepted)
	s.Require().NoError(err)
	s.Require().Len(accepted, 1)
	s.Equal(first.ID, accepted[0].ID)

	_, err = s.engine.FetchByStatus(s.ctx, "shipped")
	s.ErrorIs(err, types.ErrInvalidPrecondition)
}

func (s *EngineSuite) TestFetchAllFailsOnUnknownStatus() {
	s.createDonation()
	s.Require().NoError(s.docs.Create(s.ctx, store.DonationsCollection, "legacy", docstore.Fields{"title": "x", "status": "inTransit"}))

	_, err := s.engine.FetchAll(s.ctx)
	s.ErrorIs(err, types.ErrUnknownStatus)
}

func (s *EngineSuite) TestNotificationFailureKeepsTransition() {
	donation := s.createDonation()

	s.docs.InjectFault(func(op docstore.Operation) error {
		if op.Collection == store.NotificationsCollection {
			return errors.New("notifications unavailable")
		}
		return nil
	})

	s.Require().NoError(s.engine.Accept(s.ctx, donation.ID, "ngo-1"))
	s.dispatcher.Wait()
	s.docs.InjectFault(nil)

	s.Equal(types.DonationStatusAccepted, s.reload(donation.ID).Status())
	s.Empty(s.inbox("donor-1"))

	var failures []string
	for _, entry := range s.logs.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			failures = append(failures, entry.Message)
		}
	}
	s.Equal([]string{"failed to write notification", "failed to write notification"}, failures,
		"each failed notice is reported once")
}

func (s *EngineSuite) TestPayloadCheckedBeforeStoreRead() {
	counting := &countingStore{Store: s.docs}
	quiet, _ := test.NewNullLogger()
	engine := New(store.NewDonationRepository(counting), s.dispatcher, quiet)

	err := engine.ProposePickup(s.ctx, "missing", types.PickupSchedule{})
	s.ErrorIs(err, types.ErrInvalidPrecondition)
	s.NotErrorIs(err, types.ErrNotFound)

	err = engine.Accept(s.ctx, "missing", "")
	s.ErrorIs(err, types.ErrInvalidPrecondition)
	s.NotErrorIs(err, types.ErrNotFound)

	s.Zero(counting.gets.Load())

	err = engine.Accept(s.ctx, "missing", "ngo-1")
	s.ErrorIs(err, types.ErrNotFound)
	s.EqualValues(1, counting.gets.Load())
}

func (s *EngineSuite) TestStoreFailureOnWrite() {
	donation := s.createDonation()

	s.docs.InjectFault(func(op docstore.Operation) error {
		if op.Collection == store.DonationsCollection {
			return errors.New("write failed")
		}
		return nil
	})
	defer s.docs.InjectFault(nil)

	err := s.engine.Accept(s.ctx, donation.ID, "ngo-1")
	s.ErrorIs(err, types.ErrStoreFailure)
	s.Empty(s.inbox("donor-1"))
}

func (s *EngineSuite) TestTransitionsArePublished() {
	changes, unsubscribe := s.bus.Subscribe(8)
	defer unsubscribe()

	donation := s.createDonation()
	s.Require().NoError(s.engine.Accept(s.ctx, donation.ID, "ngo-1"))
	s.Require().NoError(s.engine.Accept(s.ctx, donation.ID, "ngo-1"))

	created := <-changes
	s.Equal(donation.ID, created.DonationID)
	s.Equal(types.DonationStatus(""), created.From)
	s.Equal(types.DonationStatusPending, created.To)

	accepted := <-changes
	s.Equal(types.DonationStatusPending, accepted.From)
	s.Equal(types.DonationStatusAccepted, accepted.To)
	s.Equal("ngo-1", accepted.NGOID)
	s.Equal(fixedNow, accepted.At)

	select {
	case extra := <-changes:
		s.Failf("no-op published an event", "%+v", extra)
	default:
	}
}

func (s *EngineSuite) TestConcurrentAcceptHasOneWinner() {
	donation := s.createDonation()

	const racers = 8
	results := make([]error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.engine.Accept(s.ctx, donation.ID, fmt.Sprintf("ngo-%d", i))
		}(i)
	}
	wg.Wait()

	winner := -1
	for i, err := range results {
		if err == nil {
			s.Equal(-1, winner, "more than one accept succeeded")
			winner = i
			continue
		}
		s.ErrorIs(err, types.ErrInvalidPrecondition)
	}
	s.Require().NotEqual(-1, winner)

	ngoID, _ := s.reload(donation.ID).NGOID()
	s.Equal(fmt.Sprintf("ngo-%d", winner), ngoID)
	s.Len(s.inbox("donor-1"), 1)
}

func sortedTitles(titles []string) []string {
	out := append([]string(nil), titles...)
	sort.Strings(out)
	return out
}

type countingStore struct {
	docstore.Store
	gets atomic.Int64
}

func (c *countingStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	c.gets.Add(1)
	return c.Store.Get(ctx, collection, id)
}

func TestStatusRule(t *testing.T) {
	tests := []struct {
		target  types.DonationStatus
		command string
		wantErr error
	}{
		{types.DonationStatusToBeCollected, CommandApprovePickup, nil},
		{types.DonationStatusCompleted, CommandMarkCollected, nil},
		{types.DonationStatusCancelled, CommandCancel, nil},
		{types.DonationStatusAccepted, CommandRejectPickup, nil},
		{types.DonationStatusToBeApproved, "", types.ErrInvalidPrecondition},
		{types.DonationStatusPending, "", types.ErrInvalidPrecondition},
		{"shipped", "", types.ErrUnknownStatus},
	}

	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			command, r, err := statusRule(tt.target)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.command, command)
			assert.NotNil(t, r)
		})
	}
}

func TestNoticesAddressTheRightParties(t *testing.T) {
	donation := &types.Donation{
		ID:      "d1",
		Title:   "Bread",
		DonorID: "donor-1",
		Stage:   types.PickupProposed{NGOID: "ngo-1", Pickup: types.PickupSchedule{PickupTimeRange: "17:00-19:00", PickupLocation: "Back door"}},
	}

	recipients := func(command string, d *types.Donation) []string {
		var ids []string
		for _, n := range notices(command, d) {
			ids = append(ids, n.userID)
		}
		return ids
	}

	assert.Equal(t, []string{"ngo-1"}, recipients(CommandProposePickup, donation))

	donation.Stage = types.Accepted{NGOID: "ngo-1"}
	assert.Equal(t, []string{"donor-1", "ngo-1"}, recipients(CommandAccept, donation))
	assert.Equal(t, []string{"donor-1"}, recipients(CommandRejectPickup, donation))

	donation.Stage = types.Cancelled{}
	assert.Equal(t, []string{"donor-1"}, recipients(CommandCancel, donation))
}
