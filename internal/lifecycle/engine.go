// Package lifecycle moves donations through their statuses:
//
//	pending -> accepted -> toBeApproved -> toBeCollected -> completed
//	                 ^            |
//	                 +------------+ (pickup rejected)
//
// with cancelled reachable from any non-terminal status by an admin.
//
// Every write is guarded on the status the engine read, so two clients racing
// the same transition produce one winner and one types.ErrConflict.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodshare/internal/events"
	"foodshare/internal/metrics"
	"foodshare/internal/notify"
	"foodshare/internal/store"
	"foodshare/pkg/types"

	"github.com/sirupsen/logrus"
)

type Notifier interface {
	Notify(ctx context.Context, userID, title, message string) *notify.Delivery
}

type Publisher interface {
	Publish(event events.StatusChanged)
}

type Engine struct {
	donations *store.DonationRepository
	notifier  Notifier
	publisher Publisher
	logger    logrus.FieldLogger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(donations *store.DonationRepository, notifier Notifier, logger logrus.FieldLogger, opts ...Option) *Engine {
	e := &Engine{
		donations: donations,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Create validates and stores a new pending donation. The ID is assigned here
// when the caller left it empty.
func (e *Engine) Create(ctx context.Context, donation *types.Donation) error {
	donation.Title = strings.TrimSpace(donation.Title)
	donation.Quantity = strings.TrimSpace(donation.Quantity)

	switch {
	case donation.Title == "":
		return e.refuse(CommandCreate, fmt.Errorf("%w: title is required", types.ErrInvalidPrecondition))
	case donation.Quantity == "":
		return e.refuse(CommandCreate, fmt.Errorf("%w: quantity is required", types.ErrInvalidPrecondition))
	case donation.DonorID == "":
		return e.refuse(CommandCreate, fmt.Errorf("%w: donor id is required", types.ErrInvalidPrecondition))
	case donation.ExpiryDate != nil && donation.ExpiryDate.Before(e.now()):
		return e.refuse(CommandCreate, fmt.Errorf("%w: expiry date is in the past", types.ErrInvalidPrecondition))
	}

	donation.Stage = types.Pending{}

	if err := e.donations.CreateDonation(context.WithoutCancel(ctx), donation); err != nil {
		e.metrics.ObserveTransition(CommandCreate, types.Kind(err))
		return err
	}

	e.metrics.ObserveTransition(CommandCreate, "ok")
	e.logger.WithFields(logrus.Fields{
		"donation_id": donation.ID,
		"donor_id":    donation.DonorID,
	}).Info("donation created")

	e.publish(donation, "")
	return nil
}

func (e *Engine) Get(ctx context.Context, donationID string) (*types.Donation, error) {
	return e.donations.Donation(ctx, donationID)
}

func (e *Engine) FetchAll(ctx context.Context) ([]*types.Donation, error) {
	return e.donations.Donations(ctx)
}

func (e *Engine) FetchByStatus(ctx context.Context, status types.DonationStatus) ([]*types.Donation, error) {
	if _, err := types.ParseDonationStatus(string(status)); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidPrecondition, err)
	}
	return e.donations.DonationsByStatus(ctx, status)
}

// Accept assigns a pending donation to ngoID and tells both parties.
func (e *Engine) Accept(ctx context.Context, donationID, ngoID string) error {
	if err := validateAccept(ngoID); err != nil {
		return e.refuse(CommandAccept, err)
	}
	return e.apply(ctx, CommandAccept, donationID, acceptRule(ngoID))
}

// ProposePickup attaches a donor-proposed schedule to an accepted donation.
// Only date, time range and location of proposal are used.
func (e *Engine) ProposePickup(ctx context.Context, donationID string, proposal types.PickupSchedule) error {
	if err := validateProposal(proposal); err != nil {
		return e.refuse(CommandProposePickup, err)
	}
	return e.apply(ctx, CommandProposePickup, donationID, proposePickupRule(proposal))
}

// AttachPickupSchedule is ProposePickup under the name the clients use.
func (e *Engine) AttachPickupSchedule(ctx context.Context, donationID string, proposal types.PickupSchedule) error {
	return e.ProposePickup(ctx, donationID, proposal)
}

func (e *Engine) ApprovePickup(ctx context.Context, donationID string) error {
	return e.apply(ctx, CommandApprovePickup, donationID, approvePickupRule)
}

func (e *Engine) RejectPickup(ctx context.Context, donationID string) error {
	return e.apply(ctx, CommandRejectPickup, donationID, rejectPickupRule)
}

func (e *Engine) UpdatePickupApproval(ctx context.Context, donationID string, approved bool) error {
	if approved {
		return e.ApprovePickup(ctx, donationID)
	}
	return e.RejectPickup(ctx, donationID)
}

func (e *Engine) MarkCollected(ctx context.Context, donationID string) error {
	return e.apply(ctx, CommandMarkCollected, donationID, markCollectedRule)
}

func (e *Engine) Cancel(ctx context.Context, donationID string) error {
	return e.apply(ctx, CommandCancel, donationID, cancelRule)
}

// UpdateStatus moves a donation to status through the command that reaches
// it. Statuses that need an NGO or a schedule must use Accept or
// ProposePickup.
func (e *Engine) UpdateStatus(ctx context.Context, donationID string, status types.DonationStatus) error {
	command, r, err := statusRule(status)
	if err != nil {
		return e.refuse("update_status", err)
	}
	return e.apply(ctx, command, donationID, r)
}

func (e *Engine) refuse(command string, err error) error {
	e.metrics.ObserveTransition(command, types.Kind(err))
	return err
}

func (e *Engine) apply(ctx context.Context, command, donationID string, r rule) error {
	logger := e.logger.WithFields(logrus.Fields{
		"donation_id": donationID,
		"command":     command,
	})

	donation, err := e.donations.Donation(ctx, donationID)
	if err != nil {
		e.metrics.ObserveTransition(command, types.Kind(err))
		return err
	}

	next, noop, err := r(donation)
	if err != nil {
		e.metrics.ObserveTransition(command, types.Kind(err))
		logger.WithError(err).Info("transition refused")
		return err
	}

	if noop {
		e.metrics.ObserveTransition(command, "noop")
		logger.WithField("status", donation.Status()).Debug("transition already applied")
		return nil
	}

	from := donation.Status()

	// Once issued the write is not cancellable, and it is never retried.
	err = e.donations.UpdateStage(context.WithoutCancel(ctx), donationID, from, next)
	if err != nil {
		e.metrics.ObserveTransition(command, types.Kind(err))
		if errors.Is(err, types.ErrConflict) {
			logger.WithError(err).Warn("donation changed while transition was in flight")
		} else {
			logger.WithError(err).Error("failed to write transition")
		}
		return err
	}

	donation.Stage = next
	e.metrics.ObserveTransition(command, "ok")
	logger.WithFields(logrus.Fields{
		"from": from,
		"to":   next.Status(),
	}).Info("donation transitioned")

	e.announce(ctx, command, donation)
	e.publish(donation, from)

	return nil
}

// announce sends the notifications of a completed transition without waiting
// on them. The dispatcher logs and counts failed deliveries; they never affect
// the transition, which is already durable.
func (e *Engine) announce(ctx context.Context, command string, donation *types.Donation) {
	for _, n := range notices(command, donation) {
		e.notifier.Notify(ctx, n.userID, n.title, n.message)
	}
}

func (e *Engine) publish(donation *types.Donation, from types.DonationStatus) {
	if e.publisher == nil {
		return
	}

	ngoID, _ := donation.NGOID()
	e.publisher.Publish(events.StatusChanged{
		DonationID: donation.ID,
		From:       from,
		To:         donation.Status(),
		NGOID:      ngoID,
		At:         e.now(),
	})
}
