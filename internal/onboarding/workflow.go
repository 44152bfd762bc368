// Package onboarding reviews NGO registration requests. Approval flips the
// request in place; rejection moves it to the rejected collection in a single
// atomic batch.
package onboarding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"foodshare/internal/docstore"
	"foodshare/internal/metrics"
	"foodshare/internal/store"
	"foodshare/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	decisionSubmit  = "submit"
	decisionApprove = "approve"
	decisionReject  = "reject"
)

type Workflow struct {
	requests *store.NGORequestRepository
	logger   logrus.FieldLogger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Workflow)

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func New(requests *store.NGORequestRepository, logger logrus.FieldLogger, opts ...Option) *Workflow {
	w := &Workflow{
		requests: requests,
		logger:   logger,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Submit files a new request for review.
func (w *Workflow) Submit(ctx context.Context, request *types.NGOOnboardingRequest) error {
	request.Name = strings.TrimSpace(request.Name)
	if request.Name == "" {
		w.metrics.ObserveOnboarding(decisionSubmit, "invalid_precondition")
		return fmt.Errorf("%w: ngo name is required", types.ErrInvalidPrecondition)
	}

	request.Approved = false
	request.Status = types.NGORequestStatusPending
	request.CreatedAt = w.now().UTC()

	if err := w.requests.Create(context.WithoutCancel(ctx), request); err != nil {
		w.metrics.ObserveOnboarding(decisionSubmit, types.Kind(err))
		return err
	}

	w.metrics.ObserveOnboarding(decisionSubmit, "ok")
	w.logger.WithFields(logrus.Fields{
		"request_id": request.ID,
		"ngo_name":   request.Name,
	}).Info("ngo request submitted")

	return nil
}

// Approve marks the request approved. Approving an approved request does
// nothing.
func (w *Workflow) Approve(ctx context.Context, requestID string) error {
	logger := w.logger.WithField("request_id", requestID)

	request, err := w.requests.Request(ctx, requestID)
	if err != nil {
		w.metrics.ObserveOnboarding(decisionApprove, types.Kind(err))
		return err
	}

	if request.Approved {
		w.metrics.ObserveOnboarding(decisionApprove, "noop")
		logger.Debug("ngo request already approved")
		return nil
	}

	if err := w.requests.MarkApproved(context.WithoutCancel(ctx), requestID); err != nil {
		w.metrics.ObserveOnboarding(decisionApprove, types.Kind(err))
		logger.WithError(err).Error("failed to approve ngo request")
		return err
	}

	w.metrics.ObserveOnboarding(decisionApprove, "ok")
	logger.Info("ngo request approved")
	return nil
}

// Reject moves a pending request out of review. The copy and the delete are
// committed together, so a failure leaves the request where it was.
func (w *Workflow) Reject(ctx context.Context, requestID string) error {
	logger := w.logger.WithField("request_id", requestID)

	request, err := w.requests.Request(ctx, requestID)
	if err != nil {
		w.metrics.ObserveOnboarding(decisionReject, types.Kind(err))
		return err
	}

	if request.Approved {
		err := fmt.Errorf("%w: ngo request %s is already approved", types.ErrInvalidPrecondition, requestID)
		w.metrics.ObserveOnboarding(decisionReject, types.Kind(err))
		return err
	}

	if err := w.requests.MoveToRejected(context.WithoutCancel(ctx), request); err != nil {
		w.metrics.ObserveOnboarding(decisionReject, types.Kind(err))
		logger.WithError(err).Error("failed to reject ngo request")
		return err
	}

	w.metrics.ObserveOnboarding(decisionReject, "ok")
	logger.Info("ngo request rejected")
	return nil
}

// Pending lists the requests awaiting review, newest first.
func (w *Workflow) Pending(ctx context.Context) ([]*types.NGOOnboardingRequest, error) {
	requests, err := w.requests.Pending(ctx)
	if err != nil {
		return nil, err
	}

	sortNewestFirst(requests)
	return requests, nil
}

// WatchPending calls fn with the full pending list every time it changes. The
// returned subscription must be closed by the caller; it also ends with ctx.
func (w *Workflow) WatchPending(ctx context.Context, fn func([]*types.NGOOnboardingRequest, error)) (docstore.Subscription, error) {
	return w.requests.WatchPending(ctx, func(docs []docstore.Document, err error) {
		if err != nil {
			fn(nil, err)
			return
		}

		requests, err := store.DecodeNGORequests(docs)
		if err != nil {
			fn(nil, err)
			return
		}

		sortNewestFirst(requests)
		fn(requests, nil)
	})
}

func sortNewestFirst(requests []*types.NGOOnboardingRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
}
