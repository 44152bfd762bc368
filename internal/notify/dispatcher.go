// Package notify writes notification records without blocking the caller and
// reads a user's feed by merging addressed and global records.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"foodshare/internal/docstore"
	"foodshare/internal/metrics"
	"foodshare/internal/store"
	"foodshare/internal/utils"
	"foodshare/pkg/types"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	kindEvent        = "event"
	kindAnnouncement = "announcement"

	defaultMaxRetries = 3
	defaultTimeout    = 10 * time.Second
)

type Dispatcher struct {
	repo    *store.NotificationRepository
	logger  logrus.FieldLogger
	metrics *metrics.Metrics

	maxRetries uint64
	timeout    time.Duration
	newBackOff func() backoff.BackOff
	now        func() time.Time

	inflight sync.WaitGroup
}

type Option func(*Dispatcher)

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithMaxRetries bounds the retries after the first write attempt.
func WithMaxRetries(n uint64) Option {
	return func(d *Dispatcher) { d.maxRetries = n }
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

func WithBackOff(fn func() backoff.BackOff) Option {
	return func(d *Dispatcher) { d.newBackOff = fn }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(repo *store.NotificationRepository, logger logrus.FieldLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		repo:       repo,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		timeout:    defaultTimeout,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			return b
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Delivery is the pending result of one notification write. The caller owns
// it and decides whether to wait on it.
type Delivery struct {
	Record types.NotificationRecord

	done chan struct{}
	err  error
}

func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// Err returns the write result once Done is closed, and nil before that.
func (d *Delivery) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

func (d *Delivery) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func failedDelivery(record types.NotificationRecord, err error) *Delivery {
	delivery := &Delivery{Record: record, done: make(chan struct{}), err: err}
	close(delivery.done)
	return delivery
}

// Notify addresses one user. It returns immediately.
func (d *Dispatcher) Notify(ctx context.Context, userID, title, message string) *Delivery {
	record := types.NotificationRecord{
		ID:              utils.NanoID(),
		Title:           title,
		Message:         message,
		RecipientUserID: utils.StringPtr(userID),
		CreatedAt:       d.now().UTC(),
	}

	if userID == "" {
		return failedDelivery(record, fmt.Errorf("%w: notification recipient is required", types.ErrInvalidPrecondition))
	}

	return d.dispatch(ctx, kindEvent, record)
}

// Broadcast writes a global announcement visible to every user.
func (d *Dispatcher) Broadcast(ctx context.Context, title, message string) *Delivery {
	record := types.NotificationRecord{
		ID:             utils.NanoID(),
		Title:          title,
		Message:        message,
		IsGlobal:       true,
		IsAnnouncement: true,
		CreatedAt:      d.now().UTC(),
	}

	return d.dispatch(ctx, kindAnnouncement, record)
}

func (d *Dispatcher) dispatch(ctx context.Context, kind string, record types.NotificationRecord) *Delivery {
	if record.Title == "" {
		return failedDelivery(record, fmt.Errorf("%w: notification title is required", types.ErrInvalidPrecondition))
	}

	delivery := &Delivery{Record: record, done: make(chan struct{})}

	// The write outlives the request that triggered it.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		defer close(delivery.done)
		defer cancel()

		delivery.err = d.write(writeCtx, &record)

		logger := d.logger.WithFields(logrus.Fields{
			"notification_id": record.ID,
			"kind":            kind,
			"user_id":         utils.PtrString(record.RecipientUserID),
		})

		if delivery.err != nil {
			d.metrics.ObserveDelivery(kind, "failed")
			logger.WithError(delivery.err).Error("failed to write notification")
			return
		}

		d.metrics.ObserveDelivery(kind, "ok")
		logger.Debug("notification written")
	}()

	return delivery
}

// write retries the create under the same record ID, so an attempt that
// landed despite reporting an error shows up as ErrAlreadyExists on the next
// try and counts as success.
func (d *Dispatcher) write(ctx context.Context, record *types.NotificationRecord) error {
	attempt := 0
	op := func() error {
		attempt++
		err := d.repo.Create(ctx, record)
		if err == nil {
			return nil
		}

		if errors.Is(err, docstore.ErrAlreadyExists) {
			if attempt > 1 {
				return nil
			}
			return backoff.Permanent(err)
		}

		d.logger.WithError(err).WithFields(logrus.Fields{
			"notification_id": record.ID,
			"attempt":         attempt,
		}).Warn("notification write attempt failed")
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(d.newBackOff(), d.maxRetries), ctx)
	return backoff.Retry(op, policy)
}

// Wait blocks until every delivery started so far has finished.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

// Fetch returns the records addressed to userID together with every global
// record, newest first. Both queries run concurrently and the result is only
// assembled once both have returned.
func (d *Dispatcher) Fetch(ctx context.Context, userID string) ([]*types.NotificationRecord, error) {
	started := time.Now()
	defer func() {
		d.metrics.ObserveFetch(time.Since(started).Seconds())
	}()

	var addressed, global []*types.NotificationRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := d.repo.ForRecipient(gctx, userID)
		if err != nil {
			return err
		}
		addressed = records
		return nil
	})
	g.Go(func() error {
		records, err := d.repo.Global(gctx)
		if err != nil {
			return err
		}
		global = records
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch notifications for %s: %w", userID, err)
	}

	return Merge(addressed, global), nil
}

// Merge concatenates record lists, drops repeated IDs and orders the result
// by CreatedAt descending.
func Merge(lists ...[]*types.NotificationRecord) []*types.NotificationRecord {
	seen := make(map[string]struct{})
	merged := make([]*types.NotificationRecord, 0)

	for _, list := range lists {
		for _, record := range list {
			if _, ok := seen[record.ID]; ok {
				continue
			}
			seen[record.ID] = struct{}{}
			merged = append(merged, record)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID < merged[j].ID
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	return merged
}
