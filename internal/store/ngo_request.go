package store

import (
	"context"
	"fmt"

	"foodshare/internal/docstore"
	"foodshare/internal/utils"
	"foodshare/pkg/types"
)

type NGORequestRepository struct {
	store docstore.Store
}

func NewNGORequestRepository(store docstore.Store) *NGORequestRepository {
	return &NGORequestRepository{store: store}
}

func (r *NGORequestRepository) Create(ctx context.Context, request *types.NGOOnboardingRequest) error {
	if request.ID == "" {
		request.ID = utils.NanoID()
	}

	err := r.store.Create(ctx, NGOReviewsCollection, request.ID, EncodeNGORequest(request))
	return storeError(err, "failed to create ngo request")
}

// Request reads a request from the review collection.
func (r *NGORequestRepository) Request(ctx context.Context, requestID string) (*types.NGOOnboardingRequest, error) {
	doc, err := r.store.Get(ctx, NGOReviewsCollection, requestID)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("failed to fetch ngo request %s", requestID))
	}

	return DecodeNGORequest(doc)
}

func (r *NGORequestRepository) RejectedRequest(ctx context.Context, requestID string) (*types.NGOOnboardingRequest, error) {
	doc, err := r.store.Get(ctx, NGORejectedCollection, requestID)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("failed to fetch rejected ngo request %s", requestID))
	}

	return DecodeNGORequest(doc)
}

func (r *NGORequestRepository) Pending(ctx context.Context) ([]*types.NGOOnboardingRequest, error) {
	docs, err := r.store.Query(ctx, NGOReviewsCollection, docstore.Eq("approved", false))
	if err != nil {
		return nil, storeError(err, "failed to fetch pending ngo requests")
	}

	return DecodeNGORequests(docs)
}

func (r *NGORequestRepository) MarkApproved(ctx context.Context, requestID string) error {
	err := r.store.Update(ctx, NGOReviewsCollection, requestID, docstore.Fields{
		"approved": true,
		"status":   types.NGORequestStatusApproved,
	})
	return storeError(err, fmt.Sprintf("failed to approve ngo request %s", requestID))
}

// MoveToRejected copies the request into the rejected collection and removes
// it from review in one batch, so either both writes land or neither does.
// The removal is guarded on the request still being unapproved; a request
// approved since it was read fails the batch with types.ErrConflict.
func (r *NGORequestRepository) MoveToRejected(ctx context.Context, request *types.NGOOnboardingRequest) error {
	rejected := *request
	rejected.Approved = false
	rejected.Status = types.NGORequestStatusRejected

	err := r.store.Commit(ctx, []docstore.Operation{
		docstore.CreateOp(NGORejectedCollection, request.ID, EncodeNGORequest(&rejected)),
		docstore.GuardedDeleteOp(NGOReviewsCollection, request.ID, docstore.Eq("approved", false)),
	})
	return storeError(err, fmt.Sprintf("failed to reject ngo request %s", request.ID))
}

// WatchPending subscribes to the pending review list.
func (r *NGORequestRepository) WatchPending(ctx context.Context, onChange docstore.ChangeFunc) (docstore.Subscription, error) {
	sub, err := r.store.Subscribe(ctx, NGOReviewsCollection, []docstore.Filter{docstore.Eq("approved", false)}, onChange)
	if err != nil {
		return nil, storeError(err, "failed to subscribe to pending ngo requests")
	}
	return sub, nil
}

func DecodeNGORequests(docs []docstore.Document) ([]*types.NGOOnboardingRequest, error) {
	requests := make([]*types.NGOOnboardingRequest, 0, len(docs))
	for _, doc := range docs {
		request, err := DecodeNGORequest(doc)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}
