package store

import (
	"context"
	"errors"
	"fmt"

	"foodshare/internal/docstore"
	"foodshare/internal/utils"
	"foodshare/pkg/types"
)

type DonationRepository struct {
	store docstore.Store
}

func NewDonationRepository(store docstore.Store) *DonationRepository {
	return &DonationRepository{store: store}
}

func (r *DonationRepository) Donation(ctx context.Context, donationID string) (*types.Donation, error) {
	doc, err := r.store.Get(ctx, DonationsCollection, donationID)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("failed to fetch donation %s", donationID))
	}

	return r.decode(ctx, doc)
}

func (r *DonationRepository) Donations(ctx context.Context) ([]*types.Donation, error) {
	docs, err := r.store.Query(ctx, DonationsCollection)
	if err != nil {
		return nil, storeError(err, "failed to fetch donations")
	}

	return r.decodeAll(ctx, docs)
}

func (r *DonationRepository) DonationsByStatus(ctx context.Context, status types.DonationStatus) ([]*types.Donation, error) {
	docs, err := r.store.Query(ctx, DonationsCollection, docstore.Eq("status", string(status)))
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("failed to fetch %s donations", status))
	}

	return r.decodeAll(ctx, docs)
}

func (r *DonationRepository) decodeAll(ctx context.Context, docs []docstore.Document) ([]*types.Donation, error) {
	donations := make([]*types.Donation, 0, len(docs))
	for _, doc := range docs {
		donation, err := r.decode(ctx, doc)
		if err != nil {
			return nil, err
		}
		donations = append(donations, donation)
	}
	return donations, nil
}

// decode reads a donation and nulls a schedule left on an accepted document.
// The repair is guarded on the status, so a donation that moved on since it
// was read is left to the write that moved it.
func (r *DonationRepository) decode(ctx context.Context, doc docstore.Document) (*types.Donation, error) {
	donation, err := DecodeDonation(doc)
	if err != nil {
		return nil, err
	}

	if !hasStaleSchedule(doc) {
		return donation, nil
	}

	err = r.store.UpdateIf(ctx, DonationsCollection, doc.ID,
		[]docstore.Filter{docstore.Eq("status", string(types.DonationStatusAccepted))},
		docstore.Fields{"scheduledPickup": nil},
	)
	if err != nil && !errors.Is(err, docstore.ErrConflict) {
		return nil, storeError(err, fmt.Sprintf("failed to clear stale schedule of donation %s", doc.ID))
	}

	return donation, nil
}

// CreateDonation stores a new donation, assigning an ID when it has none.
func (r *DonationRepository) CreateDonation(ctx context.Context, donation *types.Donation) error {
	if donation.ID == "" {
		donation.ID = utils.NanoID()
	}

	err := r.store.Create(ctx, DonationsCollection, donation.ID, EncodeDonation(donation))
	return storeError(err, "failed to create donation")
}

// UpdateStage writes the stage fields only if the stored status is still
// from, and reports types.ErrConflict otherwise.
func (r *DonationRepository) UpdateStage(ctx context.Context, donationID string, from types.DonationStatus, stage types.DonationStage) error {
	err := r.store.UpdateIf(ctx, DonationsCollection, donationID,
		[]docstore.Filter{docstore.Eq("status", string(from))},
		EncodeStage(stage),
	)
	return storeError(err, fmt.Sprintf("failed to move donation %s from %s to %s", donationID, from, stage.Status()))
}
