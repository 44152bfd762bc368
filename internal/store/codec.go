package store

import (
	"fmt"

	"foodshare/internal/docstore"
	"foodshare/internal/utils"
	"foodshare/pkg/types"
)

const (
	DonationsCollection     = "donations"
	NotificationsCollection = "notifications"
	NGOReviewsCollection    = "ngo_reviews"
	NGORejectedCollection   = "ngo_rejected"
)

// EncodeDonation renders the full document. Absent optionals are written as
// null so a replaced document never keeps a stale ngoId or schedule.
func EncodeDonation(d *types.Donation) docstore.Fields {
	fields := docstore.Fields{
		"title":       d.Title,
		"description": d.Description,
		"quantity":    d.Quantity,
		"expiryDate":  optionalTimeValue(d.ExpiryDate),
		"imageRef":    d.ImageRef,
		"donorId":     d.DonorID,
		"donorName":   d.DonorName,
	}

	for k, v := range EncodeStage(d.Stage) {
		fields[k] = v
	}

	return fields
}

// EncodeStage renders the status-dependent fields as a partial update. It
// always carries all three keys so moving to a stage without a schedule nulls
// the previous one.
func EncodeStage(stage types.DonationStage) docstore.Fields {
	if stage == nil {
		stage = types.Pending{}
	}

	fields := docstore.Fields{
		"status":          string(stage.Status()),
		"ngoId":           nil,
		"scheduledPickup": nil,
	}

	switch s := stage.(type) {
	case types.Accepted:
		fields["ngoId"] = s.NGOID
	case types.PickupProposed:
		fields["ngoId"] = s.NGOID
		fields["scheduledPickup"] = encodePickup(s.Pickup)
	case types.PickupApproved:
		fields["ngoId"] = s.NGOID
		fields["scheduledPickup"] = encodePickup(s.Pickup)
	case types.Completed:
		fields["ngoId"] = s.NGOID
	case types.Cancelled:
		if s.NGOID != "" {
			fields["ngoId"] = s.NGOID
		}
	}

	return fields
}

func encodePickup(p types.PickupSchedule) map[string]any {
	return map[string]any{
		"id":              p.ID,
		"donationId":      p.DonationID,
		"pickupDate":      p.PickupDate,
		"pickupTimeRange": p.PickupTimeRange,
		"pickupLocation":  p.PickupLocation,
	}
}

func DecodeDonation(doc docstore.Document) (*types.Donation, error) {
	d, err := decodeDonation(doc)
	if err != nil {
		return nil, fmt.Errorf("donation %s: %w", doc.ID, err)
	}
	return d, nil
}

func decodeDonation(doc docstore.Document) (*types.Donation, error) {
	f := doc.Fields
	d := &types.Donation{ID: doc.ID}

	var err error
	if d.Title, err = readString(f, "title"); err != nil {
		return nil, err
	}
	if d.Description, err = readString(f, "description"); err != nil {
		return nil, err
	}
	if d.Quantity, err = readString(f, "quantity"); err != nil {
		return nil, err
	}
	if d.ExpiryDate, err = readOptionalTime(f, "expiryDate"); err != nil {
		return nil, err
	}
	if d.ImageRef, err = readString(f, "imageRef"); err != nil {
		return nil, err
	}
	if d.DonorID, err = readString(f, "donorId"); err != nil {
		return nil, err
	}
	if d.DonorName, err = readString(f, "donorName"); err != nil {
		return nil, err
	}

	d.Stage, err = decodeStage(f)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// hasStaleSchedule reports an accepted document that still carries a
// scheduledPickup, as older clients left behind after a rejected proposal.
func hasStaleSchedule(doc docstore.Document) bool {
	status, _ := doc.Fields["status"].(string)
	return status == string(types.DonationStatusAccepted) && doc.Fields["scheduledPickup"] != nil
}

func decodeStage(f docstore.Fields) (types.DonationStage, error) {
	rawStatus, err := readString(f, "status")
	if err != nil {
		return nil, err
	}

	status, err := types.ParseDonationStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	ngoID, err := readOptionalString(f, "ngoId")
	if err != nil {
		return nil, err
	}

	pickupFields, err := readMap(f, "scheduledPickup")
	if err != nil {
		return nil, err
	}

	requireNGO := func() (string, error) {
		if ngoID == nil || *ngoID == "" {
			return "", fmt.Errorf("%w: status %s without ngoId", types.ErrCorruptDocument, status)
		}
		return *ngoID, nil
	}

	requirePickup := func() (types.PickupSchedule, error) {
		if pickupFields == nil {
			return types.PickupSchedule{}, fmt.Errorf("%w: status %s without scheduledPickup", types.ErrCorruptDocument, status)
		}
		return decodePickup(pickupFields)
	}

	switch status {
	case types.DonationStatusPending:
		if ngoID != nil || pickupFields != nil {
			return nil, fmt.Errorf("%w: pending donation carries ngoId or scheduledPickup", types.ErrCorruptDocument)
		}
		return types.Pending{}, nil

	case types.DonationStatusAccepted:
		// A leftover schedule is not surfaced; DonationRepository nulls it.
		ngo, err := requireNGO()
		if err != nil {
			return nil, err
		}
		return types.Accepted{NGOID: ngo}, nil

	case types.DonationStatusToBeApproved, types.DonationStatusToBeCollected:
		ngo, err := requireNGO()
		if err != nil {
			return nil, err
		}
		pickup, err := requirePickup()
		if err != nil {
			return nil, err
		}
		if status == types.DonationStatusToBeApproved {
			return types.PickupProposed{NGOID: ngo, Pickup: pickup}, nil
		}
		return types.PickupApproved{NGOID: ngo, Pickup: pickup}, nil

	case types.DonationStatusCompleted:
		return types.Completed{NGOID: utils.PtrString(ngoID)}, nil

	case types.DonationStatusCancelled:
		return types.Cancelled{NGOID: utils.PtrString(ngoID)}, nil
	}

	return nil, fmt.Errorf("%w: %q", types.ErrUnknownStatus, rawStatus)
}

func decodePickup(f docstore.Fields) (types.PickupSchedule, error) {
	var (
		p   types.PickupSchedule
		err error
	)

	if p.ID, err = readString(f, "id"); err != nil {
		return p, err
	}
	if p.DonationID, err = readString(f, "donationId"); err != nil {
		return p, err
	}
	if p.PickupDate, err = readTime(f, "pickupDate"); err != nil {
		return p, err
	}
	if p.PickupTimeRange, err = readString(f, "pickupTimeRange"); err != nil {
		return p, err
	}
	if p.PickupLocation, err = readString(f, "pickupLocation"); err != nil {
		return p, err
	}

	return p, nil
}

func EncodeNotification(n *types.NotificationRecord) docstore.Fields {
	return docstore.Fields{
		"title":          n.Title,
		"message":        n.Message,
		"isAnnouncement": n.IsAnnouncement,
		"userId":         optionalStringValue(n.RecipientUserID),
		"isGlobal":       n.IsGlobal,
		"createdAt":      n.CreatedAt,
	}
}

func DecodeNotification(doc docstore.Document) (*types.NotificationRecord, error) {
	f := doc.Fields
	n := &types.NotificationRecord{ID: doc.ID}

	var err error
	if n.Title, err = readString(f, "title"); err != nil {
		return nil, fmt.Errorf("notification %s: %w", doc.ID, err)
	}
	if n.Message, err = readString(f, "message"); err != nil {
		return nil, fmt.Errorf("notification %s: %w", doc.ID, err)
	}
	if n.IsAnnouncement, err = readBool(f, "isAnnouncement"); err != nil {
		return nil, fmt.Errorf("notification %s: %w", doc.ID, err)
	}
	if n.RecipientUserID, err = readOptionalString(f, "userId"); err != nil {
		return nil, fmt.Errorf("notification %s: %w", doc.ID, err)
	}
	if n.IsGlobal, err = readBool(f, "isGlobal"); err != nil {
		return nil, fmt.Errorf("notification %s: %w", doc.ID, err)
	}
	if n.CreatedAt, err = readTime(f, "createdAt"); err != nil {
		return nil, fmt.Errorf("notification %s: %w", doc.ID, err)
	}

	return n, nil
}

func EncodeNGORequest(r *types.NGOOnboardingRequest) docstore.Fields {
	return docstore.Fields(utils.StructToMap(r))
}

func DecodeNGORequest(doc docstore.Document) (*types.NGOOnboardingRequest, error) {
	f := doc.Fields
	r := &types.NGOOnboardingRequest{ID: doc.ID}

	strings := map[string]*string{
		"name":              &r.Name,
		"area":              &r.Area,
		"openingHours":      &r.OpeningHours,
		"avgPickupTime":     &r.AvgPickupTime,
		"pickupReliability": &r.PickupReliability,
		"communityReviews":  &r.CommunityReviews,
		"status":            &r.Status,
	}

	for field, dst := range strings {
		value, err := readString(f, field)
		if err != nil {
			return nil, fmt.Errorf("ngo request %s: %w", doc.ID, err)
		}
		*dst = value
	}

	var err error
	if r.CollectedDonations, err = readInt64(f, "collectedDonations"); err != nil {
		return nil, fmt.Errorf("ngo request %s: %w", doc.ID, err)
	}
	if r.Approved, err = readBool(f, "approved"); err != nil {
		return nil, fmt.Errorf("ngo request %s: %w", doc.ID, err)
	}
	if r.CreatedAt, err = readTime(f, "createdAt"); err != nil {
		return nil, fmt.Errorf("ngo request %s: %w", doc.ID, err)
	}

	return r, nil
}
