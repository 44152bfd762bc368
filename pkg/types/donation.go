package types

import (
	"fmt"
	"time"
)

type DonationStatus string

const (
	DonationStatusPending       DonationStatus = "pending"
	DonationStatusAccepted      DonationStatus = "accepted"
	DonationStatusToBeApproved  DonationStatus = "toBeApproved"
	DonationStatusToBeCollected DonationStatus = "toBeCollected"
	DonationStatusCompleted     DonationStatus = "completed"
	DonationStatusCancelled     DonationStatus = "cancelled"
)

var donationStatuses = []DonationStatus{
	DonationStatusPending,
	DonationStatusAccepted,
	DonationStatusToBeApproved,
	DonationStatusToBeCollected,
	DonationStatusCompleted,
	DonationStatusCancelled,
}

func DonationStatuses() []DonationStatus {
	out := make([]DonationStatus, len(donationStatuses))
	copy(out, donationStatuses)
	return out
}

// ParseDonationStatus accepts only the closed set of persisted statuses.
func ParseDonationStatus(s string) (DonationStatus, error) {
	for _, status := range donationStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s DonationStatus) Terminal() bool {
	return s == DonationStatusCompleted || s == DonationStatusCancelled
}

type Donation struct {
	ID          string
	Title       string
	Description string
	Quantity    string
	ExpiryDate  *time.Time
	ImageRef    string
	DonorID     string
	DonorName   string

	Stage DonationStage
}

// DonationStage is the status-specific part of a donation. Only the stages
// that follow acceptance carry an NGO, and only the two pickup stages carry a
// schedule.
type DonationStage interface {
	Status() DonationStatus
	donationStage()
}

type Pending struct{}

type Accepted struct {
	NGOID string
}

// PickupProposed is the toBeApproved stage.
type PickupProposed struct {
	NGOID  string
	Pickup PickupSchedule
}

// PickupApproved is the toBeCollected stage.
type PickupApproved struct {
	NGOID  string
	Pickup PickupSchedule
}

type Completed struct {
	NGOID string
}

// Cancelled may happen before any NGO accepted, so NGOID can be empty.
type Cancelled struct {
	NGOID string
}

func (Pending) Status() DonationStatus        { return DonationStatusPending }
func (Accepted) Status() DonationStatus       { return DonationStatusAccepted }
func (PickupProposed) Status() DonationStatus { return DonationStatusToBeApproved }
func (PickupApproved) Status() DonationStatus { return DonationStatusToBeCollected }
func (Completed) Status() DonationStatus      { return DonationStatusCompleted }
func (Cancelled) Status() DonationStatus      { return DonationStatusCancelled }

func (Pending) donationStage()        {}
func (Accepted) donationStage()       {}
func (PickupProposed) donationStage() {}
func (PickupApproved) donationStage() {}
func (Completed) donationStage()      {}
func (Cancelled) donationStage()      {}

func (d *Donation) Status() DonationStatus {
	if d.Stage == nil {
		return DonationStatusPending
	}
	return d.Stage.Status()
}

// NGOID returns the accepting NGO, if the donation has one.
func (d *Donation) NGOID() (string, bool) {
	var id string
	switch stage := d.Stage.(type) {
	case Accepted:
		id = stage.NGOID
	case PickupProposed:
		id = stage.NGOID
	case PickupApproved:
		id = stage.NGOID
	case Completed:
		id = stage.NGOID
	case Cancelled:
		id = stage.NGOID
	}
	return id, id != ""
}

// ScheduledPickup returns the active schedule, if any.
func (d *Donation) ScheduledPickup() *PickupSchedule {
	switch stage := d.Stage.(type) {
	case PickupProposed:
		pickup := stage.Pickup
		return &pickup
	case PickupApproved:
		pickup := stage.Pickup
		return &pickup
	}
	return nil
}

type PickupSchedule struct {
	ID              string
	DonationID      string
	PickupDate      time.Time
	PickupTimeRange string
	PickupLocation  string
}
