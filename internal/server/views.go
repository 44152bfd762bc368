package server

import (
	"time"

	"foodshare/pkg/types"
)

type pickupView struct {
	ID              string    `json:"id"`
	DonationID      string    `json:"donationId"`
	PickupDate      time.Time `json:"pickupDate"`
	PickupTimeRange string    `json:"pickupTimeRange"`
	PickupLocation  string    `json:"pickupLocation"`
}

type donationView struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Quantity        string      `json:"quantity"`
	ExpiryDate      *time.Time  `json:"expiryDate"`
	ImageRef        string      `json:"imageRef"`
	DonorID         string      `json:"donorId"`
	DonorName       string      `json:"donorName"`
	NGOID           *string     `json:"ngoId"`
	Status          string      `json:"status"`
	ScheduledPickup *pickupView `json:"scheduledPickup"`
}

func newDonationView(d *types.Donation) donationView {
	view := donationView{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Quantity:    d.Quantity,
		ExpiryDate:  d.ExpiryDate,
		ImageRef:    d.ImageRef,
		DonorID:     d.DonorID,
		DonorName:   d.DonorName,
		Status:      string(d.Status()),
	}

	if ngoID, ok := d.NGOID(); ok {
		view.NGOID = &ngoID
	}

	if pickup := d.ScheduledPickup(); pickup != nil {
		view.ScheduledPickup = &pickupView{
			ID:              pickup.ID,
			DonationID:      pickup.DonationID,
			PickupDate:      pickup.PickupDate,
			PickupTimeRange: pickup.PickupTimeRange,
			PickupLocation:  pickup.PickupLocation,
		}
	}

	return view
}

func newDonationViews(donations []*types.Donation) []donationView {
	views := make([]donationView, 0, len(donations))
	for _, d := range donations {
		views = append(views, newDonationView(d))
	}
	return views
}

type notificationView struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	UserID         *string   `json:"userId"`
	IsGlobal       bool      `json:"isGlobal"`
	IsAnnouncement bool      `json:"isAnnouncement"`
	CreatedAt      time.Time `json:"createdAt"`
}

func newNotificationView(n *types.NotificationRecord) notificationView {
	return notificationView{
		ID:             n.ID,
		Title:          n.Title,
		Message:        n.Message,
		UserID:         n.RecipientUserID,
		IsGlobal:       n.IsGlobal,
		IsAnnouncement: n.IsAnnouncement,
		CreatedAt:      n.CreatedAt,
	}
}

type ngoRequestView struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Area               string    `json:"area"`
	OpeningHours       string    `json:"openingHours"`
	AvgPickupTime      string    `json:"avgPickupTime"`
	CollectedDonations int64     `json:"collectedDonations"`
	PickupReliability  string    `json:"pickupReliability"`
	CommunityReviews   string    `json:"communityReviews"`
	Approved           bool      `json:"approved"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
}

func newNGORequestViews(requests []*types.NGOOnboardingRequest) []ngoRequestView {
	views := make([]ngoRequestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, ngoRequestView{
			ID:                 r.ID,
			Name:               r.Name,
			Area:               r.Area,
			OpeningHours:       r.OpeningHours,
			AvgPickupTime:      r.AvgPickupTime,
			CollectedDonations: r.CollectedDonations,
			PickupReliability:  r.PickupReliability,
			CommunityReviews:   r.CommunityReviews,
			Approved:           r.Approved,
			Status:             r.Status,
			CreatedAt:          r.CreatedAt,
		})
	}
	return views
}

type statusEventView struct {
	DonationID string    `json:"donationId"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to"`
	NGOID      string    `json:"ngoId,omitempty"`
	At         time.Time `json:"at"`
}
