package types

import "time"

const (
	NGORequestStatusPending  = "Pending"
	NGORequestStatusApproved = "Approved"
	NGORequestStatusRejected = "Rejected"
)

// NGOOnboardingRequest lives in the review collection until it is rejected,
// at which point it moves to the rejected collection.
type NGOOnboardingRequest struct {
	ID                 string    `doc:"-" form:"id"`
	Name               string    `doc:"name" form:"name"`
	Area               string    `doc:"area" form:"area"`
	OpeningHours       string    `doc:"openingHours" form:"opening_hours"`
	AvgPickupTime      string    `doc:"avgPickupTime" form:"avg_pickup_time"`
	CollectedDonations int64     `doc:"collectedDonations" form:"collected_donations"`
	PickupReliability  string    `doc:"pickupReliability" form:"pickup_reliability"`
	CommunityReviews   string    `doc:"communityReviews" form:"community_reviews"`
	Approved           bool      `doc:"approved" form:"-"`
	Status             string    `doc:"status" form:"-"`
	CreatedAt          time.Time `doc:"createdAt" form:"-"`
}
