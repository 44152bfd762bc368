package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodshare/internal/docstore"
	"foodshare/internal/store"
	"foodshare/pkg/types"
)

// SeedNGORequests files the demo onboarding requests below. The IDs are fixed
// so running the seed twice leaves the existing requests alone.
//
// To generate new IDs: `go run ./cmd/foodshare nanoid`
func SeedNGORequests(ctx context.Context, repo *store.NGORequestRepository) error {
	now := time.Now().UTC()

	requests := []types.NGOOnboardingRequest{
		{
			ID:                 "Zt3mK9qWv2LcXe8RbN4p",
			Name:               "City Food Bank",
			Area:               "Downtown",
			OpeningHours:       "09:00-18:00",
			AvgPickupTime:      "30 min",
			CollectedDonations: 120,
			PickupReliability:  "High",
			CommunityReviews:   "4.8",
		},
		{
			ID:                 "Hq7Yd2sPn5JfUa1TgW6k",
			Name:               "Harbor Night Shelter",
			Area:               "Harbor District",
			OpeningHours:       "16:00-23:00",
			AvgPickupTime:      "45 min",
			CollectedDonations: 34,
			PickupReliability:  "Medium",
			CommunityReviews:   "4.3",
		},
		{
			ID:                 "Lb8Vr4cEx0MwQz3NyS9j",
			Name:               "Northside Community Kitchen",
			Area:               "Northside",
			OpeningHours:       "07:00-14:00",
			AvgPickupTime:      "1 hour",
			CollectedDonations: 0,
			PickupReliability:  "New",
			CommunityReviews:   "",
		},
	}

	created := 0
	for i, request := range requests {
		request.Approved = false
		request.Status = types.NGORequestStatusPending
		request.CreatedAt = now.Add(-time.Duration(i) * time.Hour)

		err := repo.Create(ctx, &request)
		if errors.Is(err, docstore.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create seed ngo request %s: %w", request.ID, err)
		}
		created++
	}

	fmt.Printf("NGO requests seeded: %d created, %d already present\n", created, len(requests)-created)
	return nil
}
