package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"foodshare/internal/store"
	"foodshare/internal/utils"
	"foodshare/pkg/types"
)

var fakeDonations = []struct {
	Title       string
	Description string
	Quantity    string
}{
	{"Fresh bread", "Sourdough and rye loaves baked this morning.", "24 loaves"},
	{"Cooked rice", "Vegetable biryani from a cancelled event.", "15 kg"},
	{"Fruit boxes", "Mixed apples and bananas, slightly bruised.", "8 boxes"},
	{"Canned beans", "Unopened cans, long shelf life.", "60 cans"},
	{"Milk", "Whole milk cartons expiring this week.", "30 litres"},
	{"Sandwiches", "Cafe surplus, wrapped individually.", "40 pieces"},
	{"Vegetables", "Carrots, onions and potatoes from a market stall.", "3 crates"},
}

var fakeDonors = []struct {
	ID   string
	Name string
}{
	{"donor-bakery-01", "Corner Bakery"},
	{"donor-hall-02", "Riverside Banquet Hall"},
	{"donor-cafe-03", "Morning Cafe"},
}

var fakeNGOs = []string{"ngo-foodbank-01", "ngo-shelter-02"}

type weightedDonationStatus struct {
	Status types.DonationStatus
	Weight int
}

var weightedStatuses = []weightedDonationStatus{
	{Status: types.DonationStatusPending, Weight: 30},
	{Status: types.DonationStatusAccepted, Weight: 20},
	{Status: types.DonationStatusToBeApproved, Weight: 15},
	{Status: types.DonationStatusToBeCollected, Weight: 15},
	{Status: types.DonationStatusCompleted, Weight: 15},
	{Status: types.DonationStatusCancelled, Weight: 5},
}

// SeedDonations creates count demo donations spread across every status.
// The first len(weightedStatuses) donations cover each status once.
func SeedDonations(ctx context.Context, repo *store.DonationRepository, count int) error {
	if count <= 0 {
		fmt.Println("Skipping donation seed because count <= 0")
		return nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()

	for i := 0; i < count; i++ {
		status := pickWeightedStatus(rng)
		if i < len(weightedStatuses) {
			status = weightedStatuses[i].Status
		}

		item := fakeDonations[rng.Intn(len(fakeDonations))]
		donor := fakeDonors[rng.Intn(len(fakeDonors))]

		donation := &types.Donation{
			ID:          utils.NanoID(),
			Title:       fmt.Sprintf("[seed] %s", item.Title),
			Description: item.Description,
			Quantity:    item.Quantity,
			ExpiryDate:  utils.TimePtr(now.Add(time.Duration(rng.Intn(72)+12) * time.Hour)),
			DonorID:     donor.ID,
			DonorName:   donor.Name,
		}
		donation.Stage = stageFor(status, donation.ID, fakeNGOs[rng.Intn(len(fakeNGOs))], now, rng)

		if err := repo.CreateDonation(ctx, donation); err != nil {
			return fmt.Errorf("failed to create seed donation %d: %w", i+1, err)
		}
	}

	fmt.Printf("Donations seeded: %d created\n", count)
	return nil
}

func stageFor(status types.DonationStatus, donationID, ngoID string, now time.Time, rng *rand.Rand) types.DonationStage {
	pickup := types.PickupSchedule{
		ID:              utils.NanoID(),
		DonationID:      donationID,
		PickupDate:      now.Add(time.Duration(rng.Intn(3)+1) * 24 * time.Hour).Truncate(24 * time.Hour),
		PickupTimeRange: "17:00-19:00",
		PickupLocation:  "Back entrance, loading bay",
	}

	switch status {
	case types.DonationStatusAccepted:
		return types.Accepted{NGOID: ngoID}
	case types.DonationStatusToBeApproved:
		return types.PickupProposed{NGOID: ngoID, Pickup: pickup}
	case types.DonationStatusToBeCollected:
		return types.PickupApproved{NGOID: ngoID, Pickup: pickup}
	case types.DonationStatusCompleted:
		return types.Completed{NGOID: ngoID}
	case types.DonationStatusCancelled:
		return types.Cancelled{}
	}

	return types.Pending{}
}

func pickWeightedStatus(rng *rand.Rand) types.DonationStatus {
	total := 0
	for _, item := range weightedStatuses {
		total += item.Weight
	}

	roll := rng.Intn(total)
	running := 0
	for _, item := range weightedStatuses {
		running += item.Weight
		if roll < running {
			return item.Status
		}
	}

	return types.DonationStatusPending
}
