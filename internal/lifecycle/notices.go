package lifecycle

import (
	"fmt"

	"foodshare/pkg/types"
)

type notice struct {
	userID  string
	title   string
	message string
}

// notices lists who hears about a completed command and what they are told.
func notices(command string, d *types.Donation) []notice {
	ngoID, hasNGO := d.NGOID()

	switch command {
	case CommandAccept:
		return []notice{
			{d.DonorID, "Donation accepted", fmt.Sprintf("Your donation %q was accepted by an NGO.", d.Title)},
			{ngoID, "Donation accepted", fmt.Sprintf("You accepted %q. Waiting for the donor to propose a pickup.", d.Title)},
		}
	case CommandProposePickup:
		pickup := d.ScheduledPickup()
		return []notice{
			{ngoID, "Pickup proposed", fmt.Sprintf("The donor proposed a pickup for %q on %s, %s at %s.",
				d.Title, pickup.PickupDate.Format("2006-01-02"), pickup.PickupTimeRange, pickup.PickupLocation)},
		}
	case CommandApprovePickup:
		return []notice{
			{d.DonorID, "Pickup approved", fmt.Sprintf("The NGO approved the pickup for %q.", d.Title)},
		}
	case CommandRejectPickup:
		return []notice{
			{d.DonorID, "Pickup rejected", fmt.Sprintf("The NGO rejected the pickup for %q. Please propose another time.", d.Title)},
		}
	case CommandMarkCollected:
		return []notice{
			{d.DonorID, "Donation collected", fmt.Sprintf("Your donation %q was collected. Thank you!", d.Title)},
		}
	case CommandCancel:
		list := []notice{
			{d.DonorID, "Donation cancelled", fmt.Sprintf("Your donation %q was cancelled.", d.Title)},
		}
		if hasNGO {
			list = append(list, notice{ngoID, "Donation cancelled", fmt.Sprintf("The donation %q was cancelled.", d.Title)})
		}
		return list
	}

	return nil
}
