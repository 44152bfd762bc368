package lifecycle

import (
	"fmt"
	"strings"

	"foodshare/internal/utils"
	"foodshare/pkg/types"
)

const (
	CommandCreate        = "create"
	CommandAccept        = "accept"
	CommandProposePickup = "propose_pickup"
	CommandApprovePickup = "approve_pickup"
	CommandRejectPickup  = "reject_pickup"
	CommandMarkCollected = "mark_collected"
	CommandCancel        = "cancel"
)

// rule computes the next stage of a donation. noop reports that the command's
// target already holds, in which case nothing is written.
type rule func(d *types.Donation) (next types.DonationStage, noop bool, err error)

func wrongState(d *types.Donation, command string, want types.DonationStatus) error {
	return fmt.Errorf("%w: %s requires status %s, donation %s is %s",
		types.ErrInvalidPrecondition, command, want, d.ID, d.Status())
}

// validateAccept and validateProposal check command payloads, which needs no
// store read, so they run before apply touches the store.
func validateAccept(ngoID string) error {
	if strings.TrimSpace(ngoID) == "" {
		return fmt.Errorf("%w: ngo id is required", types.ErrInvalidPrecondition)
	}
	return nil
}

func validateProposal(proposal types.PickupSchedule) error {
	if strings.TrimSpace(proposal.PickupTimeRange) == "" {
		return fmt.Errorf("%w: pickup time range is required", types.ErrInvalidPrecondition)
	}
	if strings.TrimSpace(proposal.PickupLocation) == "" {
		return fmt.Errorf("%w: pickup location is required", types.ErrInvalidPrecondition)
	}
	return nil
}

func acceptRule(ngoID string) rule {
	return func(d *types.Donation) (types.DonationStage, bool, error) {
		switch stage := d.Stage.(type) {
		case types.Pending:
			return types.Accepted{NGOID: ngoID}, false, nil
		case types.Accepted:
			if stage.NGOID == ngoID {
				return nil, true, nil
			}
			return nil, false, fmt.Errorf("%w: donation %s was already accepted by another ngo",
				types.ErrInvalidPrecondition, d.ID)
		}

		return nil, false, wrongState(d, CommandAccept, types.DonationStatusPending)
	}
}

// proposePickupRule attaches a fresh schedule; every proposal gets a new ID
// and replaces whatever came before.
func proposePickupRule(proposal types.PickupSchedule) rule {
	return func(d *types.Donation) (types.DonationStage, bool, error) {
		stage, ok := d.Stage.(types.Accepted)
		if !ok {
			return nil, false, wrongState(d, CommandProposePickup, types.DonationStatusAccepted)
		}

		pickup := types.PickupSchedule{
			ID:              utils.NanoID(),
			DonationID:      d.ID,
			PickupDate:      proposal.PickupDate,
			PickupTimeRange: strings.TrimSpace(proposal.PickupTimeRange),
			PickupLocation:  strings.TrimSpace(proposal.PickupLocation),
		}

		return types.PickupProposed{NGOID: stage.NGOID, Pickup: pickup}, false, nil
	}
}

func approvePickupRule(d *types.Donation) (types.DonationStage, bool, error) {
	switch stage := d.Stage.(type) {
	case types.PickupProposed:
		return types.PickupApproved{NGOID: stage.NGOID, Pickup: stage.Pickup}, false, nil
	case types.PickupApproved:
		return nil, true, nil
	}

	return nil, false, wrongState(d, CommandApprovePickup, types.DonationStatusToBeApproved)
}

func rejectPickupRule(d *types.Donation) (types.DonationStage, bool, error) {
	switch stage := d.Stage.(type) {
	case types.PickupProposed:
		return types.Accepted{NGOID: stage.NGOID}, false, nil
	case types.Accepted:
		return nil, true, nil
	}

	return nil, false, wrongState(d, CommandRejectPickup, types.DonationStatusToBeApproved)
}

func markCollectedRule(d *types.Donation) (types.DonationStage, bool, error) {
	switch stage := d.Stage.(type) {
	case types.PickupApproved:
		return types.Completed{NGOID: stage.NGOID}, false, nil
	case types.Completed:
		return nil, true, nil
	}

	return nil, false, wrongState(d, CommandMarkCollected, types.DonationStatusToBeCollected)
}

func cancelRule(d *types.Donation) (types.DonationStage, bool, error) {
	switch d.Stage.(type) {
	case types.Cancelled:
		return nil, true, nil
	case types.Completed:
		return nil, false, fmt.Errorf("%w: donation %s is already completed", types.ErrInvalidPrecondition, d.ID)
	}

	ngoID, _ := d.NGOID()
	return types.Cancelled{NGOID: ngoID}, false, nil
}

// statusRule maps a bare target status onto the command that reaches it.
// Targets that need a payload (an NGO or a schedule) are refused.
func statusRule(target types.DonationStatus) (string, rule, error) {
	switch target {
	case types.DonationStatusToBeCollected:
		return CommandApprovePickup, approvePickupRule, nil
	case types.DonationStatusCompleted:
		return CommandMarkCollected, markCollectedRule, nil
	case types.DonationStatusCancelled:
		return CommandCancel, cancelRule, nil
	case types.DonationStatusAccepted:
		return CommandRejectPickup, func(d *types.Donation) (types.DonationStage, bool, error) {
			if _, ok := d.Stage.(types.Pending); ok {
				return nil, false, fmt.Errorf("%w: accepting donation %s requires an ngo id", types.ErrInvalidPrecondition, d.ID)
			}
			return rejectPickupRule(d)
		}, nil
	case types.DonationStatusToBeApproved:
		return "", nil, fmt.Errorf("%w: moving to %s requires a pickup schedule", types.ErrInvalidPrecondition, target)
	case types.DonationStatusPending:
		return "", nil, fmt.Errorf("%w: donations cannot return to %s", types.ErrInvalidPrecondition, target)
	}

	return "", nil, fmt.Errorf("%w: %w: %q", types.ErrInvalidPrecondition, types.ErrUnknownStatus, target)
}
