package disco

import "fmt"

// MachineCreationPolicy decides who may create ticket machines.
type MachineCreationPolicy string

const (
	// MachineCreationAuthorityOnly restricts creation to the event authority.
	MachineCreationAuthorityOnly MachineCreationPolicy = "authority_only"
	// MachineCreationOpen lets any signer create machines under any event.
	MachineCreationOpen MachineCreationPolicy = "open"
)

// MintingPolicy decides who may buy tickets.
type MintingPolicy string

const (
	// MintingOpen lets any signer buy.
	MintingOpen MintingPolicy = "open"
	// MintingAuthorityOnly restricts minting to the event authority.
	MintingAuthorityOnly MintingPolicy = "authority_only"
)

// CheckInPolicy decides who may check in and verify tickets.
type CheckInPolicy string

const (
	// CheckInStaff requires the event authority or a live collaborator.
	CheckInStaff CheckInPolicy = "staff"
	// CheckInAnySigner accepts any signer.
	CheckInAnySigner CheckInPolicy = "any_signer"
)

// Policy holds the authorization choices that differ between deployments.
type Policy struct {
	MachineCreation MachineCreationPolicy
	Minting         MintingPolicy
	CheckIn         CheckInPolicy
}

// DefaultPolicy is the strictest machine-creation and check-in scope with
// open ticket sales.
func DefaultPolicy() Policy {
	return Policy{
		MachineCreation: MachineCreationAuthorityOnly,
		Minting:         MintingOpen,
		CheckIn:         CheckInStaff,
	}
}

// Validate rejects unknown policy values.
func (p Policy) Validate() error {
	switch p.MachineCreation {
	case MachineCreationAuthorityOnly, MachineCreationOpen:
	default:
		return fmt.Errorf("unknown machine creation policy %q", p.MachineCreation)
	}
	switch p.Minting {
	case MintingOpen, MintingAuthorityOnly:
	default:
		return fmt.Errorf("unknown minting policy %q", p.Minting)
	}
	switch p.CheckIn {
	case CheckInStaff, CheckInAnySigner:
	default:
		return fmt.Errorf("unknown check-in policy %q", p.CheckIn)
	}
	return nil
}
