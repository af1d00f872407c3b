package disco

import (
	"errors"
	"fmt"
)

// Kind groups errors by the invariant they protect.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindCapacity         Kind = "capacity"
	KindRedemption       Kind = "redemption_state"
	KindAuthorization    Kind = "authorization"
	KindIrreversibility  Kind = "irreversibility"
	KindAddressIntegrity Kind = "address_integrity"
)

// Error is a named precondition failure. Every Error aborts the whole
// transaction with no mutation; none is retried by the program.
type Error struct {
	Code    uint32
	Name    string
	Message string
	Kind    Kind
}

func newError(code uint32, name string, kind Kind, message string) *Error {
	return &Error{Code: code, Name: name, Kind: kind, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// ErrorName returns the stable name reported by ledger.ErrorName.
func (e *Error) ErrorName() string {
	return e.Name
}

// Codes start at 6000, the first custom error code of the host runtime.
var (
	ErrNotEnoughTicketsAvailable                 = newError(6000, "NotEnoughTicketsAvailable", KindCapacity, "there are not enough tickets available")
	ErrTicketAlreadyCheckedIn                    = newError(6001, "TicketAlreadyCheckedIn", KindRedemption, "this ticket has already checked in")
	ErrInvalidAuthorityForTicket                 = newError(6002, "InvalidAuthorityForTicket", KindAuthorization, "the authority is not registered as the authority of the ticket")
	ErrOnlyTicketAuthorityCanChangeAuthority     = newError(6003, "OnlyTicketAuthorityCanChangeAuthority", KindAuthorization, "only the authority of the ticket can set a new authority")
	ErrCheckedInTicketsCantChangeAuthority       = newError(6004, "CheckedInTicketsCantChangeAuthority", KindIrreversibility, "tickets that have checked in can't change authority")
	ErrOnlyEventAuthorityCanCreateCollaborators  = newError(6005, "OnlyEventAuthorityCanCreateCollaborators", KindAuthorization, "only the event authority can create collaborators")
	ErrOnlyEventAuthorityCanDeleteCollaborators  = newError(6006, "OnlyEventAuthorityCanDeleteCollaborators", KindAuthorization, "only the event authority can delete collaborators")
	ErrNotEnoughTicketsToCheckIn                 = newError(6007, "NotEnoughTicketsToCheckIn", KindRedemption, "there are not enough sold tickets left to check in")
	ErrOnlyEventAuthorityCanWithdrawFromFeeVault = newError(6008, "OnlyEventAuthorityCanWithdrawFromFeeVault", KindAuthorization, "only the event authority can withdraw from the event vault")
	ErrOnlyEventAuthorityCanCreateTicketMachines = newError(6009, "OnlyEventAuthorityCanCreateTicketMachines", KindAuthorization, "only the event authority can create ticket machines")
	ErrOnlyEventAuthorityCanMintTickets          = newError(6010, "OnlyEventAuthorityCanMintTickets", KindAuthorization, "only the event authority can mint tickets")
	ErrOnlyEventStaffCanCheckIn                  = newError(6011, "OnlyEventStaffCanCheckIn", KindAuthorization, "only the event authority or a collaborator can check in tickets")
	ErrOnlyEventStaffCanVerifyTickets            = newError(6012, "OnlyEventStaffCanVerifyTickets", KindAuthorization, "only the event authority or a collaborator can verify tickets")
	ErrInvalidDisplayMetadata                    = newError(6013, "InvalidDisplayMetadata", KindValidation, "display metadata exceeds its capacity")
	ErrInvalidEventID                            = newError(6014, "InvalidEventID", KindValidation, "event id must be 1 to 32 bytes")
	ErrInvalidQuantity                           = newError(6015, "InvalidQuantity", KindValidation, "quantity must be positive")
	ErrInvalidUses                               = newError(6016, "InvalidUses", KindValidation, "use allowance must be positive")
	ErrArithmeticOverflow                        = newError(6017, "ArithmeticOverflow", KindValidation, "arithmetic overflow")
	ErrAcceptedMintMismatch                      = newError(6018, "AcceptedMintMismatch", KindAddressIntegrity, "payment holding is not of the event's accepted mint")
	ErrAddressMismatch                           = newError(6019, "AddressMismatch", KindAddressIntegrity, "referenced record does not match its derived address")
	ErrRecordAlreadyExists                       = newError(6020, "RecordAlreadyExists", KindAddressIntegrity, "record already exists at the derived address")
	ErrRecordNotFound                            = newError(6021, "RecordNotFound", KindAddressIntegrity, "referenced record does not exist")
	ErrRecordTypeMismatch                        = newError(6022, "RecordTypeMismatch", KindAddressIntegrity, "referenced record has the wrong type or owner")
)

// Errors lists every program error in code order.
var Errors = []*Error{
	ErrNotEnoughTicketsAvailable,
	ErrTicketAlreadyCheckedIn,
	ErrInvalidAuthorityForTicket,
	ErrOnlyTicketAuthorityCanChangeAuthority,
	ErrCheckedInTicketsCantChangeAuthority,
	ErrOnlyEventAuthorityCanCreateCollaborators,
	ErrOnlyEventAuthorityCanDeleteCollaborators,
	ErrNotEnoughTicketsToCheckIn,
	ErrOnlyEventAuthorityCanWithdrawFromFeeVault,
	ErrOnlyEventAuthorityCanCreateTicketMachines,
	ErrOnlyEventAuthorityCanMintTickets,
	ErrOnlyEventStaffCanCheckIn,
	ErrOnlyEventStaffCanVerifyTickets,
	ErrInvalidDisplayMetadata,
	ErrInvalidEventID,
	ErrInvalidQuantity,
	ErrInvalidUses,
	ErrArithmeticOverflow,
	ErrAcceptedMintMismatch,
	ErrAddressMismatch,
	ErrRecordAlreadyExists,
	ErrRecordNotFound,
	ErrRecordTypeMismatch,
}

// KindOf returns the kind of the program error in err's chain, or "" if
// err did not come from this program.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// fail wraps a program error with detail while keeping errors.Is working.
func fail(e *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", e, fmt.Sprintf(format, args...))
}
