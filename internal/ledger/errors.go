package ledger

import (
	"errors"
	"fmt"
)

// Error is a named runtime failure. Names are stable identifiers used in the
// transaction log, CLI output and scenario expectations; messages are for
// humans.
type Error struct {
	Name    string
	Message string
}

// NewError creates a named error. Collaborating programs use it for their
// own failure sentinels so that ErrorName can report them.
func NewError(name, message string) *Error {
	return &Error{Name: name, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// ErrorName returns the stable name.
func (e *Error) ErrorName() string {
	return e.Name
}

var (
	ErrAccountNotFound      = NewError("AccountNotFound", "account not found")
	ErrAccountInUse         = NewError("AccountInUse", "account already in use")
	ErrMissingSignature     = NewError("MissingRequiredSignature", "missing required signature")
	ErrInsufficientLamports = NewError("InsufficientLamports", "insufficient lamports")
	ErrIllegalOwner         = NewError("IllegalOwner", "account is not owned by the executing program")
	ErrDataSizeMismatch     = NewError("AccountDataSizeChanged", "account data size cannot change")
	ErrUnknownProgram       = NewError("UnknownProgram", "no program registered at address")
	ErrCallDepth            = NewError("CallDepthExceeded", "cross-program invocation too deep")
	ErrNoSignatures         = NewError("NoSignatures", "transaction carries no signatures")
	ErrInvalidSignature     = NewError("InvalidSignature", "signature verification failed")
	ErrDuplicateTransaction = NewError("DuplicateTransaction", "transaction already processed")
	ErrInvalidInstruction   = NewError("InvalidInstruction", "instruction not supported by program")
	ErrEmptyTransaction     = NewError("EmptyTransaction", "transaction has no instructions")
)

// InstructionError attributes a failure to one instruction of a transaction.
type InstructionError struct {
	// Index is the position of the failing top-level instruction.
	Index int

	// Instruction is the "program.name" label of that instruction.
	Instruction string

	Err error
}

// Error implements the error interface.
func (e *InstructionError) Error() string {
	return fmt.Sprintf("instruction %d (%s): %v", e.Index, e.Instruction, e.Err)
}

// Unwrap returns the underlying failure.
func (e *InstructionError) Unwrap() error {
	return e.Err
}

// named is implemented by every error that carries a stable name.
type named interface {
	ErrorName() string
}

// ErrorName returns the stable name of the outermost named error in err's
// chain, "InternalError" for unnamed failures, and "" for nil.
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	var n named
	if errors.As(err, &n) {
		return n.ErrorName()
	}
	return "InternalError"
}
