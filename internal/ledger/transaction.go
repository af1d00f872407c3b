package ledger

import (
	"crypto/ed25519"
	"fmt"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/codec"
)

// Instruction is one request addressed to a program. Concrete instruction
// types are plain structs owned by the program packages; their exported
// fields are the instruction data and are covered by the signatures.
type Instruction interface {
	// ProgramID is the program that executes the instruction.
	ProgramID() address.Address

	// InstructionName is the instruction's stable snake_case name.
	InstructionName() string
}

// Signature is one signer's ed25519 signature over the message.
type Signature struct {
	Signer address.Address
	Bytes  []byte
}

// Transaction is an ordered, signed batch of instructions applied atomically.
type Transaction struct {
	// Nonce makes otherwise identical transactions distinct messages, so a
	// client can repeat an operation without tripping duplicate detection.
	Nonce uuid.UUID

	Instructions []Instruction
	Signatures   []Signature
}

// NewTransaction creates an unsigned transaction with a fresh nonce.
func NewTransaction(ixs ...Instruction) *Transaction {
	return &Transaction{Nonce: uuid.New(), Instructions: ixs}
}

type messageInstruction struct {
	Program address.Address `cbor:"program"`
	Name    string          `cbor:"name"`
	Data    Instruction     `cbor:"data"`
}

type message struct {
	Nonce        string               `cbor:"nonce"`
	Signers      []address.Address    `cbor:"signers"`
	Instructions []messageInstruction `cbor:"instructions"`
}

// Message returns the deterministic CBOR bytes every signer signs. The
// signer list is part of the message, so a signature cannot be replayed
// under a different signer set.
func (tx *Transaction) Message() ([]byte, error) {
	m := message{
		Nonce:        tx.Nonce.String(),
		Signers:      make([]address.Address, len(tx.Signatures)),
		Instructions: make([]messageInstruction, len(tx.Instructions)),
	}
	for i, sig := range tx.Signatures {
		m.Signers[i] = sig.Signer
	}
	for i, ix := range tx.Instructions {
		m.Instructions[i] = messageInstruction{Program: ix.ProgramID(), Name: ix.InstructionName(), Data: ix}
	}
	data, err := codec.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// Sign replaces the signature set with signatures from keys, in order.
// The first key is the fee payer by convention and its signature becomes
// the transaction ID.
func (tx *Transaction) Sign(keys ...Keypair) error {
	tx.Signatures = make([]Signature, len(keys))
	for i, k := range keys {
		tx.Signatures[i].Signer = k.Address()
	}
	msg, err := tx.Message()
	if err != nil {
		return err
	}
	for i, k := range keys {
		tx.Signatures[i].Bytes = k.Sign(msg)
	}
	return nil
}

// Verify checks every signature against the message.
func (tx *Transaction) Verify() error {
	if len(tx.Signatures) == 0 {
		return ErrNoSignatures
	}
	msg, err := tx.Message()
	if err != nil {
		return err
	}
	for _, sig := range tx.Signatures {
		if !ed25519.Verify(ed25519.PublicKey(sig.Signer[:]), msg, sig.Bytes) {
			return fmt.Errorf("%w: signer %s", ErrInvalidSignature, sig.Signer)
		}
	}
	return nil
}

// ID is the base58 encoding of the first signature, or "" if unsigned.
func (tx *Transaction) ID() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return base58.Encode(tx.Signatures[0].Bytes)
}

// Signers returns the set of addresses that signed the transaction.
func (tx *Transaction) Signers() map[address.Address]bool {
	set := make(map[address.Address]bool, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		set[sig.Signer] = true
	}
	return set
}

// Receipt describes a committed transaction.
type Receipt struct {
	ID   string
	Seq  int64
	Logs []string
}
