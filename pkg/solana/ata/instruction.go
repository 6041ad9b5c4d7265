// Package ata extends the upstream associated-token-account bindings with
// the CreateIdempotent variant, which the deployed program supports but the
// library does not expose.
package ata

import (
	"bytes"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/text"
	"github.com/gagliardetto/treeout"
)

var ProgramID = solana.SPLAssociatedTokenAccountProgramID

const ProgramName = "AssociatedTokenAccount"

// Instruction discriminators, one byte on the wire.
const (
	Instruction_Create uint8 = iota
	Instruction_CreateIdempotent
)

var instructionVariants = bin.NewVariantDefinition(
	bin.Uint8TypeIDEncoding,
	[]bin.VariantType{
		{"Create", (*associatedtokenaccount.Create)(nil)},
		{"CreateIdempotent", (*CreateIdempotent)(nil)},
	},
)

func init() {
	solana.RegisterInstructionDecoder(ProgramID, func(accounts []*solana.AccountMeta, data []byte) (interface{}, error) {
		return DecodeInstruction(accounts, data)
	})
}

// Instruction is either variant of the program, ready to be placed in a
// transaction.
type Instruction struct {
	bin.BaseVariant
}

func (inst *Instruction) ProgramID() solana.PublicKey {
	return ProgramID
}

func (inst *Instruction) Accounts() []*solana.AccountMeta {
	return inst.Impl.(solana.AccountsGettable).GetAccounts()
}

func (inst *Instruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBinEncoder(buf).Encode(inst); err != nil {
		return nil, fmt.Errorf("unable to encode instruction: %w", err)
	}
	return buf.Bytes(), nil
}

func (inst Instruction) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint8(inst.TypeID.Uint8()); err != nil {
		return fmt.Errorf("unable to write variant type: %w", err)
	}
	return encoder.Encode(inst.Impl)
}

func (inst *Instruction) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	return inst.BaseVariant.UnmarshalBinaryVariant(decoder, instructionVariants)
}

func (inst *Instruction) TextEncode(encoder *text.Encoder, option *text.Option) error {
	return encoder.Encode(inst.Impl, option)
}

func (inst *Instruction) EncodeToTree(parent treeout.Branches) {
	if enToTree, ok := inst.Impl.(text.EncodableToTree); ok {
		enToTree.EncodeToTree(parent)
	} else {
		parent.Child(spew.Sdump(inst))
	}
}

// DecodeInstruction rebuilds an instruction from its on-chain form.
func DecodeInstruction(accounts []*solana.AccountMeta, data []byte) (*Instruction, error) {
	inst := new(Instruction)
	if err := bin.NewBinDecoder(data).Decode(inst); err != nil {
		return nil, fmt.Errorf("unable to decode instruction: %w", err)
	}
	if v, ok := inst.Impl.(solana.AccountsSettable); ok {
		if err := v.SetAccounts(accounts); err != nil {
			return nil, fmt.Errorf("unable to set accounts for instruction: %w", err)
		}
	}
	return inst, nil
}
