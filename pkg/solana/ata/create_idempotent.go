package ata

import (
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/text/format"
	"github.com/gagliardetto/treeout"
)

// CreateIdempotent creates the associated token account for wallet/mint,
// succeeding as a no-op when the account already exists. Unlike Create it
// is safe to include unconditionally.
type CreateIdempotent struct {
	Payer  solana.PublicKey `bin:"-" borsh_skip:"true"`
	Wallet solana.PublicKey `bin:"-" borsh_skip:"true"`
	Mint   solana.PublicKey `bin:"-" borsh_skip:"true"`

	// [0] = [WRITE, SIGNER] Payer
	// [1] = [WRITE] AssociatedTokenAccount
	// [2] = [] Wallet
	// [3] = [] TokenMint
	// [4] = [] SystemProgram
	// [5] = [] TokenProgram
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

// NewCreateIdempotentInstructionBuilder creates a new CreateIdempotent builder.
func NewCreateIdempotentInstructionBuilder() *CreateIdempotent {
	return &CreateIdempotent{
		AccountMetaSlice: make(solana.AccountMetaSlice, 0, 6),
	}
}

// SetPayer sets the funding account.
func (inst *CreateIdempotent) SetPayer(payer solana.PublicKey) *CreateIdempotent {
	inst.Payer = payer
	return inst
}

// SetWallet sets the wallet the token account belongs to.
func (inst *CreateIdempotent) SetWallet(wallet solana.PublicKey) *CreateIdempotent {
	inst.Wallet = wallet
	return inst
}

// SetMint sets the token mint.
func (inst *CreateIdempotent) SetMint(mint solana.PublicKey) *CreateIdempotent {
	inst.Mint = mint
	return inst
}

func (inst CreateIdempotent) Build() *Instruction {
	// The account address is derived, not passed in
	associatedTokenAddress, _, _ := solana.FindAssociatedTokenAddress(inst.Wallet, inst.Mint)

	keys := solana.AccountMetaSlice{
		solana.NewAccountMeta(inst.Payer, true, true),
		solana.NewAccountMeta(associatedTokenAddress, true, false),
		solana.NewAccountMeta(inst.Wallet, false, false),
		solana.NewAccountMeta(inst.Mint, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	inst.AccountMetaSlice = keys

	return &Instruction{BaseVariant: bin.BaseVariant{
		Impl:   inst,
		TypeID: bin.TypeIDFromUint8(Instruction_CreateIdempotent),
	}}
}

func (inst CreateIdempotent) Validate() error {
	if inst.Payer.IsZero() {
		return errors.New("Payer not set")
	}
	if inst.Wallet.IsZero() {
		return errors.New("Wallet not set")
	}
	if inst.Mint.IsZero() {
		return errors.New("Mint not set")
	}
	return nil
}

func (inst CreateIdempotent) ValidateAndBuild() (*Instruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst.Build(), nil
}

// The instruction carries no payload, the accounts say it all.
func (inst CreateIdempotent) MarshalWithEncoder(encoder *bin.Encoder) error {
	return nil
}

func (inst *CreateIdempotent) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	return nil
}

func (inst *CreateIdempotent) EncodeToTree(parent treeout.Branches) {
	parent.Child(format.Program(ProgramName, ProgramID.String())).
		ParentFunc(func(programBranch treeout.Branches) {
			programBranch.Child(format.Instruction("CreateIdempotent")).
				ParentFunc(func(instructionBranch treeout.Branches) {
					instructionBranch.Child("Params[len=0]").ParentFunc(func(paramsBranch treeout.Branches) {})
					instructionBranch.Child("Accounts[len=6]").ParentFunc(func(accountsBranch treeout.Branches) {
						accountsBranch.Child(format.Meta("                payer", inst.AccountMetaSlice.Get(0)))
						accountsBranch.Child(format.Meta("associatedTokenAccount", inst.AccountMetaSlice.Get(1)))
						accountsBranch.Child(format.Meta("                wallet", inst.AccountMetaSlice.Get(2)))
						accountsBranch.Child(format.Meta("             tokenMint", inst.AccountMetaSlice.Get(3)))
						accountsBranch.Child(format.Meta("         systemProgram", inst.AccountMetaSlice.Get(4)))
						accountsBranch.Child(format.Meta("          tokenProgram", inst.AccountMetaSlice.Get(5)))
					})
				})
		})
}

// NewCreateIdempotentInstruction ensures the associated token account of
// wallet for mint exists, creating it when missing.
func NewCreateIdempotentInstruction(payer, wallet, mint solana.PublicKey) *CreateIdempotent {
	return NewCreateIdempotentInstructionBuilder().
		SetPayer(payer).
		SetWallet(wallet).
		SetMint(mint)
}
