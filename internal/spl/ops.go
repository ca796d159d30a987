package spl

import (
	"context"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"spltoken-go/internal/metrics"
)

// Op names a ledger-mutating operation.
type Op string

const (
	OpMint     Op = "mint"
	OpTransfer Op = "transfer"
	OpAirdrop  Op = "airdrop"
	OpSweep    Op = "sweep"
)

// Result is the outcome of one confirmed operation.
type Result struct {
	Op        Op
	Signature solana.Signature
	Amount    uint64
	Slot      uint64
}

// MintTo issues amount base units of dest.Mint into dest, signed by the mint authority.
func (c *Client) MintTo(ctx context.Context, payer, authority solana.PrivateKey, dest AccountRef, amount uint64) (Result, error) {
	res, err := c.mintTo(ctx, payer, authority, dest, amount)
	record(res.Op, err)
	return res, err
}

func (c *Client) mintTo(ctx context.Context, payer, authority solana.PrivateKey, dest AccountRef, amount uint64) (Result, error) {
	op := string(OpMint)
	res := Result{Op: OpMint, Amount: amount}
	if amount == 0 {
		return res, opErr(op, ErrInvalidAmount, "amount must be positive")
	}
	if dest.Address.IsZero() {
		return res, opErr(op, ErrInvalidReference, "destination account is not resolved")
	}
	m, err := c.GetMint(ctx, dest.Mint)
	if err != nil {
		return res, err
	}
	if m.MintAuthority == nil {
		return res, opErr(op, ErrAuthorization, "mint %s has a fixed supply", dest.Mint)
	}
	if !m.MintAuthority.Equals(authority.PublicKey()) {
		return res, opErr(op, ErrAuthorization, "%s is not the mint authority of %s", authority.PublicKey(), dest.Mint)
	}

	ix := token.NewMintToInstruction(amount, dest.Mint, dest.Address, authority.PublicKey(), nil).Build()
	res.Signature, res.Slot, err = c.submit(ctx, op, payer, []solana.PrivateKey{authority}, ix)
	if err != nil {
		return res, err
	}
	c.log.Info().Str("mint", dest.Mint.String()).Str("ata", dest.Address.String()).Uint64("amount", amount).Str("sig", res.Signature.String()).Msg("minted")
	return res, nil
}

// Transfer moves amount base units from src to dst, authorized by owner (the
// source owner or its delegate) with payer covering the fee.
func (c *Client) Transfer(ctx context.Context, payer, owner solana.PrivateKey, src, dst AccountRef, amount uint64) (Result, error) {
	res, err := c.transfer(ctx, payer, owner, src, dst, amount)
	record(res.Op, err)
	return res, err
}

func (c *Client) transfer(ctx context.Context, payer, owner solana.PrivateKey, src, dst AccountRef, amount uint64) (Result, error) {
	op := string(OpTransfer)
	res := Result{Op: OpTransfer, Amount: amount}
	if amount == 0 {
		return res, opErr(op, ErrInvalidAmount, "amount must be positive")
	}
	if src.Address.IsZero() || dst.Address.IsZero() {
		return res, opErr(op, ErrInvalidReference, "source and destination must be resolved")
	}
	if !src.Mint.Equals(dst.Mint) {
		return res, opErr(op, ErrInvalidReference, "source mint %s differs from destination mint %s", src.Mint, dst.Mint)
	}
	acct, err := c.GetTokenAccount(ctx, src.Address)
	if err != nil {
		return res, classifyMissing(op, err, src.Address)
	}
	signer := owner.PublicKey()
	isOwner := acct.Owner.Equals(signer)
	if !isOwner && (acct.Delegate == nil || !acct.Delegate.Equals(signer)) {
		return res, opErr(op, ErrAuthorization, "%s cannot move tokens out of %s", signer, src.Address)
	}
	if acct.Amount < amount {
		return res, opErr(op, ErrInsufficientBalance, "%s holds %d, transfer needs %d", src.Address, acct.Amount, amount)
	}
	if !isOwner && acct.DelegatedAmount < amount {
		return res, opErr(op, ErrInsufficientBalance, "%s may move %d out of %s, transfer needs %d", signer, acct.DelegatedAmount, src.Address, amount)
	}

	ix := token.NewTransferCheckedInstruction(amount, src.Decimals, src.Address, src.Mint, dst.Address, signer, nil).Build()
	res.Signature, res.Slot, err = c.submit(ctx, op, payer, []solana.PrivateKey{owner}, ix)
	if err != nil {
		return res, err
	}
	c.log.Info().Str("from", src.Address.String()).Str("to", dst.Address.String()).Uint64("amount", amount).Str("sig", res.Signature.String()).Msg("transferred")
	return res, nil
}

func record(op Op, err error) {
	outcome := "confirmed"
	if err != nil {
		outcome = Kind(err)
	}
	metrics.OperationsTotal.WithLabelValues(string(op), outcome).Inc()
}
