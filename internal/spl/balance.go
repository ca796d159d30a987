package spl

import (
	"context"
	"fmt"
	"strconv"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// TokenBalance returns the raw amount held by a token account and its mint decimals.
func (c *Client) TokenBalance(ctx context.Context, addr solana.PublicKey) (uint64, uint8, error) {
	const op = "token balance"
	out, err := c.RPC.GetTokenAccountBalance(ctx, addr, c.Commit)
	if err != nil {
		return 0, 0, classify(op, err, nil)
	}
	if out.Value == nil {
		return 0, 0, opErr(op, ErrInvalidReference, "no balance for %s", addr)
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, 0, opErr(op, ErrRejected, "parse amount %q: %v", out.Value.Amount, err)
	}
	return amount, out.Value.Decimals, nil
}

// Supply returns the total issued base units of a mint.
func (c *Client) Supply(ctx context.Context, mint solana.PublicKey) (uint64, uint8, error) {
	const op = "token supply"
	out, err := c.RPC.GetTokenSupply(ctx, mint, c.Commit)
	if err != nil {
		return 0, 0, classify(op, err, nil)
	}
	if out.Value == nil {
		return 0, 0, opErr(op, ErrInvalidReference, "no supply for %s", mint)
	}
	supply, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, 0, opErr(op, ErrRejected, "parse supply %q: %v", out.Value.Amount, err)
	}
	return supply, out.Value.Decimals, nil
}

// Balance returns the lamports held by an account.
func (c *Client) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	out, err := c.RPC.GetBalance(ctx, addr, c.Commit)
	if err != nil {
		return 0, classify("balance", err, nil)
	}
	return out.Value, nil
}

// Airdrop requests lamports from the cluster faucet and waits for confirmation.
func (c *Client) Airdrop(ctx context.Context, to solana.PublicKey, lamports uint64) (Result, error) {
	op := string(OpAirdrop)
	res := Result{Op: OpAirdrop, Amount: lamports}
	if lamports == 0 {
		return res, opErr(op, ErrInvalidAmount, "lamports must be positive")
	}
	sig, err := c.RPC.RequestAirdrop(ctx, to, lamports, c.Commit)
	if err != nil {
		err = classify(op, err, nil)
		record(OpAirdrop, err)
		return res, err
	}
	res.Signature = sig
	res.Slot, err = c.confirm(ctx, op, sig, []solana.PublicKey{solana.SystemProgramID})
	record(OpAirdrop, err)
	return res, err
}

// Sweep sends the whole SOL balance of from, minus the transaction fee, to to.
func (c *Client) Sweep(ctx context.Context, from solana.PrivateKey, to solana.PublicKey) (Result, error) {
	res, err := c.sweep(ctx, from, to)
	record(OpSweep, err)
	return res, err
}

func (c *Client) sweep(ctx context.Context, from solana.PrivateKey, to solana.PublicKey) (Result, error) {
	op := string(OpSweep)
	res := Result{Op: OpSweep}
	balance, err := c.Balance(ctx, from.PublicKey())
	if err != nil {
		return res, err
	}
	fee, err := c.fee(ctx, from.PublicKey(), system.NewTransferInstruction(balance, from.PublicKey(), to).Build())
	if err != nil {
		return res, err
	}
	if balance <= fee {
		return res, opErr(op, ErrInsufficientFunds, "balance %d does not cover fee %d", balance, fee)
	}
	res.Amount = balance - fee
	ix := system.NewTransferInstruction(res.Amount, from.PublicKey(), to).Build()
	res.Signature, res.Slot, err = c.submit(ctx, op, from, nil, ix)
	if err != nil {
		return res, err
	}
	c.log.Info().Str("to", to.String()).Uint64("lamports", res.Amount).Uint64("fee", fee).Str("sig", res.Signature.String()).Msg("swept balance")
	return res, nil
}

// fee asks the cluster what a transaction carrying ixs would cost.
func (c *Client) fee(ctx context.Context, payer solana.PublicKey, ixs ...solana.Instruction) (uint64, error) {
	const op = "fee"
	latest, err := c.RPC.GetLatestBlockhash(ctx, c.Commit)
	if err != nil {
		return 0, classify(op, err, nil)
	}
	tx, err := solana.NewTransaction(ixs, latest.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return 0, opErr(op, ErrRejected, "build tx: %v", err)
	}
	out, err := c.RPC.GetFeeForMessage(ctx, tx.Message.ToBase64(), c.Commit)
	if err != nil {
		return 0, classify(op, err, nil)
	}
	if out.Value == nil {
		return 0, &OpError{Op: op, Kind: ErrNetwork, Err: fmt.Errorf("blockhash %s expired before fee lookup", latest.Value.Blockhash)}
	}
	return *out.Value, nil
}
