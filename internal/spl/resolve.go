package spl

import (
	"context"
	"errors"

	solana "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/rpc"

	"spltoken-go/internal/metrics"
)

// ResolveAccount returns owner's associated token account for mint, creating it
// (paid by payer) when absent. The address is the same on every call; only the
// first call for a fresh owner submits a transaction, reported via Created.
func (c *Client) ResolveAccount(ctx context.Context, payer solana.PrivateKey, owner, mint solana.PublicKey) (AccountRef, error) {
	const op = "resolve"
	if owner.IsZero() {
		return AccountRef{}, opErr(op, ErrInvalidReference, "owner is the zero key")
	}
	m, err := c.GetMint(ctx, mint)
	if err != nil {
		return AccountRef{}, err
	}
	addr, err := AssociatedAddress(owner, mint)
	if err != nil {
		return AccountRef{}, &OpError{Op: op, Kind: ErrInvalidReference, Err: err}
	}
	ref := AccountRef{Owner: owner, Mint: mint, Address: addr, Decimals: m.Decimals}

	existing, err := c.GetTokenAccount(ctx, addr)
	switch {
	case err == nil:
		if err := checkHolding(op, ref, existing.Mint, existing.Owner); err != nil {
			return AccountRef{}, err
		}
		return ref, nil
	case !errors.Is(err, rpc.ErrNotFound):
		return AccountRef{}, err
	}

	ix := associatedtokenaccount.NewCreateInstruction(payer.PublicKey(), owner, mint).Build()
	sig, _, err := c.submit(ctx, op, payer, nil, ix)
	if errors.Is(err, errAccountInUse) {
		// Someone else created it between our read and our create.
		existing, rerr := c.GetTokenAccount(ctx, addr)
		if rerr != nil {
			return AccountRef{}, classifyMissing(op, rerr, addr)
		}
		if err := checkHolding(op, ref, existing.Mint, existing.Owner); err != nil {
			return AccountRef{}, err
		}
		c.log.Info().Str("ata", addr.String()).Msg("associated account created concurrently")
		return ref, nil
	}
	if err != nil {
		metrics.OperationsTotal.WithLabelValues(op, Kind(err)).Inc()
		return AccountRef{}, err
	}

	metrics.AccountsCreatedTotal.Inc()
	metrics.OperationsTotal.WithLabelValues(op, "confirmed").Inc()
	c.log.Info().Str("owner", owner.String()).Str("mint", mint.String()).Str("ata", addr.String()).Str("sig", sig.String()).Msg("created associated token account")
	ref.Created = true
	ref.Signature = sig
	return ref, nil
}

func checkHolding(op string, ref AccountRef, mint, owner solana.PublicKey) error {
	if !mint.Equals(ref.Mint) {
		return opErr(op, ErrInvalidReference, "account %s holds mint %s, want %s", ref.Address, mint, ref.Mint)
	}
	if !owner.Equals(ref.Owner) {
		return opErr(op, ErrInvalidReference, "account %s is owned by %s, want %s", ref.Address, owner, ref.Owner)
	}
	return nil
}
