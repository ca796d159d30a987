package spl

import (
	"context"
	"errors"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// submit signs ixs with payer (fee payer) plus signers, sends once, and waits for
// the client's commitment. It never resends.
func (c *Client) submit(ctx context.Context, op string, payer solana.PrivateKey, signers []solana.PrivateKey, ixs ...solana.Instruction) (solana.Signature, uint64, error) {
	programs := make([]solana.PublicKey, len(ixs))
	for i, ix := range ixs {
		programs[i] = ix.ProgramID()
	}

	latest, err := c.RPC.GetLatestBlockhash(ctx, c.Commit)
	if err != nil {
		return solana.Signature{}, 0, classify(op, err, programs)
	}
	tx, err := solana.NewTransaction(ixs, latest.Value.Blockhash, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return solana.Signature{}, 0, opErr(op, ErrRejected, "build tx: %v", err)
	}

	keys := map[solana.PublicKey]solana.PrivateKey{payer.PublicKey(): payer}
	for _, s := range signers {
		keys[s.PublicKey()] = s
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if k, ok := keys[key]; ok {
			return &k
		}
		return nil
	}); err != nil {
		return solana.Signature{}, 0, opErr(op, ErrAuthorization, "sign: %v", err)
	}

	sig, err := c.RPC.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: c.Commit,
	})
	if err != nil {
		return sig, 0, classify(op, err, programs)
	}
	c.log.Debug().Str("op", op).Str("sig", sig.String()).Msg("submitted")

	slot, err := c.confirm(ctx, op, sig, programs)
	return sig, slot, err
}

// confirm polls the signature status until it reaches the client's commitment,
// the transaction fails, or ctx expires.
func (c *Client) confirm(ctx context.Context, op string, sig solana.Signature, programs []solana.PublicKey) (uint64, error) {
	ticker := time.NewTicker(c.confirmPoll)
	defer ticker.Stop()
	for {
		out, err := c.RPC.GetSignatureStatuses(ctx, false, sig)
		if err != nil && !errors.Is(err, rpc.ErrNotFound) {
			return 0, classify(op, err, programs)
		}
		if err == nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return status.Slot, statusError(op, status.Err, programs)
			}
			if reached(status.ConfirmationStatus, c.Commit) {
				return status.Slot, nil
			}
		}
		select {
		case <-ctx.Done():
			return 0, &OpError{Op: op, Kind: ErrNetwork, Err: fmt.Errorf("waiting for %s confirmation of %s: %w", c.Commit, sig, ctx.Err())}
		case <-ticker.C:
		}
	}
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := map[string]int{"processed": 1, "confirmed": 2, "finalized": 3}
	return rank[string(status)] >= rank[string(want)] && rank[string(status)] > 0
}
