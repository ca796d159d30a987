package spl

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// AccountRef is an associated token account produced by ResolveAccount.
type AccountRef struct {
	Owner    solana.PublicKey
	Mint     solana.PublicKey
	Address  solana.PublicKey
	Decimals uint8

	// Created is true when this resolution submitted the account creation;
	// Signature is that transaction.
	Created   bool
	Signature solana.Signature
}

// AssociatedAddress derives the associated token account of owner for mint.
func AssociatedAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated address: %w", err)
	}
	return addr, nil
}

// GetMint reads and decodes an SPL mint. Anything that is not an initialized
// token-program mint is an ErrInvalidReference.
func (c *Client) GetMint(ctx context.Context, mint solana.PublicKey) (*token.Mint, error) {
	const op = "get mint"
	data, err := c.tokenProgramData(ctx, mint)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, opErr(op, ErrInvalidReference, "mint %s does not exist", mint)
	}
	if err != nil {
		return nil, classify(op, err, nil)
	}
	var m token.Mint
	if err := bin.NewBinDecoder(data).Decode(&m); err != nil {
		return nil, opErr(op, ErrInvalidReference, "decode mint %s: %v", mint, err)
	}
	if !m.IsInitialized {
		return nil, opErr(op, ErrInvalidReference, "mint %s is not initialized", mint)
	}
	return &m, nil
}

// GetTokenAccount reads and decodes an SPL token account. A missing account is
// reported as rpc.ErrNotFound so callers can decide whether to create it.
func (c *Client) GetTokenAccount(ctx context.Context, addr solana.PublicKey) (*token.Account, error) {
	const op = "get token account"
	data, err := c.tokenProgramData(ctx, addr)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, classify(op, err, nil)
	}
	var acct token.Account
	if err := bin.NewBinDecoder(data).Decode(&acct); err != nil {
		return nil, opErr(op, ErrInvalidReference, "decode token account %s: %v", addr, err)
	}
	return &acct, nil
}

func (c *Client) tokenProgramData(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	out, err := c.RPC.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.Commit,
	})
	if err != nil {
		return nil, err
	}
	if !out.Value.Owner.Equals(token.ProgramID) {
		return nil, opErr("read account", ErrInvalidReference, "%s is owned by %s, not the token program", addr, out.Value.Owner)
	}
	return out.Value.Data.GetBinary(), nil
}

func classifyMissing(op string, err error, addr solana.PublicKey) error {
	if errors.Is(err, rpc.ErrNotFound) {
		return opErr(op, ErrInvalidReference, "account %s does not exist", addr)
	}
	return classify(op, err, nil)
}
