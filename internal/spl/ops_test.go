package spl

import (
	"errors"
	"testing"

	solana "github.com/gagliardetto/solana-go"
)

func TestMintToIncreasesBalance(t *testing.T) {
	f := newFixture(t)
	dest := f.resolve(t, f.payer.PublicKey())

	res, err := f.client.MintTo(testContext(t), f.payer, f.payer, dest, 1_000_000)
	if err != nil {
		t.Fatalf("MintTo: %v", err)
	}
	if res.Op != OpMint || res.Amount != 1_000_000 || res.Signature.IsZero() || res.Slot == 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	amount, decimals, err := f.client.TokenBalance(testContext(t), dest.Address)
	if err != nil || amount != 1_000_000 || decimals != 6 {
		t.Fatalf("TokenBalance = %d/%d, %v", amount, decimals, err)
	}
	supply, _, err := f.client.Supply(testContext(t), f.mint)
	if err != nil || supply != 1_000_000 {
		t.Fatalf("Supply = %d, %v", supply, err)
	}
}

func TestMintToRejections(t *testing.T) {
	f := newFixture(t)
	dest := f.resolve(t, f.payer.PublicKey())
	stranger := solana.NewWallet().PrivateKey

	_, err := f.client.MintTo(testContext(t), f.payer, f.payer, dest, 0)
	wantKind(t, err, ErrInvalidAmount)

	_, err = f.client.MintTo(testContext(t), f.payer, stranger, dest, 5)
	wantKind(t, err, ErrAuthorization)

	_, err = f.client.MintTo(testContext(t), f.payer, f.payer, AccountRef{Mint: f.mint}, 5)
	wantKind(t, err, ErrInvalidReference)

	fixed := solana.NewWallet().PublicKey()
	if err := f.ledger.AddMint(fixed, nil, 0); err != nil {
		t.Fatalf("AddMint: %v", err)
	}
	ref, err := f.client.ResolveAccount(testContext(t), f.payer, f.payer.PublicKey(), fixed)
	if err != nil {
		t.Fatalf("resolve fixed-supply account: %v", err)
	}
	_, err = f.client.MintTo(testContext(t), f.payer, f.payer, ref, 5)
	wantKind(t, err, ErrAuthorization)

	if got := f.tokens(t, dest.Address); got != 0 {
		t.Fatalf("rejected mints changed balance to %d", got)
	}
}

func TestTransferMovesTokens(t *testing.T) {
	f := newFixture(t)
	src := f.resolve(t, f.payer.PublicKey())
	dst := f.resolve(t, solana.NewWallet().PublicKey())
	if _, err := f.client.MintTo(testContext(t), f.payer, f.payer, src, 500); err != nil {
		t.Fatalf("MintTo: %v", err)
	}

	res, err := f.client.Transfer(testContext(t), f.payer, f.payer, src, dst, 123)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.Op != OpTransfer || res.Amount != 123 {
		t.Fatalf("unexpected result %+v", res)
	}
	if a, b := f.tokens(t, src.Address), f.tokens(t, dst.Address); a != 377 || b != 123 {
		t.Fatalf("balances = %d/%d, want 377/123", a, b)
	}
}

func TestTransferRejections(t *testing.T) {
	f := newFixture(t)
	owner := solana.NewWallet().PrivateKey
	src := f.resolve(t, f.payer.PublicKey())
	dst := f.resolve(t, owner.PublicKey())
	if _, err := f.client.MintTo(testContext(t), f.payer, f.payer, src, 50); err != nil {
		t.Fatalf("MintTo: %v", err)
	}

	_, err := f.client.Transfer(testContext(t), f.payer, f.payer, src, dst, 51)
	wantKind(t, err, ErrInsufficientBalance)

	_, err = f.client.Transfer(testContext(t), f.payer, f.payer, src, dst, 0)
	wantKind(t, err, ErrInvalidAmount)

	// dst holds nothing, and owner cannot spend the payer's account anyway
	_, err = f.client.Transfer(testContext(t), f.payer, owner, src, dst, 1)
	wantKind(t, err, ErrAuthorization)

	other := f.ledger.CreateMint(f.payer.PublicKey(), 6)
	foreign, err := f.client.ResolveAccount(testContext(t), f.payer, owner.PublicKey(), other)
	if err != nil {
		t.Fatalf("resolve foreign: %v", err)
	}
	_, err = f.client.Transfer(testContext(t), f.payer, f.payer, src, foreign, 1)
	wantKind(t, err, ErrInvalidReference)

	if err := f.ledger.SetFrozen(dst.Address, true); err != nil {
		t.Fatalf("SetFrozen: %v", err)
	}
	_, err = f.client.Transfer(testContext(t), f.payer, f.payer, src, dst, 1)
	wantKind(t, err, ErrAuthorization)
	var ixErr *InstructionError
	if !errors.As(err, &ixErr) || ixErr.Custom == nil || *ixErr.Custom != tokenAccountFrozen {
		t.Fatalf("expected frozen instruction error, got %v", err)
	}

	if a, b := f.tokens(t, src.Address), f.tokens(t, dst.Address); a != 50 || b != 0 {
		t.Fatalf("rejected transfers moved tokens: %d/%d", a, b)
	}
}

func TestTransferByDelegate(t *testing.T) {
	f := newFixture(t)
	delegate := solana.NewWallet().PrivateKey
	src := f.resolve(t, f.payer.PublicKey())
	dst := f.resolve(t, delegate.PublicKey())
	if _, err := f.client.MintTo(testContext(t), f.payer, f.payer, src, 100); err != nil {
		t.Fatalf("MintTo: %v", err)
	}
	if err := f.ledger.Approve(src.Address, delegate.PublicKey(), 5); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// within the balance but over the allowance
	_, err := f.client.Transfer(testContext(t), f.payer, delegate, src, dst, 6)
	wantKind(t, err, ErrInsufficientBalance)

	if _, err := f.client.Transfer(testContext(t), f.payer, delegate, src, dst, 5); err != nil {
		t.Fatalf("delegated Transfer: %v", err)
	}
	if a, b := f.tokens(t, src.Address), f.tokens(t, dst.Address); a != 95 || b != 5 {
		t.Fatalf("balances = %d/%d, want 95/5", a, b)
	}

	// the spent allowance revokes the delegate
	_, err = f.client.Transfer(testContext(t), f.payer, delegate, src, dst, 1)
	wantKind(t, err, ErrAuthorization)
}
