package spl

import (
	"strings"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

func TestAirdropAndBalance(t *testing.T) {
	f := newFixture(t)
	key := solana.NewWallet().PublicKey()

	res, err := f.client.Airdrop(testContext(t), key, lamportsPerSOL)
	if err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	if res.Op != OpAirdrop || res.Signature.IsZero() {
		t.Fatalf("unexpected result %+v", res)
	}
	bal, err := f.client.Balance(testContext(t), key)
	if err != nil || bal != lamportsPerSOL {
		t.Fatalf("Balance = %d, %v", bal, err)
	}

	_, err = f.client.Airdrop(testContext(t), key, 0)
	wantKind(t, err, ErrInvalidAmount)
}

func TestSweepLeavesNothing(t *testing.T) {
	f := newFixture(t)
	from := solana.NewWallet().PrivateKey
	to := solana.NewWallet().PublicKey()
	if _, err := f.ledger.Airdrop(from.PublicKey(), 1_000_000); err != nil {
		t.Fatalf("fund: %v", err)
	}

	res, err := f.client.Sweep(testContext(t), from, to)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Amount != 1_000_000-5000 {
		t.Fatalf("swept %d", res.Amount)
	}
	if got := f.ledger.Lamports(from.PublicKey()); got != 0 {
		t.Fatalf("source keeps %d lamports", got)
	}
	if got := f.ledger.Lamports(to); got != res.Amount {
		t.Fatalf("recipient got %d", got)
	}

	_, err = f.client.Sweep(testContext(t), from, to)
	wantKind(t, err, ErrInsufficientFunds)
}

func TestTokenBalanceOfNonTokenAccount(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.client.TokenBalance(testContext(t), f.payer.PublicKey())
	wantKind(t, err, ErrInvalidReference)
}

func TestParseCommitmentAndExplorer(t *testing.T) {
	cases := map[string]rpc.CommitmentType{
		"processed":   rpc.CommitmentProcessed,
		" Finalized ": rpc.CommitmentFinalized,
		"confirmed":   rpc.CommitmentConfirmed,
		"":            rpc.CommitmentConfirmed,
		"something":   rpc.CommitmentConfirmed,
	}
	for in, want := range cases {
		if got := ParseCommitment(in); got != want {
			t.Fatalf("ParseCommitment(%q) = %s, want %s", in, got, want)
		}
	}

	sig := solana.Signature{1, 2, 3}
	if u := ExplorerURL(sig, "devnet"); !strings.HasSuffix(u, sig.String()+"?cluster=devnet") {
		t.Fatalf("unexpected explorer url %s", u)
	}
	if u := ExplorerURL(sig, ""); strings.Contains(u, "?") {
		t.Fatalf("mainnet url should have no cluster: %s", u)
	}
}
