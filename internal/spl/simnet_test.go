package spl

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"spltoken-go/internal/simnet"
)

const lamportsPerSOL = 1_000_000_000

type fixture struct {
	ledger *simnet.Ledger
	client *Client
	payer  solana.PrivateKey
	mint   solana.PublicKey
	url    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := simnet.NewLedger(zerolog.Nop())
	srv := httptest.NewServer(simnet.NewServer(ledger, 0).Router())
	t.Cleanup(srv.Close)

	payer := solana.NewWallet().PrivateKey
	if _, err := ledger.Airdrop(payer.PublicKey(), 2*lamportsPerSOL); err != nil {
		t.Fatalf("fund payer: %v", err)
	}
	return &fixture{
		ledger: ledger,
		client: NewClient(srv.URL, "confirmed", zerolog.Nop(), WithConfirmPoll(5*time.Millisecond)),
		payer:  payer,
		mint:   ledger.CreateMint(payer.PublicKey(), 6),
		url:    srv.URL,
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (f *fixture) resolve(t *testing.T, owner solana.PublicKey) AccountRef {
	t.Helper()
	ref, err := f.client.ResolveAccount(testContext(t), f.payer, owner, f.mint)
	if err != nil {
		t.Fatalf("ResolveAccount(%s): %v", owner, err)
	}
	return ref
}

func (f *fixture) tokens(t *testing.T, addr solana.PublicKey) uint64 {
	t.Helper()
	acct, ok := f.ledger.TokenAccount(addr)
	if !ok {
		t.Fatalf("token account %s missing", addr)
	}
	return acct.Amount
}

func wantKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
