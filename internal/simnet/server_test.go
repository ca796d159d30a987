package simnet

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

func newTestServer(t *testing.T) (*Ledger, *rpc.Client, *httptest.Server) {
	t.Helper()
	l, _ := newTestLedger(t)
	srv := httptest.NewServer(NewServer(l, 0).Router())
	t.Cleanup(srv.Close)
	return l, rpc.New(srv.URL), srv
}

func TestServerRoundTrip(t *testing.T) {
	l, client, _ := newTestServer(t)
	ctx := context.Background()
	payer := solana.NewWallet().PrivateKey
	mint := l.CreateMint(payer.PublicKey(), 6)

	if _, err := client.RequestAirdrop(ctx, payer.PublicKey(), funded, rpc.CommitmentConfirmed); err != nil {
		t.Fatalf("RequestAirdrop: %v", err)
	}
	bal, err := client.GetBalance(ctx, payer.PublicKey(), rpc.CommitmentConfirmed)
	if err != nil || bal.Value != funded {
		t.Fatalf("GetBalance = %+v, %v", bal, err)
	}

	dest := ata(t, payer.PublicKey(), mint)
	if _, err := client.GetAccountInfo(ctx, dest); !errors.Is(err, rpc.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing account, got %v", err)
	}

	latest, err := client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}
	tx, err := solana.NewTransaction([]solana.Instruction{
		associatedtokenaccount.NewCreateInstruction(payer.PublicKey(), payer.PublicKey(), mint).Build(),
		token.NewMintToInstruction(1_500_000, mint, dest, payer.PublicKey(), nil).Build(),
	}, latest.Value.Blockhash, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	if _, err := tx.Sign(func(solana.PublicKey) *solana.PrivateKey { return &payer }); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	fee, err := client.GetFeeForMessage(ctx, tx.Message.ToBase64(), rpc.CommitmentConfirmed)
	if err != nil || fee.Value == nil || *fee.Value != FeePerSignature {
		t.Fatalf("GetFeeForMessage = %+v, %v", fee, err)
	}

	sig, err := client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{PreflightCommitment: rpc.CommitmentConfirmed})
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	statuses, err := client.GetSignatureStatuses(ctx, false, sig, solana.Signature{9})
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}
	if len(statuses.Value) != 2 || statuses.Value[0] == nil || statuses.Value[0].Err != nil || statuses.Value[1] != nil {
		t.Fatalf("unexpected statuses %+v", statuses.Value)
	}

	tb, err := client.GetTokenAccountBalance(ctx, dest, rpc.CommitmentConfirmed)
	if err != nil {
		t.Fatalf("GetTokenAccountBalance: %v", err)
	}
	if tb.Value.Amount != "1500000" || tb.Value.Decimals != 6 || tb.Value.UiAmountString != "1.5" {
		t.Fatalf("unexpected token balance %+v", tb.Value)
	}
	supply, err := client.GetTokenSupply(ctx, mint, rpc.CommitmentConfirmed)
	if err != nil || supply.Value.Amount != "1500000" {
		t.Fatalf("GetTokenSupply = %+v, %v", supply, err)
	}
	info, err := client.GetAccountInfoWithOpts(ctx, dest, &rpc.GetAccountInfoOpts{Encoding: solana.EncodingBase64})
	if err != nil || !info.Value.Owner.Equals(token.ProgramID) || len(info.Value.Data.GetBinary()) != 165 {
		t.Fatalf("GetAccountInfo = %+v, %v", info, err)
	}
	rent, err := client.GetMinimumBalanceForRentExemption(ctx, 165, rpc.CommitmentConfirmed)
	if err != nil || rent != TokenAccountRent {
		t.Fatalf("GetMinimumBalanceForRentExemption = %d, %v", rent, err)
	}
}

func TestServerPreflightError(t *testing.T) {
	l, client, _ := newTestServer(t)
	ctx := context.Background()
	payer := solana.NewWallet().PrivateKey
	fund(t, l, payer)
	mint := l.CreateMint(solana.NewWallet().PublicKey(), 0)
	dest := ata(t, payer.PublicKey(), mint)
	if _, err := l.Process(signedTx(t, l, payer, nil, associatedtokenaccount.NewCreateInstruction(payer.PublicKey(), payer.PublicKey(), mint).Build()), false); err != nil {
		t.Fatalf("create: %v", err)
	}

	tx := signedTx(t, l, payer, nil, token.NewMintToInstruction(1, mint, dest, payer.PublicKey(), nil).Build())
	_, err := client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{})
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *jsonrpc.RPCError, got %T %v", err, err)
	}
	if rpcErr.Code != codePreflightFailure || !strings.Contains(rpcErr.Message, "custom program error: 0x4") {
		t.Fatalf("unexpected rpc error %d %q", rpcErr.Code, rpcErr.Message)
	}
	data, ok := rpcErr.Data.(map[string]any)
	if !ok || data["err"] == nil {
		t.Fatalf("expected err in data, got %#v", rpcErr.Data)
	}
}

func TestServerProtocolErrors(t *testing.T) {
	_, client, srv := newTestServer(t)
	ctx := context.Background()

	var out any
	err := client.RPCCallForInto(ctx, &out, "getProgramAccounts", []any{solana.TokenProgramID.String()})
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %v", err)
	}
	if _, err := client.GetBalance(ctx, solana.PublicKey{}, ""); err != nil {
		t.Fatalf("zero key balance: %v", err)
	}
	if _, err := client.RequestAirdrop(ctx, solana.NewWallet().PublicKey(), defaultAirdropCeiling+1, ""); !errors.As(err, &rpcErr) || rpcErr.Code != codeInvalidParams {
		t.Fatalf("expected airdrop cap error, got %v", err)
	}

	resp, err := http.Post(srv.URL, "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "-32700") {
		t.Fatalf("expected parse error, got %s", body)
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %v %v", resp, err)
	}
	resp.Body.Close()
	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "simnet_rpc_requests_total") {
		t.Fatalf("metrics missing rpc counter")
	}
}
