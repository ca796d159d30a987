package spl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

func preflight(txErr any) error {
	return &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed",
		Data:    map[string]any{"err": txErr, "logs": []any{}},
	}
}

func instructionFailure(idx int, detail any) map[string]any {
	return map[string]any{"InstructionError": []any{json.Number(fmt.Sprint(idx)), detail}}
}

func TestClassify(t *testing.T) {
	token := []solana.PublicKey{solana.TokenProgramID}
	ata := []solana.PublicKey{solana.SPLAssociatedTokenAccountProgramID}
	cases := []struct {
		name     string
		err      error
		programs []solana.PublicKey
		want     error
	}{
		{"deadline", fmt.Errorf("rpc: %w", context.DeadlineExceeded), nil, ErrNetwork},
		{"dial", &url.Error{Op: "Post", URL: "http://127.0.0.1:8899", Err: errors.New("connection refused")}, nil, ErrNetwork},
		{"blockhash message", &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"}, nil, ErrNetwork},
		{"blockhash value", preflight("BlockhashNotFound"), nil, ErrNetwork},
		{"fee payer missing", preflight("AccountNotFound"), nil, ErrInsufficientFunds},
		{"fee", preflight("InsufficientFundsForFee"), nil, ErrInsufficientFunds},
		{"signature", preflight("SignatureFailure"), nil, ErrAuthorization},
		{"token balance", preflight(instructionFailure(0, map[string]any{"Custom": json.Number("1")})), token, ErrInsufficientBalance},
		{"owner mismatch", preflight(instructionFailure(0, map[string]any{"Custom": json.Number("4")})), token, ErrAuthorization},
		{"fixed supply", preflight(instructionFailure(0, map[string]any{"Custom": float64(5)})), token, ErrAuthorization},
		{"mint mismatch", preflight(instructionFailure(0, map[string]any{"Custom": json.Number("3")})), token, ErrInvalidReference},
		{"rent", preflight(instructionFailure(0, map[string]any{"Custom": json.Number("1")})), ata, ErrInsufficientFunds},
		{"in use", preflight(instructionFailure(0, map[string]any{"Custom": json.Number("0")})), ata, errAccountInUse},
		{"missing signature", preflight(instructionFailure(0, "MissingRequiredSignature")), token, ErrAuthorization},
		{"bad seeds", preflight(instructionFailure(0, "InvalidSeeds")), ata, ErrInvalidReference},
		{"unknown custom", preflight(instructionFailure(0, map[string]any{"Custom": json.Number("99")})), token, ErrRejected},
		{"index out of range", preflight(instructionFailure(3, map[string]any{"Custom": json.Number("1")})), token, ErrRejected},
		{"no programs, custom 0", preflight(instructionFailure(3, map[string]any{"Custom": json.Number("0")})), nil, ErrRejected},
		{"no programs, custom 1", preflight(instructionFailure(0, map[string]any{"Custom": json.Number("1")})), nil, ErrRejected},
		{"system rent", preflight(instructionFailure(1, map[string]any{"Custom": json.Number("1")})), []solana.PublicKey{solana.TokenProgramID, solana.SystemProgramID}, ErrInsufficientFunds},
		{"invalid params", &jsonrpc.RPCError{Code: -32602, Message: "Invalid param: could not find account"}, nil, ErrInvalidReference},
		{"other rpc", &jsonrpc.RPCError{Code: -32005, Message: "node is behind"}, nil, ErrRejected},
		{"opaque", errors.New("boom"), nil, ErrRejected},
	}
	for _, tc := range cases {
		got := classify("op", tc.err, tc.programs)
		if !errors.Is(got, tc.want) {
			t.Fatalf("%s: classify = %v, want kind %v", tc.name, got, tc.want)
		}
	}
}

func TestClassifyKeepsOpErrors(t *testing.T) {
	orig := opErr("transfer", ErrInsufficientBalance, "holds %d", 3)
	if got := classify("other", orig, nil); got != orig {
		t.Fatalf("classify rewrapped an OpError: %v", got)
	}
	if classify("op", nil, nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
}

func TestStatusErrorCarriesInstruction(t *testing.T) {
	err := statusError("mint", instructionFailure(0, map[string]any{"Custom": json.Number("17")}), []solana.PublicKey{solana.TokenProgramID})
	wantKind(t, err, ErrAuthorization)
	var ixErr *InstructionError
	if !errors.As(err, &ixErr) || ixErr.Index != 0 || !ixErr.Program.Equals(solana.TokenProgramID) {
		t.Fatalf("unexpected instruction error %+v", ixErr)
	}
	if ixErr.Error() != fmt.Sprintf("instruction 0 (%s): custom program error: 0x11", solana.TokenProgramID) {
		t.Fatalf("unexpected message %q", ixErr.Error())
	}

	err = statusError("resolve", instructionFailure(2, map[string]any{"Custom": json.Number("0")}), nil)
	wantKind(t, err, ErrRejected)
	if errors.Is(err, errAccountInUse) || !errors.As(err, &ixErr) || ixErr.Known {
		t.Fatalf("unknown program taken for the system program: %v", err)
	}
	if ixErr.Error() != "instruction 2: custom program error: 0x0" {
		t.Fatalf("unexpected message %q", ixErr.Error())
	}

	err = statusError("mint", map[string]any{"InsufficientFundsForRent": map[string]any{"account_index": 1}}, nil)
	wantKind(t, err, ErrInsufficientFunds)
}

func TestKindLabels(t *testing.T) {
	cases := map[error]string{
		nil:                                       "ok",
		opErr("x", ErrNetwork, "down"):            "network",
		opErr("x", ErrAuthorization, "no"):        "authorization",
		opErr("x", ErrInsufficientFunds, "poor"):  "insufficient_funds",
		opErr("x", ErrInsufficientBalance, "low"): "insufficient_balance",
		opErr("x", ErrInvalidReference, "bad"):    "invalid_reference",
		opErr("x", ErrInvalidAmount, "zero"):      "invalid_amount",
		opErr("x", ErrRejected, "nope"):           "rejected",
	}
	for err, want := range cases {
		if got := Kind(err); got != want {
			t.Fatalf("Kind(%v) = %s, want %s", err, got, want)
		}
	}
}
