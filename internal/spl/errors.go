package spl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	// ErrNetwork is transient: the endpoint was unreachable, timed out or lost the blockhash.
	ErrNetwork = errors.New("network error")
	// ErrAuthorization means the signer lacks mint privilege or control over the source account.
	ErrAuthorization = errors.New("authorization error")
	// ErrInsufficientFunds means the fee payer cannot cover fees or rent.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientBalance means the source token account holds less than requested.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidReference means a mint or account address does not denote what it should.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrInvalidAmount rejects zero or unrepresentable quantities before anything is sent.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrRejected covers any other on-chain failure.
	ErrRejected = errors.New("transaction rejected")

	errAccountInUse = errors.New("account already in use")
)

// OpError reports which operation failed, its kind, and the underlying cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opErr(op string, kind error, format string, args ...any) error {
	return &OpError{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// InstructionError pinpoints the failing instruction of a transaction.
// Program is only meaningful when Known is set; the zero key doubles as the system program id.
type InstructionError struct {
	Index   int
	Program solana.PublicKey
	Known   bool
	Custom  *uint32
	Name    string
}

func (e *InstructionError) Error() string {
	where := fmt.Sprintf("instruction %d", e.Index)
	if e.Known {
		where = fmt.Sprintf("instruction %d (%s)", e.Index, e.Program)
	}
	if e.Custom != nil {
		return fmt.Sprintf("%s: custom program error: 0x%x", where, *e.Custom)
	}
	return fmt.Sprintf("%s: %s", where, e.Name)
}

// Kind returns a short label for the error kind, suitable for metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrAuthorization):
		return "authorization"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	default:
		return "rejected"
	}
}

// classify maps an SDK/RPC error onto the error kinds. programs lists the program id of
// each instruction in the submitted transaction, in order.
func classify(op string, err error, programs []solana.PublicKey) error {
	if err == nil {
		return nil
	}
	var already *OpError
	if errors.As(err, &already) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &OpError{Op: op, Kind: ErrNetwork, Err: err}
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if data, ok := rpcErr.Data.(map[string]any); ok {
			if txErr, ok := data["err"]; ok && txErr != nil {
				kind, ixErr := transactionErrorKind(txErr, programs)
				if ixErr != nil {
					return &OpError{Op: op, Kind: kind, Err: fmt.Errorf("%w: %s", ixErr, rpcErr.Message)}
				}
				return &OpError{Op: op, Kind: kind, Err: errors.New(rpcErr.Message)}
			}
		}
		if strings.Contains(strings.ToLower(rpcErr.Message), "blockhash not found") {
			return &OpError{Op: op, Kind: ErrNetwork, Err: errors.New(rpcErr.Message)}
		}
		if rpcErr.Code == codeInvalidParams {
			// e.g. getTokenAccountBalance on an address that is not a token account
			return &OpError{Op: op, Kind: ErrInvalidReference, Err: errors.New(rpcErr.Message)}
		}
		return &OpError{Op: op, Kind: ErrRejected, Err: errors.New(rpcErr.Message)}
	}

	var httpErr *jsonrpc.HTTPError
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &httpErr) || errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return &OpError{Op: op, Kind: ErrNetwork, Err: err}
	}
	return &OpError{Op: op, Kind: ErrRejected, Err: err}
}

// statusError classifies the err field of a signature status.
func statusError(op string, txErr any, programs []solana.PublicKey) error {
	kind, ixErr := transactionErrorKind(txErr, programs)
	if ixErr != nil {
		return &OpError{Op: op, Kind: kind, Err: ixErr}
	}
	raw, _ := json.Marshal(txErr)
	return &OpError{Op: op, Kind: kind, Err: fmt.Errorf("transaction failed: %s", raw)}
}

// transactionErrorKind understands the TransactionError JSON shape:
// "AccountNotFound" | {"InstructionError": [idx, "Name" | {"Custom": n}]} | {"InsufficientFundsForRent": {...}}.
func transactionErrorKind(txErr any, programs []solana.PublicKey) (error, *InstructionError) {
	switch v := txErr.(type) {
	case string:
		return namedTransactionErrorKind(v), nil
	case map[string]any:
		if pair, ok := v["InstructionError"].([]any); ok && len(pair) == 2 {
			idx, _ := toUint64(pair[0])
			ixErr := &InstructionError{Index: int(idx)}
			if idx < uint64(len(programs)) {
				ixErr.Program = programs[idx]
				ixErr.Known = true
			}
			switch detail := pair[1].(type) {
			case string:
				ixErr.Name = detail
			case map[string]any:
				if n, ok := toUint64(detail["Custom"]); ok {
					code := uint32(n)
					ixErr.Custom = &code
				} else {
					for name := range detail {
						ixErr.Name = name
					}
				}
			}
			return instructionErrorKind(ixErr), ixErr
		}
		for name := range v {
			return namedTransactionErrorKind(name), nil
		}
	}
	return ErrRejected, nil
}

func namedTransactionErrorKind(name string) error {
	switch name {
	case "AccountNotFound", "InsufficientFundsForFee", "InsufficientFundsForRent":
		return ErrInsufficientFunds
	case "BlockhashNotFound":
		return ErrNetwork
	case "ProgramAccountNotFound", "InvalidAccountForFee", "InvalidAccountIndex":
		return ErrInvalidReference
	case "SignatureFailure", "MissingSignatureForFee":
		return ErrAuthorization
	default:
		return ErrRejected
	}
}

// Token program error codes (spl-token TokenError) and system program codes.
const (
	tokenInsufficientFunds    = 1
	tokenInvalidMint          = 2
	tokenMintMismatch         = 3
	tokenOwnerMismatch        = 4
	tokenFixedSupply          = 5
	tokenUninitializedState   = 9
	tokenAccountFrozen        = 17
	tokenMintDecimalsMismatch = 18

	systemAccountAlreadyInUse        = 0
	systemResultWithNegativeLamports = 1

	codeInvalidParams = -32602
)

func instructionErrorKind(e *InstructionError) error {
	if e.Custom != nil {
		if !e.Known {
			return ErrRejected
		}
		code := *e.Custom
		switch {
		case e.Program.Equals(solana.TokenProgramID):
			switch code {
			case tokenInsufficientFunds:
				return ErrInsufficientBalance
			case tokenOwnerMismatch, tokenFixedSupply, tokenAccountFrozen:
				return ErrAuthorization
			case tokenInvalidMint, tokenMintMismatch, tokenUninitializedState, tokenMintDecimalsMismatch:
				return ErrInvalidReference
			}
		case e.Program.Equals(solana.SystemProgramID), e.Program.Equals(solana.SPLAssociatedTokenAccountProgramID):
			switch code {
			case systemAccountAlreadyInUse:
				return errAccountInUse
			case systemResultWithNegativeLamports:
				return ErrInsufficientFunds
			}
		}
		return ErrRejected
	}
	switch e.Name {
	case "MissingRequiredSignature":
		return ErrAuthorization
	case "InsufficientFunds":
		return ErrInsufficientFunds
	case "InvalidAccountData", "IncorrectProgramId", "UninitializedAccount", "InvalidSeeds", "IllegalOwner", "InvalidAccountOwner":
		return ErrInvalidReference
	default:
		return ErrRejected
	}
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return uint64(i), err == nil && i >= 0
	case float64:
		return uint64(n), n >= 0
	case int:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case fmt.Stringer:
		i, err := strconv.ParseUint(n.String(), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
